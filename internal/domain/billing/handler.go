package billing

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
	"github.com/dentaldesk/dentaldesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	readGroup.GET("/items", h.ListItems)
	readGroup.GET("/items/search/:name", h.SearchItems)
	readGroup.GET("/items/:id", h.GetItem)
	readGroup.GET("/invoices", h.ListInvoices)
	readGroup.GET("/invoices/doctor/:id", h.ListDoctorInvoices)
	readGroup.GET("/invoices/patient/:id", h.ListPatientInvoices)
	readGroup.GET("/invoices/clinic/:name", h.ListClinicInvoices)
	readGroup.GET("/invoices/:id", h.GetInvoice)
	readGroup.POST("/invoices", h.CreateInvoice)
	readGroup.PUT("/invoices/:id", h.UpdateInvoice)
	readGroup.DELETE("/invoices/:id", h.DeleteInvoice)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	writeGroup.POST("/items", h.CreateItem)
	writeGroup.PUT("/items/:id", h.UpdateItem)
	writeGroup.DELETE("/items/:id", h.DeleteItem)
}

func invalid(msg string) error {
	return apperr.HTTPError(apperr.New(apperr.Invalid, "", msg))
}

func uuidParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, invalid("invalid id")
	}
	return id, nil
}

func invoiceID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid id")
	}
	return id, nil
}

// -- Item Handlers --

func (h *Handler) CreateItem(c echo.Context) error {
	var it Item
	if err := c.Bind(&it); err != nil {
		return invalid("invalid request body")
	}
	if err := h.svc.CreateItem(c.Request().Context(), &it); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := uuidParam(c)
	if err != nil {
		return err
	}
	it, err := h.svc.GetItem(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) UpdateItem(c echo.Context) error {
	id, err := uuidParam(c)
	if err != nil {
		return err
	}
	var it Item
	if err := c.Bind(&it); err != nil {
		return invalid("invalid request body")
	}
	it.ID = id
	if err := h.svc.UpdateItem(c.Request().Context(), &it); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) DeleteItem(c echo.Context) error {
	id, err := uuidParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteItem(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListItems(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) SearchItems(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchItems(c.Request().Context(), c.Param("name"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

// -- Invoice Handlers --

func (h *Handler) CreateInvoice(c echo.Context) error {
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return invalid("invalid request body")
	}
	if err := h.svc.CreateInvoice(c.Request().Context(), &inv); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := invoiceID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) UpdateInvoice(c echo.Context) error {
	id, err := invoiceID(c)
	if err != nil {
		return err
	}
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return invalid("invalid request body")
	}
	inv.ID = id
	if err := h.svc.UpdateInvoice(c.Request().Context(), &inv); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) DeleteInvoice(c echo.Context) error {
	id, err := invoiceID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInvoice(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	return h.listInvoices(c, InvoiceFilter{})
}

func (h *Handler) ListDoctorInvoices(c echo.Context) error {
	id, err := uuidParam(c)
	if err != nil {
		return err
	}
	return h.listInvoices(c, InvoiceFilter{DoctorID: id})
}

func (h *Handler) ListPatientInvoices(c echo.Context) error {
	id, err := uuidParam(c)
	if err != nil {
		return err
	}
	return h.listInvoices(c, InvoiceFilter{PatientID: id})
}

func (h *Handler) ListClinicInvoices(c echo.Context) error {
	return h.listInvoices(c, InvoiceFilter{Clinic: c.Param("name")})
}

func (h *Handler) listInvoices(c echo.Context, f InvoiceFilter) error {
	pg := pagination.FromContext(c)
	invs, total, err := h.svc.ListInvoices(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(invs, total, pg))
}
