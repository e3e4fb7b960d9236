package practice

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
	"github.com/dentaldesk/dentaldesk/pkg/pagination"
)

type Handler struct {
	svc        *Service
	membership *Membership
}

func NewHandler(svc *Service, membership *Membership) *Handler {
	return &Handler{svc: svc, membership: membership}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	staff.GET("/clinics", h.ListClinics)
	staff.GET("/clinics/search/:name", h.SearchClinics)
	staff.GET("/clinics/:name", h.GetClinic)
	staff.GET("/clinics/:name/doctors", h.ClinicDoctors)
	staff.GET("/doctors", h.ListDoctors)
	staff.GET("/doctors/search/:name", h.SearchDoctors)
	staff.GET("/doctors/:id", h.GetDoctor)
	staff.GET("/doctors/:id/patients", h.DoctorPatients)
	staff.GET("/patients/search/:name", h.SearchPatients)
	staff.GET("/patients/:id", h.GetPatient)
	staff.POST("/patients", h.AddPatient)
	staff.PUT("/patients/:id", h.UpdatePatient)
	staff.DELETE("/patients/:id", h.RemovePatient)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/clinics", h.CreateClinic)
	admin.DELETE("/clinics/:name", h.RemoveClinic)
	admin.POST("/clinics/:name/reconcile", h.ReconcileClinic)
	admin.POST("/doctors", h.AddDoctor)
	admin.DELETE("/doctors/:id", h.RemoveDoctor)
	admin.POST("/doctors/:id/reconcile", h.ReconcileDoctor)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.HTTPError(apperr.New(apperr.Invalid, "", "invalid id"))
	}
	return id, nil
}

func bindErr(err error) error {
	return apperr.HTTPError(apperr.New(apperr.Invalid, "", "invalid request body: "+err.Error()))
}

// -- Clinic Handlers --

type createClinicRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateClinic(c echo.Context) error {
	var req createClinicRequest
	if err := c.Bind(&req); err != nil {
		return bindErr(err)
	}
	clinic, err := h.svc.CreateClinic(c.Request().Context(), req.Name)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, clinic)
}

func (h *Handler) GetClinic(c echo.Context) error {
	clinic, err := h.svc.GetClinic(c.Request().Context(), c.Param("name"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, clinic)
}

func (h *Handler) ListClinics(c echo.Context) error {
	pg := pagination.FromContext(c)
	clinics, total, err := h.svc.ListClinics(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(clinics, total, pg))
}

func (h *Handler) SearchClinics(c echo.Context) error {
	pg := pagination.FromContext(c)
	clinics, total, err := h.svc.SearchClinics(c.Request().Context(), c.Param("name"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(clinics, total, pg))
}

func (h *Handler) ClinicDoctors(c echo.Context) error {
	doctors, err := h.svc.ClinicDoctors(c.Request().Context(), c.Param("name"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	if doctors == nil {
		doctors = []*Doctor{}
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) RemoveClinic(c echo.Context) error {
	if err := h.membership.RemoveClinic(c.Request().Context(), c.Param("name")); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ReconcileClinic(c echo.Context) error {
	clinic, err := h.membership.ReconcileClinic(c.Request().Context(), c.Param("name"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, clinic)
}

// -- Doctor Handlers --

type addDoctorResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Clinic  string    `json:"clinic"`
	Message string    `json:"message"`
}

func (h *Handler) AddDoctor(c echo.Context) error {
	var in AddDoctorInput
	if err := c.Bind(&in); err != nil {
		return bindErr(err)
	}
	d, err := h.membership.AddDoctor(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, addDoctorResponse{
		ID:      d.ID,
		Name:    d.Name,
		Clinic:  d.Clinic,
		Message: "Doctor created successfully",
	})
}

func (h *Handler) RemoveDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.membership.RemoveDoctor(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, pg))
}

func (h *Handler) SearchDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.SearchDoctors(c.Request().Context(), c.Param("name"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, pg))
}

func (h *Handler) DoctorPatients(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	patients, err := h.svc.DoctorPatients(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) ReconcileDoctor(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.membership.ReconcileDoctor(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// -- Patient Handlers --

// callerDoctorID is the caller's own id when the caller is a doctor.
func callerDoctorID(c echo.Context) uuid.UUID {
	p := auth.PrincipalFromContext(c.Request().Context())
	if p == nil || p.Role != auth.RoleDoctor {
		return uuid.Nil
	}
	id, _ := uuid.Parse(p.ID)
	return id
}

// patientRequest accepts the owning doctor as either doctorId or doctor_id.
type patientRequest struct {
	Patient
	DoctorIDAlt uuid.UUID `json:"doctorId"`
}

func (r *patientRequest) patient() Patient {
	p := r.Patient
	if r.DoctorIDAlt != uuid.Nil {
		p.DoctorID = r.DoctorIDAlt
	}
	return p
}

func (h *Handler) AddPatient(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return bindErr(err)
	}
	p := req.patient()
	if p.DoctorID == uuid.Nil {
		p.DoctorID = callerDoctorID(c)
	}
	if err := h.membership.AddPatient(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return bindErr(err)
	}
	p := req.patient()
	p.ID = id
	if err := h.membership.UpdatePatient(c.Request().Context(), &p); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RemovePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.membership.RemovePatient(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.SearchPatients(c.Request().Context(), c.Param("name"), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg))
}
