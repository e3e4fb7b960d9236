package session

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
)

type Handler struct {
	svc *Service
	// openRegistration lets anyone call /registerAdmin.
	openRegistration bool
}

func NewHandler(svc *Service, openRegistration bool) *Handler {
	return &Handler{svc: svc, openRegistration: openRegistration}
}

// RegisterRoutes mounts the session endpoints. public carries no auth
// middleware; protected requires a bearer session. login may carry extra
// middleware such as a rate limiter.
func (h *Handler) RegisterRoutes(public, protected *echo.Group, login ...echo.MiddlewareFunc) {
	public.POST("/login", h.Login, login...)
	public.POST("/logout", h.Logout)
	public.GET("/session", h.Session)

	if h.openRegistration {
		public.POST("/registerAdmin", h.RegisterAdmin)
	} else {
		protected.POST("/registerAdmin", h.RegisterAdmin, auth.RequireRole(auth.RoleAdmin))
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.HTTPError(apperr.New(apperr.Invalid, "session.login", "invalid request body"))
	}
	v, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func bearer(c echo.Context) (string, error) {
	token, ok := auth.BearerToken(c.Request())
	if !ok {
		return "", apperr.HTTPError(apperr.New(apperr.Unauthenticated, "session", "No active session"))
	}
	return token, nil
}

func (h *Handler) Logout(c echo.Context) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}
	if err := h.svc.Logout(c.Request().Context(), token); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) Session(c echo.Context) error {
	token, err := bearer(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Current(c.Request().Context(), token)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

type registerAdminResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (h *Handler) RegisterAdmin(c echo.Context) error {
	var in RegisterAdminInput
	if err := c.Bind(&in); err != nil {
		return apperr.HTTPError(apperr.New(apperr.Invalid, "session.register_admin", "invalid request body"))
	}
	id, err := h.svc.RegisterAdmin(c.Request().Context(), in)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, registerAdminResponse{ID: id.String(), Message: "Admin created successfully"})
}
