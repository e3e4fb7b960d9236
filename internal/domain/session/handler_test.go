package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
)

func newTestServer(t *testing.T, openRegistration bool) (*echo.Echo, *spyProvider, *mockDirectory) {
	t.Helper()
	svc, idp, dir := newTestService(t)
	e := echo.New()
	api := e.Group("/api/v1")
	protected := api.Group("", auth.Middleware(svc))
	NewHandler(svc, openRegistration).RegisterRoutes(api, protected)
	return e, idp, dir
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_LoginSessionLogout(t *testing.T) {
	e, idp, dir := newTestServer(t, false)
	id := createIdentity(t, idp, "ada@clinic.test")
	dir.doctors[id] = Assignment{Role: auth.RoleDoctor, Name: "Dr. Ada", Clinic: "Downtown"}

	rec := do(e, http.MethodPost, "/api/v1/login", `{"email":"ada@clinic.test","password":"secret123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var v struct {
		Role    string `json:"role"`
		Clinic  string `json:"clinic"`
		Session struct {
			Token string `json:"access_token"`
		} `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Role != "doctor" || v.Clinic != "Downtown" || v.Session.Token == "" {
		t.Fatalf("unexpected login body: %s", rec.Body.String())
	}

	if rec := do(e, http.MethodGet, "/api/v1/session", "", v.Session.Token); rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /session, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/v1/logout", "", v.Session.Token); rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /logout, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/session", "", v.Session.Token); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestHandler_LoginWithoutRole(t *testing.T) {
	e, idp, _ := newTestServer(t, false)
	createIdentity(t, idp, "ghost@clinic.test")

	rec := do(e, http.MethodPost, "/api/v1/login", `{"email":"ghost@clinic.test","password":"secret123"}`, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "NO_ASSIGNED_ROLE") {
		t.Errorf("expected NO_ASSIGNED_ROLE code, got %s", rec.Body.String())
	}
}

func TestHandler_SessionWithoutToken(t *testing.T) {
	e, _, _ := newTestServer(t, false)
	if rec := do(e, http.MethodGet, "/api/v1/session", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestHandler_RegisterAdminRequiresAdmin(t *testing.T) {
	e, idp, dir := newTestServer(t, false)
	body := `{"email":"root@clinic.test","password":"secret123"}`

	if rec := do(e, http.MethodPost, "/api/v1/registerAdmin", body, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session, got %d", rec.Code)
	}

	docID := createIdentity(t, idp, "ada@clinic.test")
	dir.doctors[docID] = Assignment{Role: auth.RoleDoctor, Name: "Dr. Ada", Clinic: "Downtown"}
	docToken := loginToken(t, e, "ada@clinic.test")
	if rec := do(e, http.MethodPost, "/api/v1/registerAdmin", body, docToken); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a doctor, got %d", rec.Code)
	}

	adminID := createIdentity(t, idp, "boss@clinic.test")
	dir.admins[adminID] = "Boss"
	adminToken := loginToken(t, e, "boss@clinic.test")
	rec := do(e, http.MethodPost, "/api/v1/registerAdmin", body, adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for an admin, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp registerAdminResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if _, err := uuid.Parse(resp.ID); err != nil {
		t.Errorf("expected admin id in response, got %q", resp.ID)
	}
}

func TestHandler_OpenRegistration(t *testing.T) {
	e, _, _ := newTestServer(t, true)
	rec := do(e, http.MethodPost, "/api/v1/registerAdmin", `{"email":"root@clinic.test","password":"secret123"}`, "")
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201 with open registration, got %d", rec.Code)
	}
}

func loginToken(t *testing.T, e *echo.Echo, email string) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/v1/login", `{"email":"`+email+`","password":"secret123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	var v struct {
		Session struct {
			Token string `json:"access_token"`
		} `json:"session"`
	}
	json.Unmarshal(rec.Body.Bytes(), &v)
	return v.Session.Token
}
