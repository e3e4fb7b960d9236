package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
)

type fakeAuthenticator struct {
	principals map[string]*Principal
	err        error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.principals[token]
	if !ok {
		return nil, apperr.New(apperr.Unauthenticated, "auth", "no active session")
	}
	return p, nil
}

func runMiddleware(t *testing.T, authn Authenticator, header string) (*Principal, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var got *Principal
	err := Middleware(authn)(func(c echo.Context) error {
		got = PrincipalFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})(c)
	return got, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestMiddleware_MissingOrMalformedHeader(t *testing.T) {
	authn := &fakeAuthenticator{}
	for _, header := range []string{"", "Token abc", "Bearer", "Bearer   ", "Basic dXNlcjpwYXNz"} {
		t.Run(header, func(t *testing.T) {
			_, err := runMiddleware(t, authn, header)
			if statusOf(t, err) != http.StatusUnauthorized {
				t.Errorf("expected 401 for %q", header)
			}
		})
	}
}

func TestMiddleware_ValidSession(t *testing.T) {
	want := &Principal{ID: "d1", Role: RoleDoctor, Token: "tok"}
	authn := &fakeAuthenticator{principals: map[string]*Principal{"tok": want}}

	got, err := runMiddleware(t, authn, "bearer tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected principal on context, got %+v", got)
	}
}

func TestMiddleware_PropagatesKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown token", nil, http.StatusUnauthorized},
		{"no role", apperr.New(apperr.NoAssignedRole, "auth", "no role"), http.StatusForbidden},
		{"store down", apperr.Wrap(apperr.StoreUnavailable, "auth", errors.New("down")), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runMiddleware(t, &fakeAuthenticator{err: tt.err}, "Bearer x")
			if got := statusOf(t, err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestContextHelpers_Empty(t *testing.T) {
	ctx := context.Background()
	if UserIDFromContext(ctx) != "" || RoleFromContext(ctx) != "" || PrincipalFromContext(ctx) != nil {
		t.Error("expected zero values on empty context")
	}
}
