package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
)

type contextKey string

const (
	principalKey contextKey = "principal"
)

const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	ID     string
	Email  string
	Role   string
	Name   string
	Clinic string
	Token  string
}

// Authenticator turns a bearer token into a Principal with its current role.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware requires a valid bearer session and stores the Principal on the
// request context. A session without an assigned role is refused with 403.
func Middleware(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c.Request())
			if !ok {
				return apperr.HTTPError(apperr.New(apperr.Unauthenticated, "auth", "missing or malformed authorization header"))
			}

			p, err := authn.Authenticate(c.Request().Context(), token)
			if err != nil {
				return apperr.HTTPError(err)
			}

			ctx := WithPrincipal(c.Request().Context(), p)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

func UserIDFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.ID
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.Role
	}
	return ""
}
