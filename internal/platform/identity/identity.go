// Package identity is the built-in identity provider: it owns credentials and
// session tokens. Records in the practice tables reference identities by id
// but never see passwords.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no active session")
	ErrNotFound           = errors.New("identity not found")
	ErrInvalidInput       = errors.New("invalid identity input")
)

// Metadata is attached to an identity at creation.
type Metadata struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

type Identity struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Metadata  Metadata  `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an authenticated bearer session.
type Session struct {
	Token      string    `json:"access_token"`
	TokenType  string    `json:"token_type"`
	ExpiresAt  time.Time `json:"expires_at"`
	IdentityID uuid.UUID `json:"-"`
	Email      string    `json:"-"`
	IssuedAt   time.Time `json:"-"`
}

// Provider is the contract the rest of the system depends on.
type Provider interface {
	CreateIdentity(ctx context.Context, email, password string, meta Metadata) (*Identity, error)
	DeleteIdentity(ctx context.Context, id uuid.UUID) error
	Authenticate(ctx context.Context, email, password string) (*Session, error)
	GetSession(ctx context.Context, token string) (*Session, error)
	SignOut(ctx context.Context, token string) error
}
