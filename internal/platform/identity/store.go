package identity

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is a stored credential.
type Record struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Metadata     Metadata
	CreatedAt    time.Time
}

// CredentialStore persists identity records. Create returns ErrEmailTaken on
// a duplicate email; lookups and Delete return ErrNotFound.
type CredentialStore interface {
	Create(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByEmail(ctx context.Context, email string) (*Record, error)
	Ping(ctx context.Context) error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
