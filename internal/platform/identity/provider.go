package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
)

const minPasswordLength = 6

// Local is a Provider backed by a CredentialStore, bcrypt password hashes and
// signed session tokens. Sign-out and identity deletion are enforced through
// the revocation store.
type Local struct {
	store   CredentialStore
	signer  *auth.Signer
	revoked *auth.TokenRevocationStore
	ttl     time.Duration
	cost    int
	// dummyHash is compared against when an email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

type Option func(*Local)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(l *Local) { l.cost = cost }
}

func NewLocal(store CredentialStore, signer *auth.Signer, revoked *auth.TokenRevocationStore, ttl time.Duration, opts ...Option) (*Local, error) {
	l := &Local{store: store, signer: signer, revoked: revoked, ttl: ttl, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(l)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), l.cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	l.dummyHash = hash
	return l, nil
}

func (l *Local) CreateIdentity(ctx context.Context, email, password string, meta Metadata) (*Identity, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, email)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rec := &Record{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     meta,
	}
	if err := l.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("identity_id", rec.ID.String()).Str("role", meta.Role).Msg("identity created")
	return &Identity{ID: rec.ID, Email: rec.Email, Metadata: rec.Metadata, CreatedAt: rec.CreatedAt}, nil
}

// DeleteIdentity removes the credential and cuts off every session issued to it.
func (l *Local) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	if err := l.store.Delete(ctx, id); err != nil {
		return err
	}
	l.revoked.RevokeSubject(id.String(), l.ttl)
	zerolog.Ctx(ctx).Debug().Str("identity_id", id.String()).Msg("identity deleted")
	return nil
}

func (l *Local) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	rec, err := l.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(l.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := l.signer.Issue(rec.ID.String(), rec.Email, rec.Metadata.Role)
	if err != nil {
		return nil, err
	}
	return sessionFromClaims(token, claims, rec.ID), nil
}

func (l *Local) GetSession(ctx context.Context, token string) (*Session, error) {
	claims, err := l.signer.Parse(token)
	if err != nil {
		return nil, ErrNoSession
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrNoSession
	}
	if l.revoked.IsRevoked(claims.ID, claims.Subject, claims.IssuedAt.Time) {
		return nil, ErrNoSession
	}
	return sessionFromClaims(token, claims, id), nil
}

// SignOut revokes the given session. Signing out an already invalid token
// reports ErrNoSession.
func (l *Local) SignOut(ctx context.Context, token string) error {
	claims, err := l.signer.Parse(token)
	if err != nil {
		return ErrNoSession
	}
	l.revoked.Revoke(claims.ID, claims.Subject, claims.ExpiresAt.Time)
	return nil
}

func sessionFromClaims(token string, claims *auth.Claims, id uuid.UUID) *Session {
	return &Session{
		Token:      token,
		TokenType:  "bearer",
		ExpiresAt:  claims.ExpiresAt.Time,
		IssuedAt:   claims.IssuedAt.Time,
		IdentityID: id,
		Email:      claims.Email,
	}
}
