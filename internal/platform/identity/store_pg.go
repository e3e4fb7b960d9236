package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentaldesk/dentaldesk/internal/platform/db"
)

// PGStore keeps identities in the identities table of the main database.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Create(ctx context.Context, rec *Record) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO identities (id, email, password_hash, role, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		rec.ID, rec.Email, rec.PasswordHash, rec.Metadata.Role, meta,
	).Scan(&rec.CreatedAt)
	if err != nil {
		if errors.Is(db.Translate(err), db.ErrDuplicate) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (*Record, error) {
	return s.get(ctx, `WHERE email = $1`, email)
}

func (s *PGStore) get(ctx context.Context, where string, arg any) (*Record, error) {
	var rec Record
	var meta []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, metadata, created_at FROM identities `+where, arg,
	).Scan(&rec.ID, &rec.Email, &rec.PasswordHash, &meta, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &rec, nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
