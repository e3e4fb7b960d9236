package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup by key matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a version-checked update matched no row.
	ErrConflict = errors.New("record was modified concurrently")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("record already exists")
	// ErrForeignKey is returned when a write references a missing row.
	ErrForeignKey = errors.New("referenced record does not exist")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Translate maps driver errors onto the package sentinels. Unknown errors are
// returned unchanged.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return errors.Join(ErrDuplicate, err)
		case foreignKeyViolation:
			return errors.Join(ErrForeignKey, err)
		}
	}
	return err
}
