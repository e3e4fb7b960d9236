package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore keeps identities in a standalone SQLite file, so credentials
// can live apart from the practice database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the SQLite file at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS identities (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		metadata TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create identities table: %w", err)
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(ctx context.Context, rec *Record) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	rec.CreatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Email, rec.PasswordHash, string(meta), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (*Record, error) {
	return s.get(ctx, `WHERE email = ?`, email)
}

func (s *SQLiteStore) get(ctx context.Context, where string, arg any) (*Record, error) {
	var (
		rec     Record
		id      string
		meta    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, metadata, created_at FROM identities `+where, arg,
	).Scan(&id, &rec.Email, &rec.PasswordHash, &meta, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse identity id: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports a UNIQUE constraint failure. Primary key
// collisions carry a different extended code and are not matched.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
