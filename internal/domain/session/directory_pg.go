package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk/internal/platform/db"
)

// AdminStore persists admin rows.
type AdminStore interface {
	CreateAdmin(ctx context.Context, id uuid.UUID, name string) error
}

// Directory reads role assignments from the admins and doctors tables and
// writes admin rows.
type Directory struct {
	conn db.DBTX
}

func NewDirectory(conn db.DBTX) *Directory {
	return &Directory{conn: conn}
}

func (d *Directory) Assignments(ctx context.Context, id uuid.UUID) ([]Assignment, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT 'admin', name, '' FROM admins WHERE id = $1
		UNION ALL
		SELECT 'doctor', name, clinic FROM doctors WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("role lookup: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.Role, &a.Name, &a.Clinic); err != nil {
			return nil, fmt.Errorf("role scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *Directory) CreateAdmin(ctx context.Context, id uuid.UUID, name string) error {
	_, err := d.conn.Exec(ctx, `INSERT INTO admins (id, name) VALUES ($1, $2)`, id, name)
	if err != nil {
		return fmt.Errorf("admin create: %w", db.Translate(err))
	}
	return nil
}

