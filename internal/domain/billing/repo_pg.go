package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dentaldesk/dentaldesk/internal/platform/db"
)

// =========== Item Repository ===========

type itemRepoPG struct {
	conn db.DBTX
}

func NewItemRepo(conn db.DBTX) ItemRepository {
	return &itemRepoPG{conn: conn}
}

const itemCols = `id, name, rate, description`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	if err := row.Scan(&it.ID, &it.Name, &it.Rate, &it.Description); err != nil {
		return nil, db.Translate(err)
	}
	return &it, nil
}

func (r *itemRepoPG) Create(ctx context.Context, it *Item) error {
	err := r.conn.QueryRow(ctx, `
		INSERT INTO items (name, rate, description) VALUES ($1, $2, $3)
		RETURNING id`,
		it.Name, it.Rate, it.Description,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("item create: %w", db.Translate(err))
	}
	return nil
}

func (r *itemRepoPG) Get(ctx context.Context, id uuid.UUID) (*Item, error) {
	return scanItem(r.conn.QueryRow(ctx, `SELECT `+itemCols+` FROM items WHERE id = $1`, id))
}

func (r *itemRepoPG) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Item, error) {
	out := make(map[uuid.UUID]*Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.conn.Query(ctx, `SELECT `+itemCols+` FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("item get many: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("item scan: %w", err)
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}

func (r *itemRepoPG) Update(ctx context.Context, it *Item) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE items SET name = $2, rate = $3, description = $4 WHERE id = $1`,
		it.ID, it.Name, it.Rate, it.Description)
	if err != nil {
		return fmt.Errorf("item update: %w", db.Translate(err))
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *itemRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("item delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *itemRepoPG) List(ctx context.Context, limit, offset int) ([]*Item, int, error) {
	return r.query(ctx, `SELECT `+itemCols+`, COUNT(*) OVER() FROM items
		ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *itemRepoPG) Search(ctx context.Context, name string, limit, offset int) ([]*Item, int, error) {
	return r.query(ctx, `SELECT `+itemCols+`, COUNT(*) OVER() FROM items
		WHERE name ILIKE $3 ORDER BY name LIMIT $1 OFFSET $2`, limit, offset, db.ContainsPattern(name))
}

func (r *itemRepoPG) query(ctx context.Context, sql string, args ...any) ([]*Item, int, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("item query: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Item
		total int
	)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Rate, &it.Description, &total); err != nil {
			return nil, 0, fmt.Errorf("item scan: %w", err)
		}
		out = append(out, &it)
	}
	return out, total, rows.Err()
}

// =========== Invoice Repository ===========

type invoiceRepoPG struct {
	conn db.DBTX
}

func NewInvoiceRepo(conn db.DBTX) InvoiceRepository {
	return &invoiceRepoPG{conn: conn}
}

const invoiceCols = `id, date, clinic, doctor_id, patient_id, sub_total, discount, total, is_paid, items`

func scanInvoice(row pgx.Row, extra ...any) (*Invoice, error) {
	var (
		inv   Invoice
		lines []byte
	)
	dest := append([]any{&inv.ID, &inv.Date, &inv.Clinic, &inv.DoctorID, &inv.PatientID,
		&inv.SubTotal, &inv.Discount, &inv.Total, &inv.IsPaid, &lines}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, db.Translate(err)
	}
	var stored []storedLine
	if err := json.Unmarshal(lines, &stored); err != nil {
		return nil, fmt.Errorf("decode invoice %d items: %w", inv.ID, err)
	}
	inv.Items = fromStored(stored)
	return &inv, nil
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	lines, err := json.Marshal(toStored(inv.Items))
	if err != nil {
		return fmt.Errorf("encode invoice items: %w", err)
	}
	err = r.conn.QueryRow(ctx, `
		INSERT INTO invoices (clinic, doctor_id, patient_id, sub_total, discount, is_paid, items)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, date, total`,
		inv.Clinic, inv.DoctorID, inv.PatientID, inv.SubTotal, inv.Discount, inv.IsPaid, lines,
	).Scan(&inv.ID, &inv.Date, &inv.Total)
	if err != nil {
		return fmt.Errorf("invoice create: %w", db.Translate(err))
	}
	return nil
}

func (r *invoiceRepoPG) Get(ctx context.Context, id int64) (*Invoice, error) {
	return scanInvoice(r.conn.QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
}

func (r *invoiceRepoPG) Update(ctx context.Context, inv *Invoice) error {
	lines, err := json.Marshal(toStored(inv.Items))
	if err != nil {
		return fmt.Errorf("encode invoice items: %w", err)
	}
	err = r.conn.QueryRow(ctx, `
		UPDATE invoices SET clinic = $2, doctor_id = $3, patient_id = $4,
			sub_total = $5, discount = $6, is_paid = $7, items = $8
		WHERE id = $1
		RETURNING date, total`,
		inv.ID, inv.Clinic, inv.DoctorID, inv.PatientID, inv.SubTotal, inv.Discount, inv.IsPaid, lines,
	).Scan(&inv.Date, &inv.Total)
	if err != nil {
		return fmt.Errorf("invoice update: %w", db.Translate(err))
	}
	return nil
}

func (r *invoiceRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("invoice delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *invoiceRepoPG) List(ctx context.Context, f InvoiceFilter, limit, offset int) ([]*Invoice, int, error) {
	var (
		where []string
		args  = []any{limit, offset}
	)
	if f.Clinic != "" {
		args = append(args, f.Clinic)
		where = append(where, fmt.Sprintf("clinic = $%d", len(args)))
	}
	if f.DoctorID != uuid.Nil {
		args = append(args, f.DoctorID)
		where = append(where, fmt.Sprintf("doctor_id = $%d", len(args)))
	}
	if f.PatientID != uuid.Nil {
		args = append(args, f.PatientID)
		where = append(where, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	sql := `SELECT ` + invoiceCols + `, COUNT(*) OVER() FROM invoices`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY date DESC, id DESC LIMIT $1 OFFSET $2`

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoice query: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Invoice
		total int
	)
	for rows.Next() {
		inv, err := scanInvoice(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("invoice scan: %w", err)
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}
