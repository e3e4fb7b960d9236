package practice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dentaldesk/dentaldesk/internal/platform/db"
)

// -- Clinic Repository --

type clinicRepoPG struct {
	conn db.DBTX
}

func NewClinicRepo(conn db.DBTX) ClinicRepository {
	return &clinicRepoPG{conn: conn}
}

const clinicCols = `name, doctors, version, created_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	if err := row.Scan(&c.Name, &c.Doctors, &c.Version, &c.CreatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &c, nil
}

func (r *clinicRepoPG) Create(ctx context.Context, c *Clinic) error {
	if c.Doctors == nil {
		c.Doctors = []uuid.UUID{}
	}
	err := r.conn.QueryRow(ctx, `
		INSERT INTO clinics (name, doctors) VALUES ($1, $2)
		RETURNING version, created_at`,
		c.Name, c.Doctors,
	).Scan(&c.Version, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("clinic create: %w", db.Translate(err))
	}
	return nil
}

func (r *clinicRepoPG) Get(ctx context.Context, name string) (*Clinic, error) {
	return scanClinic(r.conn.QueryRow(ctx, `SELECT `+clinicCols+` FROM clinics WHERE name = $1`, name))
}

func (r *clinicRepoPG) List(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	return r.query(ctx, `SELECT `+clinicCols+`, COUNT(*) OVER() FROM clinics
		ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *clinicRepoPG) Search(ctx context.Context, name string, limit, offset int) ([]*Clinic, int, error) {
	return r.query(ctx, `SELECT `+clinicCols+`, COUNT(*) OVER() FROM clinics
		WHERE name ILIKE $3 ORDER BY name LIMIT $1 OFFSET $2`, limit, offset, db.ContainsPattern(name))
}

func (r *clinicRepoPG) query(ctx context.Context, sql string, args ...any) ([]*Clinic, int, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("clinic query: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Clinic
		total int
	)
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.Name, &c.Doctors, &c.Version, &c.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("clinic scan: %w", err)
		}
		out = append(out, &c)
	}
	return out, total, rows.Err()
}

func (r *clinicRepoPG) SetDoctors(ctx context.Context, name string, doctors []uuid.UUID, version int) (int, error) {
	var next int
	err := r.conn.QueryRow(ctx, `
		UPDATE clinics SET doctors = $2, version = version + 1
		WHERE name = $1 AND version = $3
		RETURNING version`,
		name, doctors, version,
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, missingOrConflict(ctx, r.conn, `SELECT EXISTS (SELECT 1 FROM clinics WHERE name = $1)`, name)
	}
	if err != nil {
		return 0, fmt.Errorf("clinic set doctors: %w", err)
	}
	return next, nil
}

func (r *clinicRepoPG) Delete(ctx context.Context, name string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM clinics WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("clinic delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// missingOrConflict tells apart a version mismatch from a deleted row after a
// version-checked update matched nothing.
func missingOrConflict(ctx context.Context, conn db.DBTX, existsSQL string, key any) error {
	var exists bool
	if err := conn.QueryRow(ctx, existsSQL, key).Scan(&exists); err != nil {
		return fmt.Errorf("check existence: %w", err)
	}
	if !exists {
		return db.ErrNotFound
	}
	return db.ErrConflict
}

// -- Doctor Repository --

type doctorRepoPG struct {
	conn db.DBTX
}

func NewDoctorRepo(conn db.DBTX) DoctorRepository {
	return &doctorRepoPG{conn: conn}
}

const doctorCols = `id, name, email, clinic, patients, version, created_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Clinic, &d.Patients, &d.Version, &d.CreatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	if d.Patients == nil {
		d.Patients = []uuid.UUID{}
	}
	err := r.conn.QueryRow(ctx, `
		INSERT INTO doctors (id, name, email, clinic, patients) VALUES ($1, $2, $3, $4, $5)
		RETURNING version, created_at`,
		d.ID, d.Name, d.Email, d.Clinic, d.Patients,
	).Scan(&d.Version, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("doctor create: %w", db.Translate(err))
	}
	return nil
}

func (r *doctorRepoPG) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return scanDoctor(r.conn.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE email = $1`, email))
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return r.query(ctx, `SELECT `+doctorCols+`, COUNT(*) OVER() FROM doctors
		ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *doctorRepoPG) Search(ctx context.Context, name string, limit, offset int) ([]*Doctor, int, error) {
	return r.query(ctx, `SELECT `+doctorCols+`, COUNT(*) OVER() FROM doctors
		WHERE name ILIKE $3 ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset, db.ContainsPattern(name))
}

func (r *doctorRepoPG) ListByClinic(ctx context.Context, clinic string) ([]*Doctor, error) {
	out, _, err := r.query(ctx, `SELECT `+doctorCols+`, COUNT(*) OVER() FROM doctors
		WHERE clinic = $1 ORDER BY created_at, id`, clinic)
	return out, err
}

func (r *doctorRepoPG) query(ctx context.Context, sql string, args ...any) ([]*Doctor, int, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("doctor query: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Doctor
		total int
	)
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Clinic, &d.Patients, &d.Version, &d.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("doctor scan: %w", err)
		}
		out = append(out, &d)
	}
	return out, total, rows.Err()
}

func (r *doctorRepoPG) SetPatients(ctx context.Context, id uuid.UUID, patients []uuid.UUID, version int) (int, error) {
	var next int
	err := r.conn.QueryRow(ctx, `
		UPDATE doctors SET patients = $2, version = version + 1
		WHERE id = $1 AND version = $3
		RETURNING version`,
		id, patients, version,
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, missingOrConflict(ctx, r.conn, `SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)`, id)
	}
	if err != nil {
		return 0, fmt.Errorf("doctor set patients: %w", err)
	}
	return next, nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("doctor delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// -- Patient Repository --

type patientRepoPG struct {
	conn db.DBTX
}

func NewPatientRepo(conn db.DBTX) PatientRepository {
	return &patientRepoPG{conn: conn}
}

const patientCols = `id, name, age, gender, inner_oral_image, extra_oral_image, scan,
	total_cost, total_paid, doctor_id, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.InnerOralImage, &p.ExtraOralImage, &p.Scan,
		&p.TotalCost, &p.TotalPaid, &p.DoctorID, &p.CreatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.conn.QueryRow(ctx, `
		INSERT INTO patients (id, name, age, gender, inner_oral_image, extra_oral_image, scan,
			total_cost, total_paid, doctor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		p.ID, p.Name, p.Age, p.Gender, p.InnerOralImage, p.ExtraOralImage, p.Scan,
		p.TotalCost, p.TotalPaid, p.DoctorID,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("patient create: %w", db.Translate(err))
	}
	return nil
}

func (r *patientRepoPG) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE patients SET name = $2, age = $3, gender = $4, inner_oral_image = $5,
			extra_oral_image = $6, scan = $7, total_cost = $8, total_paid = $9, doctor_id = $10
		WHERE id = $1`,
		p.ID, p.Name, p.Age, p.Gender, p.InnerOralImage, p.ExtraOralImage, p.Scan,
		p.TotalCost, p.TotalPaid, p.DoctorID,
	)
	if err != nil {
		return fmt.Errorf("patient update: %w", db.Translate(err))
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("patient delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Search(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return r.query(ctx, `SELECT `+patientCols+`, COUNT(*) OVER() FROM patients
		WHERE name ILIKE $3 ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset, db.ContainsPattern(name))
}

func (r *patientRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Patient, error) {
	out, _, err := r.query(ctx, `SELECT `+patientCols+`, COUNT(*) OVER() FROM patients
		WHERE doctor_id = $1 ORDER BY created_at, id`, doctorID)
	return out, err
}

func (r *patientRepoPG) query(ctx context.Context, sql string, args ...any) ([]*Patient, int, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("patient query: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Patient
		total int
	)
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.InnerOralImage, &p.ExtraOralImage, &p.Scan,
			&p.TotalCost, &p.TotalPaid, &p.DoctorID, &p.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("patient scan: %w", err)
		}
		out = append(out, &p)
	}
	return out, total, rows.Err()
}
