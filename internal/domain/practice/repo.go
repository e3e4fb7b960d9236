package practice

import (
	"context"

	"github.com/google/uuid"
)

// Lookups return db.ErrNotFound when nothing matches. Set* methods are
// version-checked and return db.ErrConflict when the row moved on, along with
// the new version on success.

type ClinicRepository interface {
	Create(ctx context.Context, c *Clinic) error
	Get(ctx context.Context, name string) (*Clinic, error)
	List(ctx context.Context, limit, offset int) ([]*Clinic, int, error)
	Search(ctx context.Context, name string, limit, offset int) ([]*Clinic, int, error)
	SetDoctors(ctx context.Context, name string, doctors []uuid.UUID, version int) (int, error)
	Delete(ctx context.Context, name string) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	Get(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	Search(ctx context.Context, name string, limit, offset int) ([]*Doctor, int, error)
	ListByClinic(ctx context.Context, clinic string) ([]*Doctor, error)
	SetPatients(ctx context.Context, id uuid.UUID, patients []uuid.UUID, version int) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	Get(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Patient, error)
}
