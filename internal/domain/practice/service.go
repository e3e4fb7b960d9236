package practice

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
	"github.com/dentaldesk/dentaldesk/internal/platform/db"
)

// Service serves the plain reads and the few writes that touch a single
// table. Anything that changes a membership list goes through Membership.
type Service struct {
	clinics  ClinicRepository
	doctors  DoctorRepository
	patients PatientRepository
}

func NewService(clinics ClinicRepository, doctors DoctorRepository, patients PatientRepository) *Service {
	return &Service{clinics: clinics, doctors: doctors, patients: patients}
}

// -- Clinic --

func (s *Service) CreateClinic(ctx context.Context, name string) (*Clinic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.Invalid, "clinic.create", "name is required")
	}
	c := &Clinic{Name: name, Doctors: []uuid.UUID{}}
	if err := s.clinics.Create(ctx, c); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, apperr.New(apperr.Conflict, "clinic.create", "clinic already exists")
		}
		return nil, apperr.Wrap(apperr.ClinicCreationFailed, "clinic.create", err)
	}
	return c, nil
}

func (s *Service) GetClinic(ctx context.Context, name string) (*Clinic, error) {
	c, err := s.clinics.Get(ctx, name)
	if err != nil {
		return nil, notFoundOrUnavailable(err, "clinic.get", "clinic not found")
	}
	return c, nil
}

func (s *Service) ListClinics(ctx context.Context, limit, offset int) ([]*Clinic, int, error) {
	out, total, err := s.clinics.List(ctx, limit, offset)
	return out, total, apperr.Wrap(apperr.StoreUnavailable, "clinic.list", err)
}

func (s *Service) SearchClinics(ctx context.Context, name string, limit, offset int) ([]*Clinic, int, error) {
	out, total, err := s.clinics.Search(ctx, name, limit, offset)
	return out, total, apperr.Wrap(apperr.StoreUnavailable, "clinic.search", err)
}

// ClinicDoctors lists the doctors whose clinic column names this clinic.
func (s *Service) ClinicDoctors(ctx context.Context, name string) ([]*Doctor, error) {
	if _, err := s.GetClinic(ctx, name); err != nil {
		return nil, err
	}
	out, err := s.doctors.ListByClinic(ctx, name)
	return out, apperr.Wrap(apperr.StoreUnavailable, "clinic.doctors", err)
}

// -- Doctor --

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.Get(ctx, id)
	if err != nil {
		return nil, notFoundOrUnavailable(err, "doctor.get", "doctor not found")
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	out, total, err := s.doctors.List(ctx, limit, offset)
	return out, total, apperr.Wrap(apperr.StoreUnavailable, "doctor.list", err)
}

func (s *Service) SearchDoctors(ctx context.Context, name string, limit, offset int) ([]*Doctor, int, error) {
	out, total, err := s.doctors.Search(ctx, name, limit, offset)
	return out, total, apperr.Wrap(apperr.StoreUnavailable, "doctor.search", err)
}

// DoctorPatients lists the patients whose doctor_id is this doctor.
func (s *Service) DoctorPatients(ctx context.Context, id uuid.UUID) ([]*Patient, error) {
	if _, err := s.GetDoctor(ctx, id); err != nil {
		return nil, err
	}
	out, err := s.patients.ListByDoctor(ctx, id)
	return out, apperr.Wrap(apperr.StoreUnavailable, "doctor.patients", err)
}

// -- Patient --

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.Get(ctx, id)
	if err != nil {
		return nil, notFoundOrUnavailable(err, "patient.get", "patient not found")
	}
	return p, nil
}

func (s *Service) SearchPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	out, total, err := s.patients.Search(ctx, name, limit, offset)
	return out, total, apperr.Wrap(apperr.StoreUnavailable, "patient.search", err)
}
