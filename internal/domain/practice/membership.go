package practice

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
	"github.com/dentaldesk/dentaldesk/internal/platform/db"
	"github.com/dentaldesk/dentaldesk/internal/platform/identity"
)

// Membership keeps clinics.doctors and doctors.patients in step with the
// rows they list, and provisions identities for doctors. Each operation is an
// ordered saga; see the step lists below for what gets undone on failure.
type Membership struct {
	clinics  ClinicRepository
	doctors  DoctorRepository
	patients PatientRepository
	idp      identity.Provider
}

func NewMembership(clinics ClinicRepository, doctors DoctorRepository, patients PatientRepository, idp identity.Provider) *Membership {
	return &Membership{clinics: clinics, doctors: doctors, patients: patients, idp: idp}
}

type AddDoctorInput struct {
	Name     string `json:"name"`
	Clinic   string `json:"clinic"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *AddDoctorInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Clinic = strings.TrimSpace(in.Clinic)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Clinic == "" {
		missing = append(missing, "clinic")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return apperr.Newf(apperr.Invalid, "doctor.add", "%s required", strings.Join(missing, ", "))
	}
	return nil
}

// AddDoctor provisions an identity, makes sure the clinic exists, inserts the
// doctor row and appends the doctor to the clinic's list.
//
//	check email      DuplicateEmail          -
//	create identity  IdentityCreationFailed  delete identity
//	ensure clinic    ClinicCreationFailed    -
//	insert doctor    DoctorCreationFailed    delete doctor row
//	link clinic      MembershipUpdateFailed  -
func (m *Membership) AddDoctor(ctx context.Context, in AddDoctorInput) (*Doctor, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	var (
		ident  *identity.Identity
		clinic *Clinic
		doctor *Doctor
	)
	s := newSaga("doctor.add",
		step{
			name: "check_email",
			kind: apperr.StoreUnavailable,
			do: func(ctx context.Context) error {
				_, err := m.doctors.GetByEmail(ctx, in.Email)
				switch {
				case err == nil:
					return apperr.New(apperr.DuplicateEmail, "doctor.add", "a doctor with this email already exists")
				case errors.Is(err, db.ErrNotFound):
					return nil
				default:
					return err
				}
			},
		},
		step{
			name: "create_identity",
			kind: apperr.IdentityCreationFailed,
			do: func(ctx context.Context) error {
				var err error
				ident, err = m.idp.CreateIdentity(ctx, in.Email, in.Password, identity.Metadata{Role: auth.RoleDoctor, Name: in.Name})
				return identityErr("doctor.add", err)
			},
			undo: func(ctx context.Context) error {
				return m.idp.DeleteIdentity(ctx, ident.ID)
			},
		},
		step{
			name: "ensure_clinic",
			kind: apperr.ClinicCreationFailed,
			do: func(ctx context.Context) error {
				var err error
				clinic, err = m.ensureClinic(ctx, in.Clinic)
				return err
			},
		},
		step{
			name: "insert_doctor",
			kind: apperr.DoctorCreationFailed,
			do: func(ctx context.Context) error {
				doctor = &Doctor{ID: ident.ID, Name: in.Name, Email: in.Email, Clinic: clinic.Name}
				err := m.doctors.Create(ctx, doctor)
				if errors.Is(err, db.ErrDuplicate) {
					return apperr.New(apperr.DuplicateEmail, "doctor.add", "a doctor with this email already exists")
				}
				return err
			},
			undo: func(ctx context.Context) error {
				return m.doctors.Delete(ctx, doctor.ID)
			},
		},
		step{
			name: "link_clinic",
			kind: apperr.MembershipUpdateFailed,
			do: func(ctx context.Context) error {
				v, err := m.clinics.SetDoctors(ctx, clinic.Name, withID(clinic.Doctors, doctor.ID), clinic.Version)
				if err != nil {
					return err
				}
				clinic.Version = v
				return nil
			},
		},
	)
	if err := s.run(ctx); err != nil {
		return nil, err
	}
	return doctor, nil
}

// ensureClinic returns the named clinic, creating it empty when absent. A
// concurrent creation of the same clinic is tolerated.
func (m *Membership) ensureClinic(ctx context.Context, name string) (*Clinic, error) {
	c, err := m.clinics.Get(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "doctor.add.ensure_clinic", err)
	}

	c = &Clinic{Name: name, Doctors: []uuid.UUID{}}
	if err := m.clinics.Create(ctx, c); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			if c, err := m.clinics.Get(ctx, name); err == nil {
				return c, nil
			}
		}
		return nil, apperr.Wrap(apperr.ClinicCreationFailed, "doctor.add.ensure_clinic", err)
	}
	zerolog.Ctx(ctx).Info().Str("clinic", name).Msg("clinic created for new doctor")
	return c, nil
}

// RemoveDoctor unlinks the doctor from its clinic, deletes the row and then
// the identity. Nothing is undone; a failure part way leaves the earlier
// steps applied and is reported with the kind of the failing step.
//
//	load doctor      NotFound
//	load clinic      NotFound
//	unlink clinic    MembershipUpdateFailed
//	delete doctor    DeleteFailed
//	delete identity  IdentityDeletionFailed
func (m *Membership) RemoveDoctor(ctx context.Context, id uuid.UUID) error {
	var (
		doctor *Doctor
		clinic *Clinic
	)
	s := newSaga("doctor.remove",
		step{
			name: "load_doctor",
			kind: apperr.StoreUnavailable,
			do: func(ctx context.Context) error {
				var err error
				doctor, err = m.doctors.Get(ctx, id)
				return notFound(err, "doctor.remove", "doctor not found")
			},
		},
		step{
			name: "load_clinic",
			kind: apperr.StoreUnavailable,
			do: func(ctx context.Context) error {
				var err error
				clinic, err = m.clinics.Get(ctx, doctor.Clinic)
				return notFound(err, "doctor.remove", "clinic not found")
			},
		},
		step{
			name: "unlink_clinic",
			kind: apperr.MembershipUpdateFailed,
			do: func(ctx context.Context) error {
				_, err := m.clinics.SetDoctors(ctx, clinic.Name, withoutID(clinic.Doctors, id), clinic.Version)
				return err
			},
		},
		step{
			name: "delete_doctor",
			kind: apperr.DeleteFailed,
			do: func(ctx context.Context) error {
				return m.doctors.Delete(ctx, id)
			},
		},
		step{
			name: "delete_identity",
			kind: apperr.IdentityDeletionFailed,
			do: func(ctx context.Context) error {
				err := m.idp.DeleteIdentity(ctx, id)
				if errors.Is(err, identity.ErrNotFound) {
					zerolog.Ctx(ctx).Warn().Str("doctor_id", id.String()).Msg("identity already absent")
					return nil
				}
				return err
			},
		},
	)
	return s.run(ctx)
}

// AddPatient inserts the patient and appends it to the doctor's list. If the
// append fails the patient row stays; ReconcileDoctor repairs the list.
//
//	load doctor     NotFound
//	insert patient  PatientCreationFailed
//	link doctor     MembershipUpdateFailed
func (m *Membership) AddPatient(ctx context.Context, p *Patient) error {
	if err := validatePatient("patient.add", p); err != nil {
		return err
	}

	var doctor *Doctor
	s := newSaga("patient.add",
		step{
			name: "load_doctor",
			kind: apperr.StoreUnavailable,
			do: func(ctx context.Context) error {
				var err error
				doctor, err = m.doctors.Get(ctx, p.DoctorID)
				return notFound(err, "patient.add", "doctor not found")
			},
		},
		step{
			name: "insert_patient",
			kind: apperr.PatientCreationFailed,
			do: func(ctx context.Context) error {
				p.ID = uuid.New()
				return m.patients.Create(ctx, p)
			},
		},
		step{
			name: "link_doctor",
			kind: apperr.MembershipUpdateFailed,
			do: func(ctx context.Context) error {
				_, err := m.doctors.SetPatients(ctx, doctor.ID, withID(doctor.Patients, p.ID), doctor.Version)
				return err
			},
		},
	)
	return s.run(ctx)
}

// RemovePatient deletes the patient row and then drops it from the doctor's
// list.
//
//	load patient    NotFound
//	load doctor     NotFound
//	delete patient  DeleteFailed
//	unlink doctor   MembershipUpdateFailed
func (m *Membership) RemovePatient(ctx context.Context, id uuid.UUID) error {
	var (
		patient *Patient
		doctor  *Doctor
	)
	s := newSaga("patient.remove",
		step{
			name: "load_patient",
			kind: apperr.StoreUnavailable,
			do: func(ctx context.Context) error {
				var err error
				patient, err = m.patients.Get(ctx, id)
				return notFound(err, "patient.remove", "patient not found")
			},
		},
		step{
			name: "load_doctor",
			kind: apperr.StoreUnavailable,
			do: func(ctx context.Context) error {
				var err error
				doctor, err = m.doctors.Get(ctx, patient.DoctorID)
				return notFound(err, "patient.remove", "doctor not found")
			},
		},
		step{
			name: "delete_patient",
			kind: apperr.DeleteFailed,
			do: func(ctx context.Context) error {
				return m.patients.Delete(ctx, id)
			},
		},
		step{
			name: "unlink_doctor",
			kind: apperr.MembershipUpdateFailed,
			do: func(ctx context.Context) error {
				_, err := m.doctors.SetPatients(ctx, doctor.ID, withoutID(doctor.Patients, id), doctor.Version)
				return err
			},
		},
	)
	return s.run(ctx)
}

// UpdatePatient rewrites a patient's fields. When the owning doctor changes
// the patient moves between the two doctors' lists; a failed move restores
// the row and the new doctor's list.
//
//	load patient      NotFound
//	load new doctor   NotFound
//	update patient    StoreUnavailable        restore row
//	link new doctor   MembershipUpdateFailed  unlink new doctor
//	unlink old doctor MembershipUpdateFailed
func (m *Membership) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient("patient.update", p); err != nil {
		return err
	}

	var (
		old       *Patient
		newDoctor *Doctor
		moved     bool
	)
	steps := []step{
		{
			name: "load_patient",
			kind: apperr.StoreUnavailable,
			do: func(ctx context.Context) error {
				var err error
				old, err = m.patients.Get(ctx, p.ID)
				if err != nil {
					return notFound(err, "patient.update", "patient not found")
				}
				if p.DoctorID == uuid.Nil {
					p.DoctorID = old.DoctorID
				}
				p.CreatedAt = old.CreatedAt
				moved = p.DoctorID != old.DoctorID
				return nil
			},
		},
		{
			name: "load_new_doctor",
			kind: apperr.StoreUnavailable,
			do: func(ctx context.Context) error {
				var err error
				newDoctor, err = m.doctors.Get(ctx, p.DoctorID)
				return notFound(err, "patient.update", "doctor not found")
			},
		},
		{
			name: "update_patient",
			kind: apperr.StoreUnavailable,
			do: func(ctx context.Context) error {
				return notFound(m.patients.Update(ctx, p), "patient.update", "patient not found")
			},
			undo: func(ctx context.Context) error {
				return m.patients.Update(ctx, old)
			},
		},
		{
			name: "link_new_doctor",
			kind: apperr.MembershipUpdateFailed,
			do: func(ctx context.Context) error {
				if !moved {
					return nil
				}
				v, err := m.doctors.SetPatients(ctx, newDoctor.ID, withID(newDoctor.Patients, p.ID), newDoctor.Version)
				if err != nil {
					return err
				}
				newDoctor.Version = v
				return nil
			},
			undo: func(ctx context.Context) error {
				if !moved {
					return nil
				}
				_, err := m.doctors.SetPatients(ctx, newDoctor.ID, withoutID(newDoctor.Patients, p.ID), newDoctor.Version)
				return err
			},
		},
		{
			name: "unlink_old_doctor",
			kind: apperr.MembershipUpdateFailed,
			do: func(ctx context.Context) error {
				if !moved {
					return nil
				}
				prev, err := m.doctors.Get(ctx, old.DoctorID)
				if errors.Is(err, db.ErrNotFound) {
					return nil
				}
				if err != nil {
					return err
				}
				_, err = m.doctors.SetPatients(ctx, prev.ID, withoutID(prev.Patients, p.ID), prev.Version)
				return err
			},
		},
	}
	return newSaga("patient.update", steps...).run(ctx)
}

// RemoveClinic removes every doctor of the clinic (identities included) and
// then the clinic itself. It stops at the first doctor that cannot be removed.
func (m *Membership) RemoveClinic(ctx context.Context, name string) error {
	if _, err := m.clinics.Get(ctx, name); err != nil {
		return notFoundOrUnavailable(err, "clinic.remove", "clinic not found")
	}
	doctors, err := m.doctors.ListByClinic(ctx, name)
	if err != nil {
		return apperr.Wrap(apperr.StoreUnavailable, "clinic.remove", err)
	}
	for _, d := range doctors {
		if err := m.RemoveDoctor(ctx, d.ID); err != nil {
			return err
		}
	}
	if err := m.clinics.Delete(ctx, name); err != nil && !errors.Is(err, db.ErrNotFound) {
		return apperr.Wrap(apperr.DeleteFailed, "clinic.remove", err)
	}
	return nil
}

// ReconcileClinic rebuilds the clinic's doctor list from doctors.clinic.
func (m *Membership) ReconcileClinic(ctx context.Context, name string) (*Clinic, error) {
	c, err := m.clinics.Get(ctx, name)
	if err != nil {
		return nil, notFoundOrUnavailable(err, "clinic.reconcile", "clinic not found")
	}
	doctors, err := m.doctors.ListByClinic(ctx, name)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "clinic.reconcile", err)
	}
	ids := make([]uuid.UUID, 0, len(doctors))
	for _, d := range doctors {
		ids = append(ids, d.ID)
	}
	v, err := m.clinics.SetDoctors(ctx, name, ids, c.Version)
	if err != nil {
		return nil, apperr.Wrap(apperr.MembershipUpdateFailed, "clinic.reconcile", err)
	}
	c.Doctors, c.Version = ids, v
	return c, nil
}

// ReconcileDoctor rebuilds the doctor's patient list from patients.doctor_id.
func (m *Membership) ReconcileDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := m.doctors.Get(ctx, id)
	if err != nil {
		return nil, notFoundOrUnavailable(err, "doctor.reconcile", "doctor not found")
	}
	patients, err := m.patients.ListByDoctor(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "doctor.reconcile", err)
	}
	ids := make([]uuid.UUID, 0, len(patients))
	for _, p := range patients {
		ids = append(ids, p.ID)
	}
	v, err := m.doctors.SetPatients(ctx, id, ids, d.Version)
	if err != nil {
		return nil, apperr.Wrap(apperr.MembershipUpdateFailed, "doctor.reconcile", err)
	}
	d.Patients, d.Version = ids, v
	return d, nil
}

func validatePatient(op string, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return apperr.New(apperr.Invalid, op, "name is required")
	case p.Age < 0:
		return apperr.New(apperr.Invalid, op, "age must not be negative")
	case p.TotalCost < 0 || p.TotalPaid < 0:
		return apperr.New(apperr.Invalid, op, "amounts must not be negative")
	case op == "patient.add" && p.DoctorID == uuid.Nil:
		return apperr.New(apperr.Invalid, op, "doctorId is required")
	}
	return nil
}

// notFound classifies db.ErrNotFound; other errors pass through for the
// step's kind to apply.
func notFound(err error, op, msg string) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.New(apperr.NotFound, op, msg)
	}
	return err
}

func notFoundOrUnavailable(err error, op, msg string) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.New(apperr.NotFound, op, msg)
	}
	return apperr.Wrap(apperr.StoreUnavailable, op, err)
}

// identityErr maps identity provider failures onto the taxonomy.
func identityErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, identity.ErrEmailTaken):
		return apperr.New(apperr.DuplicateEmail, op, "email already registered")
	case errors.Is(err, identity.ErrInvalidInput):
		return &apperr.Error{Kind: apperr.Invalid, Op: op, Msg: strings.TrimPrefix(err.Error(), identity.ErrInvalidInput.Error()+": "), Err: err}
	default:
		return err
	}
}
