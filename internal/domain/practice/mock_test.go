package practice

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk/internal/platform/db"
	"github.com/dentaldesk/dentaldesk/internal/platform/identity"
)

// faults injects errors by method name, e.g. "clinics.Create".
type faults map[string]error

func (f faults) hit(name string) error {
	if f == nil {
		return nil
	}
	return f[name]
}

// -- Mock Clinic Repository --

type mockClinicRepo struct {
	mu      sync.Mutex
	clinics map[string]*Clinic
	faults  faults
}

func newMockClinicRepo(f faults) *mockClinicRepo {
	return &mockClinicRepo{clinics: make(map[string]*Clinic), faults: f}
}

func cloneClinic(c *Clinic) *Clinic {
	out := *c
	out.Doctors = slices.Clone(c.Doctors)
	return &out
}

func (m *mockClinicRepo) Create(_ context.Context, c *Clinic) error {
	if err := m.faults.hit("clinics.Create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clinics[c.Name]; ok {
		return db.ErrDuplicate
	}
	c.Version = 1
	c.CreatedAt = time.Now()
	m.clinics[c.Name] = cloneClinic(c)
	return nil
}

func (m *mockClinicRepo) Get(_ context.Context, name string) (*Clinic, error) {
	if err := m.faults.hit("clinics.Get"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clinics[name]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneClinic(c), nil
}

func (m *mockClinicRepo) List(_ context.Context, limit, offset int) ([]*Clinic, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Clinic
	for _, c := range m.clinics {
		out = append(out, cloneClinic(c))
	}
	return out, len(out), nil
}

func (m *mockClinicRepo) Search(_ context.Context, name string, limit, offset int) ([]*Clinic, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Clinic
	for _, c := range m.clinics {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			out = append(out, cloneClinic(c))
		}
	}
	return out, len(out), nil
}

func (m *mockClinicRepo) SetDoctors(_ context.Context, name string, doctors []uuid.UUID, version int) (int, error) {
	if err := m.faults.hit("clinics.SetDoctors"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clinics[name]
	if !ok {
		return 0, db.ErrNotFound
	}
	if c.Version != version {
		return 0, db.ErrConflict
	}
	c.Doctors = slices.Clone(doctors)
	c.Version++
	return c.Version, nil
}

func (m *mockClinicRepo) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clinics[name]; !ok {
		return db.ErrNotFound
	}
	delete(m.clinics, name)
	return nil
}

// -- Mock Doctor Repository --

type mockDoctorRepo struct {
	mu      sync.Mutex
	doctors map[uuid.UUID]*Doctor
	faults  faults
}

func newMockDoctorRepo(f faults) *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor), faults: f}
}

func cloneDoctor(d *Doctor) *Doctor {
	out := *d
	out.Patients = slices.Clone(d.Patients)
	return &out
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	if err := m.faults.hit("doctors.Create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.doctors {
		if existing.Email == d.Email {
			return db.ErrDuplicate
		}
	}
	if d.Patients == nil {
		d.Patients = []uuid.UUID{}
	}
	d.Version = 1
	d.CreatedAt = time.Now()
	m.doctors[d.ID] = cloneDoctor(d)
	return nil
}

func (m *mockDoctorRepo) Get(_ context.Context, id uuid.UUID) (*Doctor, error) {
	if err := m.faults.hit("doctors.Get"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneDoctor(d), nil
}

func (m *mockDoctorRepo) GetByEmail(_ context.Context, email string) (*Doctor, error) {
	if err := m.faults.hit("doctors.GetByEmail"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.doctors {
		if d.Email == email {
			return cloneDoctor(d), nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockDoctorRepo) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Doctor
	for _, d := range m.doctors {
		out = append(out, cloneDoctor(d))
	}
	return out, len(out), nil
}

func (m *mockDoctorRepo) Search(_ context.Context, name string, limit, offset int) ([]*Doctor, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Doctor
	for _, d := range m.doctors {
		if strings.Contains(strings.ToLower(d.Name), strings.ToLower(name)) {
			out = append(out, cloneDoctor(d))
		}
	}
	return out, len(out), nil
}

func (m *mockDoctorRepo) ListByClinic(_ context.Context, clinic string) ([]*Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Doctor
	for _, d := range m.doctors {
		if d.Clinic == clinic {
			out = append(out, cloneDoctor(d))
		}
	}
	return out, nil
}

func (m *mockDoctorRepo) SetPatients(_ context.Context, id uuid.UUID, patients []uuid.UUID, version int) (int, error) {
	if err := m.faults.hit("doctors.SetPatients"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok {
		return 0, db.ErrNotFound
	}
	if d.Version != version {
		return 0, db.ErrConflict
	}
	d.Patients = slices.Clone(patients)
	d.Version++
	return d.Version, nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, id uuid.UUID) error {
	if err := m.faults.hit("doctors.Delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.doctors[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.doctors, id)
	return nil
}

// -- Mock Patient Repository --

type mockPatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*Patient
	faults   faults
}

func newMockPatientRepo(f faults) *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient), faults: f}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	if err := m.faults.hit("patients.Create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = time.Now()
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) Get(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if err := m.faults.hit("patients.Update"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[p.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if err := m.faults.hit("patients.Delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) Search(_ context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Patient
	for _, p := range m.patients {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockPatientRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Patient
	for _, p := range m.patients {
		if p.DoctorID == doctorID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// -- Fake Identity Provider --

type fakeIDP struct {
	mu         sync.Mutex
	identities map[uuid.UUID]*identity.Identity
	faults     faults
	deleted    []uuid.UUID
}

func newFakeIDP(f faults) *fakeIDP {
	return &fakeIDP{identities: make(map[uuid.UUID]*identity.Identity), faults: f}
}

func (f *fakeIDP) CreateIdentity(_ context.Context, email, password string, meta identity.Metadata) (*identity.Identity, error) {
	if err := f.faults.hit("idp.CreateIdentity"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ident := range f.identities {
		if ident.Email == email {
			return nil, identity.ErrEmailTaken
		}
	}
	ident := &identity.Identity{ID: uuid.New(), Email: email, Metadata: meta, CreatedAt: time.Now()}
	f.identities[ident.ID] = ident
	return ident, nil
}

func (f *fakeIDP) DeleteIdentity(_ context.Context, id uuid.UUID) error {
	if err := f.faults.hit("idp.DeleteIdentity"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.identities[id]; !ok {
		return identity.ErrNotFound
	}
	delete(f.identities, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIDP) Authenticate(context.Context, string, string) (*identity.Session, error) {
	return nil, identity.ErrInvalidCredentials
}

func (f *fakeIDP) GetSession(context.Context, string) (*identity.Session, error) {
	return nil, identity.ErrNoSession
}

func (f *fakeIDP) SignOut(context.Context, string) error { return nil }

func (f *fakeIDP) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.identities)
}

// -- Fixture --

type fixture struct {
	clinics    *mockClinicRepo
	doctors    *mockDoctorRepo
	patients   *mockPatientRepo
	idp        *fakeIDP
	membership *Membership
	svc        *Service
}

func newFixture(f faults) *fixture {
	fx := &fixture{
		clinics:  newMockClinicRepo(f),
		doctors:  newMockDoctorRepo(f),
		patients: newMockPatientRepo(f),
		idp:      newFakeIDP(f),
	}
	fx.membership = NewMembership(fx.clinics, fx.doctors, fx.patients, fx.idp)
	fx.svc = NewService(fx.clinics, fx.doctors, fx.patients)
	return fx
}

func fakeMeta() identity.Metadata {
	return identity.Metadata{Role: "doctor"}
}
