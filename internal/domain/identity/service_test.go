package identity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medmeet/medmeet/internal/platform/apperr"
)

// -- Fakes --

type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type mockPersonRepo struct {
	persons map[uuid.UUID]*Person
	failOn  error
}

func newMockPersonRepo() *mockPersonRepo {
	return &mockPersonRepo{persons: make(map[uuid.UUID]*Person)}
}

func (m *mockPersonRepo) Create(_ context.Context, p *Person) error {
	if m.failOn != nil {
		return m.failOn
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.persons[p.ID] = p
	return nil
}

func (m *mockPersonRepo) EmailExists(_ context.Context, email string) (bool, error) {
	for _, p := range m.persons {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type mockProviderRepo struct {
	providers map[uuid.UUID]*Provider
}

func newMockProviderRepo() *mockProviderRepo {
	return &mockProviderRepo{providers: make(map[uuid.UUID]*Provider)}
}

func (m *mockProviderRepo) Create(_ context.Context, p *Provider) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.providers[p.ID] = p
	return nil
}

func (m *mockProviderRepo) GetByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return nil, apperr.NotFound("provider not found")
	}
	return p, nil
}

func (m *mockProviderRepo) sorted() []*Provider {
	var out []*Provider
	for _, p := range m.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *mockProviderRepo) List(_ context.Context, limit, offset int) ([]*Provider, int, error) {
	all := m.sorted()
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *mockProviderRepo) Count(_ context.Context) (int, error) {
	return len(m.providers), nil
}

func (m *mockProviderRepo) LicenseExists(_ context.Context, license string) (bool, error) {
	for _, p := range m.providers {
		if p.LicenseNumber == license {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProviderRepo) FindByName(_ context.Context, name string) ([]*Provider, error) {
	var out []*Provider
	for _, p := range m.sorted() {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

func (m *mockPatientRepo) sorted() []*Patient {
	var out []*Patient
	for _, p := range m.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	all := m.sorted()
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *mockPatientRepo) Count(_ context.Context) (int, error) {
	return len(m.patients), nil
}

func (m *mockPatientRepo) NationalIDExists(_ context.Context, nationalID string) (bool, error) {
	for _, p := range m.patients {
		if p.NationalID == nationalID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPatientRepo) SearchByName(_ context.Context, query string, limit int) ([]*Patient, error) {
	var out []*Patient
	q := strings.ToLower(query)
	for _, p := range m.sorted() {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockPatientRepo) FindByName(_ context.Context, name string) ([]*Patient, error) {
	var out []*Patient
	for _, p := range m.sorted() {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out, nil
}

type testEnv struct {
	svc       *Service
	tx        *fakeTx
	persons   *mockPersonRepo
	providers *mockProviderRepo
	patients  *mockPatientRepo
}

func newTestEnv() *testEnv {
	env := &testEnv{
		tx:        &fakeTx{},
		persons:   newMockPersonRepo(),
		providers: newMockProviderRepo(),
		patients:  newMockPatientRepo(),
	}
	env.svc = NewService(env.tx, env.persons, env.providers, env.patients, zerolog.Nop())
	return env
}

func newTestService() *Service {
	return newTestEnv().svc
}

func sampleProvider() *Provider {
	return &Provider{
		Name:                "Hillary Lopez Stafford",
		Email:               "Hillary.Stafford@example.com",
		Specialty:           "Dermatology",
		LicenseNumber:       "206704",
		ConsultationMinutes: 30,
	}
}

func samplePatient() *Patient {
	return &Patient{
		Name:       "Rodrigo Thales de Brito",
		Email:      "rodrigo.thales@example.com",
		NationalID: "625.267.307-24",
		Address:    "Rua Brandao Borges, 689, Londrina - PR",
	}
}

// -- Provider Tests --

func TestService_CreateProvider(t *testing.T) {
	env := newTestEnv()
	p := sampleProvider()

	if err := env.svc.CreateProvider(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil || p.PersonID == uuid.Nil {
		t.Error("expected provider and person ids to be set")
	}
	if p.Email != "hillary.stafford@example.com" {
		t.Errorf("expected normalized email, got %s", p.Email)
	}
	if env.tx.calls != 1 {
		t.Errorf("expected one transaction, got %d", env.tx.calls)
	}
	if p.ConsultationDuration() != 30*time.Minute {
		t.Errorf("expected 30m duration, got %s", p.ConsultationDuration())
	}
}

func TestService_CreateProvider_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Provider)
	}{
		{"missing name", func(p *Provider) { p.Name = "  " }},
		{"missing email", func(p *Provider) { p.Email = "" }},
		{"missing specialty", func(p *Provider) { p.Specialty = "" }},
		{"missing license", func(p *Provider) { p.LicenseNumber = "" }},
		{"zero duration", func(p *Provider) { p.ConsultationMinutes = 0 }},
		{"negative duration", func(p *Provider) { p.ConsultationMinutes = -15 }},
		{"duration too long", func(p *Provider) { p.ConsultationMinutes = MaxConsultationMinutes + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			p := sampleProvider()
			tt.mutate(p)
			err := env.svc.CreateProvider(context.Background(), p)
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("expected InvalidInput, got %v", err)
			}
			if len(env.persons.persons) != 0 {
				t.Error("expected no person to be created")
			}
		})
	}
}

func TestService_CreateProvider_DuplicateLicense(t *testing.T) {
	env := newTestEnv()
	if err := env.svc.CreateProvider(context.Background(), sampleProvider()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := sampleProvider()
	dup.Email = "other@example.com"
	err := env.svc.CreateProvider(context.Background(), dup)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if apperr.PublicMessage(err) != "license number already registered" {
		t.Errorf("unexpected message %q", apperr.PublicMessage(err))
	}
	if len(env.persons.persons) != 1 || len(env.providers.providers) != 1 {
		t.Errorf("expected 1 person and 1 provider, got %d and %d", len(env.persons.persons), len(env.providers.providers))
	}
}

func TestService_CreateProvider_DuplicateEmailAcrossRoles(t *testing.T) {
	env := newTestEnv()
	pat := samplePatient()
	pat.Email = "shared@example.com"
	if err := env.svc.CreatePatient(context.Background(), pat); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := sampleProvider()
	p.Email = "SHARED@example.com"
	err := env.svc.CreateProvider(context.Background(), p)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if apperr.PublicMessage(err) != "email already registered" {
		t.Errorf("unexpected message %q", apperr.PublicMessage(err))
	}
	if len(env.providers.providers) != 0 {
		t.Error("expected no provider to be created")
	}
}

func TestService_CreateProvider_StorageFailure(t *testing.T) {
	env := newTestEnv()
	env.persons.failOn = apperr.StorageFailure(errors.New("connection reset"), "person storage failure")

	err := env.svc.CreateProvider(context.Background(), sampleProvider())
	if !errors.Is(err, apperr.ErrStorageFailure) {
		t.Fatalf("expected StorageFailure, got %v", err)
	}
	if len(env.providers.providers) != 0 {
		t.Error("expected no provider to be created")
	}
}

func TestService_GetProvider_NotFound(t *testing.T) {
	svc := newTestService()
	_, err := svc.GetProvider(context.Background(), uuid.New())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestService_ListAndCountProviders(t *testing.T) {
	env := newTestEnv()
	for i, name := range []string{"Carla", "Ana", "Bruno"} {
		p := sampleProvider()
		p.Name = name
		p.Email = strings.ToLower(name) + "@example.com"
		p.LicenseNumber = "L" + string(rune('0'+i))
		if err := env.svc.CreateProvider(context.Background(), p); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	list, total, err := env.svc.ListProviders(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(list) != 2 || list[0].Name != "Ana" {
		t.Errorf("unexpected page: total=%d len=%d", total, len(list))
	}

	n, err := env.svc.CountProviders(context.Background())
	if err != nil || n != 3 {
		t.Errorf("expected count 3, got %d (%v)", n, err)
	}
}

func TestService_ResolveProviderByName(t *testing.T) {
	env := newTestEnv()
	p := sampleProvider()
	if err := env.svc.CreateProvider(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := env.svc.ResolveProviderByName(context.Background(), "  Hillary Lopez Stafford ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("expected %s, got %s", p.ID, got.ID)
	}

	if _, err := env.svc.ResolveProviderByName(context.Background(), "Nobody"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
	if _, err := env.svc.ResolveProviderByName(context.Background(), ""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected InvalidInput for blank name, got %v", err)
	}

	twin := sampleProvider()
	twin.Email = "twin@example.com"
	twin.LicenseNumber = "999"
	if err := env.svc.CreateProvider(context.Background(), twin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := env.svc.ResolveProviderByName(context.Background(), p.Name); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected InvalidInput for ambiguous name, got %v", err)
	}
}

// -- Patient Tests --

func TestService_CreatePatient(t *testing.T) {
	env := newTestEnv()
	p := samplePatient()
	if err := env.svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil || p.PersonID == uuid.Nil {
		t.Error("expected ids to be set")
	}
	if env.persons.persons[p.PersonID].Name != p.Name {
		t.Error("expected person row to carry the patient name")
	}
}

func TestService_CreatePatient_Validation(t *testing.T) {
	svc := newTestService()
	p := samplePatient()
	p.Address = ""
	if err := svc.CreatePatient(context.Background(), p); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("expected InvalidInput, got %v", err)
	}
}

func TestService_CreatePatient_DuplicateNationalID(t *testing.T) {
	env := newTestEnv()
	if err := env.svc.CreatePatient(context.Background(), samplePatient()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := samplePatient()
	dup.Email = "someone.else@example.com"
	err := env.svc.CreatePatient(context.Background(), dup)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if len(env.persons.persons) != 1 {
		t.Errorf("expected a single person, got %d", len(env.persons.persons))
	}
}

func TestService_CreatePatient_DuplicateEmail(t *testing.T) {
	env := newTestEnv()
	if err := env.svc.CreatePatient(context.Background(), samplePatient()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := samplePatient()
	dup.NationalID = "111.222.333-44"
	if err := env.svc.CreatePatient(context.Background(), dup); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestService_SearchPatients(t *testing.T) {
	env := newTestEnv()
	for i := 0; i < 12; i++ {
		p := samplePatient()
		p.Name = "Maria " + string(rune('A'+i))
		p.Email = strings.ToLower(p.Name[len(p.Name)-1:]) + "@example.com"
		p.NationalID = p.Email
		if err := env.svc.CreatePatient(context.Background(), p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	found, err := env.svc.SearchPatients(context.Background(), "maria")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != SearchLimit {
		t.Errorf("expected %d results, got %d", SearchLimit, len(found))
	}

	empty, err := env.svc.SearchPatients(context.Background(), "   ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil list, got %v", empty)
	}

	none, err := env.svc.SearchPatients(context.Background(), "zzz")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("expected empty list for no match, got %v (%v)", none, err)
	}
}

func TestService_ResolvePatientByName(t *testing.T) {
	env := newTestEnv()
	p := samplePatient()
	if err := env.svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := env.svc.ResolvePatientByName(context.Background(), p.Name)
	if err != nil || got.ID != p.ID {
		t.Fatalf("expected %s, got %v (%v)", p.ID, got, err)
	}
	if _, err := env.svc.ResolvePatientByName(context.Background(), "Rodrigo"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound for partial name, got %v", err)
	}
}

func TestService_CountPatients(t *testing.T) {
	env := newTestEnv()
	n, err := env.svc.CountPatients(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("expected 0, got %d (%v)", n, err)
	}
	_ = env.svc.CreatePatient(context.Background(), samplePatient())
	n, _ = env.svc.CountPatients(context.Background())
	if n != 1 {
		t.Errorf("expected 1, got %d", n)
	}
}
