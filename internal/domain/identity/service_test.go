package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicops/clinicops/internal/platform/audit"
	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/pkg/apperror"
)

// -- Mock Repository --

type mockRepo struct {
	users    map[uuid.UUID]*User
	profiles map[uuid.UUID]*DoctorProfile
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:    make(map[uuid.UUID]*User),
		profiles: make(map[uuid.UUID]*DoctorProfile),
	}
}

func (m *mockRepo) CreateUser(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) GetUserByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (m *mockRepo) UpdateUser(_ context.Context, u *User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) UpsertProfile(_ context.Context, p *DoctorProfile) error {
	m.profiles[p.UserID] = p
	return nil
}

func (m *mockRepo) GetProfile(_ context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) ListDoctors(_ context.Context, query string, limit, offset int) ([]*Doctor, int, error) {
	var out []*Doctor
	for _, u := range m.users {
		if u.Role != auth.RoleDoctor {
			continue
		}
		d := &Doctor{User: *u}
		if p, ok := m.profiles[u.ID]; ok {
			d.Profile = *p
		}
		out = append(out, d)
	}
	return out, len(out), nil
}

func (m *mockRepo) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	u, ok := m.users[id]
	if !ok || u.Role != auth.RoleDoctor {
		return nil, apperror.ErrNotFound
	}
	d := &Doctor{User: *u}
	if p, ok := m.profiles[id]; ok {
		d.Profile = *p
	}
	return d, nil
}

func newTestService(repo Repository) (*Service, *[]audit.Entry) {
	var entries []audit.Entry
	recorder := audit.RecorderFunc(func(_ context.Context, e audit.Entry) {
		entries = append(entries, e)
	})
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewService(repo, issuer, recorder), &entries
}

func seedUser(t *testing.T, repo *mockRepo, email, password, role string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     active,
	}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// -- Tests --

func TestLoginSuccess(t *testing.T) {
	repo := newMockRepo()
	svc, entries := newTestService(repo)
	u := seedUser(t, repo, "doc@clinic.local", "correct-horse", auth.RoleDoctor, true)

	ctx := audit.WithOrigin(context.Background(), audit.Origin{IP: "203.0.113.9", UserAgent: "clinic-app/2.1"})
	token, got, err := svc.Login(ctx, "doc@clinic.local", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Error("empty access token")
	}
	if got.ID != u.ID {
		t.Errorf("user id = %s, want %s", got.ID, u.ID)
	}
	if len(*entries) != 1 {
		t.Fatalf("expected one session audit entry, got %+v", *entries)
	}
	e := (*entries)[0]
	if e.ObjectType != "session" {
		t.Errorf("audit object_type = %q, want session", e.ObjectType)
	}
	if e.IP != "203.0.113.9" || e.UserAgent != "clinic-app/2.1" {
		t.Errorf("session audit origin: ip=%q ua=%q, want request origin", e.IP, e.UserAgent)
	}
}

func TestLoginFailures(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	seedUser(t, repo, "doc@clinic.local", "correct-horse", auth.RoleDoctor, true)
	seedUser(t, repo, "gone@clinic.local", "correct-horse", auth.RoleDoctor, false)

	cases := []struct {
		name            string
		email, password string
	}{
		{"wrong password", "doc@clinic.local", "wrong"},
		{"unknown email", "nobody@clinic.local", "correct-horse"},
		{"inactive account", "gone@clinic.local", "correct-horse"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Login(context.Background(), tc.email, tc.password)
			if err != ErrBadCredentials {
				t.Errorf("err = %v, want ErrBadCredentials", err)
			}
		})
	}
}

func TestCreateDoctor(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	d, err := svc.CreateDoctor(context.Background(), CreateDoctorInput{
		Email:          "Aizhan.B@Clinic.Local",
		Password:       "longenough",
		FirstName:      "Aizhan",
		LastName:       "Bekova",
		Specialization: "Cardiology",
	})
	if err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}
	if d.Email != "aizhan.b@clinic.local" {
		t.Errorf("email not normalized: %q", d.Email)
	}
	if d.Role != auth.RoleDoctor {
		t.Errorf("role = %q, want DOCTOR", d.Role)
	}
	if !d.IsActive {
		t.Error("new doctor should be active")
	}
	if d.PasswordHash == "longenough" {
		t.Error("password stored in plain text")
	}
	if d.Profile.Specialization != "Cardiology" {
		t.Errorf("profile not stored: %+v", d.Profile)
	}
}

func TestCreateDoctorValidation(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	_, err := svc.CreateDoctor(context.Background(), CreateDoctorInput{
		Email:    "not-an-email",
		Password: "short",
	})
	if !apperror.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	v := err.(*apperror.ValidationError)
	for _, field := range []string{"email", "password", "first_name", "last_name"} {
		if len(v.Fields[field]) == 0 {
			t.Errorf("missing validation message for %s", field)
		}
	}
}

func TestCreateDoctorDuplicateEmail(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	seedUser(t, repo, "doc@clinic.local", "correct-horse", auth.RoleDoctor, true)

	_, err := svc.CreateDoctor(context.Background(), CreateDoctorInput{
		Email:     "doc@clinic.local",
		Password:  "longenough",
		FirstName: "Dup",
		LastName:  "Licate",
	})
	if !apperror.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestUpdateDoctorPartial(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	u := seedUser(t, repo, "doc@clinic.local", "correct-horse", auth.RoleDoctor, true)

	phone := "+7 701 000 0000"
	d, err := svc.UpdateDoctor(context.Background(), u.ID, UpdateDoctorInput{Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateDoctor: %v", err)
	}
	if d.Profile.Phone != phone {
		t.Errorf("phone = %q, want %q", d.Profile.Phone, phone)
	}
	if d.FirstName != "Test" {
		t.Errorf("untouched field changed: %q", d.FirstName)
	}
}

func TestDeactivateDoctor(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)
	u := seedUser(t, repo, "doc@clinic.local", "correct-horse", auth.RoleDoctor, true)

	if err := svc.DeactivateDoctor(context.Background(), u.ID); err != nil {
		t.Fatalf("DeactivateDoctor: %v", err)
	}
	if repo.users[u.ID].IsActive {
		t.Error("doctor still active")
	}
	if _, _, err := svc.Login(context.Background(), u.Email, "correct-horse"); err != ErrBadCredentials {
		t.Errorf("login after deactivation = %v, want ErrBadCredentials", err)
	}
}

func TestUpdateDoctorNotFound(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	_, err := svc.UpdateDoctor(context.Background(), uuid.New(), UpdateDoctorInput{})
	if err != apperror.ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
