package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicops/clinicops/internal/platform/audit"
	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/pkg/apperror"
)

// ErrBadCredentials covers both unknown email and wrong password so login
// responses never reveal which one failed.
var ErrBadCredentials = errors.New("invalid email or password")

type Service struct {
	repo     Repository
	issuer   *auth.TokenIssuer
	recorder audit.Recorder
}

func NewService(repo Repository, issuer *auth.TokenIssuer, recorder audit.Recorder) *Service {
	return &Service{repo: repo, issuer: issuer, recorder: recorder}
}

// Login verifies credentials and issues an access token. Inactive accounts
// fail the same way as wrong passwords.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, err
	}
	if !u.IsActive {
		return "", nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrBadCredentials
	}

	token, err := s.issuer.Issue(u.Actor(), time.Now().UTC())
	if err != nil {
		return "", nil, err
	}

	actorID := u.ID
	origin := audit.OriginFromContext(ctx)
	s.recorder.Record(ctx, audit.Entry{
		ActorID:    &actorID,
		ActorEmail: u.Email,
		Action:     audit.ActionRead,
		ObjectType: "session",
		ObjectID:   u.ID.String(),
		IP:         origin.IP,
		UserAgent:  origin.UserAgent,
		Metadata:   map[string]interface{}{"event": "login"},
	})
	return token, u, nil
}

// Logout only leaves an audit trace; access tokens stay valid until expiry.
func (s *Service) Logout(ctx context.Context, actor auth.Actor) {
	actorID := actor.ID
	origin := audit.OriginFromContext(ctx)
	s.recorder.Record(ctx, audit.Entry{
		ActorID:    &actorID,
		ActorEmail: actor.Email,
		Action:     audit.ActionDelete,
		ObjectType: "session",
		ObjectID:   actor.ID.String(),
		IP:         origin.IP,
		UserAgent:  origin.UserAgent,
		Metadata:   map[string]interface{}{"event": "logout"},
	})
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// CreateDoctorInput is the admin payload for provisioning a doctor account.
type CreateDoctorInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Specialization string `json:"specialization"`
	Phone          string `json:"phone"`
	CabinetNumber  string `json:"cabinet_number"`
}

func (in *CreateDoctorInput) validate() error {
	v := &apperror.ValidationError{}
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" {
		v.Add("email", "required")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		v.Add("email", "invalid email address")
	}
	if len(in.Password) < 8 {
		v.Add("password", "must be at least 8 characters")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		v.Add("first_name", "required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		v.Add("last_name", "required")
	}
	if !v.Empty() {
		return v
	}
	return nil
}

func (s *Service) CreateDoctor(ctx context.Context, in CreateDoctorInput) (*Doctor, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperror.NewValidation("email", "already in use")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         auth.RoleDoctor,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	profile := &DoctorProfile{
		UserID:         u.ID,
		Specialization: strings.TrimSpace(in.Specialization),
		Phone:          strings.TrimSpace(in.Phone),
		CabinetNumber:  strings.TrimSpace(in.CabinetNumber),
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	return &Doctor{User: *u, Profile: *profile}, nil
}

// UpdateDoctorInput carries optional fields; nil means leave unchanged.
type UpdateDoctorInput struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Password       *string `json:"password"`
	IsActive       *bool   `json:"is_active"`
	Specialization *string `json:"specialization"`
	Phone          *string `json:"phone"`
	CabinetNumber  *string `json:"cabinet_number"`
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, in UpdateDoctorInput) (*Doctor, error) {
	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		if strings.TrimSpace(*in.FirstName) == "" {
			return nil, apperror.NewValidation("first_name", "required")
		}
		d.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if strings.TrimSpace(*in.LastName) == "" {
			return nil, apperror.NewValidation("last_name", "required")
		}
		d.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			return nil, apperror.NewValidation("password", "must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		d.PasswordHash = string(hash)
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	if err := s.repo.UpdateUser(ctx, &d.User); err != nil {
		return nil, err
	}

	if in.Specialization != nil {
		d.Profile.Specialization = strings.TrimSpace(*in.Specialization)
	}
	if in.Phone != nil {
		d.Profile.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.CabinetNumber != nil {
		d.Profile.CabinetNumber = strings.TrimSpace(*in.CabinetNumber)
	}
	if in.Specialization != nil || in.Phone != nil || in.CabinetNumber != nil {
		if err := s.repo.UpsertProfile(ctx, &d.Profile); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctor(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, query string, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.ListDoctors(ctx, query, limit, offset)
}

// DeactivateDoctor disables login without destroying history. Appointments
// and notes keep referencing the account.
func (s *Service) DeactivateDoctor(ctx context.Context, id uuid.UUID) error {
	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		return err
	}
	d.IsActive = false
	return s.repo.UpdateUser(ctx, &d.User)
}
