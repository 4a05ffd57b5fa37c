package patient

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/pkg/apperror"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type Input struct {
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	MiddleName string     `json:"middle_name"`
	BirthDate  *time.Time `json:"birth_date"`
	Gender     string     `json:"gender"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email"`
	Address    string     `json:"address"`
	Comment    string     `json:"comment"`
}

func (in *Input) validate() error {
	v := &apperror.ValidationError{}
	if strings.TrimSpace(in.FirstName) == "" {
		v.Add("first_name", "required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		v.Add("last_name", "required")
	}
	if in.Gender == "" {
		in.Gender = GenderUnknown
	}
	if !ValidGenders[in.Gender] {
		v.Add("gender", "must be one of M, F, O, U")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			v.Add("email", "invalid email address")
		}
	}
	if in.BirthDate != nil && in.BirthDate.After(time.Now()) {
		v.Add("birth_date", "must not be in the future")
	}
	if !v.Empty() {
		return v
	}
	return nil
}

func (in *Input) apply(p *Patient) {
	p.FirstName = strings.TrimSpace(in.FirstName)
	p.LastName = strings.TrimSpace(in.LastName)
	p.MiddleName = strings.TrimSpace(in.MiddleName)
	p.BirthDate = in.BirthDate
	p.Gender = in.Gender
	p.Phone = strings.TrimSpace(in.Phone)
	p.Email = strings.TrimSpace(in.Email)
	p.Address = strings.TrimSpace(in.Address)
	p.Comment = in.Comment
}

func (s *Service) Create(ctx context.Context, in Input) (*Patient, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &Patient{}
	in.apply(p)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Get resolves a patient within the actor's scope. Admin sees the whole
// registry; a doctor's lookup of an out-of-scope patient reports not-found,
// never forbidden, so registry existence does not leak.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Patient, error) {
	if actor.IsAdmin() {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetForDoctor(ctx, actor.ID, id)
}

func (s *Service) List(ctx context.Context, actor auth.Actor, query string, limit, offset int) ([]*Patient, int, error) {
	if actor.IsAdmin() {
		return s.repo.List(ctx, query, limit, offset)
	}
	return s.repo.ListForDoctor(ctx, actor.ID, query, limit, offset)
}

// DoctorDetail assembles the doctor's patient card: the registry record and
// the doctor's own history with that patient.
func (s *Service) DoctorDetail(ctx context.Context, doctorID, patientID uuid.UUID) (*Detail, error) {
	p, err := s.repo.GetForDoctor(ctx, doctorID, patientID)
	if err != nil {
		return nil, err
	}
	appts, err := s.repo.AppointmentHistory(ctx, doctorID, patientID)
	if err != nil {
		return nil, err
	}
	notes, err := s.repo.NoteHistory(ctx, doctorID, patientID)
	if err != nil {
		return nil, err
	}
	return &Detail{Patient: p, Appointments: appts, Notes: notes}, nil
}
