// Package search is the cross-entity quick search behind the top bar. One
// query term fans out to patients, active services, and appointments, each
// capped independently and scoped to the caller.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/pkg/apperror"
)

const (
	// DefaultLimit is the per-entity hit count when the caller does not ask
	// for one.
	DefaultLimit = 10
	// MaxLimit is the per-entity hard cap.
	MaxLimit = 50
)

type PatientHit struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
}

// serviceRow carries all three localized names out of the repository so the
// service layer can pick one per the request language.
type serviceRow struct {
	ID     uuid.UUID
	Code   string
	NameEn string
	NameRu string
	NameKk string
}

func (r serviceRow) localized(lang string) string {
	var name string
	switch lang {
	case "ru":
		name = r.NameRu
	case "kk":
		name = r.NameKk
	}
	if name == "" {
		name = r.NameEn
	}
	return name
}

type ServiceHit struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name"`
}

type AppointmentHit struct {
	ID          uuid.UUID `json:"id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	PatientName string    `json:"patient_name"`
	DoctorEmail string    `json:"doctor_email"`
	ServiceCode string    `json:"service_code"`
}

type Result struct {
	Patients     []PatientHit     `json:"patients"`
	Services     []ServiceHit     `json:"services"`
	Appointments []AppointmentHit `json:"appointments"`
}

// Repository runs the per-entity matches. A nil-uuid doctorID means
// unscoped (admin); otherwise results are limited to that doctor's rows.
type Repository interface {
	SearchPatients(ctx context.Context, q string, doctorID uuid.UUID, limit int) ([]PatientHit, error)
	SearchServices(ctx context.Context, q string, limit int) ([]serviceRow, error)
	SearchAppointments(ctx context.Context, q string, doctorID uuid.UUID, limit int) ([]AppointmentHit, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search fans the term out to every entity. lang selects the service name
// language (en, ru, kk), falling back to English.
func (s *Service) Search(ctx context.Context, actor auth.Actor, q string, limit int, lang string) (*Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.NewValidation("q", "required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	scope := uuid.Nil
	if actor.IsDoctor() {
		scope = actor.ID
	}

	patients, err := s.repo.SearchPatients(ctx, q, scope, limit)
	if err != nil {
		return nil, err
	}
	services, err := s.repo.SearchServices(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	appointments, err := s.repo.SearchAppointments(ctx, q, scope, limit)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Patients:     patients,
		Services:     make([]ServiceHit, 0, len(services)),
		Appointments: appointments,
	}
	if res.Patients == nil {
		res.Patients = []PatientHit{}
	}
	if res.Appointments == nil {
		res.Appointments = []AppointmentHit{}
	}
	for _, row := range services {
		res.Services = append(res.Services, ServiceHit{
			ID:   row.ID,
			Code: row.Code,
			Name: row.localized(lang),
		})
	}
	return res, nil
}
