package catalog

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicops/clinicops/pkg/apperror"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{1,31}$`)

type CatalogService struct {
	repo Repository
}

func NewCatalogService(repo Repository) *CatalogService {
	return &CatalogService{repo: repo}
}

// CreateServiceInput carries the admin payload for a new billable service.
type CreateServiceInput struct {
	Code            string `json:"code"`
	NameEN          string `json:"name_en"`
	NameRU          string `json:"name_ru"`
	NameKK          string `json:"name_kk"`
	DescriptionEN   string `json:"description_en"`
	DescriptionRU   string `json:"description_ru"`
	DescriptionKK   string `json:"description_kk"`
	DurationMinutes int    `json:"duration_minutes"`
	PriceCents      int64  `json:"price_cents"`
}

func (s *CatalogService) CreateService(ctx context.Context, in CreateServiceInput) (*Service, error) {
	v := &apperror.ValidationError{}
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	if !codePattern.MatchString(in.Code) {
		v.Add("code", "must be 2-32 chars of A-Z, 0-9, '-' or '_'")
	}
	if strings.TrimSpace(in.NameEN) == "" {
		v.Add("name_en", "required")
	}
	if in.DurationMinutes <= 0 {
		v.Add("duration_minutes", "must be positive")
	}
	if in.PriceCents < 0 {
		v.Add("price_cents", "must not be negative")
	}
	if !v.Empty() {
		return nil, v
	}

	if _, err := s.repo.GetServiceByCode(ctx, in.Code); err == nil {
		return nil, apperror.NewValidation("code", "already in use")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	svc := &Service{
		Code:            in.Code,
		NameEN:          strings.TrimSpace(in.NameEN),
		NameRU:          strings.TrimSpace(in.NameRU),
		NameKK:          strings.TrimSpace(in.NameKK),
		DescriptionEN:   in.DescriptionEN,
		DescriptionRU:   in.DescriptionRU,
		DescriptionKK:   in.DescriptionKK,
		DurationMinutes: in.DurationMinutes,
		PriceCents:      in.PriceCents,
		IsActive:        true,
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// UpdateServiceInput carries optional fields; code is immutable and absent.
type UpdateServiceInput struct {
	NameEN          *string `json:"name_en"`
	NameRU          *string `json:"name_ru"`
	NameKK          *string `json:"name_kk"`
	DescriptionEN   *string `json:"description_en"`
	DescriptionRU   *string `json:"description_ru"`
	DescriptionKK   *string `json:"description_kk"`
	DurationMinutes *int    `json:"duration_minutes"`
	PriceCents      *int64  `json:"price_cents"`
	IsActive        *bool   `json:"is_active"`
}

func (s *CatalogService) UpdateService(ctx context.Context, id uuid.UUID, in UpdateServiceInput) (*Service, error) {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.NameEN != nil {
		if strings.TrimSpace(*in.NameEN) == "" {
			return nil, apperror.NewValidation("name_en", "required")
		}
		svc.NameEN = strings.TrimSpace(*in.NameEN)
	}
	if in.NameRU != nil {
		svc.NameRU = strings.TrimSpace(*in.NameRU)
	}
	if in.NameKK != nil {
		svc.NameKK = strings.TrimSpace(*in.NameKK)
	}
	if in.DescriptionEN != nil {
		svc.DescriptionEN = *in.DescriptionEN
	}
	if in.DescriptionRU != nil {
		svc.DescriptionRU = *in.DescriptionRU
	}
	if in.DescriptionKK != nil {
		svc.DescriptionKK = *in.DescriptionKK
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes <= 0 {
			return nil, apperror.NewValidation("duration_minutes", "must be positive")
		}
		svc.DurationMinutes = *in.DurationMinutes
	}
	if in.PriceCents != nil {
		if *in.PriceCents < 0 {
			return nil, apperror.NewValidation("price_cents", "must not be negative")
		}
		svc.PriceCents = *in.PriceCents
	}
	if in.IsActive != nil {
		svc.IsActive = *in.IsActive
	}

	if err := s.repo.UpdateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// DeleteService refuses to delete a service any appointment references;
// deactivate instead to retire it from new bookings.
func (s *CatalogService) DeleteService(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetService(ctx, id); err != nil {
		return err
	}
	used, err := s.repo.ServiceInUse(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return apperror.NewValidation(apperror.NonFieldKey,
			"service is referenced by appointments; deactivate it instead")
	}
	return s.repo.DeleteService(ctx, id)
}

func (s *CatalogService) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	return s.repo.GetService(ctx, id)
}

func (s *CatalogService) ListServices(ctx context.Context, activeOnly bool, query string, limit, offset int) ([]*Service, int, error) {
	return s.repo.ListServices(ctx, activeOnly, query, limit, offset)
}

func (s *CatalogService) CreateRoom(ctx context.Context, room *Room) (*Room, error) {
	room.Name = strings.TrimSpace(room.Name)
	if room.Name == "" {
		return nil, apperror.NewValidation("name", "required")
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *CatalogService) UpdateRoom(ctx context.Context, id uuid.UUID, name *string, floor *int, comment *string) (*Room, error) {
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperror.NewValidation("name", "required")
		}
		room.Name = strings.TrimSpace(*name)
	}
	if floor != nil {
		room.Floor = floor
	}
	if comment != nil {
		room.Comment = *comment
	}
	if err := s.repo.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *CatalogService) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetRoom(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteRoom(ctx, id)
}

func (s *CatalogService) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	return s.repo.GetRoom(ctx, id)
}

func (s *CatalogService) ListRooms(ctx context.Context, limit, offset int) ([]*Room, int, error) {
	return s.repo.ListRooms(ctx, limit, offset)
}
