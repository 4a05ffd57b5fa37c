package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateService(ctx context.Context, s *Service) error
	GetService(ctx context.Context, id uuid.UUID) (*Service, error)
	GetServiceByCode(ctx context.Context, code string) (*Service, error)
	UpdateService(ctx context.Context, s *Service) error
	DeleteService(ctx context.Context, id uuid.UUID) error
	ListServices(ctx context.Context, activeOnly bool, query string, limit, offset int) ([]*Service, int, error)
	ServiceInUse(ctx context.Context, id uuid.UUID) (bool, error)

	CreateRoom(ctx context.Context, r *Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	UpdateRoom(ctx context.Context, r *Room) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error
	ListRooms(ctx context.Context, limit, offset int) ([]*Room, int, error)
}
