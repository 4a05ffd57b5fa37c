package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error

	UpsertProfile(ctx context.Context, p *DoctorProfile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error)

	ListDoctors(ctx context.Context, query string, limit, offset int) ([]*Doctor, int, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
}
