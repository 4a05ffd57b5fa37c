// Package identity holds users, doctor profiles, and the auth endpoints.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinicops/internal/platform/auth"
)

// User is a staff account. Patients do not log in.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) Actor() auth.Actor {
	return auth.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

// DoctorProfile extends a DOCTOR user with clinical directory fields.
type DoctorProfile struct {
	UserID         uuid.UUID `json:"user_id"`
	Specialization string    `json:"specialization"`
	Phone          string    `json:"phone"`
	CabinetNumber  string    `json:"cabinet_number"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Doctor is a user joined with its profile, the shape the admin directory
// and the doctor pickers consume.
type Doctor struct {
	User
	Profile DoctorProfile `json:"profile"`
}
