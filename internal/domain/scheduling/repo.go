package scheduling

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a *Appointment) error
	ListAppointments(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)

	// FindConflict returns the id of any active appointment for the doctor
	// overlapping the window, excluding excludeID when non-nil-uuid.
	FindConflict(ctx context.Context, doctorID uuid.UUID, w Window, excludeID uuid.UUID) (uuid.UUID, bool, error)

	// UserRole reads the assignee's role so a non-doctor can be rejected
	// with a field error before any booking work happens.
	UserRole(ctx context.Context, userID uuid.UUID) (string, error)
	ServiceDuration(ctx context.Context, serviceID uuid.UUID) (int, error)

	CreateWorkWindow(ctx context.Context, w *WorkWindow) error
	GetWorkWindow(ctx context.Context, id uuid.UUID) (*WorkWindow, error)
	DeleteWorkWindow(ctx context.Context, id uuid.UUID) error
	ListWorkWindows(ctx context.Context, doctorID uuid.UUID) ([]*WorkWindow, error)
	WorkWindowsForWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) ([]*WorkWindow, error)
	WorkWindowExists(ctx context.Context, doctorID uuid.UUID, weekday, startMin, endMin int) (bool, error)

	CreateTimeOff(ctx context.Context, t *TimeOff) error
	GetTimeOff(ctx context.Context, id uuid.UUID) (*TimeOff, error)
	DeleteTimeOff(ctx context.Context, id uuid.UUID) error
	ListTimeOff(ctx context.Context, doctorID uuid.UUID) ([]*TimeOff, error)
	TimeOffOverlaps(ctx context.Context, doctorID uuid.UUID, w Window) (bool, error)

	Stats(ctx context.Context, f Filter) (*Report, error)
}
