// Package scheduling owns the appointment book: doctor work windows,
// time-off, the appointment lifecycle, and the overlap rules that keep one
// doctor from being booked twice.
package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinicops/pkg/apperror"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
)

// activeStatuses are the only statuses that block other bookings.
var activeStatuses = map[string]bool{
	StatusScheduled: true,
	StatusConfirmed: true,
}

func IsActiveStatus(status string) bool { return activeStatuses[status] }

func IsValidStatus(status string) bool {
	switch status {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// transitions is the complete state table. Terminal statuses have no entry,
// so every transition out of them is rejected.
var transitions = map[string]map[string]bool{
	StatusScheduled: {
		StatusConfirmed: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	},
	StatusConfirmed: {
		StatusCompleted: true,
		StatusCancelled: true,
		StatusNoShow:    true,
	},
}

func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// Window is a half-open interval [StartAt, EndAt).
type Window struct {
	StartAt time.Time
	EndAt   time.Time
}

func (w Window) Validate() error {
	if w.StartAt.IsZero() {
		return apperror.NewValidation("start_at", "required")
	}
	if w.EndAt.IsZero() {
		return apperror.NewValidation("end_at", "required")
	}
	if !w.StartAt.Before(w.EndAt) {
		return apperror.NewValidation("end_at", "must be after start_at")
	}
	return nil
}

// Overlaps is the half-open interval test. Touching endpoints do not
// overlap.
func (w Window) Overlaps(other Window) bool {
	return w.StartAt.Before(other.EndAt) && other.StartAt.Before(w.EndAt)
}

// WorkWindow is one recurring weekly bookable interval, stored as minutes
// since local midnight. EndMin may be 1440 for a window ending at midnight.
type WorkWindow struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	Weekday     int       `json:"weekday"` // 0 = Sunday, matching time.Weekday
	StartMin    int       `json:"start_min"`
	EndMin      int       `json:"end_min"`
	SlotMinutes int       `json:"slot_minutes"`
	CreatedAt   time.Time `json:"created_at"`
}

func (w *WorkWindow) Validate() error {
	v := &apperror.ValidationError{}
	if w.DoctorID == uuid.Nil {
		v.Add("doctor_id", "required")
	}
	if w.Weekday < 0 || w.Weekday > 6 {
		v.Add("weekday", "must be between 0 and 6")
	}
	if w.StartMin < 0 || w.StartMin >= 24*60 {
		v.Add("start_min", "must be within the day")
	}
	if w.EndMin <= 0 || w.EndMin > 24*60 {
		v.Add("end_min", "must be within the day")
	}
	if w.StartMin >= w.EndMin {
		v.Add("end_min", "must be after start_min")
	}
	if w.SlotMinutes <= 0 {
		v.Add("slot_minutes", "must be positive")
	}
	if !v.Empty() {
		return v
	}
	return nil
}

// TimeOff is a one-off exclusion that overrides work windows.
type TimeOff struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *TimeOff) Validate() error {
	if t.DoctorID == uuid.Nil {
		return apperror.NewValidation("doctor_id", "required")
	}
	return Window{StartAt: t.StartAt, EndAt: t.EndAt}.Validate()
}

type Appointment struct {
	ID        uuid.UUID  `json:"id"`
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	ServiceID uuid.UUID  `json:"service_id"`
	RoomID    *uuid.UUID `json:"room_id,omitempty"`
	StartAt   time.Time  `json:"start_at"`
	EndAt     time.Time  `json:"end_at"`
	Status    string     `json:"status"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	Reason    string     `json:"reason"`
	Comment   string     `json:"comment"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (a *Appointment) Window() Window {
	return Window{StartAt: a.StartAt, EndAt: a.EndAt}
}

// Filter narrows appointment lists and reports. Date bounds are inclusive
// on start_at.
type Filter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    *string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// Report is the admin aggregate over the appointment book.
type Report struct {
	Total    int               `json:"total"`
	ByStatus map[string]int    `json:"by_status"`
	ByDoctor map[uuid.UUID]int `json:"by_doctor"`
}
