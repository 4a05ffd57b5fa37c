// Package patient is the patient registry. Admins manage the whole
// registry; doctors only see patients they have at least one appointment
// with, and that scope is recomputed on every query.
package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	GenderMale    = "M"
	GenderFemale  = "F"
	GenderOther   = "O"
	GenderUnknown = "U"
)

var ValidGenders = map[string]bool{
	GenderMale:    true,
	GenderFemale:  true,
	GenderOther:   true,
	GenderUnknown: true,
}

type Patient struct {
	ID         uuid.UUID  `json:"id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	MiddleName string     `json:"middle_name"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Gender     string     `json:"gender"`
	Phone      string     `json:"phone"`
	Email      string     `json:"email"`
	Address    string     `json:"address"`
	Comment    string     `json:"comment"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (p *Patient) FullName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.LastName, p.FirstName, p.MiddleName} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// AppointmentHistoryItem is one row of a patient's appointment history as
// shown on the doctor's patient detail view.
type AppointmentHistoryItem struct {
	ID          uuid.UUID `json:"id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	ServiceCode string    `json:"service_code"`
	ServiceName string    `json:"service_name"`
}

// NoteHistoryItem is one visit-note row on the doctor's patient detail
// view, scoped to the requesting doctor's own notes.
type NoteHistoryItem struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	NoteText      string    `json:"note_text"`
	CreatedAt     time.Time `json:"created_at"`
}

// Detail is the patient card a doctor sees: the registry record plus their
// own appointment and note history with that patient.
type Detail struct {
	Patient      *Patient                  `json:"patient"`
	Appointments []*AppointmentHistoryItem `json:"appointments"`
	Notes        []*NoteHistoryItem        `json:"notes"`
}
