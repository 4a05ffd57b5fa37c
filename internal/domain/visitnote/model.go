// Package visitnote holds the clinical record a doctor writes after an
// appointment, plus its file attachments. Notes are doctor-exclusive:
// admins manage the schedule around them but never read the content.
package visitnote

import (
	"time"

	"github.com/google/uuid"
)

// VisitNote is the single clinical note for one appointment. PatientID and
// DoctorID are copied from the appointment at creation and never change,
// even if the appointment is later reassigned.
type VisitNote struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	NoteText      string    `json:"note_text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Attachment is file metadata for a note. The bytes live in the blob store
// under BlobID.
type Attachment struct {
	ID          uuid.UUID `json:"id"`
	VisitNoteID uuid.UUID `json:"visit_note_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	BlobID      uuid.UUID `json:"-"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// AppointmentRef is the slice of an appointment the note service needs to
// authorize and denormalize from.
type AppointmentRef struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    string
}
