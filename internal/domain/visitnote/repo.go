package visitnote

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateNote(ctx context.Context, n *VisitNote) error
	GetNote(ctx context.Context, id uuid.UUID) (*VisitNote, error)
	GetNoteByAppointment(ctx context.Context, appointmentID uuid.UUID) (*VisitNote, error)
	UpdateNoteText(ctx context.Context, id uuid.UUID, text string) (*VisitNote, error)
	ListNotes(ctx context.Context, doctorID uuid.UUID, patientID *uuid.UUID, limit, offset int) ([]*VisitNote, int, error)
	NoteExists(ctx context.Context, appointmentID uuid.UUID) (bool, error)

	// AppointmentRef reads the owning appointment so the service can
	// authorize the author and copy patient and doctor ids.
	AppointmentRef(ctx context.Context, id uuid.UUID) (*AppointmentRef, error)

	CreateAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error)
	ListAttachments(ctx context.Context, noteID uuid.UUID) ([]*Attachment, error)
	DeleteAttachment(ctx context.Context, id uuid.UUID) error
}
