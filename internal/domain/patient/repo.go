package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)

	// Doctor scope: patients having at least one appointment with the doctor.
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, query string, limit, offset int) ([]*Patient, int, error)
	GetForDoctor(ctx context.Context, doctorID, patientID uuid.UUID) (*Patient, error)
	AppointmentHistory(ctx context.Context, doctorID, patientID uuid.UUID) ([]*AppointmentHistoryItem, error)
	NoteHistory(ctx context.Context, doctorID, patientID uuid.UUID) ([]*NoteHistoryItem, error)
}
