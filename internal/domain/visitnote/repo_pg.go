package visitnote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinicops/internal/platform/db"
	"github.com/clinicops/clinicops/pkg/apperror"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const noteCols = `id, appointment_id, patient_id, doctor_id, note_text, created_at, updated_at`

func (r *repoPG) CreateNote(ctx context.Context, n *VisitNote) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visit_notes (id, appointment_id, patient_id, doctor_id, note_text)
		VALUES ($1,$2,$3,$4,$5)`,
		n.ID, n.AppointmentID, n.PatientID, n.DoctorID, n.NoteText)
	return err
}

func scanNote(row pgx.Row) (*VisitNote, error) {
	var n VisitNote
	err := row.Scan(&n.ID, &n.AppointmentID, &n.PatientID, &n.DoctorID,
		&n.NoteText, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repoPG) GetNote(ctx context.Context, id uuid.UUID) (*VisitNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM visit_notes WHERE id = $1`, id))
}

func (r *repoPG) GetNoteByAppointment(ctx context.Context, appointmentID uuid.UUID) (*VisitNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM visit_notes WHERE appointment_id = $1`, appointmentID))
}

// UpdateNoteText touches only the text column. Patient and doctor are
// immutable once the note exists.
func (r *repoPG) UpdateNoteText(ctx context.Context, id uuid.UUID, text string) (*VisitNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx, `
		UPDATE visit_notes SET note_text = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+noteCols, id, text))
}

func (r *repoPG) ListNotes(ctx context.Context, doctorID uuid.UUID, patientID *uuid.UUID, limit, offset int) ([]*VisitNote, int, error) {
	where := ` WHERE doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2
	if patientID != nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *patientID)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit_notes`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + noteCols + ` FROM visit_notes` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*VisitNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) NoteExists(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM visit_notes WHERE appointment_id = $1)`,
		appointmentID).Scan(&exists)
	return exists, err
}

func (r *repoPG) AppointmentRef(ctx context.Context, id uuid.UUID) (*AppointmentRef, error) {
	var ref AppointmentRef
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, status FROM appointments WHERE id = $1`,
		id).Scan(&ref.ID, &ref.PatientID, &ref.DoctorID, &ref.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

const attachmentCols = `id, visit_note_id, file_name, content_type, size, blob_id, uploaded_by, uploaded_at`

func (r *repoPG) CreateAttachment(ctx context.Context, a *Attachment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO attachments (id, visit_note_id, file_name, content_type, size, blob_id, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.VisitNoteID, a.FileName, a.ContentType, a.Size, a.BlobID, a.UploadedBy)
	return err
}

func scanAttachment(row pgx.Row) (*Attachment, error) {
	var a Attachment
	err := row.Scan(&a.ID, &a.VisitNoteID, &a.FileName, &a.ContentType,
		&a.Size, &a.BlobID, &a.UploadedBy, &a.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) GetAttachment(ctx context.Context, id uuid.UUID) (*Attachment, error) {
	return scanAttachment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+attachmentCols+` FROM attachments WHERE id = $1`, id))
}

func (r *repoPG) ListAttachments(ctx context.Context, noteID uuid.UUID) ([]*Attachment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+attachmentCols+` FROM attachments WHERE visit_note_id = $1 ORDER BY uploaded_at`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *repoPG) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrNotFound
	}
	return nil
}
