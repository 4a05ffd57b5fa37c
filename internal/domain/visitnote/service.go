package visitnote

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinicops/internal/platform/audit"
	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/internal/platform/blobstore"
	"github.com/clinicops/clinicops/pkg/apperror"
)

type Service struct {
	repo     Repository
	blobs    blobstore.Store
	recorder audit.Recorder
	logger   zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.Store, recorder audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, recorder: recorder, logger: logger}
}

type CreateInput struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	NoteText      string    `json:"note_text"`
}

// Create writes the appointment's clinical note. Only the appointment's own
// doctor may author it; patient and doctor are copied from the appointment
// and frozen.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*VisitNote, error) {
	v := &apperror.ValidationError{}
	if in.AppointmentID == uuid.Nil {
		v.Add("appointment_id", "required")
	}
	if strings.TrimSpace(in.NoteText) == "" {
		v.Add("note_text", "required")
	}
	if !v.Empty() {
		return nil, v
	}

	ref, err := s.repo.AppointmentRef(ctx, in.AppointmentID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NewValidation("appointment_id", "no such appointment")
		}
		return nil, err
	}
	if ref.DoctorID != actor.ID {
		return nil, apperror.ErrForbidden
	}

	exists, err := s.repo.NoteExists(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.NewValidation("appointment_id", "appointment already has a visit note")
	}

	n := &VisitNote{
		AppointmentID: in.AppointmentID,
		PatientID:     ref.PatientID,
		DoctorID:      ref.DoctorID,
		NoteText:      in.NoteText,
	}
	if err := s.repo.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Get returns the note to its author and records the read in the audit
// ledger. Anyone else, admins included, reads not-found.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*VisitNote, error) {
	n, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	actorID := actor.ID
	origin := audit.OriginFromContext(ctx)
	s.recorder.Record(ctx, audit.Entry{
		ActorID:    &actorID,
		ActorEmail: actor.Email,
		Action:     audit.ActionRead,
		ObjectType: "visit_note",
		ObjectID:   n.ID.String(),
		IP:         origin.IP,
		UserAgent:  origin.UserAgent,
	})
	return n, nil
}

func (s *Service) GetByAppointment(ctx context.Context, actor auth.Actor, appointmentID uuid.UUID) (*VisitNote, error) {
	n, err := s.repo.GetNoteByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if n.DoctorID != actor.ID {
		return nil, apperror.ErrNotFound
	}
	return s.Get(ctx, actor, n.ID)
}

type UpdateInput struct {
	NoteText string `json:"note_text"`
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in UpdateInput) (*VisitNote, error) {
	if strings.TrimSpace(in.NoteText) == "" {
		return nil, apperror.NewValidation("note_text", "required")
	}
	if _, err := s.getOwned(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.repo.UpdateNoteText(ctx, id, in.NoteText)
}

func (s *Service) List(ctx context.Context, actor auth.Actor, patientID *uuid.UUID, limit, offset int) ([]*VisitNote, int, error) {
	return s.repo.ListNotes(ctx, actor.ID, patientID, limit, offset)
}

// getOwned loads a note only if the actor authored it. Out-of-scope reads
// are indistinguishable from missing rows.
func (s *Service) getOwned(ctx context.Context, actor auth.Actor, id uuid.UUID) (*VisitNote, error) {
	n, err := s.repo.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.DoctorID != actor.ID {
		return nil, apperror.ErrNotFound
	}
	return n, nil
}

// -- Attachments --

type UploadInput struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

func (s *Service) Upload(ctx context.Context, actor auth.Actor, noteID uuid.UUID, in UploadInput) (*Attachment, error) {
	if _, err := s.getOwned(ctx, actor, noteID); err != nil {
		return nil, err
	}

	v := &apperror.ValidationError{}
	if strings.TrimSpace(in.FileName) == "" {
		v.Add("file", "file name is required")
	}
	if !blobstore.AllowedContentTypes[in.ContentType] {
		v.Add("file", "content type "+in.ContentType+" is not allowed")
	}
	if !v.Empty() {
		return nil, v
	}

	blobID := uuid.New()
	size, hash, err := s.blobs.Put(ctx, blobID, in.Content)
	if err != nil {
		if errors.Is(err, blobstore.ErrFileTooLarge) {
			return nil, apperror.NewValidation("file", "file is too large")
		}
		return nil, err
	}

	a := &Attachment{
		VisitNoteID: noteID,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Size:        size,
		BlobID:      blobID,
		UploadedBy:  actor.ID,
	}
	if err := s.repo.CreateAttachment(ctx, a); err != nil {
		// The metadata row failed, so the blob is orphaned; reclaim it.
		if derr := s.blobs.Delete(ctx, blobID); derr != nil {
			s.logger.Error().Err(derr).Str("blob_id", blobID.String()).Msg("orphaned attachment blob")
		}
		return nil, err
	}
	s.logger.Debug().Str("attachment_id", a.ID.String()).Str("sha256", hash).Msg("attachment stored")
	return a, nil
}

func (s *Service) Attachments(ctx context.Context, actor auth.Actor, noteID uuid.UUID) ([]*Attachment, error) {
	if _, err := s.getOwned(ctx, actor, noteID); err != nil {
		return nil, err
	}
	return s.repo.ListAttachments(ctx, noteID)
}

// Download returns the attachment metadata and a reader over its bytes. The
// caller owns closing the reader.
func (s *Service) Download(ctx context.Context, actor auth.Actor, noteID, attachmentID uuid.UUID) (*Attachment, io.ReadCloser, error) {
	a, err := s.getAttachmentOwned(ctx, actor, noteID, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, a.BlobID)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, nil, apperror.ErrNotFound
		}
		return nil, nil, err
	}
	return a, rc, nil
}

func (s *Service) DeleteAttachment(ctx context.Context, actor auth.Actor, noteID, attachmentID uuid.UUID) error {
	a, err := s.getAttachmentOwned(ctx, actor, noteID, attachmentID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAttachment(ctx, a.ID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, a.BlobID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		s.logger.Error().Err(err).Str("blob_id", a.BlobID.String()).Msg("attachment blob left behind")
	}
	return nil
}

func (s *Service) getAttachmentOwned(ctx context.Context, actor auth.Actor, noteID, attachmentID uuid.UUID) (*Attachment, error) {
	if _, err := s.getOwned(ctx, actor, noteID); err != nil {
		return nil, err
	}
	a, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if a.VisitNoteID != noteID {
		return nil, apperror.ErrNotFound
	}
	return a, nil
}
