package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinicops/internal/platform/auth"
	"github.com/clinicops/clinicops/internal/platform/lock"
	"github.com/clinicops/clinicops/pkg/apperror"
)

// TxRunner runs fn inside one transaction; repository calls made with the
// ctx it passes join that transaction. Production wires db.WithTx, tests
// pass the context straight through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Options are the deployment switches for the booking rules.
type Options struct {
	// EnforceAvailability turns the advisory availability check into a
	// booking-time business rule.
	EnforceAvailability bool
	// DoctorSelfBooking lets doctors create appointments for themselves.
	DoctorSelfBooking bool
}

type Service struct {
	repo   Repository
	avail  *Availability
	locker lock.Locker
	tx     TxRunner
	logger zerolog.Logger
	opts   Options
}

func NewService(repo Repository, locker lock.Locker, tx TxRunner, logger zerolog.Logger, opts Options) *Service {
	return &Service{
		repo:   repo,
		avail:  NewAvailability(repo),
		locker: locker,
		tx:     tx,
		logger: logger,
		opts:   opts,
	}
}

type CreateInput struct {
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  uuid.UUID  `json:"doctor_id"`
	ServiceID uuid.UUID  `json:"service_id"`
	RoomID    *uuid.UUID `json:"room_id"`
	StartAt   time.Time  `json:"start_at"`
	EndAt     time.Time  `json:"end_at"`
	Reason    string     `json:"reason"`
	Comment   string     `json:"comment"`
}

// Create books a new appointment. Validation order: references and
// interval, assignee role, then conflict detection with the insert in the
// same transaction, serialized per doctor by the locker.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*Appointment, error) {
	v := &apperror.ValidationError{}
	if in.PatientID == uuid.Nil {
		v.Add("patient_id", "required")
	}
	if in.DoctorID == uuid.Nil {
		v.Add("doctor_id", "required")
	}
	if in.ServiceID == uuid.Nil {
		v.Add("service_id", "required")
	}
	if !v.Empty() {
		return nil, v
	}

	if actor.IsDoctor() {
		if !s.opts.DoctorSelfBooking || in.DoctorID != actor.ID {
			return nil, apperror.ErrForbidden
		}
	}

	// End defaults to start plus the service duration.
	if in.EndAt.IsZero() && !in.StartAt.IsZero() {
		minutes, err := s.repo.ServiceDuration(ctx, in.ServiceID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.NewValidation("service_id", "unknown or inactive service")
			}
			return nil, err
		}
		in.EndAt = in.StartAt.Add(time.Duration(minutes) * time.Minute)
	}

	w := Window{StartAt: in.StartAt, EndAt: in.EndAt}
	if err := w.Validate(); err != nil {
		return nil, err
	}

	role, err := s.repo.UserRole(ctx, in.DoctorID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NewValidation("doctor", "no such user")
		}
		return nil, err
	}
	if role != auth.RoleDoctor {
		return nil, apperror.NewValidation("doctor", "assigned user is not a doctor")
	}

	actorID := actor.ID
	appt := &Appointment{
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		ServiceID: in.ServiceID,
		RoomID:    in.RoomID,
		StartAt:   in.StartAt,
		EndAt:     in.EndAt,
		Status:    StatusScheduled,
		CreatedBy: &actorID,
		Reason:    in.Reason,
		Comment:   in.Comment,
	}

	if err := s.bookLocked(ctx, in.DoctorID, w, uuid.Nil, func(ctx context.Context) error {
		return s.repo.CreateAppointment(ctx, appt)
	}); err != nil {
		return nil, err
	}
	return appt, nil
}

// bookLocked serializes the conflict scan and the write per doctor. The
// scan and write share one transaction so a commit never lands on stale
// reads.
func (s *Service) bookLocked(ctx context.Context, doctorID uuid.UUID, w Window, excludeID uuid.UUID, write func(ctx context.Context) error) error {
	err := s.locker.WithDoctorLock(ctx, doctorID, func(ctx context.Context) error {
		return s.tx(ctx, func(ctx context.Context) error {
			if s.opts.EnforceAvailability {
				ok, err := s.avail.IsAvailable(ctx, doctorID, w)
				if err != nil {
					return err
				}
				if !ok {
					return apperror.NewValidation(apperror.NonFieldKey,
						"doctor is not available in this time window")
				}
			}

			conflictID, found, err := s.repo.FindConflict(ctx, doctorID, w, excludeID)
			if err != nil {
				return err
			}
			if found {
				s.logger.Info().
					Str("doctor_id", doctorID.String()).
					Str("conflicting_id", conflictID.String()).
					Msg("booking rejected: overlapping active appointment")
				return &apperror.ConflictError{DoctorID: doctorID, ConflictingID: conflictID}
			}
			return write(ctx)
		})
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		return &apperror.ConflictError{DoctorID: doctorID}
	}
	return err
}

type UpdateInput struct {
	PatientID *uuid.UUID `json:"patient_id"`
	DoctorID  *uuid.UUID `json:"doctor_id"`
	ServiceID *uuid.UUID `json:"service_id"`
	RoomID    *uuid.UUID `json:"room_id"`
	StartAt   *time.Time `json:"start_at"`
	EndAt     *time.Time `json:"end_at"`
	Status    *string    `json:"status"`
	Reason    *string    `json:"reason"`
	Comment   *string    `json:"comment"`
}

func (in UpdateInput) touchesSchedule() bool {
	return in.DoctorID != nil || in.StartAt != nil || in.EndAt != nil
}

func (in UpdateInput) touchesAdminFields() bool {
	return in.PatientID != nil || in.ServiceID != nil || in.RoomID != nil || in.touchesSchedule()
}

// Update edits an appointment. Doctors may only touch status, reason, and
// comment on their own appointments; rescheduling re-runs the full conflict
// check under the doctor lock.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	appt, err := s.getScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if actor.IsDoctor() && in.touchesAdminFields() {
		return nil, apperror.ErrForbidden
	}

	if in.Status != nil {
		if err := s.applyTransition(appt, *in.Status); err != nil {
			return nil, err
		}
	}
	if in.PatientID != nil {
		appt.PatientID = *in.PatientID
	}
	if in.ServiceID != nil {
		appt.ServiceID = *in.ServiceID
	}
	if in.RoomID != nil {
		appt.RoomID = in.RoomID
	}
	if in.Reason != nil {
		appt.Reason = *in.Reason
	}
	if in.Comment != nil {
		appt.Comment = *in.Comment
	}

	if !in.touchesSchedule() {
		if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
			return nil, err
		}
		return appt, nil
	}

	if in.DoctorID != nil && *in.DoctorID != appt.DoctorID {
		role, err := s.repo.UserRole(ctx, *in.DoctorID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.NewValidation("doctor", "no such user")
			}
			return nil, err
		}
		if role != auth.RoleDoctor {
			return nil, apperror.NewValidation("doctor", "assigned user is not a doctor")
		}
		appt.DoctorID = *in.DoctorID
	}
	if in.StartAt != nil {
		appt.StartAt = *in.StartAt
	}
	if in.EndAt != nil {
		appt.EndAt = *in.EndAt
	}

	w := appt.Window()
	if err := w.Validate(); err != nil {
		return nil, err
	}

	// A terminal appointment keeps its slot free already; only active ones
	// need the conflict gate when rescheduled.
	if IsActiveStatus(appt.Status) {
		if err := s.bookLocked(ctx, appt.DoctorID, w, appt.ID, func(ctx context.Context) error {
			return s.repo.UpdateAppointment(ctx, appt)
		}); err != nil {
			return nil, err
		}
		return appt, nil
	}

	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) applyTransition(appt *Appointment, to string) error {
	if !IsValidStatus(to) {
		return apperror.NewValidation("status", "unknown status")
	}
	if to == appt.Status {
		return nil
	}
	if !CanTransition(appt.Status, to) {
		return apperror.NewValidation("status", "transition from "+appt.Status+" to "+to+" is not allowed")
	}
	appt.Status = to
	return nil
}

// SetStatus is the status-only transition endpoint.
func (s *Service) SetStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status string) (*Appointment, error) {
	appt, err := s.getScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyTransition(appt, status); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// getScoped loads an appointment within the actor's scope. A doctor's
// lookup of another doctor's appointment reads as not-found.
func (s *Service) getScoped(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsDoctor() && appt.DoctorID != actor.ID {
		return nil, apperror.ErrNotFound
	}
	return appt, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
	return s.getScoped(ctx, actor, id)
}

func (s *Service) List(ctx context.Context, actor auth.Actor, f Filter, limit, offset int) ([]*Appointment, int, error) {
	if actor.IsDoctor() {
		doctorID := actor.ID
		f.DoctorID = &doctorID
	}
	return s.repo.ListAppointments(ctx, f, limit, offset)
}

// Report is the admin aggregate under the same filters as List.
func (s *Service) Report(ctx context.Context, f Filter) (*Report, error) {
	return s.repo.Stats(ctx, f)
}

// IsAvailable exposes the advisory availability answer for schedule UIs.
func (s *Service) IsAvailable(ctx context.Context, doctorID uuid.UUID, w Window) (bool, error) {
	return s.avail.IsAvailable(ctx, doctorID, w)
}

// -- Work windows and time-off --

// resolveDoctorScope resolves which doctor's schedule the actor may touch.
// Doctors manage only their own rows; admins name any doctor.
func resolveDoctorScope(actor auth.Actor, doctorID uuid.UUID) (uuid.UUID, error) {
	if actor.IsDoctor() {
		if doctorID != uuid.Nil && doctorID != actor.ID {
			return uuid.Nil, apperror.ErrForbidden
		}
		return actor.ID, nil
	}
	if doctorID == uuid.Nil {
		return uuid.Nil, apperror.NewValidation("doctor_id", "required")
	}
	return doctorID, nil
}

func (s *Service) CreateWorkWindow(ctx context.Context, actor auth.Actor, w *WorkWindow) (*WorkWindow, error) {
	doctorID, err := resolveDoctorScope(actor, w.DoctorID)
	if err != nil {
		return nil, err
	}
	w.DoctorID = doctorID

	if err := w.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.repo.WorkWindowExists(ctx, w.DoctorID, w.Weekday, w.StartMin, w.EndMin)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.NewValidation(apperror.NonFieldKey, "identical work window already exists")
	}
	if err := s.repo.CreateWorkWindow(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) DeleteWorkWindow(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	w, err := s.repo.GetWorkWindow(ctx, id)
	if err != nil {
		return err
	}
	if actor.IsDoctor() && w.DoctorID != actor.ID {
		return apperror.ErrNotFound
	}
	return s.repo.DeleteWorkWindow(ctx, id)
}

func (s *Service) ListWorkWindows(ctx context.Context, actor auth.Actor, doctorID uuid.UUID) ([]*WorkWindow, error) {
	doctorID, err := resolveDoctorScope(actor, doctorID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListWorkWindows(ctx, doctorID)
}

func (s *Service) CreateTimeOff(ctx context.Context, actor auth.Actor, t *TimeOff) (*TimeOff, error) {
	doctorID, err := resolveDoctorScope(actor, t.DoctorID)
	if err != nil {
		return nil, err
	}
	t.DoctorID = doctorID

	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTimeOff(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteTimeOff(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	t, err := s.repo.GetTimeOff(ctx, id)
	if err != nil {
		return err
	}
	if actor.IsDoctor() && t.DoctorID != actor.ID {
		return apperror.ErrNotFound
	}
	return s.repo.DeleteTimeOff(ctx, id)
}

func (s *Service) ListTimeOff(ctx context.Context, actor auth.Actor, doctorID uuid.UUID) ([]*TimeOff, error) {
	doctorID, err := resolveDoctorScope(actor, doctorID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTimeOff(ctx, doctorID)
}
