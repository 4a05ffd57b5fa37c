package scheduling

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

const apptCols = `id, patient_id, doctor_id, service_id, room_id, start_at, end_at,
	status, created_by, reason, comment, created_at, updated_at`

func (r *repoPG) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, service_id, room_id,
			start_at, end_at, status, created_by, reason, comment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.PatientID, a.DoctorID, a.ServiceID, a.RoomID,
		a.StartAt, a.EndAt, a.Status, a.CreatedBy, a.Reason, a.Comment)
	return err
}

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ServiceID, &a.RoomID,
		&a.StartAt, &a.EndAt, &a.Status, &a.CreatedBy, &a.Reason, &a.Comment,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) UpdateAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET patient_id=$2, doctor_id=$3, service_id=$4, room_id=$5,
			start_at=$6, end_at=$7, status=$8, reason=$9, comment=$10, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.PatientID, a.DoctorID, a.ServiceID, a.RoomID,
		a.StartAt, a.EndAt, a.Status, a.Reason, a.Comment)
	return err
}

func filterSQL(f Filter, startIdx int) (string, []interface{}, int) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := startIdx
	if f.DoctorID != nil {
		where += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, *f.DoctorID)
		idx++
	}
	if f.PatientID != nil {
		where += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.Status != nil {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, *f.Status)
		idx++
	}
	if f.DateFrom != nil {
		where += fmt.Sprintf(` AND start_at >= $%d`, idx)
		args = append(args, *f.DateFrom)
		idx++
	}
	if f.DateTo != nil {
		where += fmt.Sprintf(` AND start_at <= $%d`, idx)
		args = append(args, *f.DateTo)
		idx++
	}
	return where, args, idx
}

func (r *repoPG) ListAppointments(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	conn := r.conn(ctx)
	where, args, idx := filterSQL(f, 1)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + apptCols + ` FROM appointments` + where +
		fmt.Sprintf(` ORDER BY start_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *repoPG) FindConflict(ctx context.Context, doctorID uuid.UUID, w Window, excludeID uuid.UUID) (uuid.UUID, bool, error) {
	// half-open overlap: existing.start < w.end AND w.start < existing.end
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id FROM appointments
		WHERE doctor_id = $1
		  AND status IN ('SCHEDULED','CONFIRMED')
		  AND start_at < $2 AND $3 < end_at
		  AND id <> $4
		LIMIT 1`,
		doctorID, w.EndAt, w.StartAt, excludeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (r *repoPG) UserRole(ctx context.Context, userID uuid.UUID) (string, error) {
	var role string
	err := r.conn(ctx).QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperror.ErrNotFound
	}
	return role, err
}

func (r *repoPG) ServiceDuration(ctx context.Context, serviceID uuid.UUID) (int, error) {
	var minutes int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT duration_minutes FROM services WHERE id = $1 AND is_active`, serviceID).Scan(&minutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperror.ErrNotFound
	}
	return minutes, err
}

func (r *repoPG) CreateWorkWindow(ctx context.Context, w *WorkWindow) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO work_windows (id, doctor_id, weekday, start_min, end_min, slot_minutes)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		w.ID, w.DoctorID, w.Weekday, w.StartMin, w.EndMin, w.SlotMinutes)
	return err
}

func scanWorkWindow(row pgx.Row) (*WorkWindow, error) {
	var w WorkWindow
	err := row.Scan(&w.ID, &w.DoctorID, &w.Weekday, &w.StartMin, &w.EndMin, &w.SlotMinutes, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

const wwCols = `id, doctor_id, weekday, start_min, end_min, slot_minutes, created_at`

func (r *repoPG) GetWorkWindow(ctx context.Context, id uuid.UUID) (*WorkWindow, error) {
	return scanWorkWindow(r.conn(ctx).QueryRow(ctx, `SELECT `+wwCols+` FROM work_windows WHERE id = $1`, id))
}

func (r *repoPG) DeleteWorkWindow(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM work_windows WHERE id = $1`, id)
	return err
}

func (r *repoPG) listWorkWindows(ctx context.Context, query string, args ...interface{}) ([]*WorkWindow, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*WorkWindow
	for rows.Next() {
		w, err := scanWorkWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *repoPG) ListWorkWindows(ctx context.Context, doctorID uuid.UUID) ([]*WorkWindow, error) {
	return r.listWorkWindows(ctx,
		`SELECT `+wwCols+` FROM work_windows WHERE doctor_id = $1 ORDER BY weekday, start_min`, doctorID)
}

func (r *repoPG) WorkWindowsForWeekday(ctx context.Context, doctorID uuid.UUID, weekday int) ([]*WorkWindow, error) {
	return r.listWorkWindows(ctx,
		`SELECT `+wwCols+` FROM work_windows WHERE doctor_id = $1 AND weekday = $2 ORDER BY start_min`,
		doctorID, weekday)
}

func (r *repoPG) WorkWindowExists(ctx context.Context, doctorID uuid.UUID, weekday, startMin, endMin int) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM work_windows
			WHERE doctor_id = $1 AND weekday = $2 AND start_min = $3 AND end_min = $4)`,
		doctorID, weekday, startMin, endMin).Scan(&exists)
	return exists, err
}

func (r *repoPG) CreateTimeOff(ctx context.Context, t *TimeOff) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO time_off (id, doctor_id, start_at, end_at, reason)
		VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.DoctorID, t.StartAt, t.EndAt, t.Reason)
	return err
}

func (r *repoPG) GetTimeOff(ctx context.Context, id uuid.UUID) (*TimeOff, error) {
	var t TimeOff
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, doctor_id, start_at, end_at, reason, created_at
		FROM time_off WHERE id = $1`, id).
		Scan(&t.ID, &t.DoctorID, &t.StartAt, &t.EndAt, &t.Reason, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) DeleteTimeOff(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM time_off WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListTimeOff(ctx context.Context, doctorID uuid.UUID) ([]*TimeOff, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, doctor_id, start_at, end_at, reason, created_at
		FROM time_off WHERE doctor_id = $1 ORDER BY start_at DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TimeOff
	for rows.Next() {
		var t TimeOff
		if err := rows.Scan(&t.ID, &t.DoctorID, &t.StartAt, &t.EndAt, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *repoPG) TimeOffOverlaps(ctx context.Context, doctorID uuid.UUID, w Window) (bool, error) {
	var overlaps bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM time_off
			WHERE doctor_id = $1 AND start_at < $2 AND $3 < end_at)`,
		doctorID, w.EndAt, w.StartAt).Scan(&overlaps)
	return overlaps, err
}

func (r *repoPG) Stats(ctx context.Context, f Filter) (*Report, error) {
	conn := r.conn(ctx)
	where, args, _ := filterSQL(f, 1)

	report := &Report{
		ByStatus: make(map[string]int),
		ByDoctor: make(map[uuid.UUID]int),
	}

	rows, err := conn.Query(ctx, `
		SELECT status, COUNT(*) FROM appointments`+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		report.ByStatus[status] = n
		report.Total += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = conn.Query(ctx, `
		SELECT doctor_id, COUNT(*) FROM appointments`+where+` GROUP BY doctor_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var doctorID uuid.UUID
		var n int
		if err := rows.Scan(&doctorID, &n); err != nil {
			return nil, err
		}
		report.ByDoctor[doctorID] = n
	}
	return report, rows.Err()
}
