package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinicops/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) SearchPatients(ctx context.Context, q string, doctorID uuid.UUID, limit int) ([]PatientHit, error) {
	query := `
		SELECT id, trim(concat_ws(' ', last_name, first_name, middle_name)), phone, email
		FROM patients
		WHERE (first_name ILIKE '%' || $1 || '%'
			OR last_name ILIKE '%' || $1 || '%'
			OR middle_name ILIKE '%' || $1 || '%'
			OR phone ILIKE '%' || $1 || '%'
			OR email ILIKE '%' || $1 || '%')`
	args := []interface{}{db.EscapeLike(q)}
	if doctorID != uuid.Nil {
		query += ` AND EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.patient_id = patients.id AND a.doctor_id = $2)`
		args = append(args, doctorID)
	}
	query += ` ORDER BY last_name, first_name LIMIT ` + limitArg(len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []PatientHit
	for rows.Next() {
		var h PatientHit
		if err := rows.Scan(&h.ID, &h.FullName, &h.Phone, &h.Email); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (r *repoPG) SearchServices(ctx context.Context, q string, limit int) ([]serviceRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name_en, name_ru, name_kk
		FROM services
		WHERE is_active
			AND (code ILIKE '%' || $1 || '%'
				OR name_en ILIKE '%' || $1 || '%'
				OR name_ru ILIKE '%' || $1 || '%'
				OR name_kk ILIKE '%' || $1 || '%')
		ORDER BY code
		LIMIT $2`, db.EscapeLike(q), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []serviceRow
	for rows.Next() {
		var s serviceRow
		if err := rows.Scan(&s.ID, &s.Code, &s.NameEn, &s.NameRu, &s.NameKk); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) SearchAppointments(ctx context.Context, q string, doctorID uuid.UUID, limit int) ([]AppointmentHit, error) {
	query := `
		SELECT a.id, a.start_at, a.end_at, a.status,
			trim(concat_ws(' ', p.last_name, p.first_name, p.middle_name)),
			u.email, s.code
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN users u ON u.id = a.doctor_id
		JOIN services s ON s.id = a.service_id
		WHERE (p.first_name ILIKE '%' || $1 || '%'
			OR p.last_name ILIKE '%' || $1 || '%'
			OR u.email ILIKE '%' || $1 || '%'
			OR s.code ILIKE '%' || $1 || '%')`
	args := []interface{}{db.EscapeLike(q)}
	if doctorID != uuid.Nil {
		query += ` AND a.doctor_id = $2`
		args = append(args, doctorID)
	}
	query += ` ORDER BY a.start_at DESC LIMIT ` + limitArg(len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []AppointmentHit
	for rows.Next() {
		var h AppointmentHit
		if err := rows.Scan(&h.ID, &h.StartAt, &h.EndAt, &h.Status,
			&h.PatientName, &h.DoctorEmail, &h.ServiceCode); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func limitArg(idx int) string {
	return fmt.Sprintf("$%d", idx)
}
