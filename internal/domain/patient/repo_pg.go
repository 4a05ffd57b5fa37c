package patient

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

const patientCols = `id, first_name, last_name, middle_name, birth_date, gender,
	phone, email, address, comment, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, middle_name, birth_date,
			gender, phone, email, address, comment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.FirstName, p.LastName, p.MiddleName, p.BirthDate,
		p.Gender, p.Phone, p.Email, p.Address, p.Comment)
	return err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.MiddleName, &p.BirthDate,
		&p.Gender, &p.Phone, &p.Email, &p.Address, &p.Comment, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET first_name=$2, last_name=$3, middle_name=$4, birth_date=$5,
			gender=$6, phone=$7, email=$8, address=$9, comment=$10, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.MiddleName, p.BirthDate,
		p.Gender, p.Phone, p.Email, p.Address, p.Comment)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return r.list(ctx, uuid.Nil, query, limit, offset)
}

func (r *repoPG) ListForDoctor(ctx context.Context, doctorID uuid.UUID, query string, limit, offset int) ([]*Patient, int, error) {
	return r.list(ctx, doctorID, query, limit, offset)
}

// list serves both the admin registry and the doctor's scoped view. A
// non-nil doctorID narrows to patients with at least one appointment with
// that doctor; the EXISTS is evaluated per query so the scope follows the
// appointment book with no materialized link to maintain.
func (r *repoPG) list(ctx context.Context, doctorID uuid.UUID, query string, limit, offset int) ([]*Patient, int, error) {
	conn := r.conn(ctx)

	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if doctorID != uuid.Nil {
		where += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM appointments a WHERE a.patient_id = patients.id AND a.doctor_id = $%d)`, idx)
		args = append(args, doctorID)
		idx++
	}
	if query != "" {
		where += fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR middle_name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)`,
			idx, idx, idx, idx, idx)
		args = append(args, "%"+db.EscapeLike(query)+"%")
		idx++
	}

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + patientCols + ` FROM patients` + where +
		fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repoPG) GetForDoctor(ctx context.Context, doctorID, patientID uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE id = $1
		  AND EXISTS (SELECT 1 FROM appointments a WHERE a.patient_id = patients.id AND a.doctor_id = $2)`,
		patientID, doctorID))
}

func (r *repoPG) AppointmentHistory(ctx context.Context, doctorID, patientID uuid.UUID) ([]*AppointmentHistoryItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.start_at, a.end_at, a.status, s.code, s.name_en
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.patient_id = $1 AND a.doctor_id = $2
		ORDER BY a.start_at DESC`, patientID, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AppointmentHistoryItem
	for rows.Next() {
		var item AppointmentHistoryItem
		if err := rows.Scan(&item.ID, &item.StartAt, &item.EndAt, &item.Status,
			&item.ServiceCode, &item.ServiceName); err != nil {
			return nil, err
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

func (r *repoPG) NoteHistory(ctx context.Context, doctorID, patientID uuid.UUID) ([]*NoteHistoryItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, note_text, created_at
		FROM visit_notes
		WHERE patient_id = $1 AND doctor_id = $2
		ORDER BY created_at DESC`, patientID, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*NoteHistoryItem
	for rows.Next() {
		var item NoteHistoryItem
		if err := rows.Scan(&item.ID, &item.AppointmentID, &item.NoteText, &item.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}
