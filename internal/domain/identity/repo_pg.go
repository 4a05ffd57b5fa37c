package identity

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

const userCols = `id, email, password_hash, role, first_name, last_name, is_active, created_at, updated_at`

func (r *repoPG) CreateUser(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, first_name, last_name, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.FirstName, u.LastName, u.IsActive)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repoPG) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *repoPG) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *repoPG) UpdateUser(ctx context.Context, u *User) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET email=$2, password_hash=$3, first_name=$4, last_name=$5,
			is_active=$6, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsActive)
	return err
}

func (r *repoPG) UpsertProfile(ctx context.Context, p *DoctorProfile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_profiles (user_id, specialization, phone, cabinet_number)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (user_id) DO UPDATE SET
			specialization = EXCLUDED.specialization,
			phone = EXCLUDED.phone,
			cabinet_number = EXCLUDED.cabinet_number,
			updated_at = NOW()`,
		p.UserID, p.Specialization, p.Phone, p.CabinetNumber)
	return err
}

func (r *repoPG) GetProfile(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	var p DoctorProfile
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT user_id, specialization, phone, cabinet_number, created_at, updated_at
		FROM doctor_profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Specialization, &p.Phone, &p.CabinetNumber, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const doctorCols = `u.id, u.email, u.password_hash, u.role, u.first_name, u.last_name,
	u.is_active, u.created_at, u.updated_at,
	COALESCE(p.specialization, ''), COALESCE(p.phone, ''), COALESCE(p.cabinet_number, '')`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Email, &d.PasswordHash, &d.Role, &d.FirstName, &d.LastName,
		&d.IsActive, &d.CreatedAt, &d.UpdatedAt,
		&d.Profile.Specialization, &d.Profile.Phone, &d.Profile.CabinetNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Profile.UserID = d.ID
	return &d, nil
}

func (r *repoPG) ListDoctors(ctx context.Context, query string, limit, offset int) ([]*Doctor, int, error) {
	conn := r.conn(ctx)

	where := ` WHERE u.role = 'DOCTOR'`
	var args []interface{}
	idx := 1
	if query != "" {
		where += fmt.Sprintf(` AND (u.first_name ILIKE $%d OR u.last_name ILIKE $%d OR u.email ILIKE $%d OR p.specialization ILIKE $%d)`,
			idx, idx, idx, idx)
		args = append(args, "%"+db.EscapeLike(query)+"%")
		idx++
	}

	from := ` FROM users u LEFT JOIN doctor_profiles p ON p.user_id = u.id`

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + doctorCols + from + where +
		fmt.Sprintf(` ORDER BY u.last_name, u.first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *repoPG) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `
		SELECT `+doctorCols+`
		FROM users u LEFT JOIN doctor_profiles p ON p.user_id = u.id
		WHERE u.id = $1 AND u.role = 'DOCTOR'`, id))
}
