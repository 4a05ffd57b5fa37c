package catalog

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

const svcCols = `id, code, name_en, name_ru, name_kk, description_en, description_ru,
	description_kk, duration_minutes, price_cents, is_active, created_at, updated_at`

func (r *repoPG) CreateService(ctx context.Context, s *Service) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO services (id, code, name_en, name_ru, name_kk, description_en,
			description_ru, description_kk, duration_minutes, price_cents, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		s.ID, s.Code, s.NameEN, s.NameRU, s.NameKK, s.DescriptionEN,
		s.DescriptionRU, s.DescriptionKK, s.DurationMinutes, s.PriceCents, s.IsActive)
	return err
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.Code, &s.NameEN, &s.NameRU, &s.NameKK, &s.DescriptionEN,
		&s.DescriptionRU, &s.DescriptionKK, &s.DurationMinutes, &s.PriceCents,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	return scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+svcCols+` FROM services WHERE id = $1`, id))
}

func (r *repoPG) GetServiceByCode(ctx context.Context, code string) (*Service, error) {
	return scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+svcCols+` FROM services WHERE code = $1`, code))
}

func (r *repoPG) UpdateService(ctx context.Context, s *Service) error {
	// code is immutable, deliberately absent from the SET list
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE services SET name_en=$2, name_ru=$3, name_kk=$4, description_en=$5,
			description_ru=$6, description_kk=$7, duration_minutes=$8, price_cents=$9,
			is_active=$10, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.NameEN, s.NameRU, s.NameKK, s.DescriptionEN,
		s.DescriptionRU, s.DescriptionKK, s.DurationMinutes, s.PriceCents, s.IsActive)
	return err
}

func (r *repoPG) DeleteService(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	return err
}

func (r *repoPG) ServiceInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE service_id = $1)`, id).Scan(&used)
	return used, err
}

func (r *repoPG) ListServices(ctx context.Context, activeOnly bool, query string, limit, offset int) ([]*Service, int, error) {
	conn := r.conn(ctx)

	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if activeOnly {
		where += ` AND is_active`
	}
	if query != "" {
		where += fmt.Sprintf(` AND (code ILIKE $%d OR name_en ILIKE $%d OR name_ru ILIKE $%d OR name_kk ILIKE $%d)`,
			idx, idx, idx, idx)
		args = append(args, "%"+db.EscapeLike(query)+"%")
		idx++
	}

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM services`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + svcCols + ` FROM services` + where +
		fmt.Sprintf(` ORDER BY code LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := conn.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

const roomCols = `id, name, floor, comment, created_at, updated_at`

func (r *repoPG) CreateRoom(ctx context.Context, room *Room) error {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO rooms (id, name, floor, comment) VALUES ($1,$2,$3,$4)`,
		room.ID, room.Name, room.Floor, room.Comment)
	return err
}

func scanRoom(row pgx.Row) (*Room, error) {
	var room Room
	err := row.Scan(&room.ID, &room.Name, &room.Floor, &room.Comment, &room.CreatedAt, &room.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repoPG) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	return scanRoom(r.conn(ctx).QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = $1`, id))
}

func (r *repoPG) UpdateRoom(ctx context.Context, room *Room) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE rooms SET name=$2, floor=$3, comment=$4, updated_at=NOW() WHERE id = $1`,
		room.ID, room.Name, room.Floor, room.Comment)
	return err
}

func (r *repoPG) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	// appointments.room_id is ON DELETE SET NULL, so history survives
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListRooms(ctx context.Context, limit, offset int) ([]*Room, int, error) {
	conn := r.conn(ctx)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(ctx, `SELECT `+roomCols+` FROM rooms ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, room)
	}
	return out, total, rows.Err()
}
