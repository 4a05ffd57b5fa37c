// Package audit is the append-only ledger of who did what to which record.
// Entries are written within the request lifetime but a failed write never
// fails the triggering operation; it is logged and dropped.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Action classifies an audited operation.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Entry is one ledger record. ActorID is nil for system or unauthenticated
// events; those are still recorded, never dropped.
type Entry struct {
	ID         uuid.UUID              `json:"id"`
	ActorID    *uuid.UUID             `json:"actor_id,omitempty"`
	ActorEmail string                 `json:"actor_email,omitempty"`
	Action     Action                 `json:"action"`
	ObjectType string                 `json:"object_type"`
	ObjectID   string                 `json:"object_id"`
	IP         string                 `json:"ip"`
	UserAgent  string                 `json:"user_agent"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Recorder appends entries to the ledger. Implementations must swallow their
// own failures: audit loss is reported via logs, not to the caller.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// RecorderFunc is a function adapter for Recorder.
type RecorderFunc func(ctx context.Context, e Entry)

func (f RecorderFunc) Record(ctx context.Context, e Entry) { f(ctx, e) }

// normalize fills generated fields and backfills a missing origin from the
// context, so entries built by services away from the HTTP layer still
// carry the caller's IP and user agent.
func (e *Entry) normalize(ctx context.Context) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	o := OriginFromContext(ctx)
	if e.IP == "" {
		e.IP = o.IP
	}
	if e.UserAgent == "" {
		e.UserAgent = o.UserAgent
	}
}

// PGRecorder persists entries to the audit_log table.
type PGRecorder struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPGRecorder(pool *pgxpool.Pool, logger zerolog.Logger) *PGRecorder {
	return &PGRecorder{pool: pool, logger: logger}
}

// Record appends the entry. It deliberately ignores any transaction on the
// context: audit rows must not roll back with the primary write, and must
// not be written before it commits, so they always go straight to the pool
// after the handler's own work is done.
func (r *PGRecorder) Record(ctx context.Context, e Entry) {
	e.normalize(ctx)

	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			meta = b
		} else {
			r.logger.Error().Err(err).Msg("marshal audit metadata")
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, actor_id, actor_email, action, object_type, object_id, ip, user_agent, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.ActorID, e.ActorEmail, string(e.Action), e.ObjectType, e.ObjectID, e.IP, e.UserAgent, meta, e.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).
			Str("action", string(e.Action)).
			Str("object_type", e.ObjectType).
			Str("object_id", e.ObjectID).
			Msg("failed to append audit entry")
	}
}

// Filter narrows admin ledger queries.
type Filter struct {
	Action     *Action
	ObjectType *string
}

// List returns entries newest first. Read-only: the ledger exposes no update
// or delete.
func (r *PGRecorder) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1
	if f.Action != nil {
		where += fmt.Sprintf(` AND action = $%d`, idx)
		args = append(args, string(*f.Action))
		idx++
	}
	if f.ObjectType != nil {
		where += fmt.Sprintf(` AND object_type = $%d`, idx)
		args = append(args, *f.ObjectType)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, actor_id, actor_email, action, object_type, object_id, ip, user_agent, metadata, created_at
		FROM audit_log` + where + fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		var e Entry
		var action string
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &action, &e.ObjectType, &e.ObjectID, &e.IP, &e.UserAgent, &meta, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Action = Action(action)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Metadata)
		}
		items = append(items, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
