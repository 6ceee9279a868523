package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by the Postgres store, kept narrow so
// tests can substitute it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore persists audit records in the fsm_transition_log table (see the
// goose migrations under pkg/pg/migrations).
type PGStore struct {
	db DB
}

func NewPGStore(db DB) *PGStore {
	if db == nil {
		panic("audit: db cannot be nil")
	}
	return &PGStore{db: db}
}

func (s *PGStore) Record(ctx context.Context, rec Record) error {
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("marshal audit context snapshot: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO fsm_transition_log (
			id, subject_id, subject_type, column_name, from_state, to_state,
			transition, result, context, exception, duration_ms,
			actor_id, actor_type, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, NULLIF($12, ''), NULLIF($13, ''), $14)`,
		rec.ID, rec.SubjectID, rec.SubjectType, rec.Column, rec.FromState, rec.ToState,
		rec.Transition, string(rec.Result), contextJSON, rec.Exception, rec.DurationMS,
		rec.ActorID, rec.ActorType, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *PGStore) Timeline(ctx context.Context, q TimelineQuery) ([]Record, error) {
	query := `
		SELECT id, subject_id, subject_type, column_name, from_state, to_state,
		       transition, result, context, COALESCE(exception, ''), duration_ms,
		       COALESCE(actor_id, ''), COALESCE(actor_type, ''), created_at
		FROM fsm_transition_log
		WHERE subject_type = $1 AND subject_id = $2 AND column_name = $3`
	args := []any{q.SubjectType, q.SubjectID, q.Column}

	if q.From != nil {
		args = append(args, *q.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if q.To != nil {
		args = append(args, *q.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit timeline: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var result string
		var contextJSON []byte
		var createdAt time.Time
		if err := rows.Scan(
			&rec.ID, &rec.SubjectID, &rec.SubjectType, &rec.Column, &rec.FromState, &rec.ToState,
			&rec.Transition, &result, &contextJSON, &rec.Exception, &rec.DurationMS,
			&rec.ActorID, &rec.ActorType, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Result = Result(result)
		rec.CreatedAt = createdAt
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &rec.Context); err != nil {
				return nil, fmt.Errorf("decode audit context snapshot: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
