package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by the Postgres store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore persists event records in the fsm_event_log table (see the goose
// migrations under pkg/pg/migrations).
type PGStore struct {
	db DB
}

func NewPGStore(db DB) *PGStore {
	if db == nil {
		panic("eventlog: db cannot be nil")
	}
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, rec Record) error {
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("marshal event context: %w", err)
	}
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO fsm_event_log (
			model_type, model_id, column_name, from_state, to_state,
			transition, context, metadata, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ModelType, rec.ModelID, rec.Column, rec.FromState, rec.ToState,
		rec.Transition, contextJSON, metadataJSON, rec.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert event record: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, modelType, modelID, column string) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT model_type, model_id, column_name, from_state, to_state,
		       transition, context, metadata, occurred_at
		FROM fsm_event_log
		WHERE model_type = $1 AND model_id = $2 AND column_name = $3
		ORDER BY occurred_at ASC`,
		modelType, modelID, column,
	)
	if err != nil {
		return nil, fmt.Errorf("query event log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var contextJSON, metadataJSON []byte
		if err := rows.Scan(
			&rec.ModelType, &rec.ModelID, &rec.Column, &rec.FromState, &rec.ToState,
			&rec.Transition, &contextJSON, &metadataJSON, &rec.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan event record: %w", err)
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &rec.Context); err != nil {
				return nil, fmt.Errorf("decode event context: %w", err)
			}
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("decode event metadata: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
