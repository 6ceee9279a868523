package audit

import (
	"context"
	"time"
)

// Result marks whether the recorded transition succeeded.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Record is a single audit log entry for one transition attempt. The context
// snapshot arrives already sanitized and the exception text already truncated;
// this package only stores and queries.
type Record struct {
	ID          string         `json:"id"`
	SubjectID   string         `json:"subject_id"`
	SubjectType string         `json:"subject_type"`
	Column      string         `json:"column"`
	FromState   string         `json:"from_state"`
	ToState     string         `json:"to_state"`
	Transition  string         `json:"transition,omitempty"`
	Result      Result         `json:"result"`
	Context     map[string]any `json:"context,omitempty"`
	Exception   string         `json:"exception,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
	ActorID     string         `json:"actor_id,omitempty"`
	ActorType   string         `json:"actor_type,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Recorder persists audit records. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// TimelineQuery bounds a state timeline lookup.
type TimelineQuery struct {
	SubjectType string
	SubjectID   string
	Column      string
	From        *time.Time
	To          *time.Time
}

// Reader serves audit history.
type Reader interface {
	// Timeline returns the records matching the query in ascending
	// timestamp order.
	Timeline(ctx context.Context, q TimelineQuery) ([]Record, error)
}
