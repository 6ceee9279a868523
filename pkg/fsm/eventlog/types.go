package eventlog

import (
	"context"
	"time"
)

// Record is one event-log entry used for replay and statistics. FromState is
// nil for the very first transition of a subject, where the machine moved out
// of its implicit initial state.
type Record struct {
	ModelType  string         `json:"model_type"`
	ModelID    string         `json:"model_id"`
	Column     string         `json:"column"`
	FromState  *string        `json:"from_state"`
	ToState    string         `json:"to_state"`
	Transition string         `json:"transition,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Store persists and serves event records.
type Store interface {
	Append(ctx context.Context, rec Record) error
	// List returns the records for (modelType, modelID, column) in
	// chronological order.
	List(ctx context.Context, modelType, modelID, column string) ([]Record, error)
}

// ReplayResult reduces a record sequence to its endpoints.
type ReplayResult struct {
	InitialState *string  `json:"initial_state"`
	FinalState   string   `json:"final_state"`
	Count        int      `json:"count"`
	Transitions  []Record `json:"transitions"`
}

// ValidationResult reports chain consistency of a record sequence.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Statistics summarizes state and transition frequencies of a record
// sequence.
type Statistics struct {
	Total int `json:"total"`
	// UniqueStates counts distinct non-null states seen across from and to.
	UniqueStates int `json:"unique_states"`
	// StateFrequency counts occurrences per state across from and to.
	StateFrequency map[string]int `json:"state_frequency"`
	// TransitionFrequency counts "from -> to" pairs; a nil from renders as
	// the literal string "null".
	TransitionFrequency map[string]int `json:"transition_frequency"`
}
