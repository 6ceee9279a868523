package fsm

import "time"

// Input is the per-call context threaded through guards, actions and
// callbacks. Created once per transition call and immutable for its duration.
type Input struct {
	// Subject is an opaque reference to the stateful record being moved.
	Subject     any
	EntityType  string
	SubjectID   string
	Column      string
	From        string
	To          string
	Event       string
	Context     map[string]any
	ContextType string
	Mode        Mode
	Source      Source
	Metadata    map[string]any
	OccurredAt  time.Time
}

// IsDryRun reports whether the call must not mutate state or record history.
func (in *Input) IsDryRun() bool {
	return in.Mode == ModeDryRun
}

// Invocation is the serialized form of a queued action or callback: a named
// callable reference, its static parameters and a flattened Input carrying
// entity type plus id instead of a live subject reference. Workers re-hydrate
// the subject by id and re-invoke; a subject that no longer exists is skipped
// with a warning, never raised.
type Invocation struct {
	Callable    string         `json:"callable"`
	Params      map[string]any `json:"params,omitempty"`
	EntityType  string         `json:"entity_type"`
	SubjectID   string         `json:"subject_id"`
	Column      string         `json:"column"`
	From        string         `json:"from_state"`
	To          string         `json:"to_state"`
	Event       string         `json:"event,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	ContextType string         `json:"context_type,omitempty"`
	Source      Source         `json:"source,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Priority    int            `json:"priority,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Flatten builds the serialized invocation for a queued operation.
func (in *Input) Flatten(callable string, params map[string]any, priority int) Invocation {
	return Invocation{
		Callable:    callable,
		Params:      params,
		EntityType:  in.EntityType,
		SubjectID:   in.SubjectID,
		Column:      in.Column,
		From:        in.From,
		To:          in.To,
		Event:       in.Event,
		Context:     in.Context,
		ContextType: in.ContextType,
		Source:      in.Source,
		Metadata:    in.Metadata,
		Priority:    priority,
		OccurredAt:  in.OccurredAt,
	}
}

// Rehydrate rebuilds the transition input on the worker side, attaching the
// freshly resolved subject.
func (inv Invocation) Rehydrate(subject any) *Input {
	return &Input{
		Subject:     subject,
		EntityType:  inv.EntityType,
		SubjectID:   inv.SubjectID,
		Column:      inv.Column,
		From:        inv.From,
		To:          inv.To,
		Event:       inv.Event,
		Context:     inv.Context,
		ContextType: inv.ContextType,
		Mode:        ModeNormal,
		Source:      inv.Source,
		Metadata:    inv.Metadata,
		OccurredAt:  inv.OccurredAt,
	}
}
