package registry

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// snapshotSchema versions the cache encoding. Decoding a snapshot with a
// different schema fails closed as a cache miss rather than producing corrupt
// runtime definitions.
const snapshotSchema = 1

type snapshotEnvelope struct {
	Schema      int                  `json:"schema"`
	Definitions []definitionSnapshot `json:"definitions"`
}

type definitionSnapshot struct {
	EntityType   string               `json:"entity_type"`
	Column       string               `json:"column"`
	InitialState string               `json:"initial_state"`
	ContextType  string               `json:"context_type,omitempty"`
	Description  string               `json:"description,omitempty"`
	States       []stateSnapshot      `json:"states"`
	Transitions  []transitionSnapshot `json:"transitions"`
}

type stateSnapshot struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Type        string              `json:"type,omitempty"`
	Category    string              `json:"category,omitempty"`
	Behavior    string              `json:"behavior,omitempty"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
	Terminal    bool                `json:"terminal,omitempty"`
	Priority    int                 `json:"priority,omitempty"`
	OnEntry     []opSnapshot        `json:"on_entry,omitempty"`
	OnExit      []opSnapshot        `json:"on_exit,omitempty"`
	Parent      string              `json:"parent,omitempty"`
	Child       *definitionSnapshot `json:"child,omitempty"`
}

type transitionSnapshot struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	Event       string          `json:"event,omitempty"`
	Description string          `json:"description,omitempty"`
	Guards      []guardSnapshot `json:"guards,omitempty"`
	Actions     []opSnapshot    `json:"actions,omitempty"`
	Callbacks   []opSnapshot    `json:"callbacks,omitempty"`
}

type guardSnapshot struct {
	Callable      string         `json:"callable"`
	Params        map[string]any `json:"params,omitempty"`
	Description   string         `json:"description,omitempty"`
	Priority      int            `json:"priority,omitempty"`
	StopOnFailure bool           `json:"stop_on_failure,omitempty"`
}

type opSnapshot struct {
	Callable    string         `json:"callable"`
	Params      map[string]any `json:"params,omitempty"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Timing      string         `json:"timing"`
	Priority    int            `json:"priority,omitempty"`
	Queued      bool           `json:"queued,omitempty"`
}

func encodeSnapshot(defs map[string]*fsm.RuntimeDefinition) ([]byte, error) {
	env := snapshotEnvelope{Schema: snapshotSchema}
	for _, def := range defs {
		env.Definitions = append(env.Definitions, snapshotFromDefinition(def))
	}
	return json.Marshal(env)
}

func decodeSnapshot(raw []byte) (map[string]*fsm.RuntimeDefinition, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode definition snapshot: %w", err)
	}
	if env.Schema != snapshotSchema {
		return nil, fmt.Errorf("definition snapshot schema %d does not match expected %d", env.Schema, snapshotSchema)
	}

	defs := make(map[string]*fsm.RuntimeDefinition, len(env.Definitions))
	for _, snap := range env.Definitions {
		def := definitionFromSnapshot(snap)
		defs[key(def.EntityType, def.Column)] = def
	}
	return defs, nil
}

func snapshotFromDefinition(def *fsm.RuntimeDefinition) definitionSnapshot {
	snap := definitionSnapshot{
		EntityType:   def.EntityType,
		Column:       def.Column,
		InitialState: def.InitialState,
		ContextType:  def.ContextType,
		Description:  def.Description,
	}
	for _, s := range def.States {
		snap.States = append(snap.States, snapshotFromState(s))
	}
	for _, t := range def.Transitions {
		snap.Transitions = append(snap.Transitions, transitionSnapshot{
			From:        t.From,
			To:          t.To,
			Event:       t.Event,
			Description: t.Description,
			Guards:      snapshotFromGuards(t.Guards),
			Actions:     snapshotFromOps(t.Actions),
			Callbacks:   snapshotFromOps(t.Callbacks),
		})
	}
	return snap
}

func snapshotFromState(s fsm.StateDefinition) stateSnapshot {
	snap := stateSnapshot{
		Name:        s.Name,
		Description: s.Description,
		Type:        s.Type,
		Category:    s.Category,
		Behavior:    s.Behavior,
		Metadata:    s.Metadata,
		Terminal:    s.Terminal,
		Priority:    s.Priority,
		OnEntry:     snapshotFromOps(s.OnEntry),
		OnExit:      snapshotFromOps(s.OnExit),
		Parent:      s.Parent,
	}
	if s.Child != nil {
		child := snapshotFromDefinition(s.Child)
		snap.Child = &child
	}
	return snap
}

func snapshotFromGuards(guards []fsm.Guard) []guardSnapshot {
	out := make([]guardSnapshot, 0, len(guards))
	for _, g := range guards {
		name, _ := g.Callable.Ref()
		out = append(out, guardSnapshot{
			Callable:      name,
			Params:        g.Params,
			Description:   g.Description,
			Priority:      g.Priority,
			StopOnFailure: g.StopOnFailure,
		})
	}
	return out
}

func snapshotFromOps(ops []fsm.Operation) []opSnapshot {
	out := make([]opSnapshot, 0, len(ops))
	for _, op := range ops {
		name, _ := op.Callable.Ref()
		out = append(out, opSnapshot{
			Callable:    name,
			Params:      op.Params,
			Name:        op.Name,
			Description: op.Description,
			Timing:      string(op.Timing),
			Priority:    op.Priority,
			Queued:      op.Queued,
		})
	}
	return out
}

func definitionFromSnapshot(snap definitionSnapshot) *fsm.RuntimeDefinition {
	states := make(map[string]fsm.StateDefinition, len(snap.States))
	for _, s := range snap.States {
		states[normalize(s.Name)] = stateFromSnapshot(s)
	}

	transitions := make([]fsm.TransitionDefinition, 0, len(snap.Transitions))
	for _, t := range snap.Transitions {
		transitions = append(transitions, fsm.TransitionDefinition{
			From:        t.From,
			To:          t.To,
			Event:       t.Event,
			Description: t.Description,
			Guards:      guardsFromSnapshot(t.Guards),
			Actions:     opsFromSnapshot(t.Actions),
			Callbacks:   opsFromSnapshot(t.Callbacks),
		})
	}

	return &fsm.RuntimeDefinition{
		EntityType:   snap.EntityType,
		Column:       snap.Column,
		States:       states,
		Transitions:  transitions,
		InitialState: snap.InitialState,
		ContextType:  snap.ContextType,
		Description:  snap.Description,
	}
}

func stateFromSnapshot(snap stateSnapshot) fsm.StateDefinition {
	s := fsm.StateDefinition{
		Name:        snap.Name,
		Description: snap.Description,
		Type:        snap.Type,
		Category:    snap.Category,
		Behavior:    snap.Behavior,
		Metadata:    snap.Metadata,
		Terminal:    snap.Terminal,
		Priority:    snap.Priority,
		OnEntry:     opsFromSnapshot(snap.OnEntry),
		OnExit:      opsFromSnapshot(snap.OnExit),
		Parent:      snap.Parent,
	}
	if snap.Child != nil {
		s.Child = definitionFromSnapshot(*snap.Child)
	}
	return s
}

func guardsFromSnapshot(snaps []guardSnapshot) []fsm.Guard {
	if len(snaps) == 0 {
		return nil
	}
	out := make([]fsm.Guard, len(snaps))
	for i, snap := range snaps {
		out[i] = fsm.Guard{
			Callable:      fsm.Ref(snap.Callable),
			Params:        snap.Params,
			Description:   snap.Description,
			Priority:      snap.Priority,
			StopOnFailure: snap.StopOnFailure,
		}
	}
	return out
}

func opsFromSnapshot(snaps []opSnapshot) []fsm.Operation {
	if len(snaps) == 0 {
		return nil
	}
	out := make([]fsm.Operation, len(snaps))
	for i, snap := range snaps {
		out[i] = fsm.Operation{
			Callable:    fsm.Ref(snap.Callable),
			Params:      snap.Params,
			Name:        snap.Name,
			Description: snap.Description,
			Timing:      fsm.Timing(snap.Timing),
			Priority:    snap.Priority,
			Queued:      snap.Queued,
		}
	}
	return out
}
