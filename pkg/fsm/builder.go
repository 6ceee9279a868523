package fsm

import (
	"fmt"
)

// Registrar receives compiled definitions. Satisfied by registry.Registry;
// kept minimal so the builder does not depend on the registry package.
type Registrar interface {
	Register(def *RuntimeDefinition)
}

// Builder accumulates one runtime definition's worth of states and
// transitions through a fluent API and materializes it with Build. The
// builder tracks an explicit context: transition-scoped setters called before
// From/To opened a transition record ErrNoTransitionContext, surfaced at
// Build time so fluent chains stay unbroken.
//
// Builders are not safe for concurrent use.
type Builder struct {
	entityType  string
	column      string
	description string
	initial     string
	contextType string

	states     map[string]*StateDefinition
	stateOrder []string

	transitions []TransitionDefinition
	pending     *pendingTransition

	err error
}

type pendingTransition struct {
	froms       []string
	to          string
	event       string
	guards      []Guard
	actions     []Operation
	callbacks   []Operation
	description string
}

// New creates a builder for the given (entity type, column) pair.
func New(entityType, column string) *Builder {
	b := &Builder{
		entityType: entityType,
		column:     column,
		states:     make(map[string]*StateDefinition),
	}
	if entityType == "" {
		b.fail(ErrEmptyEntityType)
	}
	if column == "" {
		b.fail(ErrEmptyColumn)
	}
	return b
}

// EntityType returns the owning entity type identifier.
func (b *Builder) EntityType() string { return b.entityType }

// Column returns the governed state field identifier.
func (b *Builder) Column() string { return b.column }

// Err returns the first configuration error recorded so far.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// State registers a state if absent and applies the optional configurators
// with this state as the active context.
func (b *Builder) State(name string, configure ...func(*StateBuilder)) *Builder {
	s := b.ensureState(name)
	if s == nil {
		return b
	}
	sb := &StateBuilder{state: s}
	for _, fn := range configure {
		if fn != nil {
			fn(sb)
		}
	}
	return b
}

// Initial sets the machine's initial state, auto-registering it if new.
func (b *Builder) Initial(name string) *Builder {
	if b.ensureState(name) != nil {
		b.initial = name
	}
	return b
}

// ContextType records the expected context payload type tag for this
// definition. Callers use it for validation and hydration; the builder does
// not enforce it.
func (b *Builder) ContextType(tag string) *Builder {
	b.contextType = tag
	return b
}

// Describe sets the description of the pending transition when one is open,
// otherwise the description of the definition itself.
func (b *Builder) Describe(text string) *Builder {
	if b.pending != nil {
		b.pending.description = text
	} else {
		b.description = text
	}
	return b
}

// From starts a new transition from one or more source states, finalizing any
// transition still in progress. Multiple sources expand into one transition
// per source sharing the same target, event, guards and actions.
func (b *Builder) From(states ...string) *Builder {
	b.finalizePending()
	if len(states) == 0 {
		b.fail(fmt.Errorf("%w: from requires at least one state", ErrNoTransitionContext))
		return b
	}
	for _, s := range states {
		b.ensureState(s)
	}
	b.pending = &pendingTransition{froms: states}
	return b
}

// FromAny starts a wildcard transition applicable from every state.
func (b *Builder) FromAny() *Builder {
	return b.From(Any)
}

// To sets the target state of the transition in progress.
func (b *Builder) To(state string) *Builder {
	if b.pending == nil {
		b.fail(fmt.Errorf("%w: to called before from", ErrNoTransitionContext))
		return b
	}
	b.ensureState(state)
	b.pending.to = state
	return b
}

// On names the event triggering the transition in progress.
func (b *Builder) On(event string) *Builder {
	if b.pending == nil {
		b.fail(fmt.Errorf("%w: event called before from/to", ErrNoTransitionContext))
		return b
	}
	b.pending.event = event
	return b
}

// OnAnyEvent makes the transition in progress fire regardless of the
// requested event name.
func (b *Builder) OnAnyEvent() *Builder {
	return b.On(Any)
}

// Guard appends a guard to the transition in progress.
func (b *Builder) Guard(g Guard) *Builder {
	if b.pending == nil {
		b.fail(fmt.Errorf("%w: guard called before from/to", ErrNoTransitionContext))
		return b
	}
	b.pending.guards = append(b.pending.guards, g)
	return b
}

// CriticalGuard appends a stop-on-failure guard.
func (b *Builder) CriticalGuard(g Guard) *Builder {
	return b.Guard(g.Critical())
}

// Action appends an action to the transition in progress with its configured
// timing.
func (b *Builder) Action(op Operation) *Builder {
	if b.pending == nil {
		b.fail(fmt.Errorf("%w: action called before from/to", ErrNoTransitionContext))
		return b
	}
	b.pending.actions = append(b.pending.actions, op)
	return b
}

// Before appends an action running prior to the state write.
func (b *Builder) Before(op Operation) *Builder {
	return b.Action(op.At(TimingBefore))
}

// After appends an action running after the state write.
func (b *Builder) After(op Operation) *Builder {
	return b.Action(op.At(TimingAfter))
}

// OnSuccess appends an action running after a successful commit.
func (b *Builder) OnSuccess(op Operation) *Builder {
	return b.Action(op.At(TimingOnSuccess))
}

// OnFailure appends an action running when the transition fails.
func (b *Builder) OnFailure(op Operation) *Builder {
	return b.Action(op.At(TimingOnFailure))
}

// OnTransition appends an on-transition callback.
func (b *Builder) OnTransition(op Operation) *Builder {
	if b.pending == nil {
		b.fail(fmt.Errorf("%w: callback called before from/to", ErrNoTransitionContext))
		return b
	}
	b.pending.callbacks = append(b.pending.callbacks, op)
	return b
}

// Add finalizes the transition in progress explicitly. Starting a new From or
// calling Build finalizes implicitly.
func (b *Builder) Add() *Builder {
	b.finalizePending()
	return b
}

// RemoveTransition removes the exact-match transition for the given key. Used
// by the override mechanism before re-adding a replacement. Removing an
// absent transition is a no-op.
func (b *Builder) RemoveTransition(from, to, event string) *Builder {
	b.finalizePending()
	key := TransitionDefinition{From: from, To: to, Event: event}.Key()
	for i, t := range b.transitions {
		if t.Key() == key {
			b.transitions = append(b.transitions[:i], b.transitions[i+1:]...)
			break
		}
	}
	return b
}

// ApplyStatePatch merges or replaces a state definition. Override replaces
// the whole value; add registers a new state or merges additively into an
// existing one.
func (b *Builder) ApplyStatePatch(p StatePatch) *Builder {
	key := normalizeName(p.State.Name)
	if key == "" || key == Any {
		b.fail(fmt.Errorf("state patch requires a state name"))
		return b
	}
	existing, ok := b.states[key]
	switch {
	case p.Override || !ok:
		s := p.State.clone()
		if !ok {
			b.stateOrder = append(b.stateOrder, key)
		}
		b.states[key] = &s
	default:
		merged := existing.merge(p.State)
		b.states[key] = &merged
	}
	return b
}

// ApplyTransitionPatch merges or replaces a transition definition. Override
// removes any existing transition with the same key before adding; add keeps
// an existing transition and is a no-op when the key is already defined.
func (b *Builder) ApplyTransitionPatch(p TransitionPatch) *Builder {
	b.finalizePending()
	t := p.Transition
	key := t.Key()
	idx := -1
	for i, existing := range b.transitions {
		if existing.Key() == key {
			idx = i
			break
		}
	}
	if idx >= 0 && !p.Override {
		return b
	}
	if t.From != Any {
		b.ensureState(t.From)
	}
	b.ensureState(t.To)
	if idx >= 0 {
		b.transitions[idx] = t.clone()
	} else {
		b.transitions = append(b.transitions, t.clone())
	}
	return b
}

// Build finalizes any pending transition and returns the immutable runtime
// definition.
func (b *Builder) Build() (*RuntimeDefinition, error) {
	b.finalizePending()
	if b.err != nil {
		return nil, b.err
	}

	initial := b.initial
	if initial == "" && len(b.stateOrder) > 0 {
		initial = b.states[b.stateOrder[0]].Name
	}

	states := make(map[string]StateDefinition, len(b.states))
	for key, s := range b.states {
		states[key] = s.clone()
	}
	transitions := make([]TransitionDefinition, len(b.transitions))
	for i, t := range b.transitions {
		transitions[i] = t.clone()
	}

	return &RuntimeDefinition{
		EntityType:   b.entityType,
		Column:       b.column,
		States:       states,
		Transitions:  transitions,
		InitialState: initial,
		ContextType:  b.contextType,
		Description:  b.description,
	}, nil
}

// MustBuild is like Build but panics on configuration errors, following the
// fail-fast pattern for definitions assembled at startup.
func (b *Builder) MustBuild() *RuntimeDefinition {
	def, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build state machine definition: %v", err))
	}
	return def
}

// BuildInto builds the definition and registers it with the given registrar.
// A nil registrar is not an error: registration is best-effort.
func (b *Builder) BuildInto(reg Registrar) (*RuntimeDefinition, error) {
	def, err := b.Build()
	if err != nil {
		return nil, err
	}
	if reg != nil {
		reg.Register(def)
	}
	return def, nil
}

// finalizePending pushes the transition in progress into the transition list,
// expanding multiple sources and replacing any exact-key duplicate
// (last-write-wins).
func (b *Builder) finalizePending() {
	p := b.pending
	if p == nil {
		return
	}
	b.pending = nil

	if p.to == "" {
		b.fail(fmt.Errorf("%w: transition from %v has no target state", ErrNoTransitionContext, p.froms))
		return
	}

	for _, from := range p.froms {
		t := TransitionDefinition{
			From:        from,
			To:          p.to,
			Event:       p.event,
			Guards:      append([]Guard(nil), p.guards...),
			Actions:     append([]Operation(nil), p.actions...),
			Callbacks:   append([]Operation(nil), p.callbacks...),
			Description: p.description,
		}
		key := t.Key()
		replaced := false
		for i, existing := range b.transitions {
			if existing.Key() == key {
				b.transitions[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			b.transitions = append(b.transitions, t)
		}
	}
}

// ensureState registers a state on first reference. The wildcard marker is
// not a state and is never registered.
func (b *Builder) ensureState(name string) *StateDefinition {
	key := normalizeName(name)
	if key == "" {
		b.fail(fmt.Errorf("state name cannot be empty"))
		return nil
	}
	if key == Any {
		return nil
	}
	if s, ok := b.states[key]; ok {
		return s
	}
	s := &StateDefinition{Name: name}
	b.states[key] = s
	b.stateOrder = append(b.stateOrder, key)
	return s
}

// StateBuilder is the active context handed to State configurators. All
// setters apply to the state being configured, which makes out-of-context
// state configuration structurally impossible.
type StateBuilder struct {
	state *StateDefinition
}

func (sb *StateBuilder) Describe(text string) *StateBuilder {
	sb.state.Description = text
	return sb
}

func (sb *StateBuilder) Type(t string) *StateBuilder {
	sb.state.Type = t
	return sb
}

func (sb *StateBuilder) Category(c string) *StateBuilder {
	sb.state.Category = c
	return sb
}

func (sb *StateBuilder) Behavior(behavior string) *StateBuilder {
	sb.state.Behavior = behavior
	return sb
}

func (sb *StateBuilder) Meta(key string, value any) *StateBuilder {
	if sb.state.Metadata == nil {
		sb.state.Metadata = make(map[string]any)
	}
	sb.state.Metadata[key] = value
	return sb
}

// Terminal marks the state as final: no outgoing transitions are expected.
func (sb *StateBuilder) Terminal() *StateBuilder {
	sb.state.Terminal = true
	return sb
}

func (sb *StateBuilder) Priority(p int) *StateBuilder {
	sb.state.Priority = p
	return sb
}

// OnEntry appends entry callbacks, run when a transition lands in this state.
func (sb *StateBuilder) OnEntry(ops ...Operation) *StateBuilder {
	sb.state.OnEntry = append(sb.state.OnEntry, ops...)
	return sb
}

// OnExit appends exit callbacks, run when a transition leaves this state.
func (sb *StateBuilder) OnExit(ops ...Operation) *StateBuilder {
	sb.state.OnExit = append(sb.state.OnExit, ops...)
	return sb
}

// Child attaches an owned sub-machine to this state, one nesting level.
func (sb *StateBuilder) Child(def *RuntimeDefinition) *StateBuilder {
	sb.state.Child = def
	return sb
}

// Parent records the enclosing state for definitions used as children.
func (sb *StateBuilder) Parent(name string) *StateBuilder {
	sb.state.Parent = name
	return sb
}
