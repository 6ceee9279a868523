package fsm

// RuntimeDefinition is the compiled, immutable unit consulted at execution
// time. Created once per (entity type, column) by the builder or registry;
// read-only thereafter, replaced wholesale on manual re-registration. Every
// state referenced by a transition exists in States by construction: the
// builder auto-creates missing states on first reference.
type RuntimeDefinition struct {
	EntityType   string
	Column       string
	States       map[string]StateDefinition
	Transitions  []TransitionDefinition
	InitialState string
	ContextType  string
	Description  string
}

// State looks up a state definition by name.
func (d *RuntimeDefinition) State(name string) (StateDefinition, bool) {
	s, ok := d.States[normalizeName(name)]
	return s, ok
}

// FindTransition resolves the transition applicable to a move from the
// current state to the target state, optionally on a named event. Matching
// order: exact (from, event-or-to) first, then a wildcard-source transition
// with the same target/event, then an exact-source transition with a wildcard
// event.
func (d *RuntimeDefinition) FindTransition(from, to, event string) (TransitionDefinition, bool) {
	nfrom, nto, nevent := normalizeName(from), normalizeName(to), normalizeName(event)

	// Exact source match. When an event is given it addresses the transition;
	// otherwise the target state does.
	for _, t := range d.Transitions {
		k := t.Key()
		if k.From != nfrom {
			continue
		}
		if nevent != "" {
			if k.Event == nevent && k.To == nto {
				return t, true
			}
			continue
		}
		if k.To == nto && k.Event == "" {
			return t, true
		}
	}

	// Wildcard source.
	for _, t := range d.Transitions {
		k := t.Key()
		if k.From != Any || k.To != nto {
			continue
		}
		if nevent != "" && k.Event != nevent && k.Event != Any {
			continue
		}
		return t, true
	}

	// Wildcard event on an exact source.
	for _, t := range d.Transitions {
		k := t.Key()
		if k.From == nfrom && k.To == nto && k.Event == Any {
			return t, true
		}
	}

	return TransitionDefinition{}, false
}

// TransitionsFrom lists the transitions leaving the given state, wildcard
// sources included.
func (d *RuntimeDefinition) TransitionsFrom(state string) []TransitionDefinition {
	n := normalizeName(state)
	var out []TransitionDefinition
	for _, t := range d.Transitions {
		if k := t.Key(); k.From == n || k.From == Any {
			out = append(out, t)
		}
	}
	return out
}

// Cacheable reports whether the definition survives serialization: every
// guard, action and callback must be a named reference, inline closures
// cannot round-trip through the definition cache.
func (d *RuntimeDefinition) Cacheable() bool {
	for _, s := range d.States {
		if !operationsCacheable(s.OnEntry) || !operationsCacheable(s.OnExit) {
			return false
		}
		if s.Child != nil && !s.Child.Cacheable() {
			return false
		}
	}
	for _, t := range d.Transitions {
		for _, g := range t.Guards {
			if g.Callable.Inline() {
				return false
			}
		}
		if !operationsCacheable(t.Actions) || !operationsCacheable(t.Callbacks) {
			return false
		}
	}
	return true
}

func operationsCacheable(ops []Operation) bool {
	for _, op := range ops {
		if op.Callable.Inline() {
			return false
		}
	}
	return true
}
