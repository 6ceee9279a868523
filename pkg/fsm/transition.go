package fsm

// TransitionDefinition describes one guarded, action-bearing move between
// states. From == Any matches every source state; Event == Any fires on any
// requested event; an empty Event addresses the transition by target state
// only.
type TransitionDefinition struct {
	From        string
	To          string
	Event       string
	Guards      []Guard
	Actions     []Operation
	Callbacks   []Operation
	Description string
}

// TransitionKey is the identity of a transition for override and removal
// purposes, built from normalized names.
type TransitionKey struct {
	From  string
	To    string
	Event string
}

// Key returns the normalized identity tuple.
func (t TransitionDefinition) Key() TransitionKey {
	return TransitionKey{
		From:  normalizeName(t.From),
		To:    normalizeName(t.To),
		Event: normalizeName(t.Event),
	}
}

func (t TransitionDefinition) clone() TransitionDefinition {
	if t.Guards != nil {
		guards := make([]Guard, len(t.Guards))
		for i, g := range t.Guards {
			guards[i] = g.clone()
		}
		t.Guards = guards
	}
	t.Actions = cloneOperations(t.Actions)
	t.Callbacks = cloneOperations(t.Callbacks)
	return t
}
