package fsm

// StateDefinition describes one named state of a machine. Identity is the
// normalized name; definitions are immutable once compiled into a
// RuntimeDefinition, overrides replace the whole value.
type StateDefinition struct {
	Name        string
	Description string
	Type        string
	Category    string
	Behavior    string
	Metadata    map[string]any
	Terminal    bool
	Priority    int
	OnEntry     []Operation
	OnExit      []Operation

	// Child holds an owned sub-machine definition, enabling one level of
	// nesting. The execution engine consults only the top-level definition;
	// hosts recurse into children explicitly.
	Child *RuntimeDefinition
	// Parent references the enclosing state when this definition belongs to a
	// child machine.
	Parent string
}

func (s StateDefinition) clone() StateDefinition {
	s.Metadata = cloneMap(s.Metadata)
	s.OnEntry = cloneOperations(s.OnEntry)
	s.OnExit = cloneOperations(s.OnExit)
	return s
}

// merge applies the non-zero fields of patch additively, keeping existing
// values where the patch is silent. Metadata keys from the patch win.
func (s StateDefinition) merge(patch StateDefinition) StateDefinition {
	out := s.clone()
	if patch.Description != "" {
		out.Description = patch.Description
	}
	if patch.Type != "" {
		out.Type = patch.Type
	}
	if patch.Category != "" {
		out.Category = patch.Category
	}
	if patch.Behavior != "" {
		out.Behavior = patch.Behavior
	}
	if patch.Terminal {
		out.Terminal = true
	}
	if patch.Priority != 0 {
		out.Priority = patch.Priority
	}
	if len(patch.Metadata) > 0 {
		if out.Metadata == nil {
			out.Metadata = make(map[string]any, len(patch.Metadata))
		}
		for k, v := range patch.Metadata {
			out.Metadata[k] = v
		}
	}
	out.OnEntry = append(out.OnEntry, cloneOperations(patch.OnEntry)...)
	out.OnExit = append(out.OnExit, cloneOperations(patch.OnExit)...)
	if patch.Child != nil {
		out.Child = patch.Child
	}
	if patch.Parent != "" {
		out.Parent = patch.Parent
	}
	return out
}
