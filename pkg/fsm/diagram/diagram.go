package diagram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// Format selects a rendering dialect.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
)

// Ext returns the conventional file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatDOT:
		return ".dot"
	default:
		return ".mmd"
	}
}

// anyLabel stands in for the wildcard source in rendered diagrams; diagram
// dialects have no native wildcard node.
const anyLabel = "any_state"

// Mermaid renders the definition as a Mermaid stateDiagram-v2 document.
// Output is deterministic: states sorted by name, transitions in definition
// order.
func Mermaid(def *fsm.RuntimeDefinition) string {
	var b strings.Builder
	b.WriteString("stateDiagram-v2\n")
	if def.Description != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", def.Description)
	}

	for _, name := range sortedStates(def) {
		s := def.States[name]
		if s.Description != "" {
			fmt.Fprintf(&b, "    %s : %s\n", ident(s.Name), s.Description)
		}
	}

	if def.InitialState != "" {
		fmt.Fprintf(&b, "    [*] --> %s\n", ident(def.InitialState))
	}

	for _, t := range def.Transitions {
		from := t.From
		if from == fsm.Any {
			from = anyLabel
		}
		if t.Event != "" && t.Event != fsm.Any {
			fmt.Fprintf(&b, "    %s --> %s : %s\n", ident(from), ident(t.To), t.Event)
		} else {
			fmt.Fprintf(&b, "    %s --> %s\n", ident(from), ident(t.To))
		}
	}

	for _, name := range sortedStates(def) {
		if s := def.States[name]; s.Terminal {
			fmt.Fprintf(&b, "    %s --> [*]\n", ident(s.Name))
		}
	}
	return b.String()
}

// DOT renders the definition as a Graphviz digraph. Terminal states render as
// double circles, guarded transitions as dashed edges.
func DOT(def *fsm.RuntimeDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", def.EntityType+"_"+def.Column)
	b.WriteString("    rankdir=LR;\n")
	b.WriteString("    node [shape=circle];\n")

	for _, name := range sortedStates(def) {
		s := def.States[name]
		attrs := []string{fmt.Sprintf("label=%q", s.Name)}
		if s.Terminal {
			attrs = append(attrs, "shape=doublecircle")
		}
		fmt.Fprintf(&b, "    %q [%s];\n", ident(s.Name), strings.Join(attrs, ", "))
	}

	if def.InitialState != "" {
		b.WriteString("    __start [shape=point];\n")
		fmt.Fprintf(&b, "    __start -> %q;\n", ident(def.InitialState))
	}

	for _, t := range def.Transitions {
		from := t.From
		if from == fsm.Any {
			from = anyLabel
		}
		var attrs []string
		if t.Event != "" && t.Event != fsm.Any {
			attrs = append(attrs, fmt.Sprintf("label=%q", t.Event))
		}
		if len(t.Guards) > 0 {
			attrs = append(attrs, "style=dashed")
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&b, "    %q -> %q [%s];\n", ident(from), ident(t.To), strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&b, "    %q -> %q;\n", ident(from), ident(t.To))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// Render dispatches to the named format.
func Render(def *fsm.RuntimeDefinition, format Format) (string, error) {
	switch format {
	case FormatMermaid:
		return Mermaid(def), nil
	case FormatDOT:
		return DOT(def), nil
	default:
		return "", fmt.Errorf("diagram: unsupported format %q", format)
	}
}

func sortedStates(def *fsm.RuntimeDefinition) []string {
	names := make([]string, 0, len(def.States))
	for name := range def.States {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ident makes a state name safe as a diagram node identifier.
func ident(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
