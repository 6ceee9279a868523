package httpapi

import (
	"sort"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

type stateView struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        string         `json:"type,omitempty"`
	Category    string         `json:"category,omitempty"`
	Terminal    bool           `json:"terminal,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type transitionView struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Event       string `json:"event,omitempty"`
	Description string `json:"description,omitempty"`
	Guards      int    `json:"guards"`
	Actions     int    `json:"actions"`
	Callbacks   int    `json:"callbacks"`
}

type definitionResponse struct {
	EntityType   string           `json:"entity_type"`
	Column       string           `json:"column"`
	InitialState string           `json:"initial_state"`
	ContextType  string           `json:"context_type,omitempty"`
	Description  string           `json:"description,omitempty"`
	States       []stateView      `json:"states"`
	Transitions  []transitionView `json:"transitions"`
}

// definitionView projects a runtime definition into a stable wire shape.
// Callables are reduced to counts: closures are not serializable and named
// refs are an internal addressing concern.
func definitionView(def *fsm.RuntimeDefinition) definitionResponse {
	resp := definitionResponse{
		EntityType:   def.EntityType,
		Column:       def.Column,
		InitialState: def.InitialState,
		ContextType:  def.ContextType,
		Description:  def.Description,
		States:       []stateView{},
		Transitions:  []transitionView{},
	}
	for _, s := range def.States {
		resp.States = append(resp.States, stateView{
			Name:        s.Name,
			Description: s.Description,
			Type:        s.Type,
			Category:    s.Category,
			Terminal:    s.Terminal,
			Metadata:    s.Metadata,
		})
	}
	sort.Slice(resp.States, func(i, j int) bool {
		return resp.States[i].Name < resp.States[j].Name
	})
	for _, t := range def.Transitions {
		resp.Transitions = append(resp.Transitions, transitionView{
			From:        t.From,
			To:          t.To,
			Event:       t.Event,
			Description: t.Description,
			Guards:      len(t.Guards),
			Actions:     len(t.Actions),
			Callbacks:   len(t.Callbacks),
		})
	}
	return resp
}
