package fsm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// extensionConfigFile mirrors the YAML declaration format for standalone
// state and transition overrides. Guards, actions and callbacks are named
// callable references; inline closures cannot be declared in config.
type extensionConfigFile struct {
	States      []stateConfigEntry      `yaml:"states"`
	Transitions []transitionConfigEntry `yaml:"transitions"`
}

type stateConfigEntry struct {
	EntityType  string         `yaml:"entity_type"`
	Column      string         `yaml:"column"`
	Priority    int            `yaml:"priority"`
	Override    bool           `yaml:"override"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Type        string         `yaml:"type"`
	Category    string         `yaml:"category"`
	Behavior    string         `yaml:"behavior"`
	Terminal    bool           `yaml:"terminal"`
	Metadata    map[string]any `yaml:"metadata"`
	OnEntry     []opConfig     `yaml:"on_entry"`
	OnExit      []opConfig     `yaml:"on_exit"`
}

type transitionConfigEntry struct {
	EntityType  string        `yaml:"entity_type"`
	Column      string        `yaml:"column"`
	Priority    int           `yaml:"priority"`
	Override    bool          `yaml:"override"`
	From        string        `yaml:"from"`
	To          string        `yaml:"to"`
	Event       string        `yaml:"event"`
	Description string        `yaml:"description"`
	Guards      []guardConfig `yaml:"guards"`
	Actions     []opConfig    `yaml:"actions"`
	Callbacks   []opConfig    `yaml:"callbacks"`
}

type guardConfig struct {
	Callable      string         `yaml:"callable"`
	Params        map[string]any `yaml:"params"`
	Description   string         `yaml:"description"`
	Priority      int            `yaml:"priority"`
	StopOnFailure bool           `yaml:"stop_on_failure"`
}

type opConfig struct {
	Callable    string         `yaml:"callable"`
	Params      map[string]any `yaml:"params"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Timing      string         `yaml:"timing"`
	Priority    int            `yaml:"priority"`
	Queued      bool           `yaml:"queued"`
}

// LoadExtensionConfig reads standalone state and transition override
// declarations from a YAML file. A missing file yields empty results; any
// other read or parse failure is returned.
func LoadExtensionConfig(path string) ([]StatePatch, []TransitionPatch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read extension config %q: %w", path, err)
	}

	var cfg extensionConfigFile
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parse extension config %q: %w", path, err)
	}

	states := make([]StatePatch, 0, len(cfg.States))
	for _, entry := range cfg.States {
		if entry.Name == "" {
			return nil, nil, fmt.Errorf("extension config %q: state entry without a name", path)
		}
		states = append(states, StatePatch{
			EntityType: entry.EntityType,
			Column:     entry.Column,
			Priority:   entry.Priority,
			Override:   entry.Override,
			State: StateDefinition{
				Name:        entry.Name,
				Description: entry.Description,
				Type:        entry.Type,
				Category:    entry.Category,
				Behavior:    entry.Behavior,
				Terminal:    entry.Terminal,
				Metadata:    entry.Metadata,
				OnEntry:     opsFromConfig(entry.OnEntry),
				OnExit:      opsFromConfig(entry.OnExit),
			},
		})
	}

	transitions := make([]TransitionPatch, 0, len(cfg.Transitions))
	for _, entry := range cfg.Transitions {
		if entry.To == "" {
			return nil, nil, fmt.Errorf("extension config %q: transition entry without a target state", path)
		}
		transitions = append(transitions, TransitionPatch{
			EntityType: entry.EntityType,
			Column:     entry.Column,
			Priority:   entry.Priority,
			Override:   entry.Override,
			Transition: TransitionDefinition{
				From:        entry.From,
				To:          entry.To,
				Event:       entry.Event,
				Description: entry.Description,
				Guards:      guardsFromConfig(entry.Guards),
				Actions:     opsFromConfig(entry.Actions),
				Callbacks:   opsFromConfig(entry.Callbacks),
			},
		})
	}

	return states, transitions, nil
}

func guardsFromConfig(entries []guardConfig) []Guard {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Guard, len(entries))
	for i, entry := range entries {
		out[i] = Guard{
			Callable:      Ref(entry.Callable),
			Params:        entry.Params,
			Description:   entry.Description,
			Priority:      entry.Priority,
			StopOnFailure: entry.StopOnFailure,
		}
	}
	return out
}

func opsFromConfig(entries []opConfig) []Operation {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Operation, len(entries))
	for i, entry := range entries {
		timing := Timing(entry.Timing)
		if !timing.Valid() {
			timing = TimingAfter
		}
		name := entry.Name
		if name == "" {
			name = entry.Callable
		}
		out[i] = Operation{
			Callable:    Ref(entry.Callable),
			Params:      entry.Params,
			Name:        name,
			Description: entry.Description,
			Timing:      timing,
			Priority:    entry.Priority,
			Queued:      entry.Queued,
		}
	}
	return out
}
