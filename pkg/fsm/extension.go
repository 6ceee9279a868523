package fsm

import (
	"sort"
	"sync"
)

// Extension is a named, prioritized unit that reshapes a base definition
// before compilation by mutating its builder.
type Extension interface {
	Name() string
	Priority() int
	// AppliesTo filters which (entity type, column) builders the extension
	// touches.
	AppliesTo(entityType, column string) bool
	// Extend mutates the builder. Called once per applicable builder during
	// compilation, after base self-registration and before Build.
	Extend(b *Builder) error
}

// StatePatch is a standalone state override declaration: a typed replacement
// for reflective builder-method dispatch.
type StatePatch struct {
	EntityType string
	Column     string
	State      StateDefinition
	Priority   int
	// Override replaces an existing definition of the same key; add merges
	// additively.
	Override bool
}

// TransitionPatch is a standalone transition override declaration.
type TransitionPatch struct {
	EntityType string
	Column     string
	Transition TransitionDefinition
	Priority   int
	Override   bool
}

type registeredExtension struct {
	ext Extension
	seq int
}

type registeredStatePatch struct {
	patch StatePatch
	seq   int
}

type registeredTransitionPatch struct {
	patch TransitionPatch
	seq   int
}

// ExtensionRegistry holds extensions and per-(entity type, column)
// state/transition patches and answers what applies where, in priority order.
type ExtensionRegistry struct {
	mu                sync.RWMutex
	extensions        []registeredExtension
	statePatches      map[string][]registeredStatePatch
	transitionPatches map[string][]registeredTransitionPatch
	seq               int
}

// ExtensionOption configures the registry at construction time.
type ExtensionOption func(*ExtensionRegistry) error

// NewExtensionRegistry creates the registry and applies the one-shot
// bootstrap options: extension instances first, then state patches, then
// transition patches.
func NewExtensionRegistry(opts ...ExtensionOption) (*ExtensionRegistry, error) {
	r := &ExtensionRegistry{
		statePatches:      make(map[string][]registeredStatePatch),
		transitionPatches: make(map[string][]registeredTransitionPatch),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithExtensions registers extension instances during construction.
func WithExtensions(exts ...Extension) ExtensionOption {
	return func(r *ExtensionRegistry) error {
		for _, ext := range exts {
			r.Register(ext)
		}
		return nil
	}
}

// WithConfigFile loads standalone state and transition overrides from a YAML
// declaration file. A missing file is tolerated; a malformed one is not.
func WithConfigFile(path string) ExtensionOption {
	return func(r *ExtensionRegistry) error {
		states, transitions, err := LoadExtensionConfig(path)
		if err != nil {
			return err
		}
		for _, p := range states {
			r.RegisterStatePatch(p)
		}
		for _, p := range transitions {
			r.RegisterTransitionPatch(p)
		}
		return nil
	}
}

// Register adds an extension. Nil extensions are ignored.
func (r *ExtensionRegistry) Register(ext Extension) {
	if ext == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.extensions = append(r.extensions, registeredExtension{ext: ext, seq: r.seq})
}

// RegisterStatePatch adds a standalone state override keyed by
// (entity type, column).
func (r *ExtensionRegistry) RegisterStatePatch(p StatePatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	key := definitionKey(p.EntityType, p.Column)
	r.statePatches[key] = append(r.statePatches[key], registeredStatePatch{patch: p, seq: r.seq})
}

// RegisterTransitionPatch adds a standalone transition override.
func (r *ExtensionRegistry) RegisterTransitionPatch(p TransitionPatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	key := definitionKey(p.EntityType, p.Column)
	r.transitionPatches[key] = append(r.transitionPatches[key], registeredTransitionPatch{patch: p, seq: r.seq})
}

// ExtensionsFor returns the extensions applicable to the pair, sorted
// descending by priority with registration order breaking ties.
func (r *ExtensionRegistry) ExtensionsFor(entityType, column string) []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []registeredExtension
	for _, re := range r.extensions {
		if re.ext.AppliesTo(entityType, column) {
			matched = append(matched, re)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].ext.Priority() != matched[j].ext.Priority() {
			return matched[i].ext.Priority() > matched[j].ext.Priority()
		}
		return matched[i].seq < matched[j].seq
	})

	out := make([]Extension, len(matched))
	for i, re := range matched {
		out[i] = re.ext
	}
	return out
}

// StatePatchesFor returns the state patches for the pair in descending
// priority order, registration order breaking ties.
func (r *ExtensionRegistry) StatePatchesFor(entityType, column string) []StatePatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := append([]registeredStatePatch(nil), r.statePatches[definitionKey(entityType, column)]...)
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].patch.Priority != regs[j].patch.Priority {
			return regs[i].patch.Priority > regs[j].patch.Priority
		}
		return regs[i].seq < regs[j].seq
	})

	out := make([]StatePatch, len(regs))
	for i, rp := range regs {
		out[i] = rp.patch
	}
	return out
}

// TransitionPatchesFor returns the transition patches for the pair in
// descending priority order, registration order breaking ties.
func (r *ExtensionRegistry) TransitionPatchesFor(entityType, column string) []TransitionPatch {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := append([]registeredTransitionPatch(nil), r.transitionPatches[definitionKey(entityType, column)]...)
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].patch.Priority != regs[j].patch.Priority {
			return regs[i].patch.Priority > regs[j].patch.Priority
		}
		return regs[i].seq < regs[j].seq
	})

	out := make([]TransitionPatch, len(regs))
	for i, rp := range regs {
		out[i] = rp.patch
	}
	return out
}

// Apply runs the registered patches and extensions against a builder for its
// (entity type, column) pair: state patches first, then transition patches,
// then extension hooks, each group in descending priority order.
func (r *ExtensionRegistry) Apply(b *Builder) error {
	for _, p := range r.StatePatchesFor(b.EntityType(), b.Column()) {
		b.ApplyStatePatch(p)
	}
	for _, p := range r.TransitionPatchesFor(b.EntityType(), b.Column()) {
		b.ApplyTransitionPatch(p)
	}
	for _, ext := range r.ExtensionsFor(b.EntityType(), b.Column()) {
		if err := ext.Extend(b); err != nil {
			return err
		}
	}
	return b.Err()
}

func definitionKey(entityType, column string) string {
	return normalizeName(entityType) + ":" + normalizeName(column)
}
