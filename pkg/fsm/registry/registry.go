package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// Definer is a definition-producing unit. Define assembles and returns the
// builder describing the unit's machine; the registry compiles it. Units
// returning a nil builder are skipped.
type Definer interface {
	Define() *fsm.Builder
}

// Source supplies definers at discovery time. Sources that fail are skipped
// with a warning; discovery never breaks application bootstrap.
type Source func() ([]Definer, error)

// Definers wraps a static definer list into a Source.
func Definers(ds ...Definer) Source {
	return func() ([]Definer, error) {
		return ds, nil
	}
}

// DefinerFunc adapts a plain function into a Definer.
type DefinerFunc func() *fsm.Builder

func (f DefinerFunc) Define() *fsm.Builder { return f() }

// Registry discovers definition-producing units, applies extensions, compiles
// builders into runtime definitions keyed by (entity type, column) and caches
// the compiled map. Compilation happens exactly once per process lifetime;
// the compiled map is read-only afterwards until Reset.
type Registry struct {
	mu           sync.Mutex
	compiled     bool
	cacheChecked bool
	defs         map[string]*fsm.RuntimeDefinition
	manual       map[string]bool

	sources    []Source
	extensions *fsm.ExtensionRegistry
	cache      CacheStore
	bootstrap  func() bool
	log        *slog.Logger
}

// Option configures the registry.
type Option func(*Registry)

// WithSources adds discovery sources.
func WithSources(sources ...Source) Option {
	return func(r *Registry) {
		r.sources = append(r.sources, sources...)
	}
}

// WithExtensions attaches the extension/override registry applied to every
// discovered builder before compilation.
func WithExtensions(ext *fsm.ExtensionRegistry) Option {
	return func(r *Registry) {
		r.extensions = ext
	}
}

// WithCache enables the compiled-definition cache.
func WithCache(store CacheStore) Option {
	return func(r *Registry) {
		r.cache = store
	}
}

// WithBootstrapSignal installs the host-environment signal marking that
// persistence or configuration is not yet safely available. While it reports
// true, compilation produces an empty map instead of doing discovery work.
func WithBootstrapSignal(fn func() bool) Option {
	return func(r *Registry) {
		r.bootstrap = fn
	}
}

// WithLogger sets the logger for discovery and cache diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// New creates a registry. The registry is owned by the application's
// composition root and passed by reference; there is no process-global state.
func New(opts ...Option) *Registry {
	r := &Registry{
		defs:   make(map[string]*fsm.RuntimeDefinition),
		manual: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// Definition returns the compiled definition for the pair, triggering
// compilation on first access. A missing definition is a misconfiguration and
// surfaces as *fsm.DefinitionNotFoundError.
func (r *Registry) Definition(ctx context.Context, entityType, column string) (*fsm.RuntimeDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compileLocked(ctx)

	def, ok := r.defs[key(entityType, column)]
	if !ok {
		return nil, &fsm.DefinitionNotFoundError{EntityType: entityType, Column: column}
	}
	return def, nil
}

// DefinitionsFor returns every compiled definition owned by the entity type,
// ordered by column for deterministic iteration.
func (r *Registry) DefinitionsFor(ctx context.Context, entityType string) []*fsm.RuntimeDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compileLocked(ctx)

	var out []*fsm.RuntimeDefinition
	for _, def := range r.defs {
		if key(def.EntityType, "") == key(entityType, "") {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column < out[j].Column })
	return out
}

// All returns every compiled definition, ordered by (entity type, column).
// Used by the diagram exporter.
func (r *Registry) All(ctx context.Context) []*fsm.RuntimeDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compileLocked(ctx)

	out := make([]*fsm.RuntimeDefinition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// Register installs a definition out of band. Manual registrations always win
// over discovery for their key and mark the registry compiled so a later
// discovery pass does not clobber them.
func (r *Registry) Register(def *fsm.RuntimeDefinition) {
	if def == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(def.EntityType, def.Column)
	r.defs[k] = def
	r.manual[k] = true
	r.compiled = true
}

// Reset drops the compiled map and cache-checked flag so the next access
// recompiles. Intended for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compiled = false
	r.cacheChecked = false
	r.defs = make(map[string]*fsm.RuntimeDefinition)
	r.manual = make(map[string]bool)
}

// ClearCache removes the persisted definition snapshot. Absence of a cache is
// not an error.
func (r *Registry) ClearCache(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Clear(ctx)
}

// compileLocked runs the compilation sequence once: bootstrap check, cache
// load, discovery, extension application, build, cache save. Discovery and
// cache failures degrade to "nothing found" so the registry never breaks
// unrelated bootstrapping. Callers hold r.mu.
func (r *Registry) compileLocked(ctx context.Context) {
	if r.compiled {
		return
	}
	r.compiled = true

	// During install scripts and boot commands expensive or unsafe work must
	// not run; mark compiled with whatever was manually registered.
	if r.bootstrap != nil && r.bootstrap() {
		r.log.DebugContext(ctx, "fsm registry in bootstrap mode, skipping discovery")
		return
	}

	if r.cache != nil && !r.cacheChecked {
		r.cacheChecked = true
		if defs, ok := r.loadCache(ctx); ok {
			for k, def := range defs {
				if !r.manual[k] {
					r.defs[k] = def
				}
			}
			return
		}
	}

	r.discover(ctx)

	if r.cache != nil {
		r.saveCache(ctx)
	}
}

func (r *Registry) discover(ctx context.Context) {
	for _, src := range r.sources {
		definers, err := src()
		if err != nil {
			r.log.WarnContext(ctx, "fsm definition source failed, skipping", "error", err)
			continue
		}
		for _, d := range definers {
			if d == nil {
				continue
			}
			b := d.Define()
			if b == nil {
				continue
			}
			if r.extensions != nil {
				if err := r.extensions.Apply(b); err != nil {
					r.log.WarnContext(ctx, "fsm extension application failed, skipping definition",
						"entity_type", b.EntityType(), "column", b.Column(), "error", err)
					continue
				}
			}
			def, err := b.Build()
			if err != nil {
				r.log.WarnContext(ctx, "fsm definition failed to build, skipping",
					"entity_type", b.EntityType(), "column", b.Column(), "error", err)
				continue
			}
			k := key(def.EntityType, def.Column)
			if r.manual[k] {
				continue
			}
			r.defs[k] = def
		}
	}
}

func (r *Registry) loadCache(ctx context.Context) (map[string]*fsm.RuntimeDefinition, bool) {
	raw, ok, err := r.cache.Load(ctx)
	if err != nil {
		r.log.WarnContext(ctx, "fsm definition cache unreadable, recompiling", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	defs, err := decodeSnapshot(raw)
	if err != nil {
		// Format drift fails closed: a cache that does not decode is a miss.
		r.log.WarnContext(ctx, "fsm definition cache rejected, recompiling", "error", err)
		return nil, false
	}
	return defs, true
}

func (r *Registry) saveCache(ctx context.Context) {
	for _, def := range r.defs {
		if !def.Cacheable() {
			r.log.DebugContext(ctx, "fsm definitions contain inline closures, cache skipped",
				"entity_type", def.EntityType, "column", def.Column)
			return
		}
	}
	raw, err := encodeSnapshot(r.defs)
	if err != nil {
		r.log.WarnContext(ctx, "fsm definition cache encoding failed", "error", err)
		return
	}
	if err := r.cache.Save(ctx, raw); err != nil {
		r.log.WarnContext(ctx, "fsm definition cache write failed", "error", err)
	}
}

func key(entityType, column string) string {
	return normalize(entityType) + ":" + normalize(column)
}
