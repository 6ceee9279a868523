// Package registry compiles, caches and serves runtime state machine
// definitions.
//
// Applications register definition-producing units (Definer implementations)
// through Sources; the registry invokes each unit's Define hook on first
// access, applies any registered extensions and overrides, compiles every
// builder into an immutable fsm.RuntimeDefinition keyed by
// (entity type, column), and optionally persists the compiled map to a cache.
//
//	reg := registry.New(
//	    registry.WithSources(registry.Definers(orderMachine{}, invoiceMachine{})),
//	    registry.WithExtensions(extensions),
//	    registry.WithCache(registry.NewFileCacheStore(cfg.CachePath)),
//	)
//
//	def, err := reg.Definition(ctx, "order", "status")
//
// # Compilation lifecycle
//
// Compilation runs exactly once per process lifetime and is serialized by an
// internal mutex; a second access is a plain map lookup. Reset exists for
// test isolation. When the bootstrap signal reports true (package
// installation, artifact-generation commands), compilation short-circuits to
// an empty map so no expensive or environment-dependent work happens.
//
// Discovery is deliberately permissive: sources that fail, extensions that
// error and builders that do not build are logged and skipped, never raised,
// because the registry may run in contexts where the full host environment is
// unavailable.
//
// # Cache
//
// The cache is a versioned JSON envelope (schema tag plus payload) holding
// the structural definition map. Missing, corrupt or schema-mismatched
// snapshots are treated as cache misses and recomputed silently. Definitions
// containing inline closures cannot round-trip and disable the snapshot
// write. FileCacheStore writes atomically via temp file and rename;
// RedisCacheStore shares one snapshot across instances.
//
// # Manual registration
//
// Register installs a definition out of band. It always wins over discovery
// for its key and flips the compiled flag on, so subsequent discovery does
// not clobber it.
package registry
