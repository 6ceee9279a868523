package engine

import (
	"context"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
)

// Subject is the stateful record a transition operates on. The engine treats
// it as an opaque entity with gettable/settable state fields and a primary
// key; persistence belongs to the Store collaborator.
type Subject interface {
	EntityType() string
	PrimaryKey() string
	// StateOf returns the in-memory value of the column, false when unset.
	StateOf(column string) (string, bool)
	// SetState updates the in-memory value of the column.
	SetState(column, value string)
}

// Store is the host persistence collaborator. ReadState must return the
// currently persisted value, not the in-memory one: the engine re-reads
// immediately before writing to detect concurrent modification.
type Store interface {
	ReadState(ctx context.Context, subject Subject, column string) (string, error)
	WriteState(ctx context.Context, subject Subject, column, value string) error
}

// Transactor wraps the guarded write-and-after-actions window in a host
// transaction. An error returned by fn must roll the transaction back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Dispatcher receives serialized queued operations for asynchronous
// execution. The engine never runs queued work synchronously.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv fsm.Invocation) error
}

// DefinitionSource serves compiled runtime definitions. Satisfied by
// registry.Registry.
type DefinitionSource interface {
	Definition(ctx context.Context, entityType, column string) (*fsm.RuntimeDefinition, error)
}
