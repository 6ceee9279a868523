package fsm

import (
	"context"
	"fmt"
	"sync"
)

// InvokeFunc is the canonical callable signature for guards, actions and
// callbacks. Guards communicate their verdict through the returned value: a
// bool false rejects, anything else (including nil) passes. Actions and
// callbacks ignore the returned value and report failure through the error.
type InvokeFunc func(ctx context.Context, in *Input, params map[string]any) (any, error)

// Callable is a tagged reference to executable code. It is either an inline
// closure or a named reference resolved through an InvokerRegistry. Named
// references survive serialization, which makes them the only form usable by
// queued actions and cached definitions.
type Callable struct {
	name string
	fn   InvokeFunc
}

// Closure wraps an inline function into a Callable. Closures cannot be
// serialized; definitions containing them are excluded from the definition
// cache and their operations cannot be queued.
func Closure(fn InvokeFunc) Callable {
	return Callable{fn: fn}
}

// Ref creates a named callable reference resolved at invocation time through
// the InvokerRegistry. The conventional name format for method-style
// references is "ReceiverType.Method".
func Ref(name string) Callable {
	return Callable{name: name}
}

// Ref returns the registered name of the callable, if any.
func (c Callable) Ref() (string, bool) {
	return c.name, c.name != ""
}

// Inline reports whether the callable carries an inline closure.
func (c Callable) Inline() bool {
	return c.fn != nil
}

// IsZero reports whether the callable references nothing.
func (c Callable) IsZero() bool {
	return c.fn == nil && c.name == ""
}

// InvokerRegistry maps callable names to their implementations. It is the
// single dispatch point for named guard/action/callback references and the
// re-hydration table for queued invocations executed in worker processes.
type InvokerRegistry struct {
	mu  sync.RWMutex
	fns map[string]InvokeFunc
}

func NewInvokerRegistry() *InvokerRegistry {
	return &InvokerRegistry{fns: make(map[string]InvokeFunc)}
}

// Register binds a name to an implementation. Re-registering a name replaces
// the previous binding.
func (r *InvokerRegistry) Register(name string, fn InvokeFunc) error {
	if name == "" {
		return ErrEmptyCallableName
	}
	if fn == nil {
		return ErrNilCallable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[name] = fn
	return nil
}

// Invoke resolves and executes a callable with named parameter binding.
// Inline closures run directly; named references are looked up first.
func (r *InvokerRegistry) Invoke(ctx context.Context, c Callable, in *Input, params map[string]any) (any, error) {
	if c.fn != nil {
		return c.fn(ctx, in, params)
	}
	if c.name == "" {
		return nil, ErrNilCallable
	}
	r.mu.RLock()
	fn, ok := r.fns[c.name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCallableNotRegistered, c.name)
	}
	return fn(ctx, in, params)
}
