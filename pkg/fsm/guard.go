package fsm

import "context"

// Guard is a side-effect-free predicate gating whether a transition may
// proceed. Guards must not mutate the subject.
type Guard struct {
	Callable    Callable
	Params      map[string]any
	Description string
	// Priority orders evaluation, higher first. Ties keep definition order.
	Priority int
	// StopOnFailure short-circuits sibling guards when this guard fails under
	// the all-must-pass strategy.
	StopOnFailure bool
}

// NewGuard creates a guard around the given callable.
func NewGuard(c Callable) Guard {
	return Guard{Callable: c}
}

// GuardFunc wraps a plain predicate into a guard.
func GuardFunc(fn func(ctx context.Context, in *Input, params map[string]any) (bool, error)) Guard {
	return NewGuard(Closure(func(ctx context.Context, in *Input, params map[string]any) (any, error) {
		return fn(ctx, in, params)
	}))
}

// NamedGuard creates a guard referencing a registered callable by name.
func NamedGuard(name string) Guard {
	return NewGuard(Ref(name))
}

func (g Guard) WithParams(params map[string]any) Guard {
	g.Params = params
	return g
}

func (g Guard) WithDescription(desc string) Guard {
	g.Description = desc
	return g
}

func (g Guard) WithPriority(p int) Guard {
	g.Priority = p
	return g
}

// Critical marks the guard as stop-on-failure.
func (g Guard) Critical() Guard {
	g.StopOnFailure = true
	return g
}

func (g Guard) clone() Guard {
	g.Params = cloneMap(g.Params)
	return g
}
