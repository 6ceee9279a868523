package fsm

import "context"

// Operation is a side-effecting unit of work tied to a transition (action or
// on-transition callback) or to entering/exiting a state (entry/exit
// callback). Actions and callbacks are structurally identical; they differ
// only in what they are attached to.
type Operation struct {
	Callable    Callable
	Params      map[string]any
	Name        string
	Description string
	Timing      Timing
	// Priority orders execution within a timing phase, higher first. Ties keep
	// definition order.
	Priority int
	// Queued operations are handed to the asynchronous dispatch collaborator
	// instead of running inline. Requires a named callable.
	Queued bool
}

// NewOperation creates an operation around the given callable. The default
// timing is TimingAfter.
func NewOperation(c Callable) Operation {
	return Operation{Callable: c, Timing: TimingAfter}
}

// OperationFunc wraps a plain function into an operation.
func OperationFunc(fn func(ctx context.Context, in *Input, params map[string]any) error) Operation {
	return NewOperation(Closure(func(ctx context.Context, in *Input, params map[string]any) (any, error) {
		return nil, fn(ctx, in, params)
	}))
}

// NamedOperation creates an operation referencing a registered callable.
func NamedOperation(name string) Operation {
	op := NewOperation(Ref(name))
	op.Name = name
	return op
}

// At sets the timing phase.
func (o Operation) At(t Timing) Operation {
	o.Timing = t
	return o
}

func (o Operation) WithParams(params map[string]any) Operation {
	o.Params = params
	return o
}

func (o Operation) WithName(name string) Operation {
	o.Name = name
	return o
}

func (o Operation) WithDescription(desc string) Operation {
	o.Description = desc
	return o
}

func (o Operation) WithPriority(p int) Operation {
	o.Priority = p
	return o
}

// Queue marks the operation for asynchronous dispatch.
func (o Operation) Queue() Operation {
	o.Queued = true
	return o
}

func (o Operation) clone() Operation {
	o.Params = cloneMap(o.Params)
	return o
}

func cloneOperations(ops []Operation) []Operation {
	if ops == nil {
		return nil
	}
	out := make([]Operation, len(ops))
	for i, op := range ops {
		out[i] = op.clone()
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
