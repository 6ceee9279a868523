package fsm

import (
	"context"
	"sort"
)

// GuardStrategy selects how multiple guards combine into a single verdict.
type GuardStrategy string

const (
	// AllMustPass requires every guard to pass. Failures accumulate and are
	// reported jointly unless a stop-on-failure guard fails first.
	AllMustPass GuardStrategy = "all"
	// AnyMustPass short-circuits true on the first passing guard and fails
	// with all reasons joined when every guard rejects.
	AnyMustPass GuardStrategy = "any"
	// PriorityFirst returns on the first passing guard in priority order. A
	// guard that errors is reported through the ErrorReporter hook and
	// evaluation continues with the next guard.
	PriorityFirst GuardStrategy = "priority_first"
)

// ErrorReporter receives guard errors swallowed by the priority-first
// strategy. Injectable so hosts decide whether swallowed errors go to logs,
// metrics or an error tracker.
type ErrorReporter func(ctx context.Context, err error)

// EvaluateGuards runs the guards in descending priority order (stable on
// ties) under the given strategy. A nil return means the transition may
// proceed; otherwise the returned error is a *GuardError aggregating the
// failures. Guards that error are treated as failed guards with the error
// preserved as the failure cause, except under PriorityFirst where errors are
// swallowed via report.
func EvaluateGuards(ctx context.Context, strategy GuardStrategy, guards []Guard, in *Input, inv *InvokerRegistry, report ErrorReporter) error {
	if len(guards) == 0 {
		return nil
	}
	if inv == nil {
		inv = NewInvokerRegistry()
	}

	ordered := make([]Guard, len(guards))
	copy(ordered, guards)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	switch strategy {
	case AnyMustPass:
		return evaluateAny(ctx, ordered, in, inv)
	case PriorityFirst:
		return evaluatePriorityFirst(ctx, ordered, in, inv, report)
	default:
		return evaluateAll(ctx, ordered, in, inv)
	}
}

func evaluateAll(ctx context.Context, guards []Guard, in *Input, inv *InvokerRegistry) error {
	var failures []GuardFailure
	for _, g := range guards {
		ok, err := runGuard(ctx, g, in, inv)
		if ok {
			continue
		}
		failure := GuardFailure{Description: g.Description, Priority: g.Priority, Cause: err}
		if g.StopOnFailure {
			return &GuardError{Strategy: AllMustPass, Failures: []GuardFailure{failure}}
		}
		failures = append(failures, failure)
	}
	if len(failures) > 0 {
		return &GuardError{Strategy: AllMustPass, Failures: failures}
	}
	return nil
}

func evaluateAny(ctx context.Context, guards []Guard, in *Input, inv *InvokerRegistry) error {
	var failures []GuardFailure
	for _, g := range guards {
		ok, err := runGuard(ctx, g, in, inv)
		if ok {
			return nil
		}
		failures = append(failures, GuardFailure{Description: g.Description, Priority: g.Priority, Cause: err})
	}
	return &GuardError{Strategy: AnyMustPass, Failures: failures}
}

func evaluatePriorityFirst(ctx context.Context, guards []Guard, in *Input, inv *InvokerRegistry, report ErrorReporter) error {
	var failures []GuardFailure
	for _, g := range guards {
		ok, err := runGuard(ctx, g, in, inv)
		if err != nil {
			if report != nil {
				report(ctx, err)
			}
			failures = append(failures, GuardFailure{Description: g.Description, Priority: g.Priority})
			continue
		}
		if ok {
			return nil
		}
		failures = append(failures, GuardFailure{Description: g.Description, Priority: g.Priority})
	}
	return &GuardError{Strategy: PriorityFirst, Failures: failures}
}

// runGuard invokes a single guard. A bool result carries the verdict; any
// other result, nil included, counts as a pass. An invocation error counts as
// a failed guard with the error preserved.
func runGuard(ctx context.Context, g Guard, in *Input, inv *InvokerRegistry) (bool, error) {
	result, err := inv.Invoke(ctx, g.Callable, in, g.Params)
	if err != nil {
		return false, err
	}
	if verdict, isBool := result.(bool); isBool {
		return verdict, nil
	}
	return true, nil
}
