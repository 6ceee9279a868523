package fsm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoStateContext indicates a state-scoped setter was called without an
	// active state context. Programmer error at definition-build time.
	ErrNoStateContext = errors.New("state configuration requires an active state context")

	// ErrNoTransitionContext indicates a transition-scoped setter (guard,
	// action, event, callback) was called before From/To opened a transition.
	ErrNoTransitionContext = errors.New("transition configuration requires an active transition context")

	// ErrEmptyEntityType and ErrEmptyColumn guard builder construction.
	ErrEmptyEntityType = errors.New("entity type cannot be empty")
	ErrEmptyColumn     = errors.New("column cannot be empty")

	ErrEmptyCallableName     = errors.New("callable name cannot be empty")
	ErrNilCallable           = errors.New("callable references nothing")
	ErrCallableNotRegistered = errors.New("callable is not registered")
)

// DefinitionNotFoundError indicates no runtime definition exists for the
// requested (entity type, column) pair. This is a misconfiguration and is
// always surfaced, never swallowed.
type DefinitionNotFoundError struct {
	EntityType string
	Column     string
}

func (e *DefinitionNotFoundError) Error() string {
	return fmt.Sprintf("no state machine definition for %s:%s", e.EntityType, e.Column)
}

// NoTransitionError indicates the definition has no transition, wildcard
// included, matching the requested move. Expected and recoverable: the caller
// asked for an invalid move.
type NoTransitionError struct {
	From  string
	To    string
	Event string
}

func (e *NoTransitionError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("no transition defined from %q to %q on event %q", e.From, e.To, e.Event)
	}
	return fmt.Sprintf("no transition defined from %q to %q", e.From, e.To)
}

// GuardFailure captures a single rejected guard.
type GuardFailure struct {
	Description string
	Priority    int
	Cause       error
}

func (f GuardFailure) String() string {
	desc := f.Description
	if desc == "" {
		desc = "unnamed guard"
	}
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", desc, f.Cause)
	}
	return desc
}

// GuardError aggregates the guard failures that rejected a transition.
type GuardError struct {
	Strategy GuardStrategy
	Failures []GuardFailure
}

func (e *GuardError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("transition rejected by %s guard evaluation", e.Strategy)
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return "transition rejected by guards: " + strings.Join(parts, "; ")
}

// Unwrap exposes preserved guard exceptions to errors.Is/errors.As chains.
func (e *GuardError) Unwrap() []error {
	var errs []error
	for _, f := range e.Failures {
		if f.Cause != nil {
			errs = append(errs, f.Cause)
		}
	}
	return errs
}

// OperationKind distinguishes transition actions from state/transition callbacks
// in failure reports.
type OperationKind string

const (
	KindAction   OperationKind = "action"
	KindCallback OperationKind = "callback"
)

// OperationError wraps a failure thrown by an action or callback, carrying the
// timing phase it occurred in.
type OperationError struct {
	Kind   OperationKind
	Name   string
	Timing Timing
	Cause  error
}

func (e *OperationError) Error() string {
	name := e.Name
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("%s %q failed during %s phase: %v", e.Kind, name, e.Timing, e.Cause)
}

func (e *OperationError) Unwrap() error { return e.Cause }

// ConcurrentModificationError indicates the persisted state changed between
// the initial read and the guarded write. Recoverable by caller retry.
type ConcurrentModificationError struct {
	EntityType string
	Column     string
	Expected   string
	Actual     string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification of %s:%s detected: expected state %q, found %q",
		e.EntityType, e.Column, e.Expected, e.Actual)
}

// TransitionError is the single funnel for all runtime transition failures.
// Guard, action, callback and concurrency errors are wrapped into it so call
// sites can catch-and-log uniformly while still reaching the typed cause
// through errors.As.
type TransitionError struct {
	Reason     string
	EntityType string
	Column     string
	From       string
	To         string
	Cause      error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("transition %s:%s %q -> %q failed: %s", e.EntityType, e.Column, e.From, e.To, e.Reason)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return e.Cause }

// IsDefinitionNotFound reports whether err stems from a missing definition.
func IsDefinitionNotFound(err error) bool {
	var e *DefinitionNotFoundError
	return errors.As(err, &e)
}

// IsNoTransition reports whether err stems from an undefined move.
func IsNoTransition(err error) bool {
	var e *NoTransitionError
	return errors.As(err, &e)
}

// IsGuardRejected reports whether err stems from guard evaluation.
func IsGuardRejected(err error) bool {
	var e *GuardError
	return errors.As(err, &e)
}

// IsOperationFailed reports whether err stems from an action or callback.
func IsOperationFailed(err error) bool {
	var e *OperationError
	return errors.As(err, &e)
}

// IsConcurrentModification reports whether err stems from the optimistic
// concurrency check.
func IsConcurrentModification(err error) bool {
	var e *ConcurrentModificationError
	return errors.As(err, &e)
}
