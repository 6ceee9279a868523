package engine

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/audit"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/eventlog"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithTransactor wraps the write window of every transition in a host
// transaction. Without it, writes and after-actions run unwrapped and a
// failing after-action leaves the already persisted state in place.
func WithTransactor(tx Transactor) Option {
	return func(e *Engine) { e.tx = tx }
}

// WithAuditRecorder persists per-attempt transition history.
func WithAuditRecorder(rec audit.Recorder) Option {
	return func(e *Engine) { e.audit = rec }
}

// WithEventLog appends committed transitions to the event stream.
func WithEventLog(store eventlog.Store) Option {
	return func(e *Engine) { e.events = store }
}

// WithDispatcher enables queued operations. Without a dispatcher, queued
// operations are skipped with a warning.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatcher = d }
}

// WithInvokerRegistry sets the registry resolving named callable references.
func WithInvokerRegistry(inv *fsm.InvokerRegistry) Option {
	return func(e *Engine) { e.invoker = inv }
}

// WithGuardStrategy sets the default guard composition strategy.
func WithGuardStrategy(s fsm.GuardStrategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithSanitizer sets the context sanitizer applied before any context map
// reaches logs or audit storage.
func WithSanitizer(s *Sanitizer) Option {
	return func(e *Engine) {
		if s != nil {
			e.sanitizer = s
		}
	}
}

// WithFailureAudit controls whether failed attempts are persisted to the
// audit log. Successful transitions are always recorded; failures default to
// recorded too.
func WithFailureAudit(enabled bool) Option {
	return func(e *Engine) { e.logFailures = enabled }
}

// WithLogger sets the structured logger for transition telemetry.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithErrorReporter sets the hook receiving errors the engine swallows:
// guard errors under the priority-first strategy, on-success and on-failure
// operation errors, and telemetry persistence failures.
func WithErrorReporter(report fsm.ErrorReporter) Option {
	return func(e *Engine) { e.report = report }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// TransitionOption customizes a single transition call.
type TransitionOption func(*callOptions)

type callOptions struct {
	event       string
	context     map[string]any
	contextType string
	metadata    map[string]any
	source      fsm.Source
	actorID     string
	actorType   string
	forced      bool
	silent      bool
}

// WithEvent addresses the transition by event name instead of target state
// alone.
func WithEvent(event string) TransitionOption {
	return func(o *callOptions) { o.event = event }
}

// WithContext attaches the per-call context payload passed to guards, actions
// and callbacks.
func WithContext(context map[string]any) TransitionOption {
	return func(o *callOptions) { o.context = context }
}

// WithContextType tags the context payload, overriding the definition's
// declared context type.
func WithContextType(tag string) TransitionOption {
	return func(o *callOptions) { o.contextType = tag }
}

// WithMetadata attaches free-form metadata recorded alongside the transition.
func WithMetadata(metadata map[string]any) TransitionOption {
	return func(o *callOptions) { o.metadata = metadata }
}

// WithSource records who initiated the transition.
func WithSource(source fsm.Source) TransitionOption {
	return func(o *callOptions) { o.source = source }
}

// WithActor records the acting principal for the audit trail.
func WithActor(id, actorType string) TransitionOption {
	return func(o *callOptions) {
		o.actorID = id
		o.actorType = actorType
	}
}

// Forced bypasses guard evaluation. Actions, callbacks and history still run.
func Forced() TransitionOption {
	return func(o *callOptions) { o.forced = true }
}

// Silent suppresses telemetry for the call: no log lines, no audit record, no
// event log append. The state change itself is still persisted.
func Silent() TransitionOption {
	return func(o *callOptions) { o.silent = true }
}
