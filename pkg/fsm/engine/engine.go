package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/fsmkit/pkg/fsm"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/audit"
	"github.com/dmitrymomot/fsmkit/pkg/fsm/eventlog"
)

// Engine executes state transitions against compiled definitions. It owns the
// full runtime flow: definition lookup, transition matching, guard
// evaluation, the optimistic-concurrency write window, operation phases and
// history recording. Construct once and share; Engine is safe for concurrent
// use as long as its collaborators are.
type Engine struct {
	source      DefinitionSource
	store       Store
	tx          Transactor
	dispatcher  Dispatcher
	audit       audit.Recorder
	events      eventlog.Store
	invoker     *fsm.InvokerRegistry
	strategy    fsm.GuardStrategy
	sanitizer   *Sanitizer
	logFailures bool
	log         *slog.Logger
	report      fsm.ErrorReporter
	now         func() time.Time
}

// New builds an engine around the definition source and persistence store.
// Everything else is optional: without a Transactor the write window runs
// unwrapped, without a Dispatcher queued operations are skipped with a
// warning.
func New(source DefinitionSource, store Store, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, errors.New("engine: definition source cannot be nil")
	}
	if store == nil {
		return nil, errors.New("engine: store cannot be nil")
	}
	e := &Engine{
		source:      source,
		store:       store,
		invoker:     fsm.NewInvokerRegistry(),
		strategy:    fsm.AllMustPass,
		sanitizer:   NewSanitizer(nil, DefaultTruncateLimit),
		logFailures: true,
		log:         slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Invoker exposes the callable registry so hosts and workers register named
// guards, actions and callbacks against the same dispatch table the engine
// resolves through.
func (e *Engine) Invoker() *fsm.InvokerRegistry {
	return e.invoker
}

// PerformTransition moves the subject's column to the target state, running
// the full guarded, transactional, history-recording flow.
func (e *Engine) PerformTransition(ctx context.Context, subject Subject, column, to string, opts ...TransitionOption) error {
	return e.perform(ctx, subject, column, to, fsm.ModeNormal, applyCallOptions(opts))
}

// DryRunTransition validates the move without mutating state, running
// operations or recording history. Guards run for real; a nil return means
// the transition would be allowed.
func (e *Engine) DryRunTransition(ctx context.Context, subject Subject, column, to string, opts ...TransitionOption) error {
	return e.perform(ctx, subject, column, to, fsm.ModeDryRun, applyCallOptions(opts))
}

// CanTransition reports whether the move would be allowed. Undefined moves
// and guard rejections yield (false, nil); a missing definition or a guard
// infrastructure error is returned as an error.
func (e *Engine) CanTransition(ctx context.Context, subject Subject, column, to string, opts ...TransitionOption) (bool, error) {
	err := e.perform(ctx, subject, column, to, fsm.ModeDryRun, applyCallOptions(opts))
	switch {
	case err == nil:
		return true, nil
	case fsm.IsNoTransition(err) || fsm.IsGuardRejected(err):
		return false, nil
	default:
		return false, err
	}
}

func applyCallOptions(opts []TransitionOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (e *Engine) perform(ctx context.Context, subject Subject, column, to string, mode fsm.Mode, opt callOptions) error {
	started := e.now()

	def, err := e.source.Definition(ctx, subject.EntityType(), column)
	if err != nil {
		return err
	}

	current, hadState := subject.StateOf(column)
	if strings.TrimSpace(current) == "" {
		hadState = false
		current = def.InitialState
	}

	in := e.buildInput(subject, def, column, current, to, mode, opt, started)

	tr, found := def.FindTransition(current, to, opt.event)
	if !found {
		terr := e.fail(in, "no matching transition", &fsm.NoTransitionError{From: current, To: to, Event: opt.event})
		e.recordFailure(ctx, in, opt, terr, started)
		return terr
	}

	if mode != fsm.ModeForced && !opt.forced {
		if gerr := fsm.EvaluateGuards(ctx, e.strategy, tr.Guards, in, e.invoker, e.report); gerr != nil {
			terr := e.fail(in, "guards rejected transition", gerr)
			e.recordFailure(ctx, in, opt, terr, started)
			return terr
		}
	}

	if in.IsDryRun() {
		if !opt.silent {
			e.log.DebugContext(ctx, "transition attempted", transitionAttrs(in)...)
		}
		return nil
	}

	before, after, success, failure := collectPhases(def, tr, current)
	var queued []fsm.Invocation
	wrote := false

	commit := func(txCtx context.Context) error {
		persisted, rerr := e.store.ReadState(txCtx, subject, column)
		if rerr != nil {
			return fmt.Errorf("read persisted state: %w", rerr)
		}
		if persisted != "" && !sameState(persisted, current) {
			return &fsm.ConcurrentModificationError{
				EntityType: in.EntityType,
				Column:     column,
				Expected:   current,
				Actual:     persisted,
			}
		}
		if perr := e.runPhase(txCtx, in, before, &queued); perr != nil {
			return perr
		}
		if werr := e.store.WriteState(txCtx, subject, column, tr.To); werr != nil {
			return fmt.Errorf("write state: %w", werr)
		}
		subject.SetState(column, tr.To)
		wrote = true
		return e.runPhase(txCtx, in, after, &queued)
	}

	var cerr error
	if e.tx != nil {
		cerr = e.tx.WithinTransaction(ctx, commit)
		if cerr != nil && wrote {
			// transaction rolled back; undo the in-memory field too
			subject.SetState(column, current)
		}
	} else {
		cerr = commit(ctx)
	}

	if cerr != nil {
		e.runSideOps(ctx, in, failure)
		terr := e.fail(in, failureReason(cerr), cerr)
		e.recordFailure(ctx, in, opt, terr, started)
		return terr
	}

	e.runSideOps(ctx, in, success)
	e.dispatchQueued(ctx, in, queued)
	e.recordSuccess(ctx, in, opt, hadState, started)
	return nil
}

func (e *Engine) buildInput(subject Subject, def *fsm.RuntimeDefinition, column, from, to string, mode fsm.Mode, opt callOptions, started time.Time) *fsm.Input {
	contextType := opt.contextType
	if contextType == "" {
		contextType = def.ContextType
	}
	source := opt.source
	if source == "" {
		source = fsm.SourceUser
	}
	if mode == fsm.ModeNormal {
		switch {
		case opt.forced:
			mode = fsm.ModeForced
		case opt.silent:
			mode = fsm.ModeSilent
		}
	}
	return &fsm.Input{
		Subject:     subject,
		EntityType:  subject.EntityType(),
		SubjectID:   subject.PrimaryKey(),
		Column:      column,
		From:        from,
		To:          to,
		Event:       opt.event,
		Context:     opt.context,
		ContextType: contextType,
		Mode:        mode,
		Source:      source,
		Metadata:    opt.metadata,
		OccurredAt:  started,
	}
}

// fail wraps any runtime failure into the single transition error funnel,
// keeping the typed cause reachable through errors.As.
func (e *Engine) fail(in *fsm.Input, reason string, cause error) error {
	return &fsm.TransitionError{
		Reason:     reason,
		EntityType: in.EntityType,
		Column:     in.Column,
		From:       in.From,
		To:         in.To,
		Cause:      cause,
	}
}

func failureReason(err error) string {
	switch {
	case fsm.IsConcurrentModification(err):
		return "concurrent modification detected"
	case fsm.IsOperationFailed(err):
		return "operation failed"
	default:
		return "transition failed"
	}
}

// phasedOp pairs an operation with its reporting kind: transition actions
// report as actions, everything else as callbacks.
type phasedOp struct {
	op   fsm.Operation
	kind fsm.OperationKind
}

// collectPhases splits the work attached to a transition into execution
// phases. Before runs the current state's exit callbacks first, then the
// transition's before-phase work; after runs the transition's after-phase
// work, then the target state's entry callbacks. The current state is passed
// explicitly because wildcard transitions declare "*" as their source. Within
// each phase higher priority runs first, ties keep definition order.
func collectPhases(def *fsm.RuntimeDefinition, tr fsm.TransitionDefinition, current string) (before, after, success, failure []phasedOp) {
	if from, ok := def.State(current); ok {
		for _, op := range from.OnExit {
			before = append(before, phasedOp{op: op, kind: fsm.KindCallback})
		}
	}
	split := func(ops []fsm.Operation, kind fsm.OperationKind) {
		for _, op := range ops {
			p := phasedOp{op: op, kind: kind}
			switch op.Timing {
			case fsm.TimingBefore:
				before = append(before, p)
			case fsm.TimingOnSuccess:
				success = append(success, p)
			case fsm.TimingOnFailure:
				failure = append(failure, p)
			default:
				after = append(after, p)
			}
		}
	}
	split(tr.Actions, fsm.KindAction)
	split(tr.Callbacks, fsm.KindCallback)
	if to, ok := def.State(tr.To); ok {
		for _, op := range to.OnEntry {
			after = append(after, phasedOp{op: op, kind: fsm.KindCallback})
		}
	}
	for _, phase := range [][]phasedOp{before, after, success, failure} {
		sort.SliceStable(phase, func(i, j int) bool {
			return phase[i].op.Priority > phase[j].op.Priority
		})
	}
	return before, after, success, failure
}

// runPhase executes a phase inline, diverting queued operations to the queue
// list. The first failing operation aborts the phase.
func (e *Engine) runPhase(ctx context.Context, in *fsm.Input, ops []phasedOp, queued *[]fsm.Invocation) error {
	for _, p := range ops {
		if p.op.Queued {
			name, ok := p.op.Callable.Ref()
			if !ok {
				e.log.WarnContext(ctx, "queued operation requires a named callable, skipping",
					slog.String("operation", p.op.Name))
				continue
			}
			*queued = append(*queued, in.Flatten(name, p.op.Params, p.op.Priority))
			continue
		}
		if _, err := e.invoker.Invoke(ctx, p.op.Callable, in, p.op.Params); err != nil {
			return &fsm.OperationError{Kind: p.kind, Name: operationName(p.op), Timing: p.op.Timing, Cause: err}
		}
	}
	return nil
}

// runSideOps executes on-success and on-failure operations. Their errors are
// reported, never raised: the transition outcome is already decided.
func (e *Engine) runSideOps(ctx context.Context, in *fsm.Input, ops []phasedOp) {
	for _, p := range ops {
		if p.op.Queued {
			name, ok := p.op.Callable.Ref()
			if !ok {
				continue
			}
			e.dispatchQueued(ctx, in, []fsm.Invocation{in.Flatten(name, p.op.Params, p.op.Priority)})
			continue
		}
		if _, err := e.invoker.Invoke(ctx, p.op.Callable, in, p.op.Params); err != nil {
			e.reportErr(ctx, &fsm.OperationError{Kind: p.kind, Name: operationName(p.op), Timing: p.op.Timing, Cause: err})
		}
	}
}

func (e *Engine) dispatchQueued(ctx context.Context, in *fsm.Input, invocations []fsm.Invocation) {
	if len(invocations) == 0 {
		return
	}
	if e.dispatcher == nil {
		e.log.WarnContext(ctx, "queued operations dropped: no dispatcher configured",
			slog.Int("count", len(invocations)),
			slog.String("entity_type", in.EntityType))
		return
	}
	for _, inv := range invocations {
		if err := e.dispatcher.Dispatch(ctx, inv); err != nil {
			e.log.WarnContext(ctx, "queued operation dispatch failed",
				slog.String("callable", inv.Callable),
				slog.Any("error", err))
			e.reportErr(ctx, err)
		}
	}
}

func (e *Engine) recordSuccess(ctx context.Context, in *fsm.Input, opt callOptions, hadState bool, started time.Time) {
	if opt.silent || in.Mode == fsm.ModeSilent {
		return
	}
	sctx := e.sanitizer.Sanitize(in.Context)
	e.log.InfoContext(ctx, "state transition completed", transitionAttrs(in)...)

	if e.audit != nil {
		rec := audit.Record{
			ID:          uuid.NewString(),
			SubjectID:   in.SubjectID,
			SubjectType: in.EntityType,
			Column:      in.Column,
			FromState:   in.From,
			ToState:     in.To,
			Transition:  in.Event,
			Result:      audit.ResultSuccess,
			Context:     sctx,
			DurationMS:  e.now().Sub(started).Milliseconds(),
			ActorID:     opt.actorID,
			ActorType:   opt.actorType,
			CreatedAt:   e.now(),
		}
		if err := e.audit.Record(ctx, rec); err != nil {
			e.log.WarnContext(ctx, "audit record failed", slog.Any("error", err))
			e.reportErr(ctx, err)
		}
	}

	if e.events != nil {
		rec := eventlog.Record{
			ModelType:  in.EntityType,
			ModelID:    in.SubjectID,
			Column:     in.Column,
			ToState:    in.To,
			Transition: in.Event,
			Context:    sctx,
			Metadata:   e.sanitizer.Sanitize(in.Metadata),
			OccurredAt: in.OccurredAt,
		}
		if hadState {
			from := in.From
			rec.FromState = &from
		}
		if err := e.events.Append(ctx, rec); err != nil {
			e.log.WarnContext(ctx, "event log append failed", slog.Any("error", err))
			e.reportErr(ctx, err)
		}
	}
}

func (e *Engine) recordFailure(ctx context.Context, in *fsm.Input, opt callOptions, err error, started time.Time) {
	if in.IsDryRun() || opt.silent || in.Mode == fsm.ModeSilent {
		return
	}
	e.log.ErrorContext(ctx, "state transition failed", append(transitionAttrs(in), slog.Any("error", err))...)

	if e.audit == nil || !e.logFailures {
		return
	}
	rec := audit.Record{
		ID:          uuid.NewString(),
		SubjectID:   in.SubjectID,
		SubjectType: in.EntityType,
		Column:      in.Column,
		FromState:   in.From,
		ToState:     in.To,
		Transition:  in.Event,
		Result:      audit.ResultFailure,
		Context:     e.sanitizer.Sanitize(in.Context),
		Exception:   e.sanitizer.Truncate(err.Error()),
		DurationMS:  e.now().Sub(started).Milliseconds(),
		ActorID:     opt.actorID,
		ActorType:   opt.actorType,
		CreatedAt:   e.now(),
	}
	if aerr := e.audit.Record(ctx, rec); aerr != nil {
		e.log.WarnContext(ctx, "audit record failed", slog.Any("error", aerr))
		e.reportErr(ctx, aerr)
	}
}

func (e *Engine) reportErr(ctx context.Context, err error) {
	if e.report != nil {
		e.report(ctx, err)
	}
}

func transitionAttrs(in *fsm.Input) []any {
	return []any{
		slog.String("entity_type", in.EntityType),
		slog.String("subject_id", in.SubjectID),
		slog.String("column", in.Column),
		slog.String("from_state", in.From),
		slog.String("to_state", in.To),
		slog.String("event", in.Event),
		slog.String("mode", string(in.Mode)),
		slog.String("source", string(in.Source)),
	}
}

func operationName(op fsm.Operation) string {
	if op.Name != "" {
		return op.Name
	}
	if name, ok := op.Callable.Ref(); ok {
		return name
	}
	return ""
}

func sameState(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
