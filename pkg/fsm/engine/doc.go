// Package engine executes state transitions against compiled definitions.
//
// A transition call moves through a fixed sequence: definition lookup,
// current-state resolution (falling back to the definition's initial state
// for fresh subjects), transition matching with wildcard support, guard
// evaluation under the configured composition strategy, then the write
// window. Inside the window the engine re-reads the persisted state and
// aborts with a concurrent-modification error when it no longer matches the
// value the call started from, runs exit callbacks and before-phase work,
// persists the new state, and runs after-phase work and entry callbacks.
//
// When a Transactor is configured the whole window runs in one host
// transaction, so a failing after-phase operation rolls the state write back.
// Without one, the write sticks even when a later operation fails; hosts that
// need atomicity must supply a Transactor. On-success operations always run
// after the commit, outside any transaction, and their errors are reported
// through the ErrorReporter hook rather than raised.
//
// Queued operations are never executed inline. They are flattened into
// serializable invocations and handed to the Dispatcher after a successful
// commit.
//
//	eng, err := engine.New(registry, store,
//		engine.WithTransactor(engine.NewPGTransactor(pool)),
//		engine.WithAuditRecorder(auditStore),
//		engine.WithEventLog(eventStore),
//	)
//	if err != nil {
//		return err
//	}
//	err = eng.PerformTransition(ctx, order, "status", "paid",
//		engine.WithEvent("pay"),
//		engine.WithContext(map[string]any{"amount": 4200}),
//	)
//
// Dry runs validate the same path, guards included, without mutating state or
// recording history. CanTransition folds undefined moves and guard rejections
// into a boolean verdict.
package engine
