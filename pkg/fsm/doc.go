// Package fsm provides the definition model of a finite-state-machine engine
// for stateful application entities: states, guarded transitions, actions and
// callbacks, assembled through a fluent builder and compiled into immutable
// runtime definitions.
//
// One definition governs a single state-bearing field ("column") of one
// entity type. A subject may carry several independent columns, each with its
// own definition. The compiled RuntimeDefinition is the only form the
// execution engine (pkg/fsm/engine) consults.
//
// # Building a definition
//
//	def, err := fsm.New("order", "status").
//	    State("pending", func(s *fsm.StateBuilder) {
//	        s.Describe("awaiting payment").Category("open")
//	    }).
//	    State("paid").
//	    State("cancelled", func(s *fsm.StateBuilder) { s.Terminal() }).
//	    Initial("pending").
//	    From("pending").To("paid").On("pay").
//	    Guard(fsm.GuardFunc(hasBalance).WithDescription("balance covers total")).
//	    After(fsm.OperationFunc(sendReceipt).WithName("send_receipt")).
//	    FromAny().To("cancelled").On("cancel").
//	    Build()
//
// Starting a new From while a transition is in progress finalizes the
// previous one; Build finalizes the last. Defining a transition twice with
// the same (from, to, event) key replaces the earlier definition.
//
// # Callables
//
// Guards, actions and callbacks reference code either as inline closures
// (fsm.Closure, fsm.GuardFunc, fsm.OperationFunc) or as named references
// (fsm.Ref) resolved through an InvokerRegistry. Only named references can be
// serialized, so queued operations and cacheable definitions must use them.
//
// # Guard composition
//
// EvaluateGuards combines guards under one of three strategies: AllMustPass
// (the default, with stop-on-failure short-circuiting), AnyMustPass and
// PriorityFirst. Failures aggregate into *GuardError.
//
// # Extensions and overrides
//
// ExtensionRegistry merges base definitions with named, prioritized
// extensions before compilation. Extensions mutate builders through a typed
// hook; standalone state and transition overrides are typed patch structs,
// loadable from a YAML declaration file, applied in descending priority order
// with "override" replacing and "add" merging.
//
// # Errors
//
// Definition-time misuse (transition setters outside an open transition)
// surfaces as ErrNoTransitionContext at Build. Runtime failures are typed —
// DefinitionNotFoundError, NoTransitionError, GuardError, OperationError,
// ConcurrentModificationError — and funnel through TransitionError at the
// engine boundary. Helper predicates (IsGuardRejected, IsNoTransition, ...)
// classify wrapped errors.
package fsm
