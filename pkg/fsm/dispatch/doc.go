// Package dispatch executes queued transition operations asynchronously.
//
// Operations marked Queued never run inline: the engine flattens them into
// serializable invocations (named callable, static params, transition input
// with the subject replaced by its entity type and id) and hands them to a
// Dispatcher. The Enqueuer here is that dispatcher: it stores invocations as
// pending tasks. A Worker pulls due tasks, re-resolves the subject through
// the host's SubjectResolver and re-invokes the callable against the shared
// invoker registry.
//
// A subject deleted between enqueue and execution is not an error. The worker
// logs a warning and marks the task skipped. Failing invocations retry with
// linear backoff up to the task's retry budget, then stay failed for
// inspection.
//
//	enq, _ := dispatch.NewEnqueuer(storage)
//	eng, _ := engine.New(reg, store, engine.WithDispatcher(enq))
//
//	worker, _ := dispatch.NewWorker(storage, eng.Invoker(), resolver)
//	g.Go(worker.Run(ctx))
package dispatch
