// Package httpapi serves transition history and definition introspection
// over HTTP.
//
// The handler mounts read-only endpoints on a chi router: audit timelines,
// event-log replay/validation/statistics, definition summaries and rendered
// diagrams. Mount it wherever the host application keeps its API:
//
//	r := chi.NewRouter()
//	r.Mount("/fsm", httpapi.NewHandler(
//		httpapi.WithAuditReader(auditStore),
//		httpapi.WithEventLog(eventStore),
//		httpapi.WithDefinitions(registry),
//	).Routes())
package httpapi
