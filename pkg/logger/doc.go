// Package logger provides a context-aware wrapper around Go's slog package
// adding functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// The package standardises structured logging across the toolkit through a
// single factory – New – that creates a *slog.Logger configured by a set of
// Option functions. These options allow you to:
//
//   - Select an output format (text or json)
//   - Set the minimum log level
//   - Supply default slog.Attr values applied to every record
//   - Register ContextExtractor callbacks that inject attributes pulled from a
//     context value (for example a request id) every time Handle is invoked.
//
// # Architecture
//
// New determines the concrete slog.Handler implementation –
// slog.NewTextHandler or slog.NewJSONHandler – based on the configured
// Format, then wraps it with LogHandlerDecorator which executes any
// registered ContextExtractor callbacks before delegating to the underlying
// handler.
//
// Helper constructors in attr.go return the attributes used throughout the
// state machine packages – EntityType, SubjectID, Column, FromState, ToState,
// Transition – keeping attribute naming consistent across log lines, so
// transition telemetry from the engine and the dispatch workers can be
// correlated in aggregation systems.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithProduction("orders-api"),
//	    logger.WithContextValue("request_id", ctxKeyRequestID),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "state transition completed",
//	    logger.EntityType("order"),
//	    logger.SubjectID(42),
//	    logger.Column("status"),
//	    logger.FromState("pending"),
//	    logger.ToState("paid"),
//	)
//
// # Error Handling
//
// Helper functions Error and Errors produce attributes only when the supplied
// error value is non-nil allowing calls like:
//
//	log.Info("operation succeeded", logger.Error(err))
//
// without an additional nil check.
package logger
