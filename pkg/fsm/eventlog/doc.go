// Package eventlog records every successful state machine transition for
// replay, validation and statistics.
//
// Unlike the audit log, which is a per-attempt operational history, the
// event log is an append-only stream of committed state changes. Replay
// reduces a stream to its endpoints, Validate checks that the chain is
// unbroken (each from_state matches the previous to_state), and Stats counts
// state and transition frequencies.
package eventlog
