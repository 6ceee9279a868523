// Package audit stores the durable history of state machine transitions: one
// record per attempt with from/to state, sanitized context snapshot,
// truncated exception text, duration and optional actor identity.
//
// The execution engine produces the record data; this package only persists
// and queries it. Timeline answers "how did this subject's column move over
// time" in ascending timestamp order, optionally bounded by dates.
//
// MemoryStore serves tests and single-process setups; PGStore persists to
// the fsm_transition_log table created by the migrations in pkg/pg.
package audit
