package fsm

import "strings"

// Any is the wildcard matcher for transition source states and events.
// A transition with From == Any applies from every state; a transition with
// Event == Any fires regardless of the requested event name.
const Any = "*"

// Timing controls when an action or callback runs relative to the state write.
type Timing string

const (
	// TimingBefore runs prior to persisting the new state, inside the
	// transactional window when one is active.
	TimingBefore Timing = "before"
	// TimingAfter runs after the state write, still inside the transactional
	// window when one is active.
	TimingAfter Timing = "after"
	// TimingOnSuccess runs after a successful commit, outside the transaction.
	TimingOnSuccess Timing = "on_success"
	// TimingOnFailure runs when the transition fails at any stage.
	TimingOnFailure Timing = "on_failure"
)

// Valid reports whether t is one of the defined timings.
func (t Timing) Valid() bool {
	switch t {
	case TimingBefore, TimingAfter, TimingOnSuccess, TimingOnFailure:
		return true
	}
	return false
}

// Mode describes how a transition call is executed.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeDryRun Mode = "dry_run"
	ModeForced Mode = "forced"
	ModeSilent Mode = "silent"
)

// Source tags who or what initiated a transition.
type Source string

const (
	SourceUser      Source = "user"
	SourceSystem    Source = "system"
	SourceAPI       Source = "api"
	SourceScheduler Source = "scheduler"
	SourceMigration Source = "migration"
)

// normalizeName canonicalizes state, event and column names for identity
// comparison. Definitions keep the original spelling; only comparisons and
// map keys use the normalized form.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
