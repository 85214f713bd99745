/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

// State is a step of a migration run.
//
// A successful run goes through Idle, Locking, ResolvingVersion, Planning, then either NoOp or
// Executing and Persisting, and finally Unlocking and Done.
// Any failure after the lock is acquired leads to Unlocking and then Failed.
// A failure to acquire the lock leads to Failed directly.
type State int

// Migration run states.
const (
	StateIdle State = iota
	StateLocking
	StateResolvingVersion
	StatePlanning
	StateNoOp
	StateExecuting
	StatePersisting
	StateUnlocking
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateLocking:          "locking",
	StateResolvingVersion: "resolving_version",
	StatePlanning:         "planning",
	StateNoOp:             "noop",
	StateExecuting:        "executing",
	StatePersisting:       "persisting",
	StateUnlocking:        "unlocking",
	StateDone:             "done",
	StateFailed:           "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StateObserver is notified about every state transition of a migration run.
type StateObserver func(from, to State)
