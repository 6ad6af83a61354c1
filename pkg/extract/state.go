package extract

import (
	"sync"
)

// State is where one batch item ended up.
type State int

const (
	StatePending State = iota
	StateDecrypted
	StateExtracted
	StateSoftFailed
	StateMirrored
	StateProbed
	StateSkipped
	StateQueued
	StateTranscoded
)

var stateNames = map[State]string{
	StatePending:    "pending",
	StateDecrypted:  "decrypted",
	StateExtracted:  "extracted",
	StateSoftFailed: "soft_failed",
	StateMirrored:   "mirrored",
	StateProbed:     "probed",
	StateSkipped:    "skipped",
	StateQueued:     "queued",
	StateTranscoded: "transcoded",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Report tracks the state of every item of a batch. It is safe for
// concurrent use.
type Report struct {
	mu     sync.Mutex
	states map[string]State
}

func newReport(names []string) *Report {
	r := &Report{states: make(map[string]State, len(names))}
	for _, name := range names {
		r.states[name] = StatePending
	}
	return r
}

func (r *Report) set(name string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[name] = state
}

// State returns the state of name, or StatePending for an unknown name.
func (r *Report) State(name string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[name]
}

// Count returns how many items are in state.
func (r *Report) Count(state State) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.states {
		if s == state {
			n++
		}
	}
	return n
}

// Counts returns the number of items per state.
func (r *Report) Counts() map[State]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[State]int)
	for _, s := range r.states {
		counts[s]++
	}
	return counts
}

// Len returns the number of items tracked.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
