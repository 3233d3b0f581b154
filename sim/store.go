package sim

import "sync"

// A Store owns the simulated state of every signal: the committed value that
// all reads observe, and the pending value queued by writes during the
// current delta cycle. The store is the single shared mutable resource of a
// simulation; processes interact with it only through reads, writes, and
// trigger registration. The mutex only protects against outside readers such
// as the monitor; the simulation itself is single-threaded.
type Store struct {
	mu     sync.RWMutex
	states map[*Signal]*signalState

	// dirty keeps the write order of the current delta cycle so that commit
	// iteration, and everything observing it, is deterministic.
	dirty []*Signal
}

type signalState struct {
	committed uint64
	pending   uint64
	dirty     bool
	triggers  []trigger
}

type trigger struct {
	proc Process
	cond Condition
}

// NewStore creates a store holding one state per signal, initialized to the
// signals' reset values.
func NewStore(signals []*Signal) *Store {
	st := &Store{
		states: make(map[*Signal]*signalState, len(signals)),
	}

	for _, s := range signals {
		if _, ok := st.states[s]; ok {
			panic("signal " + s.Name() + " registered twice")
		}
		st.states[s] = &signalState{committed: s.reset, pending: s.reset}
	}

	return st
}

// Has reports whether the signal is owned by this store.
func (st *Store) Has(s *Signal) bool {
	_, ok := st.states[s]
	return ok
}

// Read returns the committed value of the signal.
func (st *Store) Read(s *Signal) uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.mustState(s).committed
}

// Write queues a pending value for the signal, overwriting any earlier
// pending write in the same delta cycle. The value is truncated to the
// signal's width.
func (st *Store) Write(s *Signal, v uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()

	state := st.mustState(s)
	state.pending = v & s.mask()

	if !state.dirty {
		state.dirty = true
		st.dirty = append(st.dirty, s)
	}
}

// AddTrigger registers the process's interest in the signal. A process holds
// at most one trigger per signal; re-registering replaces the condition.
func (st *Store) AddTrigger(proc Process, s *Signal, cond Condition) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	state, ok := st.states[s]
	if !ok {
		return &UnknownSignalError{Signal: s}
	}

	for i, t := range state.triggers {
		if t.proc == proc {
			state.triggers[i].cond = cond
			return nil
		}
	}

	state.triggers = append(state.triggers, trigger{proc: proc, cond: cond})

	return nil
}

// RemoveTrigger unregisters the process's trigger on the signal. It is a
// no-op if there is none.
func (st *Store) RemoveTrigger(proc Process, s *Signal) {
	st.mu.Lock()
	defer st.mu.Unlock()

	state, ok := st.states[s]
	if !ok {
		return
	}

	for i, t := range state.triggers {
		if t.proc == proc {
			state.triggers = append(
				state.triggers[:i], state.triggers[i+1:]...)
			return
		}
	}
}

// Commit applies all pending writes and returns the changes, in write order.
// Signals whose pending value equals their committed value are skipped. The
// commit only compares each signal's own pending and committed values, so the
// result cannot depend on the order in which dirty signals are visited.
func (st *Store) Commit(now VTime) []SignalChange {
	st.mu.Lock()
	defer st.mu.Unlock()

	changes := make([]SignalChange, 0, len(st.dirty))

	for _, s := range st.dirty {
		state := st.states[s]
		state.dirty = false

		if state.pending == state.committed {
			continue
		}

		changes = append(changes, SignalChange{
			Signal: s,
			Time:   now,
			Old:    state.committed,
			New:    state.pending,
		})
		state.committed = state.pending
	}

	st.dirty = st.dirty[:0]

	return changes
}

// Wake returns the processes whose trigger condition is met by the change, in
// trigger registration order, and clears the fired single-shot triggers.
// Level-style triggers stay registered.
func (st *Store) Wake(ch SignalChange) []Process {
	st.mu.Lock()
	defer st.mu.Unlock()

	state := st.mustState(ch.Signal)

	woken := make([]Process, 0, len(state.triggers))
	kept := state.triggers[:0]

	for _, t := range state.triggers {
		if !t.cond.matches(ch.Old, ch.New) {
			kept = append(kept, t)
			continue
		}

		woken = append(woken, t.proc)
		if !t.cond.singleShot() {
			kept = append(kept, t)
		}
	}
	state.triggers = kept

	return woken
}

// Reset restores every signal to its reset value and drops all pending
// writes and triggers.
func (st *Store) Reset() {
	st.mu.Lock()
	defer st.mu.Unlock()

	for s, state := range st.states {
		state.committed = s.reset
		state.pending = s.reset
		state.dirty = false
		state.triggers = nil
	}
	st.dirty = st.dirty[:0]
}

func (st *Store) mustState(s *Signal) *signalState {
	state, ok := st.states[s]
	if !ok {
		panic(&UnknownSignalError{Signal: s})
	}
	return state
}
