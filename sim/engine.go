package sim

import (
	"sync"

	"github.com/pkg/errors"
)

// An Engine owns one elaborated circuit and drives it through simulated time:
// it registers processes, runs delta cycles to convergence for each instant,
// and advances the timeline to the next scheduled instant. Hooks attached to
// the engine observe every committed change, every settled instant, and
// every time advance.
type Engine struct {
	*HookableBase

	fragment *Fragment
	nameMap  *NameMap
	store    *Store
	timeline *Timeline
	core     *core

	processes []Process
	started   bool

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex
}

// A Builder can be used to build an engine.
type Builder struct {
	fragment   *Fragment
	deltaLimit int
}

// MakeBuilder creates a new builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		deltaLimit: 1000,
	}
}

// WithFragment sets the circuit to simulate.
func (b Builder) WithFragment(f *Fragment) Builder {
	b.fragment = f
	return b
}

// WithDeltaLimit sets the number of delta cycles an instant may take before
// the engine reports combinational non-convergence. The right bound is
// circuit-dependent; the default is 1000.
func (b Builder) WithDeltaLimit(limit int) Builder {
	b.deltaLimit = limit
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.fragment == nil {
		panic("an engine needs a fragment to simulate")
	}
	if b.deltaLimit < 1 {
		panic("the delta cycle limit must be positive")
	}
}

// Build builds the engine. The fragment's signal states are created here;
// the fragment's processes are registered and start runnable at the first
// instant.
func (b Builder) Build() *Engine {
	b.parametersMustBeValid()

	e := &Engine{
		HookableBase: NewHookableBase(),
		fragment:     b.fragment,
		nameMap:      ResolveNames(b.fragment),
		timeline:     NewTimeline(),
	}
	e.store = NewStore(e.nameMap.Signals())
	e.core = newCore(e.store, e.timeline, e, e.HookableBase, b.deltaLimit)

	for _, p := range collectProcesses(b.fragment, nil) {
		e.AddProcess(p)
	}

	return e
}

func collectProcesses(f *Fragment, acc []Process) []Process {
	acc = append(acc, f.Processes...)
	for _, sub := range f.Subs {
		acc = collectProcesses(sub, acc)
	}
	return acc
}

// AddProcess registers a behavioral process. It begins in the runnable set
// for the current instant.
func (e *Engine) AddProcess(p Process) {
	e.processes = append(e.processes, p)
	e.core.makeRunnable(p)
}

// AddClockProcess registers a synthetic process that toggles the signal
// forever, first at phase, then every period thereafter. The signal's reset
// value decides the level before the first toggle. The period must be
// positive and the signal must belong to the simulated circuit.
func (e *Engine) AddClockProcess(s *Signal, phase, period VTime) error {
	if !e.store.Has(s) {
		return &UnknownSignalError{Signal: s}
	}
	if period == 0 {
		return errors.New("a clock period must be positive")
	}

	e.AddProcess(&clockProcess{signal: s, phase: phase, period: period})

	return nil
}

// Now returns the current simulated time. The second return value is false
// if the simulation has never been advanced.
func (e *Engine) Now() (VTime, bool) {
	if !e.started {
		return 0, false
	}
	return e.timeline.now(), true
}

// Advance runs the simulation core to settlement for the current instant and
// then moves simulated time to the next scheduled instant, making the
// processes due at it runnable. It returns false when the timeline holds no
// further events, which tells the caller the simulation is exhausted. A
// non-settling instant surfaces as a NonConvergenceError.
func (e *Engine) Advance() (bool, error) {
	e.started = true

	if err := e.core.settle(); err != nil {
		return false, err
	}

	t, due, ok := e.timeline.Advance()
	if !ok {
		return false, nil
	}

	for _, p := range due {
		e.core.makeRunnable(p)
	}

	e.InvokeHook(HookCtx{
		Domain: e,
		Pos:    HookPosTimeAdvance,
		Item:   t,
	})

	return true, nil
}

// Run advances the simulation until the timeline is exhausted or simulated
// time reaches until. An until of zero means no limit; the circuit must then
// run out of scheduled activity on its own, which a circuit with a clock
// process never does.
func (e *Engine) Run(until VTime) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		e.pauseLock.Lock()
		progressed, err := e.Advance()
		e.pauseLock.Unlock()

		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}

		if until > 0 && e.timeline.now() >= until {
			return nil
		}
	}
}

// Pause prevents a concurrent Run from advancing further until Continue is
// called.
func (e *Engine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue resumes a paused simulation.
func (e *Engine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// Reset restores every signal to its reset value, clears the timeline, and
// re-seeds all registered processes to their start points. Simulated time
// returns to zero.
func (e *Engine) Reset() {
	e.store.Reset()
	e.timeline.Reset()
	e.core.reset()
	e.started = false

	for _, p := range e.processes {
		if r, ok := p.(Restartable); ok {
			r.Restart()
		}
		e.core.makeRunnable(p)
	}

	e.InvokeHook(HookCtx{
		Domain: e,
		Pos:    HookPosReset,
		Item:   nil,
	})
}

// Read returns the committed value of the signal. It is meant for testbench
// assertions and observers; processes read through their Control.
func (e *Engine) Read(s *Signal) uint64 {
	return e.store.Read(s)
}

// NameMap returns the resolved hierarchical names of the simulated circuit.
func (e *Engine) NameMap() *NameMap {
	return e.nameMap
}

// CaptureWaveform traces the committed value changes produced by body into
// sink. The sink is attached before body runs and is always finalized when
// body returns, so the trace is well formed even when body fails partway
// through. A body error takes precedence over a finalization error.
func (e *Engine) CaptureWaveform(
	sink TraceSink,
	cfg TraceConfig,
	body func() error,
) (err error) {
	traced := e.tracedSignals(cfg)
	if err := sink.Start(traced); err != nil {
		return err
	}

	e.AcceptHook(sink)

	defer func() {
		e.DetachHook(sink)

		end, _ := e.Now()
		if ferr := sink.Finish(end); ferr != nil && err == nil {
			err = ferr
		}
	}()

	return body()
}

func (e *Engine) tracedSignals(cfg TraceConfig) []TracedSignal {
	traced := make([]TracedSignal, 0, len(e.nameMap.Signals()))

	for _, s := range e.nameMap.Signals() {
		names := e.nameMap.Names(s)
		if !cfg.selects(names) {
			continue
		}
		traced = append(traced, TracedSignal{
			Signal: s,
			Names:  names,
			Init:   e.store.Read(s),
		})
	}

	return traced
}
