package sim

// A Condition describes when a waiting process should be woken by a committed
// signal change.
type Condition int

const (
	// Anyedge wakes the process on any committed value change. Anyedge
	// triggers are level-style: they stay registered after firing.
	Anyedge Condition = iota

	// Posedge wakes the process when bit 0 of the signal goes from 0 to 1.
	// Posedge triggers are single-shot: they are cleared when they fire.
	Posedge

	// Negedge wakes the process when bit 0 of the signal goes from 1 to 0.
	// Negedge triggers are single-shot: they are cleared when they fire.
	Negedge
)

func (c Condition) String() string {
	switch c {
	case Anyedge:
		return "anyedge"
	case Posedge:
		return "posedge"
	case Negedge:
		return "negedge"
	}
	return "unknown"
}

// matches reports whether a committed change from old to new satisfies the
// condition.
func (c Condition) matches(old, new uint64) bool {
	switch c {
	case Anyedge:
		return old != new
	case Posedge:
		return old&1 == 0 && new&1 == 1
	case Negedge:
		return old&1 == 1 && new&1 == 0
	}
	return false
}

// singleShot reports whether a trigger with this condition is cleared when it
// fires.
func (c Condition) singleShot() bool {
	return c != Anyedge
}

// A Process is a resumable computation driven by the simulation core. A
// process runs without preemption until it suspends: during Resume it
// declares the condition for its next wake-up through the Control, either
// waiting on signals or on a simulated-time delay. A process that declares no
// wake-up is finished and will never be resumed again.
type Process interface {
	Resume(ctl *Control) error
}

// ProcessFunc adapts a plain function into a Process.
type ProcessFunc func(ctl *Control) error

// Resume calls the function.
func (f ProcessFunc) Resume(ctl *Control) error {
	return f(ctl)
}

// Restartable is implemented by processes that carry internal state that must
// be re-seeded when the engine is reset.
type Restartable interface {
	Restart()
}

// Comb returns a process that runs f once at the first instant and again
// whenever any of the inputs change. f typically reads the inputs and writes
// the outputs of a combinational expression.
func Comb(inputs []*Signal, f func(ctl *Control)) Process {
	return &combProcess{inputs: inputs, f: f}
}

type combProcess struct {
	inputs []*Signal
	f      func(ctl *Control)
}

func (p *combProcess) Resume(ctl *Control) error {
	p.f(ctl)
	return ctl.Wait(Anyedge, p.inputs...)
}

// A Control is handed to a process on each resume. It is the process's only
// way to interact with the simulation: reading and writing signal state,
// telling the time, and declaring the next suspension point.
type Control struct {
	core *core
	proc Process
}

// Now returns the current simulated time.
func (c *Control) Now() VTime {
	return c.core.timeline.now()
}

// Read returns the committed value of the signal. It never blocks and has no
// side effects.
func (c *Control) Read(s *Signal) uint64 {
	return c.core.store.Read(s)
}

// Write queues a pending value for the signal. The value becomes visible to
// reads only after the current delta cycle commits. A later write to the same
// signal in the same delta cycle overwrites this one.
func (c *Control) Write(s *Signal, v uint64) {
	c.core.store.Write(s, v)
}

// Wait suspends the process until the condition is met on one of the signals.
// A process holds at most one trigger per signal; waiting again on the same
// signal replaces the condition.
func (c *Control) Wait(cond Condition, signals ...*Signal) error {
	for _, s := range signals {
		if err := c.core.store.AddTrigger(c.proc, s, cond); err != nil {
			return err
		}
	}
	return nil
}

// Unwait removes the process's triggers on the given signals. It is a no-op
// for signals the process is not waiting on.
func (c *Control) Unwait(signals ...*Signal) {
	for _, s := range signals {
		c.core.store.RemoveTrigger(c.proc, s)
	}
}

// After suspends the process until delay time units from now. The delay must
// be at least one time unit; delta cycles within the current instant are not
// reachable through the timeline.
func (c *Control) After(delay VTime) error {
	return c.At(c.core.timeline.now() + delay)
}

// At suspends the process until the absolute time t, which must be strictly
// after the current simulated time.
func (c *Control) At(t VTime) error {
	return c.core.timeline.At(t, c.proc)
}
