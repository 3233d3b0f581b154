package sim

import "fmt"

// A NonConvergenceError reports that a simulated instant did not reach a
// fixed point within the configured number of delta cycles. It usually means
// the circuit contains a combinational loop that never stabilizes.
type NonConvergenceError struct {
	Time       VTime
	Iterations int
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf(
		"combinational non-convergence at time %d after %d delta cycles",
		e.Time, e.Iterations)
}

// A SchedulingError reports an attempt to schedule a wake-up at or before the
// current simulated time.
type SchedulingError struct {
	Now  VTime
	Want VTime
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf(
		"cannot schedule a wake-up at time %d, now is %d", e.Want, e.Now)
}

// An UnknownSignalError reports a trigger registration or an access that
// names a signal not owned by this simulation.
type UnknownSignalError struct {
	Signal *Signal
}

func (e *UnknownSignalError) Error() string {
	name := "<nil>"
	if e.Signal != nil {
		name = e.Signal.Name()
	}
	return "signal " + name + " is not part of this simulation"
}
