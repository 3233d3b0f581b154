package sim

import "github.com/pkg/errors"

// core runs the delta-cycle fixed-point algorithm for one simulated instant:
// resume every runnable process until it suspends or finishes, commit the
// pending writes, wake the processes whose trigger condition is met, and
// repeat until a commit changes nothing.
type core struct {
	store    *Store
	timeline *Timeline

	domain Hookable
	hooks  *HookableBase

	// deltaLimit bounds the delta cycles per instant. A circuit with a
	// combinational loop that never stabilizes would otherwise spin here
	// forever.
	deltaLimit int

	runnable []Process
	enqueued map[Process]bool
}

func newCore(
	store *Store,
	timeline *Timeline,
	domain Hookable,
	hooks *HookableBase,
	deltaLimit int,
) *core {
	return &core{
		store:      store,
		timeline:   timeline,
		domain:     domain,
		hooks:      hooks,
		deltaLimit: deltaLimit,
		enqueued:   make(map[Process]bool),
	}
}

// makeRunnable queues the process for the current instant. A process that is
// already queued is not queued twice.
func (c *core) makeRunnable(p Process) {
	if c.enqueued[p] {
		return
	}
	c.enqueued[p] = true
	c.runnable = append(c.runnable, p)
}

// settle drives the instant to its fixed point. It returns a
// NonConvergenceError if the instant does not settle within deltaLimit delta
// cycles.
func (c *core) settle() error {
	now := c.timeline.now()

	iterations := 0
	for {
		if err := c.drain(); err != nil {
			return err
		}

		changes := c.store.Commit(now)
		if len(changes) == 0 {
			c.hooks.InvokeHook(HookCtx{
				Domain: c.domain,
				Pos:    HookPosInstantSettled,
				Item:   now,
			})
			return nil
		}

		iterations++
		if iterations > c.deltaLimit {
			return &NonConvergenceError{Time: now, Iterations: iterations}
		}

		for _, ch := range changes {
			c.hooks.InvokeHook(HookCtx{
				Domain: c.domain,
				Pos:    HookPosSignalCommit,
				Item:   ch,
			})

			for _, p := range c.store.Wake(ch) {
				c.makeRunnable(p)
			}
		}
	}
}

// drain resumes every runnable process until it suspends or finishes.
// Resuming a process may write pending values, register triggers and timed
// waits, and make no other process runnable, so a single pass empties the
// queue.
func (c *core) drain() error {
	for len(c.runnable) > 0 {
		p := c.runnable[0]
		c.runnable = c.runnable[1:]
		delete(c.enqueued, p)

		ctl := &Control{core: c, proc: p}
		if err := p.Resume(ctl); err != nil {
			return errors.Wrapf(err,
				"process failed at time %d", c.timeline.now())
		}
	}

	return nil
}

// reset drops the runnable queue.
func (c *core) reset() {
	c.runnable = nil
	c.enqueued = make(map[Process]bool)
}
