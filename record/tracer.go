package record

import "github.com/xThaid/coreblocks/sim"

// A Tracer is a sim.TraceSink that feeds a Recorder. Like the VCD writer it
// coalesces the delta cycles of an instant, so the database holds one row per
// signal per instant, the settled value only.
type Tracer struct {
	recorder Recorder

	ids       map[*sim.Signal]int
	lastValue map[*sim.Signal]uint64

	pending      map[*sim.Signal]uint64
	pendingOrder []*sim.Signal
}

// NewTracer creates a Tracer writing into the recorder. The recorder stays
// open after the capture scope ends; it is the caller's to close.
func NewTracer(recorder Recorder) *Tracer {
	return &Tracer{
		recorder:  recorder,
		ids:       make(map[*sim.Signal]int),
		lastValue: make(map[*sim.Signal]uint64),
		pending:   make(map[*sim.Signal]uint64),
	}
}

// Start declares the traced signals. A signal with several hierarchical
// names is declared under its first one.
func (t *Tracer) Start(signals []sim.TracedSignal) error {
	for i, ts := range signals {
		t.ids[ts.Signal] = i
		t.lastValue[ts.Signal] = ts.Init

		t.recorder.InsertSignal(SignalRow{
			ID:    i,
			Name:  ts.Names[0],
			Width: ts.Signal.Width(),
		})
	}

	return nil
}

// Func observes the engine's hooks.
func (t *Tracer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosSignalCommit:
		ch := ctx.Item.(sim.SignalChange)
		if _, traced := t.ids[ch.Signal]; !traced {
			return
		}
		if _, queued := t.pending[ch.Signal]; !queued {
			t.pendingOrder = append(t.pendingOrder, ch.Signal)
		}
		t.pending[ch.Signal] = ch.New

	case sim.HookPosInstantSettled:
		t.flushInstant(ctx.Item.(sim.VTime))
	}
}

func (t *Tracer) flushInstant(now sim.VTime) {
	for _, s := range t.pendingOrder {
		v := t.pending[s]
		if v == t.lastValue[s] {
			continue
		}

		t.recorder.InsertChange(ChangeRow{
			Time:     uint64(now),
			SignalID: t.ids[s],
			Value:    v,
		})
		t.lastValue[s] = v
	}

	t.pendingOrder = t.pendingOrder[:0]
	for s := range t.pending {
		delete(t.pending, s)
	}
}

// Finish flushes the recorder.
func (t *Tracer) Finish(_ sim.VTime) error {
	t.recorder.Flush()
	return nil
}
