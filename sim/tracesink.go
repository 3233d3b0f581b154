package sim

import "strings"

// A TracedSignal pairs a signal with the hierarchical names it is traced
// under.
type TracedSignal struct {
	Signal *Signal
	Names  []string

	// Init is the committed value at the moment the capture scope opened.
	Init uint64
}

// A TraceConfig selects the signals to trace. Each entry is either the full
// hierarchical name of a signal or a hierarchy prefix, in which case every
// signal below it is traced. An empty selection traces the whole circuit.
type TraceConfig struct {
	Signals []string
}

func (cfg TraceConfig) selects(names []string) bool {
	if len(cfg.Signals) == 0 {
		return true
	}

	for _, name := range names {
		for _, entry := range cfg.Signals {
			if name == entry || strings.HasPrefix(name, entry+".") {
				return true
			}
		}
	}

	return false
}

// A TraceSink receives the committed value changes of a capture scope. It is
// attached as an ordinary hook, so it can observe but never influence the
// simulation. Start is called before the first observation with the traced
// signals; Finish is guaranteed to be called when the capture scope exits,
// even when the caller's body fails.
type TraceSink interface {
	Hook

	Start(signals []TracedSignal) error
	Finish(end VTime) error
}
