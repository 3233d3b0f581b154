package sim

import "log"

// CommitLogger is a hook that prints every committed signal change and every
// time advance to a logger. It is mainly useful when debugging a testbench.
type CommitLogger struct {
	Logger *log.Logger
}

// NewCommitLogger returns a CommitLogger that writes into the given logger.
func NewCommitLogger(logger *log.Logger) *CommitLogger {
	return &CommitLogger{Logger: logger}
}

// Func writes the change information into the logger.
func (l *CommitLogger) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosSignalCommit:
		ch := ctx.Item.(SignalChange)
		l.Logger.Printf("%d, %s: %d -> %d",
			ch.Time, ch.Signal.Name(), ch.Old, ch.New)
	case HookPosTimeAdvance:
		l.Logger.Printf("%d, advance", ctx.Item.(VTime))
	}
}
