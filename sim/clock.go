package sim

// clockProcess toggles a signal forever: first at phase, then every period
// thereafter. The toggle inverts the signal's committed value, so the
// signal's reset value decides the initial level. A clock process never
// finishes.
type clockProcess struct {
	signal *Signal
	phase  VTime
	period VTime

	started bool
}

func (p *clockProcess) Resume(ctl *Control) error {
	if !p.started {
		p.started = true
		if p.phase > 0 {
			return ctl.At(p.phase)
		}
	}

	ctl.Write(p.signal, ^ctl.Read(p.signal))

	return ctl.After(p.period)
}

func (p *clockProcess) Restart() {
	p.started = false
}
