package sim

// Reg returns a process implementing a D-type register: on every rising edge
// of clk it samples d and drives q. The first resume only arms the edge
// trigger, so values committed before the first rising edge are not sampled.
func Reg(clk, d, q *Signal) Process {
	return &regProcess{clk: clk, d: d, q: q}
}

type regProcess struct {
	clk *Signal
	d   *Signal
	q   *Signal

	armed bool
}

func (p *regProcess) Resume(ctl *Control) error {
	if p.armed {
		ctl.Write(p.q, ctl.Read(p.d))
	}
	p.armed = true

	return ctl.Wait(Posedge, p.clk)
}

func (p *regProcess) Restart() {
	p.armed = false
}
