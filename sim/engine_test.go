package sim

import (
	"sync"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

// changeRecorder is a hook that remembers everything the engine reports.
type changeRecorder struct {
	changes  []SignalChange
	settles  []VTime
	advances []VTime
}

func (r *changeRecorder) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosSignalCommit:
		r.changes = append(r.changes, ctx.Item.(SignalChange))
	case HookPosInstantSettled:
		r.settles = append(r.settles, ctx.Item.(VTime))
	case HookPosTimeAdvance:
		r.advances = append(r.advances, ctx.Item.(VTime))
	}
}

func (r *changeRecorder) changesOf(s *Signal) []SignalChange {
	out := []SignalChange{}
	for _, ch := range r.changes {
		if ch.Signal == s {
			out = append(out, ch)
		}
	}
	return out
}

var _ = Describe("Engine", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *changeRecorder
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = &changeRecorder{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	buildEngine := func(f *Fragment) *Engine {
		e := MakeBuilder().WithFragment(f).Build()
		e.AcceptHook(recorder)
		return e
	}

	It("should report an absent time before the first advance", func() {
		f := NewFragment("top")
		f.AddSignal("a", 1, 0)
		e := buildEngine(f)

		_, ok := e.Now()

		Expect(ok).To(BeFalse())
	})

	It("should settle an inverter chain within one instant", func() {
		f := NewFragment("top")
		a := f.AddSignal("a", 1, 0)
		b := f.AddSignal("b", 1, 0)
		c := f.AddSignal("c", 1, 0)
		f.AddProcess(Comb([]*Signal{a}, func(ctl *Control) {
			ctl.Write(b, ^ctl.Read(a))
		}))
		f.AddProcess(Comb([]*Signal{b}, func(ctl *Control) {
			ctl.Write(c, ^ctl.Read(b))
		}))
		f.AddProcess(ProcessFunc(func(ctl *Control) error {
			ctl.Write(a, 1)
			return nil
		}))
		e := buildEngine(f)

		progressed, err := e.Advance()

		Expect(err).ToNot(HaveOccurred())
		Expect(progressed).To(BeFalse())
		Expect(e.Read(a)).To(Equal(uint64(1)))
		Expect(e.Read(b)).To(Equal(uint64(0)))
		Expect(e.Read(c)).To(Equal(uint64(1)))

		now, ok := e.Now()
		Expect(ok).To(BeTrue())
		Expect(now).To(Equal(VTime(0)))
	})

	It("should not resume a finished process again", func() {
		f := NewFragment("top")
		s := f.AddSignal("s", 1, 0)
		e := buildEngine(f)

		proc := NewMockProcess(mockCtrl)
		proc.EXPECT().
			Resume(gomock.Any()).
			DoAndReturn(func(ctl *Control) error {
				ctl.Write(s, 1)
				return nil
			}).
			Times(1)
		e.AddProcess(proc)

		_, err := e.Advance()
		Expect(err).ToNot(HaveOccurred())
		_, err = e.Advance()
		Expect(err).ToNot(HaveOccurred())

		Expect(e.Read(s)).To(Equal(uint64(1)))
	})

	It("should surface a failing process", func() {
		f := NewFragment("top")
		f.AddSignal("s", 1, 0)
		e := buildEngine(f)

		e.AddProcess(ProcessFunc(func(_ *Control) error {
			return errors.New("bad stimulus")
		}))

		_, err := e.Advance()

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("bad stimulus"))
	})

	It("should detect combinational non-convergence", func() {
		f := NewFragment("top")
		a := f.AddSignal("a", 1, 0)
		f.AddProcess(Comb([]*Signal{a}, func(ctl *Control) {
			ctl.Write(a, ^ctl.Read(a))
		}))
		e := MakeBuilder().WithFragment(f).WithDeltaLimit(8).Build()

		_, err := e.Advance()

		var nce *NonConvergenceError
		Expect(errors.As(err, &nce)).To(BeTrue())
		Expect(nce.Time).To(Equal(VTime(0)))
		Expect(nce.Iterations).To(Equal(9))
	})

	It("should let the last writer win and commit once", func() {
		f := NewFragment("top")
		s := f.AddSignal("s", 4, 0)
		f.AddProcess(ProcessFunc(func(ctl *Control) error {
			ctl.Write(s, 1)
			return nil
		}))
		f.AddProcess(ProcessFunc(func(ctl *Control) error {
			ctl.Write(s, 2)
			return nil
		}))
		e := buildEngine(f)

		_, err := e.Advance()

		Expect(err).ToNot(HaveOccurred())
		Expect(e.Read(s)).To(Equal(uint64(2)))
		Expect(recorder.changesOf(s)).To(HaveLen(1))
	})

	It("should settle ties independently of registration order", func() {
		writeAfter := func(s *Signal, v uint64, delay VTime) Process {
			armed := false
			return ProcessFunc(func(ctl *Control) error {
				if !armed {
					armed = true
					return ctl.After(delay)
				}
				ctl.Write(s, v)
				return nil
			})
		}

		run := func(swap bool) (uint64, uint64) {
			f := NewFragment("top")
			x := f.AddSignal("x", 4, 0)
			y := f.AddSignal("y", 4, 0)

			p1 := writeAfter(x, 1, 5)
			p2 := writeAfter(y, 2, 5)

			if swap {
				f.AddProcess(p2)
				f.AddProcess(p1)
			} else {
				f.AddProcess(p1)
				f.AddProcess(p2)
			}

			e := MakeBuilder().WithFragment(f).Build()
			Expect(e.Run(0)).To(Succeed())

			return e.Read(x), e.Read(y)
		}

		x1, y1 := run(false)
		x2, y2 := run(true)

		Expect(x1).To(Equal(x2))
		Expect(y1).To(Equal(y2))
	})

	It("should toggle a clock at phase and every period after", func() {
		f := NewFragment("top")
		clk := f.AddSignal("clk", 1, 1)
		e := buildEngine(f)
		Expect(e.AddClockProcess(clk, 0, 10)).To(Succeed())

		for i := 0; i < 5; i++ {
			progressed, err := e.Advance()
			Expect(err).ToNot(HaveOccurred())
			Expect(progressed).To(BeTrue())
		}

		toggles := recorder.changesOf(clk)
		Expect(toggles).To(HaveLen(5))
		for i, ch := range toggles {
			Expect(ch.Time).To(Equal(VTime(i * 10)))
			Expect(ch.New).To(Equal(^ch.Old & 1))
		}
	})

	It("should delay the first toggle of a phased clock", func() {
		f := NewFragment("top")
		clk := f.AddSignal("clk", 1, 1)
		e := buildEngine(f)
		Expect(e.AddClockProcess(clk, 3, 10)).To(Succeed())

		for i := 0; i < 3; i++ {
			_, err := e.Advance()
			Expect(err).ToNot(HaveOccurred())
		}

		toggles := recorder.changesOf(clk)
		Expect(toggles).To(HaveLen(2))
		Expect(toggles[0].Time).To(Equal(VTime(3)))
		Expect(toggles[1].Time).To(Equal(VTime(13)))
	})

	It("should reject clocks on foreign signals", func() {
		f := NewFragment("top")
		f.AddSignal("a", 1, 0)
		e := buildEngine(f)

		foreign := NewSignal("clk", 1, 1)
		err := e.AddClockProcess(foreign, 0, 10)

		Expect(err).To(BeAssignableToTypeOf(&UnknownSignalError{}))
	})

	It("should reject clocks with a zero period", func() {
		f := NewFragment("top")
		clk := f.AddSignal("clk", 1, 1)
		e := buildEngine(f)

		Expect(e.AddClockProcess(clk, 0, 0)).ToNot(Succeed())
	})

	It("should register a rising-edge sample in a flip-flop", func() {
		f := NewFragment("top")
		clk := f.AddSignal("clk", 1, 1)
		d := f.AddSignal("d", 1, 1)
		q := f.AddSignal("q", 1, 0)
		f.AddProcess(Reg(clk, d, q))
		e := buildEngine(f)
		Expect(e.AddClockProcess(clk, 0, 10)).To(Succeed())

		for {
			_, err := e.Advance()
			Expect(err).ToNot(HaveOccurred())
			if now, ok := e.Now(); ok && now >= 10 {
				break
			}
		}
		_, err := e.Advance()
		Expect(err).ToNot(HaveOccurred())

		Expect(e.Read(q)).To(Equal(uint64(1)))

		qChanges := recorder.changesOf(q)
		Expect(qChanges).To(HaveLen(1))
		Expect(qChanges[0].Time).To(Equal(VTime(10)))
		Expect(qChanges[0].New).To(Equal(uint64(1)))
	})

	It("should replay identically after a reset", func() {
		f := NewFragment("top")
		clk := f.AddSignal("clk", 1, 1)
		count := f.AddSignal("count", 4, 0)
		next := f.AddSignal("next", 4, 1)
		f.AddProcess(Comb([]*Signal{count}, func(ctl *Control) {
			ctl.Write(next, ctl.Read(count)+1)
		}))
		f.AddProcess(Reg(clk, next, count))
		e := buildEngine(f)
		Expect(e.AddClockProcess(clk, 0, 5)).To(Succeed())

		runSome := func() []SignalChange {
			recorder.changes = nil
			for i := 0; i < 6; i++ {
				_, err := e.Advance()
				Expect(err).ToNot(HaveOccurred())
			}
			return append([]SignalChange{}, recorder.changes...)
		}

		first := runSome()

		e.Reset()
		_, ok := e.Now()
		Expect(ok).To(BeFalse())
		Expect(e.Read(count)).To(Equal(uint64(0)))
		Expect(e.Read(clk)).To(Equal(uint64(1)))

		second := runSome()

		Expect(second).To(Equal(first))
	})

	It("should run until the requested time", func() {
		f := NewFragment("top")
		clk := f.AddSignal("clk", 1, 1)
		e := buildEngine(f)
		Expect(e.AddClockProcess(clk, 0, 10)).To(Succeed())

		Expect(e.Run(35)).To(Succeed())

		now, ok := e.Now()
		Expect(ok).To(BeTrue())
		Expect(now).To(BeNumerically(">=", 35))
	})

	It("should allow reading committed values while a run is in flight", func() {
		f := NewFragment("top")
		clk := f.AddSignal("clk", 1, 1)
		e := buildEngine(f)
		Expect(e.AddClockProcess(clk, 0, 1)).To(Succeed())

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					Expect(e.Read(clk)).To(BeNumerically("<=", 1))
				}
			}
		}()

		Expect(e.Run(5000)).To(Succeed())

		close(stop)
		wg.Wait()
	})
})
