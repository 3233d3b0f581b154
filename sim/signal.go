package sim

import "fmt"

// VTime is the simulated time. It is a monotonically non-decreasing integer
// counter that starts at zero on reset. The unit is up to the circuit; the
// trace writer labels it as nanoseconds by default.
type VTime uint64

// A Signal is a wire or register output in the elaborated circuit. The kernel
// never changes a signal's identity, only its simulated value.
type Signal struct {
	name  string
	width int
	reset uint64
}

// NewSignal creates a signal with the given name, bit width, and reset value.
// The width must be between 1 and 64. The reset value is truncated to the
// width.
func NewSignal(name string, width int, reset uint64) *Signal {
	elemNameMustBeValid(name)

	if width < 1 || width > 64 {
		panic(fmt.Sprintf("signal %s: width must be in [1, 64], got %d",
			name, width))
	}

	return &Signal{
		name:  name,
		width: width,
		reset: reset & maskForWidth(width),
	}
}

// Name returns the signal's own name, without any hierarchy prefix.
func (s *Signal) Name() string {
	return s.name
}

// Width returns the number of bits of the signal.
func (s *Signal) Width() int {
	return s.width
}

// Reset returns the value the signal takes when the simulation is reset.
func (s *Signal) Reset() uint64 {
	return s.reset
}

func (s *Signal) mask() uint64 {
	return maskForWidth(s.width)
}

func maskForWidth(width int) uint64 {
	if width == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

// A Fragment is an elaborated circuit handed to the engine: the signals it
// owns, the processes that drive them, and named subfragments. A signal or a
// subfragment may be shared between fragments by reference; the name resolver
// then derives one hierarchical name per path.
type Fragment struct {
	Name      string
	Signals   []*Signal
	Processes []Process
	Subs      []*Fragment
}

// NewFragment creates an empty fragment with the given name.
func NewFragment(name string) *Fragment {
	elemNameMustBeValid(name)
	return &Fragment{Name: name}
}

// AddSignal creates a signal, adds it to the fragment, and returns it.
func (f *Fragment) AddSignal(name string, width int, reset uint64) *Signal {
	s := NewSignal(name, width, reset)
	f.Signals = append(f.Signals, s)
	return s
}

// AddProcess adds a behavioral process to the fragment.
func (f *Fragment) AddProcess(p Process) {
	f.Processes = append(f.Processes, p)
}

// AddSub adds a subfragment.
func (f *Fragment) AddSub(sub *Fragment) {
	f.Subs = append(f.Subs, sub)
}
