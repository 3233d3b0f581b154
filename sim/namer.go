package sim

import "strings"

// A NameMap is a stable mapping from each signal of a circuit to its dotted
// hierarchical names. A signal reused across subfragments by reference is
// reachable through multiple paths and therefore carries multiple names.
type NameMap struct {
	order  []*Signal
	names  map[*Signal][]string
	byName map[string]*Signal
}

// ResolveNames walks the fragment hierarchy once and derives the hierarchical
// names of every signal. It is a pure function of the circuit description.
// It panics if two signals resolve to the same full name.
func ResolveNames(f *Fragment) *NameMap {
	m := &NameMap{
		names:  make(map[*Signal][]string),
		byName: make(map[string]*Signal),
	}
	m.walk(f, f.Name)
	return m
}

func (m *NameMap) walk(f *Fragment, prefix string) {
	for _, s := range f.Signals {
		full := prefix + "." + s.Name()

		if owner, taken := m.byName[full]; taken {
			if owner != s {
				panic("two signals share the name " + full)
			}
			continue
		}
		m.byName[full] = s

		if _, seen := m.names[s]; !seen {
			m.order = append(m.order, s)
		}
		m.names[s] = append(m.names[s], full)
	}

	for _, sub := range f.Subs {
		m.walk(sub, prefix+"."+sub.Name)
	}
}

// Signals returns all resolved signals in first-seen hierarchy walk order.
func (m *NameMap) Signals() []*Signal {
	return m.order
}

// Names returns the hierarchical names of the signal, in hierarchy walk
// order. It returns nil for signals outside the resolved circuit.
func (m *NameMap) Names(s *Signal) []string {
	return m.names[s]
}

// Find returns the signal carrying the given full hierarchical name, or nil.
func (m *NameMap) Find(fullName string) *Signal {
	return m.byName[fullName]
}

func elemNameMustBeValid(name string) {
	if name == "" {
		panic("name must not be empty")
	}
	if strings.ContainsAny(name, ". \t\n") {
		panic("name " + name + " must not contain dots or whitespace")
	}
}
