// Package vcd serializes committed signal changes as a Value Change Dump
// trace, optionally together with a GTKWave save file that lays the traced
// signals out for a viewer.
package vcd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xThaid/coreblocks/sim"
)

// A Writer is a sim.TraceSink that writes a VCD trace. All values are
// 2-state; multi-bit signals are encoded as binary vectors, 1-bit signals as
// scalars. Changes within one simulated instant are coalesced so that the
// trace records only settled values, one record per signal per instant.
type Writer struct {
	out    *bufio.Writer
	layout io.Writer

	timescale string

	traced    []sim.TracedSignal
	ids       map[*sim.Signal]string
	lastValue map[*sim.Signal]uint64

	pending      map[*sim.Signal]uint64
	pendingOrder []*sim.Signal

	tree *scopeNode

	err error
}

// NewWriter creates a Writer that writes the trace to out. The caller owns
// the underlying sink; the Writer only flushes it on Finish.
func NewWriter(out io.Writer) *Writer {
	return &Writer{
		out:       bufio.NewWriter(out),
		timescale: "1ns",
		ids:       make(map[*sim.Signal]string),
		lastValue: make(map[*sim.Signal]uint64),
		pending:   make(map[*sim.Signal]uint64),
	}
}

// WithLayout also writes a GTKWave save file to w on Finish, grouping the
// traced signals by hierarchy scope.
func (w *Writer) WithLayout(layout io.Writer) *Writer {
	w.layout = layout
	return w
}

// WithTimescale sets the $timescale declaration. The default is 1ns.
func (w *Writer) WithTimescale(ts string) *Writer {
	w.timescale = ts
	return w
}

// Start writes the VCD header: the declarations of every traced signal,
// nested in their hierarchy scopes, followed by the initial values.
func (w *Writer) Start(signals []sim.TracedSignal) error {
	w.traced = signals

	for i, ts := range signals {
		w.ids[ts.Signal] = idCode(i)
		w.lastValue[ts.Signal] = ts.Init
	}

	w.tree = buildScopeTree(signals, w.ids)

	w.printf("$timescale %s $end\n", w.timescale)
	w.writeScope(w.tree)
	w.printf("$enddefinitions $end\n")

	w.printf("$dumpvars\n")
	for _, ts := range signals {
		w.printf("%s\n", formatValue(ts.Init, ts.Signal.Width(), w.ids[ts.Signal]))
	}
	w.printf("$end\n")

	return w.err
}

// Func observes the engine's hooks. Commits are buffered; a settled instant
// flushes the buffered changes under a single timestamp.
func (w *Writer) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosSignalCommit:
		ch := ctx.Item.(sim.SignalChange)
		if _, traced := w.ids[ch.Signal]; !traced {
			return
		}
		if _, queued := w.pending[ch.Signal]; !queued {
			w.pendingOrder = append(w.pendingOrder, ch.Signal)
		}
		w.pending[ch.Signal] = ch.New

	case sim.HookPosInstantSettled:
		w.flushInstant(ctx.Item.(sim.VTime))
	}
}

// flushInstant writes one timestamp section holding the settled value of
// every signal that ended the instant with a value different from its last
// traced one. A signal that glitched and returned to its old value leaves no
// record.
func (w *Writer) flushInstant(t sim.VTime) {
	wroteTime := false

	for _, s := range w.pendingOrder {
		v := w.pending[s]
		if v == w.lastValue[s] {
			continue
		}

		if !wroteTime {
			w.printf("#%d\n", t)
			wroteTime = true
		}

		w.printf("%s\n", formatValue(v, s.Width(), w.ids[s]))
		w.lastValue[s] = v
	}

	w.pendingOrder = w.pendingOrder[:0]
	for s := range w.pending {
		delete(w.pending, s)
	}
}

// Finish terminates the trace with a final timestamp marker, flushes it, and
// writes the companion layout file if one was requested.
func (w *Writer) Finish(end sim.VTime) error {
	w.printf("#%d\n", end)

	if ferr := w.out.Flush(); ferr != nil && w.err == nil {
		w.err = ferr
	}

	if w.layout != nil {
		w.writeLayout()
	}

	return w.err
}

func (w *Writer) printf(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.out, format, args...)
}

func formatValue(v uint64, width int, id string) string {
	if width == 1 {
		return strconv.FormatUint(v&1, 2) + id
	}
	return "b" + strconv.FormatUint(v, 2) + " " + id
}

// idCode maps a definition index to a VCD identifier code: a base-94 string
// over the printable characters 33..126, assigned in definition order.
func idCode(i int) string {
	code := ""
	for {
		code = string(rune(33+i%94)) + code
		i = i/94 - 1
		if i < 0 {
			return code
		}
	}
}

type scopeNode struct {
	name     string
	vars     []varDecl
	subs     []*scopeNode
	subIndex map[string]*scopeNode
}

type varDecl struct {
	name  string
	width int
	id    string
}

func newScopeNode(name string) *scopeNode {
	return &scopeNode{name: name, subIndex: make(map[string]*scopeNode)}
}

// buildScopeTree nests the traced signals by their dotted names. A signal
// reachable through several paths is declared once per path, all declarations
// sharing one identifier code.
func buildScopeTree(signals []sim.TracedSignal, ids map[*sim.Signal]string) *scopeNode {
	root := newScopeNode("")

	for _, ts := range signals {
		for _, full := range ts.Names {
			parts := strings.Split(full, ".")
			node := root
			for _, scope := range parts[:len(parts)-1] {
				node = node.sub(scope)
			}
			node.vars = append(node.vars, varDecl{
				name:  parts[len(parts)-1],
				width: ts.Signal.Width(),
				id:    ids[ts.Signal],
			})
		}
	}

	return root
}

func (n *scopeNode) sub(name string) *scopeNode {
	if s, ok := n.subIndex[name]; ok {
		return s
	}
	s := newScopeNode(name)
	n.subIndex[name] = s
	n.subs = append(n.subs, s)
	return s
}

func (w *Writer) writeScope(n *scopeNode) {
	if n.name != "" {
		w.printf("$scope module %s $end\n", n.name)
	}

	for _, v := range n.vars {
		if v.width == 1 {
			w.printf("$var wire 1 %s %s $end\n", v.id, v.name)
		} else {
			w.printf("$var wire %d %s %s [%d:0] $end\n",
				v.width, v.id, v.name, v.width-1)
		}
	}

	for _, s := range n.subs {
		w.writeScope(s)
	}

	if n.name != "" {
		w.printf("$upscope $end\n")
	}
}
