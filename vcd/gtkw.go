package vcd

import "fmt"

// writeLayout emits a GTKWave save file for the traced signals: one group
// per hierarchy scope, each listing its signals under their fully qualified
// names. The names match the ones declared in the VCD trace.
func (w *Writer) writeLayout() {
	w.layoutPrintf("[timestart] 0\n")
	w.layoutScope(w.tree, "")
}

func (w *Writer) layoutScope(n *scopeNode, prefix string) {
	path := prefix
	if n.name != "" {
		if path != "" {
			path += "."
		}
		path += n.name
	}

	if len(n.vars) > 0 {
		w.layoutPrintf("-%s\n", path)
	}

	for _, v := range n.vars {
		if v.width == 1 {
			w.layoutPrintf("%s.%s\n", path, v.name)
		} else {
			w.layoutPrintf("%s.%s[%d:0]\n", path, v.name, v.width-1)
		}
	}

	for _, s := range n.subs {
		w.layoutScope(s, path)
	}
}

func (w *Writer) layoutPrintf(format string, args ...interface{}) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.layout, format, args...)
}
