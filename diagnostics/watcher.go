package diagnostics

import (
	"bytes"
	"io"
)

// Watcher passes console output through to another writer unchanged and calls
// Found for every fatal report in it.
type Watcher struct {
	w     io.Writer
	found func(Diagnostic)
	line  int
	buf   []byte
}

// NewWatcher returns a Watcher writing to w.
func NewWatcher(w io.Writer, found func(Diagnostic)) *Watcher {
	return &Watcher{w: w, found: found}
}

func (w *Watcher) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.scan(p[:n])
	return n, err
}

func (w *Watcher) scan(p []byte) {
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			// Don't let a console without newlines grow the buffer forever.
			if len(w.buf)+len(p) <= 4096 {
				w.buf = append(w.buf, p...)
			}
			return
		}
		w.buf = append(w.buf, p[:i]...)
		p = p[i+1:]
		w.line++
		if report, err := ParseLine(string(w.buf)); err == nil && w.found != nil {
			w.found(Diagnostic{Line: w.line, Report: report})
		}
		w.buf = w.buf[:0]
	}
}
