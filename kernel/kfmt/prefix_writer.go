package kfmt

import (
	"bytes"
	"io"
)

// PrefixWriter decorates every output line with a prefix before forwarding it
// to the underlying sink. The boot log keeps one instance and swaps Prefix
// between drivers; a line left unfinished by one Write is continued, not
// re-prefixed, by the next.
type PrefixWriter struct {
	// Sink receives the prefixed output.
	Sink io.Writer

	// Prefix is injected at the start of each line. It may be replaced
	// between writes once the current line has been terminated.
	Prefix []byte

	// midline is true while the current output line is still open.
	midline bool
}

// Write forwards p to the sink one line segment at a time, emitting the
// prefix ahead of every line start. The returned count covers only the bytes
// of p; injected prefixes are not included. Sink errors abort the write and
// are returned together with the number of p's bytes that made it out.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) > 0 {
		if !w.midline {
			if _, err := w.Sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midline = true
		}

		seg := p
		if nl := bytes.IndexByte(p, '\n'); nl != -1 {
			seg = p[:nl+1]
		}

		n, err := w.Sink.Write(seg)
		written += n
		if err != nil {
			return written, err
		}

		if seg[len(seg)-1] == '\n' {
			w.midline = false
		}
		p = p[len(seg):]
	}

	return written, nil
}
