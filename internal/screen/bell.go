package screen

import (
	"io"
	"sync"
)

const bel = 0x07

// BellWriter sits between the UART and its host sink: BEL bytes ring the
// attached beeper instead of being forwarded, everything else passes through.
// The beeper is attached late because the screen is constructed after the
// machine that owns the serial sink.
type BellWriter struct {
	next io.Writer

	mu   sync.Mutex
	beep func()
}

// NewBellWriter wraps next; a nil next drops the forwarded bytes.
func NewBellWriter(next io.Writer) *BellWriter {
	return &BellWriter{next: next}
}

// SetBeeper attaches the bell callback.
func (b *BellWriter) SetBeeper(fn func()) {
	b.mu.Lock()
	b.beep = fn
	b.mu.Unlock()
}

// Write implements io.Writer.
func (b *BellWriter) Write(p []byte) (int, error) {
	b.mu.Lock()
	beep := b.beep
	b.mu.Unlock()

	out := make([]byte, 0, len(p))
	for _, c := range p {
		if c == bel {
			if beep != nil {
				beep()
			}
			continue
		}
		out = append(out, c)
	}

	if b.next != nil && len(out) > 0 {
		if _, err := b.next.Write(out); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}
