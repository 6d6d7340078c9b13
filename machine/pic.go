package machine

import (
	"sync"

	"minos/kernel/irq"
)

// PIC emulates the legacy interrupt controller's mask register. All lines
// come out of reset masked; the driver boot path unmasks the ones it uses.
type PIC struct {
	mu  sync.Mutex
	imr uint16
}

// NewPIC creates a PIC with every line masked.
func NewPIC() *PIC {
	return &PIC{imr: 0xffff}
}

// EnableLine implements irq.Masker.
func (p *PIC) EnableLine(line irq.Line) {
	p.mu.Lock()
	p.imr &^= 1 << line
	p.mu.Unlock()
}

// LineMasked reports whether the given line is masked.
func (p *PIC) LineMasked(line irq.Line) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.imr&(1<<line) != 0
}
