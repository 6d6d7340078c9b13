package machine

import (
	"sync"

	"minos/kernel/irq"
)

// ioapicRoute is one redirection table entry: the target CPU of an unmasked
// line.
type ioapicRoute struct {
	cpuID int
}

// IOAPIC emulates the I/O APIC redirection table: an unmasked line is routed
// to a specific CPU. Lines without an entry are masked.
type IOAPIC struct {
	mu     sync.Mutex
	routes map[irq.Line]ioapicRoute
}

// NewIOAPIC creates an IOAPIC with every line masked.
func NewIOAPIC() *IOAPIC {
	return &IOAPIC{routes: make(map[irq.Line]ioapicRoute)}
}

// EnableLine implements irq.Router.
func (io *IOAPIC) EnableLine(line irq.Line, cpuID int) {
	io.mu.Lock()
	io.routes[line] = ioapicRoute{cpuID: cpuID}
	io.mu.Unlock()
}

// Route returns the target CPU of an unmasked line.
func (io *IOAPIC) Route(line irq.Line) (cpuID int, ok bool) {
	io.mu.Lock()
	defer io.mu.Unlock()
	r, ok := io.routes[line]
	return r.cpuID, ok
}
