// Package machine emulates the hardware the minos drivers run against: a
// port-mapped I/O bus, text-mode video memory with a CRT controller, a
// keyboard controller feeding an interrupt line through a PIC/IOAPIC pair,
// a UART and the virtual cores themselves.
package machine

import (
	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

// PortHandler is implemented by devices that respond on I/O ports.
type PortHandler interface {
	// In reads a byte from the given port.
	In(port uint16) uint8

	// Out writes a byte to the given port.
	Out(port uint16, v uint8)
}

// Bus routes port I/O to the device mapped at each port. Lookups happen on
// the output hot path, so the port table is a lock-free hash map; mappings
// are established once at machine construction.
type Bus struct {
	ports *hashmap.Map[uint16, PortHandler]
	log   *logrus.Logger

	// onFault is invoked for accesses to unmapped ports. The default
	// handler logs and, for reads, floats the data lines high.
	onFault func(op string, port uint16)
}

// NewBus creates an empty I/O bus.
func NewBus(log *logrus.Logger) *Bus {
	b := &Bus{
		ports: hashmap.New[uint16, PortHandler](),
		log:   log,
	}
	b.onFault = func(op string, port uint16) {
		b.log.WithFields(logrus.Fields{"op": op, "port": port}).Warn("bus fault: unmapped port")
	}
	return b
}

// Map attaches a device to a port. Mapping a port twice is a wiring bug and
// routes to the fault handler.
func (b *Bus) Map(port uint16, h PortHandler) {
	if _, loaded := b.ports.GetOrInsert(port, h); loaded {
		b.onFault("map", port)
	}
}

// OnFault replaces the unmapped-port fault handler.
func (b *Bus) OnFault(fn func(op string, port uint16)) {
	b.onFault = fn
}

// InB reads a byte from a port.
func (b *Bus) InB(port uint16) uint8 {
	h, ok := b.ports.Get(port)
	if !ok {
		b.onFault("in", port)
		return 0xff
	}
	return h.In(port)
}

// OutB writes a byte to a port.
func (b *Bus) OutB(port uint16, v uint8) {
	h, ok := b.ports.Get(port)
	if !ok {
		b.onFault("out", port)
		return
	}
	h.Out(port, v)
}
