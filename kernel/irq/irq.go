// Package irq defines the interrupt lines used by the console driver and the
// interfaces of the interrupt controllers that gate their delivery. The
// controllers themselves are emulated hardware and live below the drivers.
package irq

// Line identifies a hardware interrupt line.
type Line uint8

// LineKeyboard is the interrupt line raised by the keyboard controller.
const LineKeyboard Line = 1

// Masker is implemented by interrupt controllers that gate lines with a
// simple mask register (the legacy PIC shape).
type Masker interface {
	// EnableLine unmasks the given interrupt line.
	EnableLine(Line)
}

// Router is implemented by interrupt controllers that route lines to a
// specific CPU (the IOAPIC shape).
type Router interface {
	// EnableLine unmasks the given interrupt line and routes it to the
	// CPU with the given ID.
	EnableLine(line Line, cpuID int)
}
