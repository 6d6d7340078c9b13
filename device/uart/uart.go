// Package uart implements the serial output driver. The console funnels a
// copy of everything it prints through this driver so diagnostics survive on
// a dumb terminal even if the framebuffer is unreadable.
package uart

import (
	"io"
	"sync/atomic"

	"minos/device"
	"minos/kernel"
	"minos/kernel/kfmt"
)

// UART forwards single bytes to the transmit side of the machine's serial
// port. Serial output is best-effort: sink errors are counted but never
// propagated, since the one caller that cares about delivery guarantees
// (the panic path) can no longer act on a failure anyway.
type UART struct {
	tx io.Writer

	writeErrors uint64
}

// New creates a serial output driver transmitting through tx.
func New(tx io.Writer) *UART {
	return &UART{tx: tx}
}

// WriteByte implements io.ByteWriter.
func (u *UART) WriteByte(b byte) error {
	buf := [1]byte{b}
	if _, err := u.tx.Write(buf[:]); err != nil {
		atomic.AddUint64(&u.writeErrors, 1)
	}
	return nil
}

// WriteErrors returns the number of transmit errors swallowed so far.
func (u *UART) WriteErrors() uint64 {
	return atomic.LoadUint64(&u.writeErrors)
}

// DriverName returns the name of this driver.
func (u *UART) DriverName() string {
	return "uart"
}

// DriverVersion returns the version of this driver.
func (u *UART) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit initializes this driver.
func (u *UART) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "serial tx attached\n")
	return nil
}

// Probe returns a device.ProbeFn that detects a serial port transmitting
// through tx.
func Probe(tx io.Writer) device.ProbeFn {
	return func() device.Driver {
		if tx == nil {
			return nil
		}
		return New(tx)
	}
}
