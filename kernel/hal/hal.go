// Package hal probes the emulated hardware, initializes the device drivers
// and wires them together: the VGA console and the serial port feed the tty
// driver, the tty driver becomes the kernel output sink and the console
// device-switch entry, and the keyboard interrupt line is unmasked on both
// interrupt controllers.
package hal

import (
	"bytes"
	"io"

	"minos/device"
	"minos/device/tty"
	"minos/device/uart"
	"minos/device/video/console"
	"minos/kernel"
	"minos/kernel/cpu"
	"minos/kernel/irq"
	"minos/kernel/kfmt"
	"minos/kernel/task"
)

// Hardware describes the machine surface the drivers attach to.
type Hardware struct {
	// Ports is the I/O port space holding the CRT controller registers.
	Ports console.PortIO

	// VRAM is the memory-mapped text framebuffer.
	VRAM console.Memory

	// SerialTx is the transmit side of the serial port.
	SerialTx io.Writer

	// Keyboard is the pull callback returning the next decoded character
	// code, or tty.KeyNone when the queue is empty.
	Keyboard func() int

	// PIC and IOAPIC are the two interrupt controllers that both need to
	// unmask the keyboard line before interrupts flow.
	PIC    irq.Masker
	IOAPIC irq.Router

	// CurrentCore returns the core the calling goroutine executes on.
	CurrentCore func() *cpu.Core

	// Reboot requests a machine reboot; invoked by the console's reboot
	// control key.
	Reboot func()

	// CmdLine carries the key=value boot arguments.
	CmdLine map[string]string
}

// managedDevices contains the devices initialized during Boot.
type managedDevices struct {
	activeConsole console.Device
	activeSerial  io.ByteWriter
	activeTTY     *tty.Console

	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

var (
	devices managedDevices
	strBuf  bytes.Buffer

	errMissingHardware = &kernel.Error{Module: "hal", Message: "console hardware not present"}
)

// ActiveTTY returns the console driver initialized by Boot.
func ActiveTTY() *tty.Console {
	return devices.activeTTY
}

// Boot probes the hardware, initializes the drivers and hands the system
// console its collaborators. It returns the console driver; the caller is
// expected to attach tty.Console.HandleInterrupt to the keyboard interrupt
// line of its interrupt dispatcher.
func Boot(hw Hardware) (*tty.Console, *kernel.Error) {
	probe([]device.ProbeFn{
		console.Probe(hw.Ports, hw.VRAM),
		uart.Probe(hw.SerialTx),
	})

	if devices.activeConsole == nil {
		return nil, errMissingHardware
	}

	// The console driver is probed last: it consumes the devices found
	// above.
	probe([]device.ProbeFn{
		tty.Probe(tty.Config{
			VGA:         devices.activeConsole,
			Serial:      devices.activeSerial,
			CurrentCore: hw.CurrentCore,
			Reboot:      hw.Reboot,
			DumpTasks:   task.DumpTo,
		}),
	})

	cons := devices.activeTTY
	if cons == nil {
		return nil, errMissingHardware
	}

	// From here on kernel output lands on the screen; everything buffered
	// since boot is flushed first.
	kfmt.SetOutputSink(cons.Writer())

	device.SetPanicHandler(cons.Panic)
	device.Register(device.MajorConsole, device.DevOps{
		Read:  cons.Read,
		Write: cons.Write,
	})

	// The keyboard line must be unmasked on both controllers; IRQs are
	// routed to the boot core.
	if hw.PIC != nil {
		hw.PIC.EnableLine(irq.LineKeyboard)
	}
	if hw.IOAPIC != nil {
		hw.IOAPIC.EnableLine(irq.LineKeyboard, 0)
	}

	if hw.CmdLine["consoleBanner"] != "off" {
		cons.Cprintf(console.MakeAttr(console.LightCyan, console.Black), "minos console\n")
	}

	return cons, nil
}

// probe executes each probe function and initializes every driver found,
// logging progress through a per-driver prefix writer.
func probe(probeFns []device.ProbeFn) {
	var w = kfmt.PrefixWriter{Sink: kfmt.GetOutputSink()}

	for _, probeFn := range probeFns {
		drv := probeFn()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		onDriverInit(drv)
		devices.activeDrivers = append(devices.activeDrivers, drv)
	}
}

// onDriverInit records the first driver found for each console role.
func onDriverInit(drv device.Driver) {
	switch drvImpl := drv.(type) {
	case *tty.Console:
		if devices.activeTTY == nil {
			devices.activeTTY = drvImpl
		}
	case console.Device:
		if devices.activeConsole == nil {
			devices.activeConsole = drvImpl
		}
	case io.ByteWriter:
		if devices.activeSerial == nil {
			devices.activeSerial = drvImpl
		}
	}
}
