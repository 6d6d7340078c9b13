package machine

import (
	"io"
	"sync"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"minos/kernel/cpu"
	"minos/kernel/irq"
)

// Options configures a machine. Zero fields take the tagged defaults; the
// struct is also the YAML shape accepted by the CLI's --config file.
type Options struct {
	// Cores is the number of virtual CPU cores.
	Cores int `yaml:"cores" default:"2"`

	// KeyQueueSize is the keyboard controller queue capacity.
	KeyQueueSize uint32 `yaml:"keyQueueSize" default:"64"`

	// SerialBufSize is the UART transmit ring capacity in bytes.
	SerialBufSize int `yaml:"serialBufSize" default:"4096"`
}

// Machine aggregates the emulated hardware. It owns interrupt delivery: an
// asserted line reaches its handler only while unmasked on both controllers
// and while the target core accepts interrupts, and deliveries on one line
// are serialized until the handler returns.
type Machine struct {
	opts Options
	log  *logrus.Logger

	cores  []*cpu.Core
	bus    *Bus
	vram   *VRAM
	crtc   *CRTC
	kbd    *Keyboard
	pic    *PIC
	ioapic *IOAPIC
	uart   *UART

	handlerMu sync.Mutex
	handlers  map[irq.Line]func()

	// lineMu serializes delivery per interrupt line, emulating the
	// hardware's wait-for-EOI: a handler that never returns wedges its
	// line, not the machine.
	lineMu map[irq.Line]*sync.Mutex

	rebootCh chan struct{}
}

// New creates a machine. serialOut receives the UART transmit stream; a nil
// logger silences all machine logging.
func New(opts Options, serialOut io.Writer, log *logrus.Logger) *Machine {
	defaults.SetDefaults(&opts)

	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	m := &Machine{
		opts:     opts,
		log:      log,
		bus:      NewBus(log),
		vram:     NewVRAM(),
		crtc:     NewCRTC(),
		kbd:      NewKeyboard(opts.KeyQueueSize, log),
		pic:      NewPIC(),
		ioapic:   NewIOAPIC(),
		uart:     NewUART(opts.SerialBufSize, serialOut, log),
		handlers: make(map[irq.Line]func()),
		lineMu:   make(map[irq.Line]*sync.Mutex),
		rebootCh: make(chan struct{}, 1),
	}

	for i := 0; i < opts.Cores; i++ {
		m.cores = append(m.cores, cpu.New(i))
	}

	m.bus.Map(CRTPortIndex, m.crtc)
	m.bus.Map(CRTPortData, m.crtc)

	m.kbd.SetInterrupt(func() { m.raise(irq.LineKeyboard) })

	return m
}

// SetIRQHandler installs the handler invoked when the given line is
// delivered.
func (m *Machine) SetIRQHandler(line irq.Line, fn func()) {
	m.handlerMu.Lock()
	m.handlers[line] = fn
	if _, ok := m.lineMu[line]; !ok {
		m.lineMu[line] = &sync.Mutex{}
	}
	m.handlerMu.Unlock()
}

// raise delivers an interrupt line if both controllers pass it through and
// the routed core currently accepts interrupts. A blocked delivery is simply
// dropped: device state stays queued and the next assertion tries again.
func (m *Machine) raise(line irq.Line) {
	if m.pic.LineMasked(line) {
		m.log.WithField("line", line).Debug("irq masked by pic")
		return
	}

	cpuID, ok := m.ioapic.Route(line)
	if !ok {
		m.log.WithField("line", line).Debug("irq masked by ioapic")
		return
	}

	if cpuID < 0 || cpuID >= len(m.cores) || !m.cores[cpuID].InterruptsEnabled() {
		m.log.WithFields(logrus.Fields{"line": line, "cpu": cpuID}).Debug("irq target not accepting interrupts")
		return
	}

	m.handlerMu.Lock()
	fn := m.handlers[line]
	mu := m.lineMu[line]
	m.handlerMu.Unlock()

	if fn == nil {
		return
	}

	mu.Lock()
	defer mu.Unlock()
	fn()
}

// Cores returns the machine's virtual cores.
func (m *Machine) Cores() []*cpu.Core {
	return m.cores
}

// BootCore returns core 0.
func (m *Machine) BootCore() *cpu.Core {
	return m.cores[0]
}

// Bus returns the I/O port bus.
func (m *Machine) Bus() *Bus { return m.bus }

// VRAM returns the text framebuffer memory.
func (m *Machine) VRAM() *VRAM { return m.vram }

// CRTC returns the CRT controller.
func (m *Machine) CRTC() *CRTC { return m.crtc }

// Keyboard returns the keyboard controller.
func (m *Machine) Keyboard() *Keyboard { return m.kbd }

// PIC returns the legacy interrupt controller.
func (m *Machine) PIC() *PIC { return m.pic }

// IOAPIC returns the IOAPIC.
func (m *Machine) IOAPIC() *IOAPIC { return m.ioapic }

// UART returns the serial port.
func (m *Machine) UART() *UART { return m.uart }

// RequestReboot signals a reboot request to whoever runs the machine. The
// console's reboot control key lands here.
func (m *Machine) RequestReboot() {
	select {
	case m.rebootCh <- struct{}{}:
	default:
	}
}

// RebootRequests returns the channel carrying reboot requests.
func (m *Machine) RebootRequests() <-chan struct{} {
	return m.rebootCh
}

// Close shuts the machine down, flushing pending serial output.
func (m *Machine) Close() error {
	return m.uart.Close()
}
