// Package tty implements the system console driver: a keyboard-fed line
// discipline, the blocking-read protocol that hands completed lines to
// sleeping tasks, the dual serial/framebuffer output path and the fatal-error
// path that freezes the machine.
package tty

import (
	"io"
	stdsync "sync"
	"sync/atomic"

	"minos/device"
	"minos/device/video/console"
	"minos/kernel"
	"minos/kernel/cpu"
	"minos/kernel/kfmt"
	ksync "minos/kernel/sync"
	"minos/kernel/task"
)

// inputBufSize is the input line buffer capacity. The three buffer indices
// increase monotonically and address the buffer modulo this size, so it must
// be a power of 2.
const inputBufSize = 128

// KeyNone is the sentinel returned by the keyboard pull callback when no
// decoded character is currently available.
const KeyNone = -1

// The decoded character codes with special meaning to the line discipline.
// codeErase never enters the input buffer: it is the pseudo-code fed to the
// output path to visually erase one character.
const (
	codeEOF       = 'D' - '@' // Ctrl-D: commit pending input, signal end-of-input
	codeBackspace = 'H' - '@' // Ctrl-H
	codeDumpTasks = 'P' - '@' // Ctrl-P: dump the task list
	codeKillLine  = 'U' - '@' // Ctrl-U: erase back to the last newline
	codeReboot    = 'Z' - '@' // Ctrl-Z: request a machine reboot
	codeDelete    = 0x7f

	codeErase = 0x100
)

// ErrReadCancelled is returned by Read when the calling task has been marked
// for termination. Callers propagate it as an I/O failure; no input is
// consumed.
var ErrReadCancelled = &kernel.Error{Module: "tty", Message: "read cancelled: task killed"}

// Config carries the external collaborators of the console driver.
type Config struct {
	// VGA is the text console device receiving the framebuffer half of all
	// output.
	VGA console.Device

	// Serial receives a best-effort copy of every output character.
	Serial io.ByteWriter

	// CurrentCore returns the core the calling goroutine executes on.
	CurrentCore func() *cpu.Core

	// Reboot is invoked when the reboot control key is typed.
	Reboot func()

	// DumpTasks is invoked when the dump-process-list control key is
	// typed. The supplied writer funnels into the console output path.
	DumpTasks func(io.Writer)
}

// Console is the system console driver. A single instance is created at boot
// and installed into the device switch by the hal package.
//
// Two independent spinlocks guard its state: the input lock owns the line
// buffer and the output lock owns all screen mutation. The only path holding
// both is the echo performed inside HandleInterrupt, which nests them in the
// fixed input-then-output order. No other nesting is permitted anywhere in
// the system.
type Console struct {
	cfg Config

	width, height int
	defaultAttr   console.Attr

	// The input line buffer. r indexes the next unread character, w the
	// commit horizon visible to readers and e the edit position of the
	// line still being typed: r <= w <= e and e-r never exceeds the
	// buffer size. Indices only grow; the single exception is the EOF
	// un-consume in Read.
	input struct {
		lock    ksync.Spinlock
		buf     [inputBufSize]byte
		r, w, e uint
	}

	// readers is woken each time a completed line is committed.
	readers task.WaitQueue

	// out serializes all screen mutation while locking is enabled.
	out     ksync.Spinlock
	locking uint32

	// panicked is the process-wide one-way Normal -> Panicked flag.
	panicked uint32

	// frozenWriters counts writers that observed the panic flag and froze.
	frozenWriters uint32
}

// New creates the console driver. The VGA device and the CurrentCore callback
// are mandatory; a nil value is a programmer error.
func New(cfg Config) *Console {
	if cfg.VGA == nil {
		panic("tty: Config.VGA must not be nil")
	}
	if cfg.CurrentCore == nil {
		panic("tty: Config.CurrentCore must not be nil")
	}

	w, h := cfg.VGA.Dimensions()
	c := &Console{
		cfg:         cfg,
		width:       int(w),
		height:      int(h),
		defaultAttr: cfg.VGA.DefaultAttr(),
		locking:     1,
	}
	return c
}

// HandleInterrupt runs the line discipline over the characters currently
// queued by the keyboard. It is invoked in interrupt context and repeatedly
// pulls decoded codes from getc until it reports KeyNone. The input lock is
// held for the whole batch, making it atomic with respect to readers.
func (c *Console) HandleInterrupt(getc func() int) {
	c.input.lock.Acquire()

	for {
		code := getc()
		if code == KeyNone {
			break
		}

		switch code {
		case codeReboot:
			if c.cfg.Reboot != nil {
				c.cfg.Reboot()
			}
		case codeDumpTasks:
			if c.cfg.DumpTasks != nil {
				c.cfg.DumpTasks(c.Writer())
			}
		case codeKillLine:
			for c.input.e != c.input.w && c.input.buf[(c.input.e-1)%inputBufSize] != '\n' {
				c.input.e--
				c.echo(codeErase)
			}
		case codeBackspace, codeDelete:
			if c.input.e != c.input.w {
				c.input.e--
				c.echo(codeErase)
			}
		default:
			if code == 0 || c.input.e-c.input.r >= inputBufSize {
				// NUL is dropped; so is any keystroke arriving while
				// the buffer is full. The missing echo is the only
				// backpressure signal the typist gets.
				continue
			}

			if code == '\r' {
				code = '\n'
			}

			c.input.buf[c.input.e%inputBufSize] = byte(code)
			c.input.e++
			c.echo(code)

			if code == '\n' || code == codeEOF || c.input.e-c.input.r == inputBufSize {
				c.input.w = c.input.e
				c.readers.WakeAll()
			}
		}
	}

	c.input.lock.Release()
}

// Read delivers up to len(p) committed input bytes to the caller, blocking
// until a line is available. The caller's held resource h (an inode lock in
// the original design) is released before any wait and reacquired before
// every return so a long wait never pins unrelated state.
//
// A read returns at most one line. A return of (0, nil) is the one-shot
// end-of-input signal produced by the EOF keystroke; (0, ErrReadCancelled)
// reports that the task was killed while waiting.
func (c *Console) Read(t *task.Task, h stdsync.Locker, p []byte) (int, *kernel.Error) {
	if h != nil {
		h.Unlock()
		defer h.Lock()
	}

	var (
		target = uint(len(p))
		n      uint
	)

	c.input.lock.Acquire()
	for n < target {
		for c.input.r == c.input.w {
			if t != nil && t.Killed() {
				c.input.lock.Release()
				return 0, ErrReadCancelled
			}
			c.readers.Sleep(t, &c.input.lock)
		}

		code := c.input.buf[c.input.r%inputBufSize]
		c.input.r++

		if code == codeEOF {
			if n > 0 {
				// Put the EOF back so the next read observes it again
				// and delivers the zero-length result exactly once.
				c.input.r--
			}
			break
		}

		p[n] = code
		n++

		if code == '\n' {
			break
		}
	}
	c.input.lock.Release()

	return int(n), nil
}

// Write renders p through the console output path, holding the output lock
// for the whole batch. The caller's held resource follows the same
// release/reacquire hand-off as Read.
func (c *Console) Write(h stdsync.Locker, p []byte) (int, *kernel.Error) {
	if h != nil {
		h.Unlock()
		defer h.Lock()
	}

	c.out.Acquire()
	for _, b := range p {
		c.putChar(int(b), c.defaultAttr)
	}
	c.out.Release()

	return len(p), nil
}

// echo renders one typed or erased character while HandleInterrupt holds the
// input lock. This is the single place in the system where the input and
// output locks nest, always input first.
func (c *Console) echo(code int) {
	if atomic.LoadUint32(&c.locking) == 1 {
		c.out.Acquire()
		c.putChar(code, c.defaultAttr)
		c.out.Release()
		return
	}
	c.putChar(code, c.defaultAttr)
}

// putChar renders a single character to both output sinks. Callers must hold
// the output lock unless locking has been disabled by the panic path.
//
// Once the panic flag is set, any core entering putChar disables its
// interrupts and freezes: after a fatal fault no output ordering can be
// trusted, so a permanent block is preferred over a torn write.
func (c *Console) putChar(code int, attr console.Attr) {
	if atomic.LoadUint32(&c.panicked) == 1 {
		atomic.AddUint32(&c.frozenWriters, 1)
		core := c.cfg.CurrentCore()
		core.DisableInterrupts()
		freezeFn(core)
		return
	}

	c.serialPut(code)
	c.vgaPut(code, attr)
}

// serialPut transmits one character on the serial sink. Erase becomes the
// three-byte backspace-space-backspace sequence so the character visually
// disappears on a dumb terminal.
func (c *Console) serialPut(code int) {
	if c.cfg.Serial == nil {
		return
	}

	if code == codeErase {
		c.cfg.Serial.WriteByte('\b')
		c.cfg.Serial.WriteByte(' ')
		c.cfg.Serial.WriteByte('\b')
		return
	}
	c.cfg.Serial.WriteByte(byte(code))
}

// vgaPut renders one character to the framebuffer. The cursor offset is read
// from and written back to the CRT registers on every call; hardware stays
// the single source of truth for the cursor.
func (c *Console) vgaPut(code int, attr console.Attr) {
	var (
		width = c.width
		limit = c.width * c.height
		pos   = int(c.cfg.VGA.Cursor())
	)

	switch {
	case code == '\n':
		pos += width - pos%width
	case code == codeErase:
		if pos > 0 {
			pos--
		}
	default:
		c.cfg.VGA.WriteAt(uint16(pos), byte(code), attr)
		pos++
	}

	if pos >= limit {
		// Scroll: shift the grid up one row and clear the newly exposed
		// bottom row.
		c.cfg.VGA.CopyRange(0, uint16(width), uint16(limit-width))
		pos -= width
		c.cfg.VGA.FillRange(uint16(pos), uint16(limit-pos), ' ', c.defaultAttr)
	}

	c.cfg.VGA.SetCursor(uint16(pos))
	c.cfg.VGA.WriteAt(uint16(pos), ' ', c.defaultAttr)
}

// Clear erases the whole screen and homes the cursor.
func (c *Console) Clear() {
	locking := atomic.LoadUint32(&c.locking) == 1
	if locking {
		c.out.Acquire()
	}

	limit := c.width * c.height
	c.cfg.VGA.FillRange(0, uint16(limit), ' ', c.defaultAttr)
	c.cfg.VGA.SetCursor(0)

	if locking {
		c.out.Release()
	}
}

// charWriter adapts the unlocked putChar stream to io.Writer so kfmt can
// format directly into the output path. Lock management is the caller's
// responsibility.
type charWriter struct {
	c    *Console
	attr console.Attr
}

func (w *charWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		w.c.putChar(int(b), w.attr)
	}
	return len(p), nil
}

// sinkWriter is the io.Writer handed to kfmt.SetOutputSink and to DumpTasks.
// Each Write call takes the output lock unless locking has been disabled by
// the panic path.
type sinkWriter struct {
	c *Console
}

func (w sinkWriter) Write(p []byte) (int, error) {
	locking := atomic.LoadUint32(&w.c.locking) == 1
	if locking {
		w.c.out.Acquire()
	}
	for _, b := range p {
		w.c.putChar(int(b), w.c.defaultAttr)
	}
	if locking {
		w.c.out.Release()
	}
	return len(p), nil
}

// Writer returns an io.Writer that funnels into the console output path,
// taking the output lock per call while locking is enabled.
func (c *Console) Writer() io.Writer {
	return sinkWriter{c}
}

// Cprintf formats its arguments with the given color attribute directly into
// the output path. The locking toggle is consulted once at entry: while on,
// the whole formatted output is atomic with respect to other writers; the
// panic path switches it off so diagnostics are never blocked behind a lock
// held by a frozen core.
func (c *Console) Cprintf(attr console.Attr, format string, args ...interface{}) {
	locking := atomic.LoadUint32(&c.locking) == 1
	if locking {
		c.out.Acquire()
	}

	kfmt.Fprintf(&charWriter{c: c, attr: attr}, format, args...)

	if locking {
		c.out.Release()
	}
}

// Printf is Cprintf with the console's default attribute.
func (c *Console) Printf(format string, args ...interface{}) {
	c.Cprintf(c.defaultAttr, format, args...)
}

// Panicked reports whether the fatal path has been taken.
func (c *Console) Panicked() bool {
	return atomic.LoadUint32(&c.panicked) == 1
}

// FrozenWriters returns the number of writers that observed the panic flag
// and entered the frozen terminal state.
func (c *Console) FrozenWriters() uint32 {
	return atomic.LoadUint32(&c.frozenWriters)
}

// DriverName returns the name of this driver.
func (c *Console) DriverName() string {
	return "console"
}

// DriverVersion returns the version of this driver.
func (c *Console) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit initializes this driver.
func (c *Console) DriverInit(w io.Writer) *kernel.Error {
	c.Clear()
	kfmt.Fprintf(w, "input buffer: %d bytes, screen %dx%d\n", inputBufSize, c.width, c.height)
	return nil
}

// Probe returns a device.ProbeFn that creates the console driver once a
// console device has been detected.
func Probe(cfg Config) device.ProbeFn {
	return func() device.Driver {
		if cfg.VGA == nil || cfg.CurrentCore == nil {
			return nil
		}
		return New(cfg)
	}
}
