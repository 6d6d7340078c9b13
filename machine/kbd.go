package machine

import (
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"
)

// NoScancode is the sentinel returned by Getc when the keyboard queue is
// empty. It matches the driver's pull-callback contract.
const NoScancode = -1

// Keyboard emulates the keyboard controller. Frontends push decoded
// character codes from multiple goroutines (tcell event loop, pty input,
// tests); the driver pulls them one at a time from interrupt context, so the
// queue is a multi-producer ring. On overflow the oldest codes are
// overwritten, which is what a real controller's tiny FIFO does too.
type Keyboard struct {
	queue mpmc.RichOverlappedRingBuffer[int]
	log   *logrus.Logger

	// raise asserts the keyboard interrupt line; installed by the machine.
	raise func()

	overwritten uint64
}

// NewKeyboard creates a keyboard controller with the given queue capacity.
func NewKeyboard(capacity uint32, log *logrus.Logger) *Keyboard {
	return &Keyboard{
		queue: mpmc.NewOverlappedRingBuffer[int](capacity),
		log:   log,
	}
}

// SetInterrupt installs the callback asserting the keyboard IRQ line.
func (k *Keyboard) SetInterrupt(fn func()) {
	k.raise = fn
}

// Press queues the given decoded character codes and asserts the interrupt
// line once for the batch.
func (k *Keyboard) Press(codes ...int) {
	for _, code := range codes {
		if overwrites, err := k.queue.EnqueueM(code); err != nil {
			k.log.WithError(err).Warn("keyboard enqueue failed")
		} else if overwrites > 0 {
			atomic.AddUint64(&k.overwritten, uint64(overwrites))
			k.log.WithField("dropped", overwrites).Warn("keyboard queue overflow")
		}
	}

	if k.raise != nil {
		k.raise()
	}
}

// PressString queues each byte of s as a decoded character code.
func (k *Keyboard) PressString(s string) {
	codes := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		codes[i] = int(s[i])
	}
	k.Press(codes...)
}

// Getc returns the next queued character code, or NoScancode when the queue
// is empty. This is the pull callback handed to the console driver.
func (k *Keyboard) Getc() int {
	code, err := k.queue.Dequeue()
	if err != nil {
		return NoScancode
	}
	return code
}

// Overwritten returns the number of codes lost to queue overflow.
func (k *Keyboard) Overwritten() uint64 {
	return atomic.LoadUint64(&k.overwritten)
}
