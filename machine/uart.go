package machine

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
)

// UART emulates the transmit side of a serial port. The driver writes bytes
// from lock-held paths, so transmission must never block: bytes land in a
// ring buffer and a drain goroutine forwards them to the configured host
// writer. On overflow the newest bytes are dropped and counted, mirroring a
// real UART FIFO overrun.
type UART struct {
	ring *ringbuffer.RingBuffer
	out  io.Writer
	log  *logrus.Logger

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	txBytes      uint64
	droppedBytes uint64
}

// UARTStats carries the transmit counters.
type UARTStats struct {
	TxBytes      uint64
	DroppedBytes uint64
}

// NewUART creates a serial port draining into out and starts its drain
// goroutine.
func NewUART(capacity int, out io.Writer, log *logrus.Logger) *UART {
	u := &UART{
		ring:   ringbuffer.New(capacity),
		out:    out,
		log:    log,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	u.wg.Add(1)
	go u.drainLoop()

	return u
}

// Write implements io.Writer. It queues the bytes for transmission and never
// blocks; bytes that do not fit are dropped and counted.
func (u *UART) Write(p []byte) (int, error) {
	n, err := u.ring.Write(p)
	if err != nil && err != ringbuffer.ErrIsFull {
		return n, err
	}

	if n < len(p) {
		dropped := uint64(len(p) - n)
		atomic.AddUint64(&u.droppedBytes, dropped)
		u.log.WithField("dropped", dropped).Warn("uart tx overrun")
	}

	select {
	case u.notify <- struct{}{}:
	default:
	}

	// The io.Writer contract is relaxed on purpose: the tx path is
	// best-effort and short counts are reported through Stats instead.
	return len(p), nil
}

// drainLoop forwards queued bytes to the host writer.
func (u *UART) drainLoop() {
	defer u.wg.Done()

	buf := make([]byte, 512)
	for {
		select {
		case <-u.done:
			u.flush(buf)
			return
		case <-u.notify:
			u.flush(buf)
		case <-time.After(50 * time.Millisecond):
			u.flush(buf)
		}
	}
}

// flush drains everything currently queued.
func (u *UART) flush(buf []byte) {
	for {
		n, err := u.ring.TryRead(buf)
		if n == 0 || (err != nil && err != ringbuffer.ErrIsEmpty) {
			return
		}

		if u.out != nil {
			if _, werr := u.out.Write(buf[:n]); werr != nil {
				u.log.WithError(werr).Warn("uart host write failed")
			}
		}
		atomic.AddUint64(&u.txBytes, uint64(n))
	}
}

// Stats returns the transmit counters.
func (u *UART) Stats() UARTStats {
	return UARTStats{
		TxBytes:      atomic.LoadUint64(&u.txBytes),
		DroppedBytes: atomic.LoadUint64(&u.droppedBytes),
	}
}

// Close stops the drain goroutine after flushing pending output.
func (u *UART) Close() error {
	close(u.done)
	u.wg.Wait()
	return nil
}
