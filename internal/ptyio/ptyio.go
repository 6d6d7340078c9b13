// Package ptyio exposes the machine's serial console on a host pseudo
// terminal: UART output is written to the pty and bytes typed into the pty
// are queued on the keyboard controller. Attaching any terminal program to
// the slave side yields a plain serial console session.
package ptyio

import (
	"os"
	"sync"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// KeyQueue is the input side of the bridge; satisfied by the machine's
// keyboard controller.
type KeyQueue interface {
	Press(codes ...int)
}

// Bridge owns one pty pair and the goroutine pumping its input side.
type Bridge struct {
	master *os.File
	slave  *os.File
	keys   KeyQueue
	log    *logrus.Logger

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New opens a pty pair sized to the text console and starts pumping slave
// input into the keyboard queue.
func New(keys KeyQueue, log *logrus.Logger) (*Bridge, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, err
	}

	if err := pty.Setsize(master, &pty.Winsize{Rows: 25, Cols: 80}); err != nil {
		log.WithError(err).Warn("pty resize failed")
	}

	// Raw mode on the slave keeps the host line discipline out of the way:
	// the driver does its own echo and editing, and UART output must not be
	// echoed back into the keyboard queue.
	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		log.WithError(err).Warn("pty raw mode failed")
	}

	b := &Bridge{
		master: master,
		slave:  slave,
		keys:   keys,
		log:    log,
	}

	b.wg.Add(1)
	go b.inputLoop()

	return b, nil
}

// SlaveName returns the path of the slave device for the user to attach to.
func (b *Bridge) SlaveName() string {
	return b.slave.Name()
}

// Write implements io.Writer; the UART drains into it.
func (b *Bridge) Write(p []byte) (int, error) {
	return b.master.Write(p)
}

// inputLoop forwards bytes typed into the pty to the keyboard controller.
func (b *Bridge) inputLoop() {
	defer b.wg.Done()

	buf := make([]byte, 256)
	for {
		n, err := b.master.Read(buf)
		if err != nil {
			// Master closed; the bridge is shutting down.
			return
		}

		codes := make([]int, n)
		for i := 0; i < n; i++ {
			codes[i] = int(buf[i])
		}
		b.keys.Press(codes...)
	}
}

// Close tears down the pty pair and stops the input pump.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.master.Close()
		if serr := b.slave.Close(); err == nil {
			err = serr
		}
		b.wg.Wait()
	})
	return err
}
