package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"minos/internal/ptyio"
	"minos/machine"
)

// quitKey detaches a stdio serial session; raw mode means nobody else will
// see the Ctrl-\ for us.
const quitKey = 0x1c

func newSerialCmd() *cobra.Command {
	var usePty bool

	cmd := &cobra.Command{
		Use:   "serial",
		Short: "Boot the machine as a plain serial console",
		Long: "Boot the machine without a screen: the UART stream goes to " +
			"stdout and stdin feeds the keyboard. With --pty the session is " +
			"exposed on a pseudo terminal instead, for other programs to attach to.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			opts, err := loadOptions()
			if err != nil {
				return err
			}

			if usePty {
				return runSerialPty(opts, log)
			}
			return runSerialStdio(opts, log)
		},
	}

	cmd.Flags().BoolVar(&usePty, "pty", false, "expose the console on a pseudo terminal")
	return cmd
}

func runSerialStdio(opts machine.Options, log *logrus.Logger) error {
	var out io.Writer = os.Stdout

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer term.Restore(fd, state)

		// Raw mode leaves newline translation to us.
		out = crlfWriter{os.Stdout}
	}

	fmt.Fprintln(os.Stderr, color.GreenString("serial console on stdio, Ctrl-\\ detaches"))

	m, err := bootMachine(opts, out, log)
	if err != nil {
		return err
	}
	defer m.Close()

	quit := make(chan struct{})
	go pumpStdin(m, quit)

	select {
	case <-quit:
	case <-m.RebootRequests():
		fmt.Fprintln(os.Stderr, color.YellowString("\rreboot requested, shutting down"))
	}
	return nil
}

// pumpStdin feeds stdin bytes to the keyboard controller until the quit key
// or end of input.
func pumpStdin(m *machine.Machine, quit chan<- struct{}) {
	defer close(quit)

	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}

		codes := make([]int, 0, n)
		for _, b := range buf[:n] {
			if b == quitKey {
				if len(codes) > 0 {
					m.Keyboard().Press(codes...)
				}
				return
			}
			codes = append(codes, int(b))
		}
		m.Keyboard().Press(codes...)
	}
}

func runSerialPty(opts machine.Options, log *logrus.Logger) error {
	// The bridge needs the keyboard and the machine needs the bridge as its
	// serial sink; a late-bound writer breaks the cycle.
	out := &lateWriter{}

	m, err := bootMachine(opts, out, log)
	if err != nil {
		return err
	}
	defer m.Close()

	bridge, err := ptyio.New(m.Keyboard(), log)
	if err != nil {
		return fmt.Errorf("pty: %w", err)
	}
	defer bridge.Close()
	out.set(bridge)

	fmt.Fprintln(os.Stderr, color.GreenString("serial console on %s", bridge.SlaveName()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
	case <-m.RebootRequests():
		fmt.Fprintln(os.Stderr, color.YellowString("reboot requested, shutting down"))
	}
	return nil
}

// crlfWriter expands bare newlines for a terminal in raw mode.
type crlfWriter struct {
	next io.Writer
}

func (w crlfWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+8)
	for _, b := range p {
		if b == '\n' {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	if _, err := w.next.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// lateWriter is an io.Writer whose destination is attached after
// construction; writes before that are dropped.
type lateWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lateWriter) set(w io.Writer) {
	l.mu.Lock()
	l.w = w
	l.mu.Unlock()
}

func (l *lateWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	w := l.w
	l.mu.Unlock()

	if w == nil {
		return len(p), nil
	}
	return w.Write(p)
}
