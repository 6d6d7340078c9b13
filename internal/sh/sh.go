// Package sh implements a small interactive shell that exercises the console
// through the device switch the way a real userland would: it blocks in the
// console read entry point for each line and writes its replies through the
// write entry point while holding its file handle lock.
package sh

import (
	"strings"
	stdsync "sync"

	"minos/device"
	"minos/device/tty"
	"minos/device/video/console"
	"minos/kernel/task"
)

const prompt = "$ "

// readChunk is the size of each read handed to the device switch.
const readChunk = 64

// Shell reads command lines from the console and executes built-ins.
type Shell struct {
	cons *tty.Console
	ops  device.DevOps
	task *task.Task

	// handle stands in for the inode lock a file descriptor read would
	// hold when entering the device switch.
	handle stdsync.Mutex

	done chan struct{}
}

// New creates a shell bound to the console driver and its device switch entry
// points.
func New(cons *tty.Console, ops device.DevOps) *Shell {
	s := &Shell{
		cons: cons,
		ops:  ops,
		task: task.New("sh"),
		done: make(chan struct{}),
	}
	task.Register(s.task)
	return s
}

// Start runs the shell loop in its own goroutine.
func (s *Shell) Start() {
	go s.run()
}

// Stop kills the shell task and waits for the loop to observe it.
func (s *Shell) Stop() {
	s.task.Kill()
	<-s.done
}

// Done is closed when the shell loop has exited.
func (s *Shell) Done() <-chan struct{} {
	return s.done
}

func (s *Shell) run() {
	defer close(s.done)

	for {
		s.write(prompt)

		line, ok := s.readLine()
		if !ok {
			return
		}
		if !s.dispatch(line) {
			return
		}
	}
}

// readLine blocks until the console delivers a committed line. It returns
// ok=false on end-of-input or when the shell task is killed.
func (s *Shell) readLine() (string, bool) {
	var line []byte
	buf := make([]byte, readChunk)

	for {
		s.handle.Lock()
		n, err := s.ops.Read(s.task, &s.handle, buf)
		s.handle.Unlock()

		if err != nil {
			return "", false
		}
		if n == 0 {
			if len(line) > 0 {
				// EOF flushed a line that exactly filled the
				// previous read; hand it over before reporting
				// end-of-input on the next call.
				return string(line), true
			}
			return "", false
		}

		line = append(line, buf[:n]...)
		if line[len(line)-1] == '\n' {
			return strings.TrimRight(string(line), "\n"), true
		}
		if n < len(buf) {
			// Short count without a newline: the line ended in EOF.
			return string(line), true
		}
	}
}

func (s *Shell) write(text string) {
	s.handle.Lock()
	s.ops.Write(&s.handle, []byte(text))
	s.handle.Unlock()
}

// dispatch executes one command line. It returns false when the shell should
// exit.
func (s *Shell) dispatch(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "help":
		s.write("commands: help echo clear colors ps panic exit\n")
	case "echo":
		s.write(strings.Join(args, " ") + "\n")
	case "clear":
		s.cons.Clear()
	case "colors":
		for attr := console.Black; attr <= console.White; attr++ {
			s.cons.Cprintf(console.MakeAttr(attr, console.Black), "%d ", int(attr))
		}
		s.write("\n")
	case "ps":
		task.DumpTo(s.cons.Writer())
	case "panic":
		// Takes down the machine; the loop never returns from this.
		s.cons.Panic("requested from shell")
	case "exit":
		return false
	default:
		s.write("unknown command: " + cmd + "\n")
	}
	return true
}
