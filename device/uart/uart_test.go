package uart

import (
	"bytes"
	"errors"
	"testing"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("tx overrun")
}

func TestUARTWriteByte(t *testing.T) {
	var buf bytes.Buffer
	u := New(&buf)

	for _, b := range []byte("ok\n") {
		if err := u.WriteByte(b); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := buf.String(); got != "ok\n" {
		t.Fatalf("expected transmit of %q; got %q", "ok\n", got)
	}
}

func TestUARTSwallowsSinkErrors(t *testing.T) {
	u := New(failingWriter{})

	if err := u.WriteByte('x'); err != nil {
		t.Fatalf("expected sink errors to be swallowed; got %v", err)
	}

	if got := u.WriteErrors(); got != 1 {
		t.Fatalf("expected 1 recorded write error; got %d", got)
	}
}

func TestUARTProbe(t *testing.T) {
	if drv := Probe(&bytes.Buffer{})(); drv == nil {
		t.Error("expected probe to detect a uart when a tx sink is present")
	}

	if drv := Probe(nil)(); drv != nil {
		t.Error("expected probe to fail without a tx sink")
	}
}
