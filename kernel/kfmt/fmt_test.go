package kfmt

import (
	"bytes"
	"strings"
	"testing"
)

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer

	// mute vet warnings about malformed printf formatting strings
	printfn := func(format string, args ...interface{}) {
		Fprintf(&buf, format, args...)
	}

	nilStr := (*string)(nil)
	str := "pointed-at"

	specs := []struct {
		fn        func()
		expOutput string
	}{
		{
			func() { printfn("no args") },
			"no args",
		},
		// bool values
		{
			func() { printfn("%t", true) },
			"true",
		},
		{
			func() { printfn("%41t", false) },
			"false",
		},
		// strings and byte slices
		{
			func() { printfn("%s arg", "STRING") },
			"STRING arg",
		},
		{
			func() { printfn("%s arg", []byte("BYTE SLICE")) },
			"BYTE SLICE arg",
		},
		{
			func() { printfn("'%4s' arg with padding", "ABC") },
			"' ABC' arg with padding",
		},
		{
			func() { printfn("string pointer: %s", &str) },
			"string pointer: pointed-at",
		},
		{
			func() { printfn("nil string pointer: %s", nilStr) },
			"nil string pointer: (null)",
		},
		// ints
		{
			func() { printfn("int arg: %d", -42) },
			"int arg: -42",
		},
		{
			func() { printfn("uint arg: %d", uint8(10)) },
			"uint arg: 10",
		},
		{
			func() { printfn("uint arg: %o", uint16(0777)) },
			"uint arg: 777",
		},
		{
			func() { printfn("uint arg: 0x%x", uint32(0xbadf00d)) },
			"uint arg: 0xbadf00d",
		},
		{
			func() { printfn("uint arg with padding: '%10d'", uint64(123)) },
			"uint arg with padding: '       123'",
		},
		{
			func() { printfn("uint arg with padding: '0x%10x'", uint64(0xbadf00d)) },
			"uint arg with padding: '0x000badf00d'",
		},
		{
			func() { printfn("int arg with padding: '%5d'", -123) },
			"int arg with padding: ' -123'",
		},
		// pointers
		{
			func() { printfn("%p", uintptr(0xdeadc0de)) },
			"0xdeadc0de",
		},
		{
			func() { printfn("%p", uint64(0x1234)) },
			"0x1234",
		},
		// literal percent
		{
			func() { printfn("100%%") },
			"100%",
		},
		// unknown verbs are echoed verbatim so the bug is visible
		{
			func() { printfn("bogus %q verb") },
			"bogus %q verb",
		},
		{
			func() { printfn("dangling %") },
			"dangling %",
		},
		// arg count mismatches
		{
			func() { printfn("missing arg: %d") },
			"missing arg: (MISSING)",
		},
		{
			func() { printfn("extra args", 1, 2) },
			"extra args%!(EXTRA)%!(EXTRA)",
		},
		// type mismatches
		{
			func() { printfn("%d", "not a number") },
			"%!(WRONGTYPE)",
		},
		{
			func() { printfn("%s", 42) },
			"%!(WRONGTYPE)",
		},
		{
			func() { printfn("%t", 42) },
			"%!(WRONGTYPE)",
		},
		{
			func() { printfn("%p", "not a pointer") },
			"%!(WRONGTYPE)",
		},
	}

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()
		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected output %q; got %q", specIndex, spec.expOutput, got)
		}
	}
}

func TestPrintfToEarlyPrintBuffer(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyPrintBuffer.rIndex = 0
		earlyPrintBuffer.wIndex = 0
	}()

	outputSink = nil
	exp := "hello from early boot: 123"
	Printf("hello from early boot: %d", 123)

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if got := buf.String(); got != exp {
		t.Fatalf("expected SetOutputSink to flush %q from the early print buffer; got %q", exp, got)
	}

	Printf(" and more")
	if got := buf.String(); !strings.HasSuffix(got, " and more") {
		t.Fatalf("expected output after SetOutputSink to reach the sink; got %q", got)
	}
}

func TestGetOutputSink(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyPrintBuffer.rIndex = 0
		earlyPrintBuffer.wIndex = 0
	}()

	outputSink = nil
	if GetOutputSink() != &earlyPrintBuffer {
		t.Error("expected GetOutputSink to return the early print buffer when no sink is registered")
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)
	if GetOutputSink() != &buf {
		t.Error("expected GetOutputSink to return the registered sink")
	}
}
