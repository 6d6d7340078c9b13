package screen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"minos/machine"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// putString stores a string into video memory with the given attribute.
func putString(v *machine.VRAM, off int, s string, attr uint8) {
	for i := 0; i < len(s); i++ {
		v.Set(off+i, uint16(attr)<<8|uint16(s[i]))
	}
}

func TestDumpTextGolden(t *testing.T) {
	v := machine.NewVRAM()
	putString(v, 0, "minos console", 0x07)
	putString(v, machine.VRAMWidth, "$ echo hi", 0x07)

	want := "minos console\n$ echo hi\n" + strings.Repeat("\n", machine.VRAMHeight-2)
	got := DumpText(v.Snapshot())

	if got != want {
		edits := myers.ComputeEdits(span.URIFromPath("screen.txt"), want, got)
		t.Fatalf("framebuffer text mismatch:\n%s",
			fmt.Sprint(gotextdiff.ToUnified("want", "got", want, edits)))
	}
}

func newSimHarness(t *testing.T) (*Screen, tcell.SimulationScreen, *machine.Machine) {
	t.Helper()

	m := machine.New(machine.Options{Cores: 1}, nil, testLogger())
	t.Cleanup(func() { m.Close() })

	sim := tcell.NewSimulationScreen("UTF-8")
	s, err := New(Config{
		VRAM:     m.VRAM(),
		CRTC:     m.CRTC(),
		Keyboard: m.Keyboard(),
		Log:      testLogger(),
		TCell:    sim,
	})
	require.NoError(t, err)
	sim.SetSize(machine.VRAMWidth, machine.VRAMHeight)

	return s, sim, m
}

func TestRenderDrawsFramebufferCells(t *testing.T) {
	s, sim, m := newSimHarness(t)
	defer sim.Fini()

	putString(m.VRAM(), 0, "ok", 0x1e) // yellow on blue
	m.CRTC().Out(machine.CRTPortIndex, 15)
	m.CRTC().Out(machine.CRTPortData, 2)

	s.render()

	ch, _, style, _ := sim.GetContent(0, 0)
	require.Equal(t, 'o', ch)
	fg, bg, _ := style.Decompose()
	require.Equal(t, tcell.ColorYellow, fg)
	require.Equal(t, tcell.ColorNavy, bg)

	ch, _, _, _ = sim.GetContent(1, 0)
	require.Equal(t, 'k', ch)

	// Untouched cells render as blanks, not NULs.
	ch, _, _, _ = sim.GetContent(5, 5)
	require.Equal(t, ' ', ch)
}

func TestKeyEventsReachKeyboardQueue(t *testing.T) {
	s, sim, m := newSimHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- s.Run(ctx) }()

	sim.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	sim.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	sim.InjectKey(tcell.KeyCtrlD, 0, tcell.ModCtrl)

	var got []int
	require.Eventually(t, func() bool {
		for {
			code := m.Keyboard().Getc()
			if code == machine.NoScancode {
				break
			}
			got = append(got, code)
		}
		return len(got) >= 3
	}, time.Second, time.Millisecond)

	require.Equal(t, []int{'a', '\r', 'D' - '@'}, got)

	cancel()
	require.ErrorIs(t, <-runDone, context.Canceled)
}

func TestCtrlBackslashQuits(t *testing.T) {
	s, sim, _ := newSimHarness(t)

	runDone := make(chan error, 1)
	go func() { runDone <- s.Run(context.Background()) }()

	sim.InjectKey(tcell.KeyCtrlBackslash, 0, tcell.ModCtrl)

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run loop did not quit")
	}
}

func TestDecodeKeyMapsTerminalKeys(t *testing.T) {
	specs := []struct {
		ev      *tcell.EventKey
		expCode int
		expOK   bool
	}{
		{tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), 'x', true},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), '\r', true},
		{tcell.NewEventKey(tcell.KeyBackspace2, 0, tcell.ModNone), 0x7f, true},
		{tcell.NewEventKey(tcell.KeyCtrlU, 0, tcell.ModCtrl), 'U' - '@', true},
		{tcell.NewEventKey(tcell.KeyCtrlP, 0, tcell.ModCtrl), 'P' - '@', true},
		{tcell.NewEventKey(tcell.KeyRune, 'é', tcell.ModNone), 0, false},
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), 0, false},
	}

	for specIndex, spec := range specs {
		code, ok := decodeKey(spec.ev)
		if ok != spec.expOK || code != spec.expCode {
			t.Errorf("[spec %d] expected (%d, %t); got (%d, %t)",
				specIndex, spec.expCode, spec.expOK, code, ok)
		}
	}
}

func TestBellWriterStripsBelAndBeeps(t *testing.T) {
	var sink bytes.Buffer
	bw := NewBellWriter(&sink)

	beeps := 0
	bw.SetBeeper(func() { beeps++ })

	n, err := bw.Write([]byte("ding\x07dong\x07"))
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.Equal(t, "dingdong", sink.String())
	require.Equal(t, 2, beeps)
}
