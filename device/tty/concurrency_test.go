package tty

import (
	"strings"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"minos/device/video/console"
	"minos/kernel/cpu"
)

// TestConcurrentWritersNeverTearCells checks that a cell observed after
// concurrent output is always a complete (character, attribute) pair written
// by a single call: a character from writer i always carries writer i's
// attribute.
func TestConcurrentWritersNeverTearCells(t *testing.T) {
	c, vga, _ := newTestConsole()

	const numWriters = 4
	attrs := [numWriters]console.Attr{
		console.MakeAttr(console.LightRed, console.Black),
		console.MakeAttr(console.LightGreen, console.Black),
		console.MakeAttr(console.LightCyan, console.Black),
		console.MakeAttr(console.Yellow, console.Black),
	}

	var wg stdsync.WaitGroup
	wg.Add(numWriters)
	for i := 0; i < numWriters; i++ {
		go func(writer int) {
			defer wg.Done()
			payload := strings.Repeat(string(rune('A'+writer)), 40)
			for j := 0; j < 50; j++ {
				c.Cprintf(attrs[writer], "%s", payload)
			}
		}(i)
	}
	wg.Wait()

	for off := 0; off < 80*25; off++ {
		cell := vga.row(off / 80)[off%80]
		ch := byte(cell)
		attr := console.Attr(cell >> 8)

		if ch >= 'A' && ch < 'A'+numWriters {
			require.Equalf(t, attrs[ch-'A'], attr,
				"cell %d: character %q paired with foreign attribute %d", off, ch, attr)
		}
	}
}

// TestCprintfOutputIsAtomic checks that while the locking toggle is on, the
// serial copy of concurrent Cprintf calls never interleaves: each call's
// output appears as one contiguous run.
func TestCprintfOutputIsAtomic(t *testing.T) {
	c, _, serial := newTestConsole()

	const runLen = 32
	var wg stdsync.WaitGroup
	for _, ch := range []string{"a", "b"} {
		wg.Add(1)
		go func(ch string) {
			defer wg.Done()
			payload := strings.Repeat(ch, runLen)
			for i := 0; i < 25; i++ {
				c.Cprintf(c.defaultAttr, "%s", payload)
			}
		}(ch)
	}
	wg.Wait()

	out := serial.String()
	require.Len(t, out, 2*25*runLen)

	for len(out) > 0 {
		run := 1
		for run < len(out) && out[run] == out[0] {
			run++
		}
		require.Zerof(t, run%runLen, "interleaved run of %d %q characters", run, out[0])
		out = out[run:]
	}
}

// TestPanicConcurrentWithWriter checks the machine freeze guarantee: a writer
// racing a panic either completes its write before observing the flag or
// freezes without producing partial output afterwards.
func TestPanicConcurrentWithWriter(t *testing.T) {
	defer func(origFreezeFn func(*cpu.Core)) { freezeFn = origFreezeFn }(freezeFn)

	park := make(chan struct{})
	freezeFn = func(*cpu.Core) { <-park }
	defer close(park)

	c, _, _ := newTestConsole()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for i := 0; i < 100000; i++ {
			if c.Panicked() {
				return
			}
			c.Write(nil, []byte("x"))
		}
	}()

	time.Sleep(time.Millisecond)

	panicDone := make(chan struct{})
	go func() {
		c.Panic("race")
		close(panicDone)
	}()

	// The panicking goroutine parks in freezeFn; wait for the panic flag
	// instead.
	require.Eventually(t, c.Panicked, 2*time.Second, time.Millisecond)

	// The writer either finished its loop or froze in putChar; both are
	// terminal and neither may leave a half-written cell behind (cell
	// integrity is covered by TestConcurrentWritersNeverTearCells).
	select {
	case <-writerDone:
	case <-time.After(100 * time.Millisecond):
		require.NotZero(t, c.FrozenWriters(), "writer neither finished nor froze")
	}
}
