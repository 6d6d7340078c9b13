// Package screen renders the machine's text framebuffer in a host terminal
// using tcell and feeds host key presses back into the keyboard controller.
// It is a dumb monitor: all console behavior lives in the driver, the screen
// only draws cells and forwards decoded codes.
package screen

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"

	"minos/machine"
)

// refreshInterval paces framebuffer redraws. 30ms keeps typing latency
// invisible without hammering the terminal.
const refreshInterval = 30 * time.Millisecond

// cgaPalette maps the 16 CGA color indices to tcell colors.
var cgaPalette = [16]tcell.Color{
	tcell.ColorBlack,
	tcell.ColorNavy,
	tcell.ColorGreen,
	tcell.ColorTeal,
	tcell.ColorMaroon,
	tcell.ColorPurple,
	tcell.ColorOlive,
	tcell.ColorSilver,
	tcell.ColorGray,
	tcell.ColorBlue,
	tcell.ColorLime,
	tcell.ColorAqua,
	tcell.ColorRed,
	tcell.ColorFuchsia,
	tcell.ColorYellow,
	tcell.ColorWhite,
}

// Config carries the machine surfaces the screen attaches to.
type Config struct {
	VRAM     *machine.VRAM
	CRTC     *machine.CRTC
	Keyboard *machine.Keyboard
	Log      *logrus.Logger

	// TCell overrides the terminal screen; tests pass a simulation screen.
	TCell tcell.Screen
}

// Screen is a tcell frontend for one machine.
type Screen struct {
	cfg Config
	tc  tcell.Screen
}

// New initializes the host terminal.
func New(cfg Config) (*Screen, error) {
	tc := cfg.TCell
	if tc == nil {
		var err error
		if tc, err = tcell.NewScreen(); err != nil {
			return nil, err
		}
	}
	if err := tc.Init(); err != nil {
		return nil, err
	}

	if cfg.Log == nil {
		cfg.Log = logrus.New()
		cfg.Log.SetOutput(io.Discard)
	}

	return &Screen{cfg: cfg, tc: tc}, nil
}

// Beep rings the host terminal bell.
func (s *Screen) Beep() {
	s.tc.Beep()
}

// Run draws the framebuffer until the context is cancelled or the user hits
// Ctrl-\. It restores the host terminal before returning.
func (s *Screen) Run(ctx context.Context) error {
	defer s.tc.Fini()

	quit := make(chan struct{})
	go s.eventLoop(quit)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-quit:
			return nil
		case <-ticker.C:
			s.render()
		}
	}
}

// eventLoop forwards host key presses to the keyboard controller.
func (s *Screen) eventLoop(quit chan<- struct{}) {
	for {
		ev := s.tc.PollEvent()
		if ev == nil {
			// Screen finalized.
			return
		}

		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlBackslash {
				close(quit)
				return
			}
			if code, ok := decodeKey(ev); ok {
				s.cfg.Keyboard.Press(code)
			} else {
				s.cfg.Log.WithField("key", ev.Key()).Debug("dropped non-ascii key")
			}
		case *tcell.EventResize:
			s.tc.Sync()
		}
	}
}

// decodeKey translates a tcell key event into the decoded character code the
// keyboard controller queues. Control keys and DEL map straight onto their
// byte values; Enter arrives as CR the way a terminal sends it.
func decodeKey(ev *tcell.EventKey) (int, bool) {
	if ev.Key() == tcell.KeyRune {
		r := ev.Rune()
		if r < 0x80 {
			return int(r), true
		}
		return 0, false
	}

	if k := int(ev.Key()); k > 0 && k < 0x80 {
		return k, true
	}
	return 0, false
}

// render draws the current framebuffer snapshot and cursor position.
func (s *Screen) render() {
	snap := s.cfg.VRAM.Snapshot()

	for off, cell := range snap {
		ch := byte(cell)
		if ch == 0 {
			ch = ' '
		}
		attr := uint8(cell >> 8)
		style := tcell.StyleDefault.
			Foreground(cgaPalette[attr&0xf]).
			Background(cgaPalette[attr>>4])

		s.tc.SetContent(off%machine.VRAMWidth, off/machine.VRAMWidth, rune(ch), nil, style)
	}

	cursor := int(s.cfg.CRTC.Cursor())
	s.tc.ShowCursor(cursor%machine.VRAMWidth, cursor/machine.VRAMWidth)

	s.tc.Show()
}

// DumpText renders a framebuffer snapshot as plain text, one line per row
// with trailing blanks trimmed. Used for debug dumps and golden comparisons.
func DumpText(snap []uint16) string {
	var sb strings.Builder

	for row := 0; row < machine.VRAMHeight; row++ {
		line := make([]byte, machine.VRAMWidth)
		for col := 0; col < machine.VRAMWidth; col++ {
			ch := byte(snap[row*machine.VRAMWidth+col])
			if ch == 0 {
				ch = ' '
			}
			line[col] = ch
		}
		sb.WriteString(strings.TrimRight(string(line), " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}
