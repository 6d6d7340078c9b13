package console

import (
	"io"

	"minos/device"
	"minos/kernel"
	"minos/kernel/kfmt"
)

// VGA text mode geometry and CRT controller register layout.
const (
	// DefaultWidth and DefaultHeight describe the standard VGA text mode
	// 0x3 grid.
	DefaultWidth  = 80
	DefaultHeight = 25

	// The CRT controller register pair: an index port selecting a register
	// and a data port accessing it.
	crtPortIndex uint16 = 0x3d4
	crtPortData  uint16 = 0x3d5

	// The CRT register indices selecting the high and low byte of the
	// 16-bit cursor offset.
	crtIndexCursorHigh uint8 = 14
	crtIndexCursorLow  uint8 = 15
)

// VgaTextConsole implements an EGA-compatible 80x25 text console using VGA
// mode 0x3. Each framebuffer cell packs a character in its low byte and a
// color attribute in its high byte.
//
// The cursor offset is never cached in the driver. Every access round-trips
// through the CRT controller's index/data port pair, keeping the hardware
// registers the single source of truth for the cursor position.
//
// The default setting is light gray text on a black background with space as
// the clear character.
type VgaTextConsole struct {
	ports PortIO
	mem   Memory

	width  uint16
	height uint16

	defaultAttr Attr
}

// NewVgaTextConsole creates a vga text console backed by the supplied port
// space and framebuffer memory.
func NewVgaTextConsole(ports PortIO, mem Memory) *VgaTextConsole {
	return &VgaTextConsole{
		ports:       ports,
		mem:         mem,
		width:       DefaultWidth,
		height:      DefaultHeight,
		defaultAttr: MakeAttr(LightGray, Black),
	}
}

// Dimensions returns the console width and height in characters.
func (cons *VgaTextConsole) Dimensions() (uint16, uint16) {
	return cons.width, cons.height
}

// DefaultAttr returns the default color attribute for this console.
func (cons *VgaTextConsole) DefaultAttr() Attr {
	return cons.defaultAttr
}

// WriteAt stores a character with the given attribute at the cell with the
// given linear offset. Out-of-range offsets are ignored.
func (cons *VgaTextConsole) WriteAt(off uint16, ch byte, attr Attr) {
	if off >= cons.width*cons.height {
		return
	}
	cons.mem.Set(int(off), packCell(ch, attr))
}

// CopyRange copies count cells starting at src to the cells starting at dst,
// clipping the copy to the framebuffer bounds.
func (cons *VgaTextConsole) CopyRange(dst, src, count uint16) {
	total := cons.width * cons.height
	if dst >= total || src >= total {
		return
	}
	if max := total - dst; count > max {
		count = max
	}
	if max := total - src; count > max {
		count = max
	}
	cons.mem.Copy(int(dst), int(src), int(count))
}

// FillRange sets count cells starting at off to the given character and
// attribute, clipping the fill to the framebuffer bounds.
func (cons *VgaTextConsole) FillRange(off, count uint16, ch byte, attr Attr) {
	total := cons.width * cons.height
	if off >= total {
		return
	}
	if max := total - off; count > max {
		count = max
	}
	cons.mem.Fill(int(off), int(count), packCell(ch, attr))
}

// Cursor reads the current cursor offset out of the CRT controller registers.
func (cons *VgaTextConsole) Cursor() uint16 {
	cons.ports.OutB(crtPortIndex, crtIndexCursorHigh)
	off := uint16(cons.ports.InB(crtPortData)) << 8
	cons.ports.OutB(crtPortIndex, crtIndexCursorLow)
	off |= uint16(cons.ports.InB(crtPortData))

	if off >= cons.width*cons.height {
		off = 0
	}
	return off
}

// SetCursor writes the given offset back to the CRT controller registers.
func (cons *VgaTextConsole) SetCursor(off uint16) {
	if off >= cons.width*cons.height {
		off = cons.width*cons.height - 1
	}
	cons.ports.OutB(crtPortIndex, crtIndexCursorHigh)
	cons.ports.OutB(crtPortData, uint8(off>>8))
	cons.ports.OutB(crtPortIndex, crtIndexCursorLow)
	cons.ports.OutB(crtPortData, uint8(off))
}

// packCell combines a character and an attribute into a framebuffer cell.
func packCell(ch byte, attr Attr) uint16 {
	return (uint16(attr) << 8) | uint16(ch)
}

// DriverName returns the name of this driver.
func (cons *VgaTextConsole) DriverName() string {
	return "vga_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *VgaTextConsole) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit initializes this driver.
func (cons *VgaTextConsole) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "text mode %dx%d\n", cons.width, cons.height)
	return nil
}

// Probe returns a device.ProbeFn that detects a vga text console on the
// supplied port space and framebuffer memory.
func Probe(ports PortIO, mem Memory) device.ProbeFn {
	return func() device.Driver {
		if ports == nil || mem == nil {
			return nil
		}
		return NewVgaTextConsole(ports, mem)
	}
}
