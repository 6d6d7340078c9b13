// Package console defines the interface implemented by text-mode console
// devices together with the CGA color attribute model shared by all of them.
package console

// Attr is a packed CGA color attribute byte: the high nibble selects the
// background color and the low nibble the foreground color.
type Attr uint8

// The 16 CGA colors.
const (
	Black Attr = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	Yellow
	White
)

// MakeAttr packs a foreground and background color into an attribute byte.
func MakeAttr(fg, bg Attr) Attr {
	return ((bg & 0xf) << 4) | (fg & 0xf)
}

// Foreground extracts the foreground color of an attribute.
func (a Attr) Foreground() Attr {
	return a & 0xf
}

// Background extracts the background color of an attribute.
func (a Attr) Background() Attr {
	return (a >> 4) & 0xf
}

// The Device interface is implemented by objects that can function as system
// consoles. Cells are addressed by their linear offset (column + row*width);
// the cursor offset is tracked by the device itself, not by the caller.
type Device interface {
	// Dimensions returns the console width and height in characters.
	Dimensions() (width, height uint16)

	// DefaultAttr returns the default color attribute for this console.
	DefaultAttr() Attr

	// WriteAt stores a character with the given attribute at the cell with
	// the given linear offset. Out-of-range offsets are ignored.
	WriteAt(off uint16, ch byte, attr Attr)

	// CopyRange copies count cells starting at src to the cells starting
	// at dst. Used for scrolling.
	CopyRange(dst, src, count uint16)

	// FillRange sets count cells starting at off to the given character
	// and attribute.
	FillRange(off, count uint16, ch byte, attr Attr)

	// Cursor returns the current cursor offset as tracked by the device.
	Cursor() uint16

	// SetCursor moves the cursor to the given linear offset.
	SetCursor(off uint16)
}

// PortIO provides access to the x86-style I/O port space where the CRT
// controller registers live. Implemented by the machine bus and by test
// fakes.
type PortIO interface {
	// OutB writes a byte to the given port.
	OutB(port uint16, v uint8)

	// InB reads a byte from the given port.
	InB(port uint16) uint8
}

// Memory provides access to the memory-mapped text framebuffer. Each cell is
// a uint16 with the character code in the low byte and the color attribute in
// the high byte. Implementations arbitrate concurrent access at cell
// granularity so a stored cell is never observed half-written.
type Memory interface {
	// Set stores a cell value at the given offset.
	Set(off int, cell uint16)

	// Get loads the cell value at the given offset.
	Get(off int) uint16

	// Copy copies count cells from src to dst within the framebuffer.
	Copy(dst, src, count int)

	// Fill sets count cells starting at off to the given value.
	Fill(off, count int, cell uint16)
}
