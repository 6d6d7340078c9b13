package machine

import "sync"

// CRT controller port and register layout.
const (
	CRTPortIndex uint16 = 0x3d4
	CRTPortData  uint16 = 0x3d5

	crtRegCursorHigh uint8 = 14
	crtRegCursorLow  uint8 = 15
)

// CRTC emulates the CRT controller register file: an index port selecting a
// register and a data port reading or writing it. Only the two cursor
// registers are implemented; other indices read as zero and ignore writes,
// like a lazy hardware clone.
type CRTC struct {
	mu     sync.Mutex
	index  uint8
	cursor uint16
}

// NewCRTC creates a CRT controller with the cursor at the origin.
func NewCRTC() *CRTC {
	return &CRTC{}
}

// In implements PortHandler.
func (c *CRTC) In(port uint16) uint8 {
	if port != CRTPortData {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.index {
	case crtRegCursorHigh:
		return uint8(c.cursor >> 8)
	case crtRegCursorLow:
		return uint8(c.cursor)
	}
	return 0
}

// Out implements PortHandler.
func (c *CRTC) Out(port uint16, v uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch port {
	case CRTPortIndex:
		c.index = v
	case CRTPortData:
		switch c.index {
		case crtRegCursorHigh:
			c.cursor = (c.cursor & 0x00ff) | (uint16(v) << 8)
		case crtRegCursorLow:
			c.cursor = (c.cursor & 0xff00) | uint16(v)
		}
	}
}

// Cursor returns the current cursor offset; used by frontends to place the
// host cursor.
func (c *CRTC) Cursor() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}
