package machine

import "sync"

// Video memory geometry: one 80x25 text page.
const (
	VRAMWidth  = 80
	VRAMHeight = 25
	vramCells  = VRAMWidth * VRAMHeight
)

// VRAM emulates the memory-mapped text framebuffer. Like the real memory
// controller it arbitrates concurrent access at word granularity: a stored
// cell is always observed as the complete (character, attribute) pair written
// by a single access, never a mix of two.
type VRAM struct {
	mu    sync.Mutex
	cells [vramCells]uint16
}

// NewVRAM creates a zeroed video memory.
func NewVRAM() *VRAM {
	return &VRAM{}
}

// Set stores a cell value at the given offset.
func (v *VRAM) Set(off int, cell uint16) {
	if off < 0 || off >= vramCells {
		return
	}
	v.mu.Lock()
	v.cells[off] = cell
	v.mu.Unlock()
}

// Get loads the cell value at the given offset.
func (v *VRAM) Get(off int) uint16 {
	if off < 0 || off >= vramCells {
		return 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cells[off]
}

// Copy copies count cells from src to dst.
func (v *VRAM) Copy(dst, src, count int) {
	if dst < 0 || src < 0 || count <= 0 || dst+count > vramCells || src+count > vramCells {
		return
	}
	v.mu.Lock()
	copy(v.cells[dst:dst+count], v.cells[src:src+count])
	v.mu.Unlock()
}

// Fill sets count cells starting at off to the given value.
func (v *VRAM) Fill(off, count int, cell uint16) {
	if off < 0 || count <= 0 || off+count > vramCells {
		return
	}
	v.mu.Lock()
	for i := off; i < off+count; i++ {
		v.cells[i] = cell
	}
	v.mu.Unlock()
}

// Snapshot returns a consistent copy of the whole framebuffer for renderers
// and tests.
func (v *VRAM) Snapshot() []uint16 {
	out := make([]uint16, vramCells)
	v.mu.Lock()
	copy(out, v.cells[:])
	v.mu.Unlock()
	return out
}
