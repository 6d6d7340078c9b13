package device

import (
	stdsync "sync"

	"minos/kernel"
	"minos/kernel/sync"
	"minos/kernel/task"
)

// Major identifies a device class in the device switch.
type Major uint8

// The assigned device major numbers.
const (
	// MajorConsole is the major number of the system console.
	MajorConsole Major = 1

	maxMajor = 8
)

// DevOps carries the entry points a driver registers with the device switch.
// The locker passed to Read and Write is the caller's held resource (an inode
// lock in the original design); drivers must release it before any blocking
// wait and reacquire it before returning.
type DevOps struct {
	Read  func(t *task.Task, h stdsync.Locker, p []byte) (int, *kernel.Error)
	Write func(h stdsync.Locker, p []byte) (int, *kernel.Error)
}

var (
	devswLock sync.Spinlock
	devsw     [maxMajor]DevOps
	devswSet  [maxMajor]bool

	// panicFn routes invariant violations to the system fatal path. It is
	// rewired to the console's Panic by hal.Boot; until then a Go panic is
	// the best available diagnostic.
	panicFn = func(msg string) { panic(msg) }
)

// SetPanicHandler installs the fatal-path handler used for device switch
// invariant violations.
func SetPanicHandler(fn func(msg string)) {
	panicFn = fn
}

// Register installs the entry points for the given major number. Registering
// the same major twice is an invariant violation routed to the fatal path.
func Register(m Major, ops DevOps) {
	devswLock.Acquire()
	if m >= maxMajor || devswSet[m] {
		devswLock.Release()
		panicFn("devsw: duplicate or out-of-range major registration")
		return
	}
	devsw[m] = ops
	devswSet[m] = true
	devswLock.Release()
}

// Lookup returns the entry points registered for the given major number.
func Lookup(m Major) (DevOps, bool) {
	devswLock.Acquire()
	defer devswLock.Release()

	if m >= maxMajor || !devswSet[m] {
		return DevOps{}, false
	}
	return devsw[m], true
}

// resetDevsw clears the device switch; used by tests.
func resetDevsw() {
	devswLock.Acquire()
	for i := range devsw {
		devsw[i] = DevOps{}
		devswSet[i] = false
	}
	devswLock.Release()
}
