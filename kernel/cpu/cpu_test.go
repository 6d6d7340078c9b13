package cpu

import "testing"

func TestCoreInterruptFlag(t *testing.T) {
	c := New(1)

	if c.ID() != 1 {
		t.Fatalf("expected core ID to be 1; got %d", c.ID())
	}

	if c.InterruptsEnabled() {
		t.Error("expected interrupts to start disabled")
	}

	c.EnableInterrupts()
	if !c.InterruptsEnabled() {
		t.Error("expected interrupts to be enabled after EnableInterrupts")
	}

	c.DisableInterrupts()
	if c.InterruptsEnabled() {
		t.Error("expected interrupts to be disabled after DisableInterrupts")
	}
}

func TestCoreFreeze(t *testing.T) {
	defer func(origParkFn func()) { parkFn = origParkFn }(parkFn)

	parked := false
	parkFn = func() { parked = true }

	c := New(0)
	if c.Frozen() {
		t.Fatal("expected core not to start frozen")
	}

	c.Freeze()

	if !c.Frozen() {
		t.Error("expected core to be marked frozen")
	}

	if !parked {
		t.Error("expected Freeze to park the calling goroutine")
	}
}
