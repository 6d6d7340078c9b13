package device

import (
	stdsync "sync"
	"testing"

	"minos/kernel"
	"minos/kernel/task"
)

func TestDevswRegisterAndLookup(t *testing.T) {
	defer resetDevsw()

	readCalled := false
	ops := DevOps{
		Read: func(_ *task.Task, _ stdsync.Locker, _ []byte) (int, *kernel.Error) {
			readCalled = true
			return 0, nil
		},
	}

	Register(MajorConsole, ops)

	got, ok := Lookup(MajorConsole)
	if !ok {
		t.Fatal("expected Lookup to find the registered major")
	}

	got.Read(nil, nil, nil)
	if !readCalled {
		t.Error("expected Lookup to return the registered entry points")
	}

	if _, ok = Lookup(Major(5)); ok {
		t.Error("expected Lookup on an unregistered major to fail")
	}
}

func TestDevswDoubleRegistrationHitsFatalPath(t *testing.T) {
	defer resetDevsw()
	defer SetPanicHandler(func(msg string) { panic(msg) })

	var fatalMsg string
	SetPanicHandler(func(msg string) { fatalMsg = msg })

	Register(MajorConsole, DevOps{})
	Register(MajorConsole, DevOps{})

	if fatalMsg == "" {
		t.Fatal("expected duplicate registration to reach the fatal path")
	}
}

func TestDevswOutOfRangeMajorHitsFatalPath(t *testing.T) {
	defer resetDevsw()
	defer SetPanicHandler(func(msg string) { panic(msg) })

	var fatalMsg string
	SetPanicHandler(func(msg string) { fatalMsg = msg })

	Register(Major(maxMajor), DevOps{})

	if fatalMsg == "" {
		t.Fatal("expected out-of-range registration to reach the fatal path")
	}
}
