// Package task provides the scheduler-facing primitives consumed by the
// console driver: tasks with a cooperative kill flag and wait queues
// implementing the sleep/wake handshake used by blocking reads.
package task

import (
	"io"
	stdsync "sync"
	"sync/atomic"

	"minos/kernel/kfmt"
	"minos/kernel/sync"
)

var nextID uint32

// Task represents a schedulable unit of work. Tasks are killed cooperatively:
// Kill raises a flag that the task observes at its next blocking point.
type Task struct {
	id   uint32
	name string

	killed uint32

	// The wait queue this task is currently sleeping on, nil when runnable.
	sleepingOn atomic.Pointer[WaitQueue]
}

// New creates a task with the supplied name and a process-unique ID.
func New(name string) *Task {
	return &Task{
		id:   atomic.AddUint32(&nextID, 1),
		name: name,
	}
}

// ID returns the task identifier.
func (t *Task) ID() uint32 {
	return t.id
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// Killed returns true once the task has been marked for termination.
func (t *Task) Killed() bool {
	return atomic.LoadUint32(&t.killed) == 1
}

// Kill marks the task for termination and wakes the wait queue it sleeps on,
// if any, so the task can observe the flag instead of blocking forever.
func (t *Task) Kill() {
	atomic.StoreUint32(&t.killed, 1)
	if q := t.sleepingOn.Load(); q != nil {
		q.WakeAll()
	}
}

// WaitQueue is an explicit sleep/wake rendezvous associated with a shared
// resource. Waiters atomically release the resource lock while suspending
// and reacquire it before Sleep returns.
type WaitQueue struct {
	lock    sync.Spinlock
	waiters []chan struct{}
}

// Sleep suspends the calling task until the next WakeAll. The caller must
// hold l; Sleep releases it after registering the waiter and reacquires it
// before returning. A kill delivered at any point around the suspension wakes
// the sleeper instead of losing the notification.
func (q *WaitQueue) Sleep(t *Task, l stdsync.Locker) {
	ch := make(chan struct{})

	q.lock.Acquire()
	q.waiters = append(q.waiters, ch)
	q.lock.Release()

	if t != nil {
		t.sleepingOn.Store(q)
	}

	l.Unlock()

	// A Kill that ran before sleepingOn was published has already set the
	// killed flag; waking everyone here turns that window into a spurious
	// wake-up which the caller's recheck loop absorbs.
	if t != nil && t.Killed() {
		q.WakeAll()
	}

	<-ch

	if t != nil {
		t.sleepingOn.Store(nil)
	}

	l.Lock()
}

// WakeAll wakes every task currently sleeping on the queue.
func (q *WaitQueue) WakeAll() {
	q.lock.Acquire()
	for _, ch := range q.waiters {
		close(ch)
	}
	q.waiters = q.waiters[:0]
	q.lock.Release()
}

var (
	registryLock sync.Spinlock
	registry     []*Task
)

// Register adds a task to the process listing reported by DumpTo.
func Register(t *Task) {
	registryLock.Acquire()
	registry = append(registry, t)
	registryLock.Release()
}

// DumpTo writes a listing of all registered tasks to w. This backs the
// console's dump-process-list control key.
func DumpTo(w io.Writer) {
	registryLock.Acquire()
	tasks := make([]*Task, len(registry))
	copy(tasks, registry)
	registryLock.Release()

	for _, t := range tasks {
		state := "run"
		switch {
		case t.Killed():
			state = "kill"
		case t.sleepingOn.Load() != nil:
			state = "sleep"
		}
		kfmt.Fprintf(w, "%d %s %s\n", t.ID(), state, t.Name())
	}
}
