// Package lock implements the kernel's synchronization primitives:
// IF-saving spinlocks, atomic counters, and condition variables.
//
// Lock acquisition must respect one global partial order (the "lock
// hierarchy"). Each lock-carrying type below documents its position in
// that order so a reader can check a call site without re-deriving the
// whole graph:
//
//	address_space.lock -> { heap_lock, st_lock[pid] }
//	heap_lock          -> pt_lock[pid]
//	st_lock[pid]       -> pt_lock[pid]
//	pt_lock[pid]       -> { frame_lock, sp_lock[pid] }
//	address_space.lock -> frame_lock
//
// No runtime order checker is built; this is a documentation discipline
// the teacher's codebase also relies on rather than enforces in code.
package lock

import (
	"context"
	"sync"

	"defs"
	"platform"
)

const pfx = "lock: "

// / Spinlock_t is a test-and-set lock that disables local interrupts for
// / its holder. Acquire/Release bracket a critical section; the saved
// / flag returned by Acquire must be threaded back into the matching
// / Release so nested acquisitions on the same CPU restore IF correctly.
type Spinlock_t struct {
	state        uint32
	ownerCPUHint uint32
}

// / Acquire disables interrupts, spins until the lock is taken, and
// / returns the prior interrupt-enable state for Release.
func (l *Spinlock_t) Acquire() bool {
	saved := platform.Cli()
	for !platform.CAS32(&l.state, 0, 1) {
		platform.Pause()
	}
	l.ownerCPUHint = platform.LapicID()
	return saved
}

// / Release unlocks and restores the interrupt state saved by Acquire.
func (l *Spinlock_t) Release(saved bool) {
	l.ownerCPUHint = 0
	platform.CAS32(&l.state, 1, 0)
	platform.Sti(saved)
}

// / Held reports whether the lock is currently taken, for assertions
// / at call sites that require the caller already hold it.
func (l *Spinlock_t) Held() bool {
	return l.state != 0
}

// / Counter_t is a lock-free atomic counter: increment, decrement,
// / exchange. Used for per-CPU and per-vector statistics where a full
// / spinlock would be overkill.
type Counter_t struct {
	v uint32
}

// / Inc atomically increments the counter and returns the new value.
func (c *Counter_t) Inc() uint32 {
	for {
		old := c.v
		if platform.CAS32(&c.v, old, old+1) {
			return old + 1
		}
	}
}

// / Dec atomically decrements the counter and returns the new value.
func (c *Counter_t) Dec() uint32 {
	for {
		old := c.v
		if platform.CAS32(&c.v, old, old-1) {
			return old - 1
		}
	}
}

// / Exchange atomically stores val and returns the previous value.
func (c *Counter_t) Exchange(val uint32) uint32 {
	for {
		old := c.v
		if platform.CAS32(&c.v, old, val) {
			return old
		}
	}
}

// / Load reads the counter's current value.
func (c *Counter_t) Load() uint32 {
	return c.v
}

// / Condvar_t is a condition variable used together with a Spinlock_t.
// / There is no in-kernel scheduler in this module (PM/SCHED are external
// / collaborators, see SPEC_FULL.md §1); a parked task is represented by
// / the calling goroutine blocking on a channel, and wakeups are
// / delivered by closing per-waiter channels, which is the natural Go
// / expression of "atomically release the lock and block".
type Condvar_t struct {
	mu      sync.Mutex
	waiters []chan struct{}
}

func (cv *Condvar_t) register() chan struct{} {
	ch := make(chan struct{})
	cv.mu.Lock()
	cv.waiters = append(cv.waiters, ch)
	cv.mu.Unlock()
	return ch
}

func (cv *Condvar_t) unregister(ch chan struct{}) {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	for i, w := range cv.waiters {
		if w == ch {
			cv.waiters = append(cv.waiters[:i], cv.waiters[i+1:]...)
			return
		}
	}
}

// / Wait atomically releases l and blocks until Broadcast wakes the
// / caller, then reacquires l and returns the new saved-flags value.
func (cv *Condvar_t) Wait(l *Spinlock_t, saved bool) bool {
	ch := cv.register()
	l.Release(saved)
	<-ch
	return l.Acquire()
}

// / WaitIntr is Wait but cancellable via ctx. On cancellation it returns
// / -EINTR without reacquiring l, matching the teacher's restartable
// / syscall convention: the caller is responsible for repairing any
// / invariant it assumed the lock protected.
func (cv *Condvar_t) WaitIntr(ctx context.Context, l *Spinlock_t, saved bool) defs.Err_t {
	ch := cv.register()
	l.Release(saved)
	select {
	case <-ch:
		return 0
	case <-ctx.Done():
		cv.unregister(ch)
		return -defs.EINTR
	}
}

// waitCancelErr classifies a cancelled context for WaitIntrTimed: a
// deadline that actually elapsed is -ETIMEDOUT, anything else (explicit
// cancellation) is -EINTR.
func waitCancelErr(err error) defs.Err_t {
	if err == context.DeadlineExceeded {
		return -defs.ETIMEDOUT
	}
	return -defs.EINTR
}

// / WaitIntrTimed is WaitIntr with a deadline. Returns -ETIMEDOUT if the
// / deadline passes before a wakeup or cancellation arrives, or -EINTR if
// / ctx was cancelled for any other reason.
func (cv *Condvar_t) WaitIntrTimed(ctx context.Context, l *Spinlock_t, saved bool) defs.Err_t {
	ch := cv.register()
	l.Release(saved)
	select {
	case <-ch:
		return 0
	case <-ctx.Done():
		cv.unregister(ch)
		return waitCancelErr(ctx.Err())
	}
}

// / Broadcast wakes every waiter currently registered on cv.
func (cv *Condvar_t) Broadcast() {
	cv.mu.Lock()
	w := cv.waiters
	cv.waiters = nil
	cv.mu.Unlock()
	for _, ch := range w {
		close(ch)
	}
}
