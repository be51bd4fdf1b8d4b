package spallocator

import (
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"
)

// SpinLock is a test-and-test-and-set mutual exclusion primitive with a
// three-phase contention policy: a bounded active spin, then randomized
// escalating backoff sleeps, then a futex-assisted (Linux) or
// condition-variable-assisted (other platforms) blocking wait.
//
// SpinLock satisfies the shape of sync.Locker (Lock/Unlock) and is safe to
// embed wherever a drop-in mutex-like primitive is wanted, but it is tuned
// for short critical sections under moderate contention — Slab and Pool are
// its only intended callers in this module.
//
// The zero value is a free (unlocked) SpinLock.
type SpinLock struct {
	flag uint32 // 0 = free, 1 = held
}

const (
	spinIterations     = 100
	maxBackoffAttempts = 10
)

// Lock blocks until the caller holds the lock. It cannot fail; it can only
// be unboundedly slow under pathological contention.
//
// Memory-order note: the relaxed load in the spin phase below is a hint
// only and establishes no happens-before edge. The acquire-ordered
// CompareAndSwap on success is what synchronizes with the releasing
// Unlock's store, and that edge covers every write performed under the
// lock — Go's sync/atomic operations are sequentially consistent, which is
// at least as strong as the acquire/release pairing this requires.
func (l *SpinLock) Lock() {
	// thread-local-equivalent: math/rand's package-level generator is
	// auto-seeded and safe for concurrent use, and differentiates wait
	// times across goroutines without any shared mutable seed state.
	waitTime := time.Duration(1+rand.Intn(100)) * time.Nanosecond
	backoffCount := 0

	for {
		for i := 0; i < spinIterations; i++ {
			if atomic.LoadUint32(&l.flag) == 0 {
				break
			}
			runtime.Gosched()
		}

		if atomic.CompareAndSwapUint32(&l.flag, 0, 1) {
			return
		}

		if backoffCount < maxBackoffAttempts {
			time.Sleep(waitTime)
			waitTime += waitTime
			backoffCount++
			continue
		}

		waitUntilFree(&l.flag)
	}
}

// TryLock attempts to acquire the lock without blocking. It returns true
// with the lock held, or false with no side effects. TryLock is permitted
// to spuriously return false even when the lock appears free.
func (l *SpinLock) TryLock() bool {
	if atomic.LoadUint32(&l.flag) != 0 {
		return false
	}
	return atomic.CompareAndSwapUint32(&l.flag, 0, 1)
}

// Unlock releases the lock and wakes at most one waiter blocked in the
// kernel-assisted phase of Lock. Unlocking a free SpinLock is a
// programming error and is not detected.
func (l *SpinLock) Unlock() {
	atomic.StoreUint32(&l.flag, 0)
	wakeOne(&l.flag)
}
