package spallocator

import (
	"sync/atomic"
	"time"
)

// Stats holds running allocation counters for a Pool, one set per size
// class plus one for the large backend. All fields are updated with
// atomics so Snapshot can be called concurrently with Allocate/Deallocate.
type Stats struct {
	allocs     [numClasses + 1]int64
	deallocs   [numClasses + 1]int64
	failures   [numClasses + 1]int64
	slowAllocs int64
	bytesInUse int64
}

// largeBackendStatsIdx is Stats' slot for the large backend, one past the
// last size class.
const largeBackendStatsIdx = numClasses

func (s *Stats) recordAlloc(idx int, size int64, slow bool) {
	atomic.AddInt64(&s.allocs[idx], 1)
	atomic.AddInt64(&s.bytesInUse, size)
	if slow {
		atomic.AddInt64(&s.slowAllocs, 1)
	}
}

func (s *Stats) recordDealloc(idx int, size int64) {
	atomic.AddInt64(&s.deallocs[idx], 1)
	atomic.AddInt64(&s.bytesInUse, -size)
}

func (s *Stats) recordFailure(idx int) {
	atomic.AddInt64(&s.failures[idx], 1)
}

// StatsSnapshot is a point-in-time, non-atomic copy of Stats suitable for
// logging or export.
type StatsSnapshot struct {
	AllocsByClass   [numClasses + 1]int64
	DeallocsByClass [numClasses + 1]int64
	FailuresByClass [numClasses + 1]int64
	SlowAllocs      int64
	BytesInUse      int64
}

// Snapshot returns a consistent-enough copy of s for reporting purposes;
// it is not a single atomic transaction across all fields.
func (s *Stats) Snapshot() StatsSnapshot {
	var out StatsSnapshot
	for i := range s.allocs {
		out.AllocsByClass[i] = atomic.LoadInt64(&s.allocs[i])
		out.DeallocsByClass[i] = atomic.LoadInt64(&s.deallocs[i])
		out.FailuresByClass[i] = atomic.LoadInt64(&s.failures[i])
	}
	out.SlowAllocs = atomic.LoadInt64(&s.slowAllocs)
	out.BytesInUse = atomic.LoadInt64(&s.bytesInUse)
	return out
}

// totalFailures sums failures across every class and the large backend.
func (snap StatsSnapshot) totalFailures() int64 {
	var total int64
	for _, f := range snap.FailuresByClass {
		total += f
	}
	return total
}

// totalAllocs sums allocations across every class and the large backend.
func (snap StatsSnapshot) totalAllocs() int64 {
	var total int64
	for _, a := range snap.AllocsByClass {
		total += a
	}
	return total
}

// HealthReport summarizes a Pool's condition at the time it was computed.
type HealthReport struct {
	Healthy        bool
	BreakerOpen    bool
	FailureRate    float64 // failures / (allocs + failures), 0 when no traffic
	BytesInUse     int64
	SlowAllocCount int64
}

// breakerState is the circuit breaker's state machine: closed lets
// requests through, open rejects them until the cooldown elapses, and
// half-open lets requests through until the next recorded success closes
// the breaker or the next recorded failure re-opens it.
type breakerState int32

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// circuitBreaker gates Allocate when a Pool is configured with
// WithCircuitBreaker. Its fields are accessed only with atomics so it can
// be read and updated from Allocate without acquiring the Pool lock.
type circuitBreaker struct {
	state            int32 // breakerState
	consecutiveFails int32
	threshold        int32
	cooldown         time.Duration
	openedAt         int64 // unix nanos, set when transitioning to open
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: int32(threshold), cooldown: cooldown}
}

// allow reports whether a request may proceed, transitioning open ->
// half-open once the cooldown has elapsed.
func (b *circuitBreaker) allow(now time.Time) bool {
	switch breakerState(atomic.LoadInt32(&b.state)) {
	case breakerClosed:
		return true
	case breakerHalfOpen:
		return true
	default: // breakerOpen
		openedAt := atomic.LoadInt64(&b.openedAt)
		if now.UnixNano()-openedAt >= b.cooldown.Nanoseconds() {
			atomic.StoreInt32(&b.state, int32(breakerHalfOpen))
			return true
		}
		return false
	}
}

// recordSuccess closes the breaker and resets the failure streak.
func (b *circuitBreaker) recordSuccess() {
	atomic.StoreInt32(&b.consecutiveFails, 0)
	atomic.StoreInt32(&b.state, int32(breakerClosed))
}

// recordFailure bumps the failure streak and opens the breaker once the
// streak reaches threshold, or immediately re-opens it on a half-open
// probe's failure.
func (b *circuitBreaker) recordFailure(now time.Time) {
	if breakerState(atomic.LoadInt32(&b.state)) == breakerHalfOpen {
		atomic.StoreInt64(&b.openedAt, now.UnixNano())
		atomic.StoreInt32(&b.state, int32(breakerOpen))
		return
	}
	n := atomic.AddInt32(&b.consecutiveFails, 1)
	if n >= b.threshold {
		atomic.StoreInt64(&b.openedAt, now.UnixNano())
		atomic.StoreInt32(&b.state, int32(breakerOpen))
	}
}

func (b *circuitBreaker) isOpen() bool {
	return breakerState(atomic.LoadInt32(&b.state)) == breakerOpen
}

// computeHealth derives a HealthReport from a stats snapshot and the
// breaker's current state.
func computeHealth(snap StatsSnapshot, breakerOpen bool) HealthReport {
	total := snap.totalAllocs() + snap.totalFailures()
	var rate float64
	if total > 0 {
		rate = float64(snap.totalFailures()) / float64(total)
	}
	return HealthReport{
		Healthy:        !breakerOpen && rate < 0.5,
		BreakerOpen:    breakerOpen,
		FailureRate:    rate,
		BytesInUse:     snap.BytesInUse,
		SlowAllocCount: snap.SlowAllocs,
	}
}
