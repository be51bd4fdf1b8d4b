package spallocator

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// arena is the shape Pool dispatches allocation requests to. *Slab and
// largeBackend both satisfy it, which lets Pool.Allocate/Deallocate treat
// "one of twelve size classes" and "the large-object path" uniformly.
type arena interface {
	allocate(headerSize uint8, total uint32) (unsafe.Pointer, error)
	deallocate(ptr unsafe.Pointer) error
}

// Pool is the top-level entry point: it dispatches each request to the
// Slab for its size class (or to the large backend), serializing only the
// dispatch decision itself behind its own lock. Pool never holds its lock
// while a Slab's lock is held — the two locks are never nested, by
// construction, which is what makes this design deadlock-free.
type Pool struct {
	lock    SpinLock
	slabs   [numClasses]*Slab
	large   largeBackend
	cfg     poolConfig
	stats   Stats
	breaker *circuitBreaker

	closed    int32
	closeOnce sync.Once
	shutdown  chan struct{}
	wg        sync.WaitGroup
}

// New constructs a Pool ready to serve allocations. Every size class's
// Slab is created empty up front; the first request for a class is what
// triggers its first chunk.
func New(opts ...Option) (*Pool, error) {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool{
		cfg:      cfg,
		shutdown: make(chan struct{}),
	}
	for i, class := range classLadder {
		p.slabs[i] = newSlab(class)
	}
	if cfg.circuitBreaker {
		p.breaker = newCircuitBreaker(cfg.breakerThreshold, cfg.breakerCooldown)
	}
	if cfg.healthChecks {
		p.wg.Add(1)
		go p.healthLoop()
	}
	return p, nil
}

// Allocate reserves size bytes aligned to alignment and returns a pointer
// to the start of the user region. alignment must be 4, 8, or 16.
func (p *Pool) Allocate(size int, alignment int) (unsafe.Pointer, error) {
	if atomic.LoadInt32(&p.closed) != 0 {
		return nil, ErrClosed
	}
	if size < 0 {
		return nil, ErrInvalidArgument
	}
	if alignment != 4 && alignment != 8 && alignment != 16 {
		return nil, ErrInvalidArgument
	}
	if p.breaker != nil && !p.breaker.allow(p.now()) {
		return nil, ErrCircuitBreakerOpen
	}

	headerSize := headerSizeFor(alignment)
	if size > maxAllocTotal-int(headerSize) {
		if p.breaker != nil {
			p.breaker.recordFailure(p.now())
		}
		return nil, ErrOutOfRange
	}
	total := uint32(headerSize) + uint32(size)

	start := time.Now()
	a, statsIdx := p.dispatch(total)
	ptr, err := a.allocate(headerSize, total)
	elapsed := time.Since(start)

	if err != nil {
		p.stats.recordFailure(statsIdx)
		if p.breaker != nil {
			p.breaker.recordFailure(p.now())
		}
		p.cfg.logger.Warn("allocation failed", "size", size, "alignment", alignment, "err", err)
		return nil, err
	}

	if p.cfg.secure {
		zeroUserRegion(ptr, total-uint32(headerSize))
	}

	p.stats.recordAlloc(statsIdx, int64(total), elapsed > p.cfg.maxAllocLatency)
	if p.breaker != nil {
		p.breaker.recordSuccess()
	}
	if p.cfg.debug {
		p.cfg.logger.Debug("allocated", "size", size, "total", total, "class_idx", statsIdx, "latency", elapsed)
	}
	return ptr, nil
}

// Deallocate releases a pointer previously returned by Allocate on this
// Pool. A nil pointer is a no-op. Passing a pointer from any other source,
// or calling Deallocate twice on the same pointer, is a programming error
// reported as ErrInvalidArgument where the dispatch layer can detect it.
func (p *Pool) Deallocate(ptr unsafe.Pointer) error {
	if ptr == nil {
		return nil
	}
	_, total := readHeaderAt(ptr)
	a, statsIdx := p.dispatch(total)
	if err := a.deallocate(ptr); err != nil {
		return err
	}
	p.stats.recordDealloc(statsIdx, int64(total))
	return nil
}

// dispatch resolves which arena serves a request of the given total size,
// and the Stats index associated with it. The Pool lock is held only for
// the duration of the slabs array read, never across the arena call.
func (p *Pool) dispatch(total uint32) (arena, int) {
	idx, ok := classIndexForTotal(total)
	if !ok {
		return p.large, largeBackendStatsIdx
	}
	p.lock.Lock()
	s := p.slabs[idx]
	p.lock.Unlock()
	return s, idx
}

// Stats returns a snapshot of the Pool's allocation counters.
func (p *Pool) Stats() StatsSnapshot {
	return p.stats.Snapshot()
}

// Health returns the Pool's current HealthReport, computed on demand
// regardless of whether background health checks are enabled.
func (p *Pool) Health() HealthReport {
	breakerOpen := p.breaker != nil && p.breaker.isOpen()
	return computeHealth(p.stats.Snapshot(), breakerOpen)
}

// Close stops the background health-monitor goroutine, if any. It is safe
// to call more than once. After Close returns, Allocate returns ErrClosed;
// in-flight Deallocate calls are still serviced so callers can unwind
// cleanly.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		atomic.StoreInt32(&p.closed, 1)
		close(p.shutdown)
		p.wg.Wait()
	})
	return nil
}

// healthLoop periodically recomputes the HealthReport and logs a warning
// when the Pool is unhealthy, until Close is called.
func (p *Pool) healthLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.shutdown:
			return
		case <-ticker.C:
			h := p.Health()
			if !h.Healthy {
				p.cfg.logger.Warn("pool unhealthy",
					slog.Float64("failure_rate", h.FailureRate),
					slog.Bool("breaker_open", h.BreakerOpen),
					slog.Int64("bytes_in_use", h.BytesInUse))
			}
		}
	}
}

// now returns the wall-clock time used for circuit-breaker timing.
func (p *Pool) now() time.Time {
	return time.Now()
}

// zeroUserRegion clears n bytes starting at ptr, used by WithSecure to
// avoid handing a reused slot's previous contents to a new caller.
func zeroUserRegion(ptr unsafe.Pointer, n uint32) {
	b := unsafe.Slice((*byte)(ptr), n)
	for i := range b {
		b[i] = 0
	}
}

// compile-time assertions that both arenas satisfy the dispatch interface.
var (
	_ arena = (*Slab)(nil)
	_ arena = largeBackend{}
)
