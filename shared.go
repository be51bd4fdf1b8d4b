package spallocator

import (
	"sync/atomic"
	"unsafe"
)

// sharedHeader is the bookkeeping co-allocated with the value in a Shared
// allocation: strong counts live Shared handles, weak counts live Weak
// handles, and cb is the LifetimeObserver control block whose alive flag
// flips the instant strong reaches zero, giving any outstanding Weak a
// lock-free way to learn the value is gone. Every field is a plain
// integer so this struct can live safely inside Pool-managed memory
// alongside the value it describes — nothing here is a Go pointer that
// the allocator's backing []byte would fail to track.
//
// Layout: [sharedHeader][value T], both carved out of one Pool
// allocation. freed guards against the header's chunk being deallocated
// twice when Shared.Close and Weak.Close race down to zero concurrently.
type sharedHeader struct {
	strong int64
	weak   int64
	freed  int32
	cb     controlBlock
}

// observer returns a fresh LifetimeObserver value pointing at h's embedded
// control block. LifetimeObserver values are never themselves stored
// inside Pool memory — only constructed on demand — since they carry a Go
// pointer field that Pool's backing []byte gives the garbage collector no
// reason to scan.
func (h *sharedHeader) observer(owner bool) LifetimeObserver {
	return LifetimeObserver{block: &h.cb, owner: owner}
}

// release deallocates the shared allocation exactly once, the moment both
// strong and weak have reached zero. Safe to call from both Shared.Close
// and Weak.Close: once strong reaches zero no live Shared handle remains
// to call Weak on h again, so weak can only fall afterward, never rise.
func (h *sharedHeader) release(pool *Pool, allocPtr unsafe.Pointer) error {
	if atomic.LoadInt64(&h.strong) != 0 || atomic.LoadInt64(&h.weak) != 0 {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&h.freed, 0, 1) {
		return nil
	}
	return pool.Deallocate(allocPtr)
}

// Shared is a reference-counted handle over one Pool allocation holding a
// T. Multiple Shared values may co-own the same allocation (via Clone);
// the value is considered gone the instant the last one is Closed, though
// the backing allocation itself is not released until every Weak handle
// has been Closed too.
type Shared[T any] struct {
	pool *Pool
	ptr  *T
	ctrl *sharedHeader
}

// NewShared allocates room for a sharedHeader followed by a T from pool in
// a single Pool allocation, copies value into the T region, and returns
// the first strong handle to it.
func NewShared[T any](pool *Pool, value T) (*Shared[T], error) {
	var zero T
	align := clampAlignment(unsafe.Alignof(zero))
	if align < 8 {
		align = 8 // sharedHeader's int64 fields need 8-byte alignment
	}
	headerSize := int(unsafe.Sizeof(sharedHeader{}))
	raw, err := pool.Allocate(headerSize+int(unsafe.Sizeof(zero)), align)
	if err != nil {
		return nil, err
	}

	hdr := (*sharedHeader)(raw)
	*hdr = sharedHeader{strong: 1, cb: controlBlock{alive: 1, refs: 1}}
	valPtr := (*T)(unsafe.Add(raw, headerSize))
	*valPtr = value
	return &Shared[T]{pool: pool, ptr: valPtr, ctrl: hdr}, nil
}

// Clone returns an additional strong handle over the same allocation.
func (s *Shared[T]) Clone() *Shared[T] {
	atomic.AddInt64(&s.ctrl.strong, 1)
	return &Shared[T]{pool: s.pool, ptr: s.ptr, ctrl: s.ctrl}
}

// Get returns a pointer to the held value, or nil once this handle has
// been closed.
func (s *Shared[T]) Get() *T {
	return s.ptr
}

// Weak returns a non-owning handle that can later attempt to Upgrade back
// to a Shared, as long as some Shared handle is still outstanding at that
// time.
func (s *Shared[T]) Weak() Weak[T] {
	atomic.AddInt64(&s.ctrl.weak, 1)
	return Weak[T]{
		pool:     s.pool,
		valPtr:   unsafe.Pointer(s.ptr),
		ctrl:     s.ctrl,
		observer: s.ctrl.observer(false).Clone(),
	}
}

// allocPtr recovers the pointer to the start of the single Pool
// allocation backing s — the header, not the value that follows it.
func (s *Shared[T]) allocPtr() unsafe.Pointer {
	return unsafe.Pointer(s.ctrl)
}

// Close drops this strong handle. When it is the last one outstanding,
// the LifetimeObserver is invalidated so outstanding Weak handles observe
// the value as gone, and the underlying Pool allocation is released once
// no Weak handle remains either. Close is idempotent.
func (s *Shared[T]) Close() error {
	if s.ptr == nil {
		return nil
	}
	alloc := s.allocPtr()
	ctrl := s.ctrl
	s.ptr = nil
	if atomic.AddInt64(&ctrl.strong, -1) != 0 {
		return nil
	}
	ctrl.observer(true).Invalidate()
	return ctrl.release(s.pool, alloc)
}

// Weak observes a Shared allocation without keeping its value alive. A
// Weak handle becomes permanently unable to Upgrade once every Shared
// handle over the same allocation has been Closed.
type Weak[T any] struct {
	pool     *Pool
	valPtr   unsafe.Pointer
	ctrl     *sharedHeader
	observer LifetimeObserver
}

// Upgrade attempts to produce a new Shared handle, succeeding only if at
// least one strong handle is still outstanding. The fast IsAlive check
// avoids a wasted CAS attempt in the common case where the value is
// already gone; the CAS loop beneath it is what actually decides
// correctness under concurrent Close/Upgrade races.
func (w Weak[T]) Upgrade() (*Shared[T], bool) {
	if !w.observer.IsAlive() {
		return nil, false
	}
	for {
		cur := atomic.LoadInt64(&w.ctrl.strong)
		if cur == 0 {
			return nil, false
		}
		if atomic.CompareAndSwapInt64(&w.ctrl.strong, cur, cur+1) {
			return &Shared[T]{pool: w.pool, ptr: (*T)(w.valPtr), ctrl: w.ctrl}, true
		}
	}
}

// Close releases this Weak handle's reference, deallocating the
// underlying Pool allocation if it was also the last outstanding
// reference of any kind.
func (w Weak[T]) Close() error {
	alloc := unsafe.Pointer(w.ctrl)
	w.observer.release()
	if atomic.AddInt64(&w.ctrl.weak, -1) != 0 {
		return nil
	}
	return w.ctrl.release(w.pool, alloc)
}
