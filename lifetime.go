package spallocator

import "sync/atomic"

// controlBlock is the shared state between one owning LifetimeObserver and
// any number of cloned observers watching it: a live flag plus a
// reference count of outstanding observers (owner included). Unlike the
// non-atomic source this is translated from, every field here is accessed
// exclusively through sync/atomic so IsAlive can be queried from a
// goroutine other than the owner without additional locking.
type controlBlock struct {
	alive int64 // 0 or 1
	refs  int64 // outstanding LifetimeObserver values referencing this block
}

// LifetimeObserver lets an asynchronous callback check, without racing,
// whether the object that scheduled it is still alive. The owner creates
// one with newLifetimeObserver, hands out clones (Clone) to callbacks, and
// calls Invalidate when the owned object is destroyed; each clone then
// observes IsAlive() == false from that point on.
//
// The zero value is not usable; construct one with newLifetimeObserver.
type LifetimeObserver struct {
	block *controlBlock
	owner bool
}

// newLifetimeObserver returns the owning LifetimeObserver for a new
// object. The owner must call Invalidate exactly once, typically from the
// owned object's destructor/Close path.
func newLifetimeObserver() LifetimeObserver {
	cb := &controlBlock{alive: 1, refs: 1}
	return LifetimeObserver{block: cb, owner: true}
}

// Clone returns a non-owning observer sharing this LifetimeObserver's
// control block. The clone remains valid to query even after the owner
// calls Invalidate or is itself dropped.
func (o LifetimeObserver) Clone() LifetimeObserver {
	atomic.AddInt64(&o.block.refs, 1)
	return LifetimeObserver{block: o.block, owner: false}
}

// IsAlive reports whether the owned object has not yet called Invalidate.
func (o LifetimeObserver) IsAlive() bool {
	return atomic.LoadInt64(&o.block.alive) != 0
}

// Invalidate marks the control block dead. Only the owning
// LifetimeObserver may call it; calling it on a clone is a programming
// error and panics via runtimeAssert.
func (o LifetimeObserver) Invalidate() {
	runtimeAssert(o.owner, "Invalidate called on a non-owning LifetimeObserver")
	atomic.StoreInt64(&o.block.alive, 0)
}

// release drops one reference to the control block. Both the owner and
// every clone must call it exactly once when done, typically via Close on
// whatever wraps the observer; the control block itself has no explicit
// free step since Go's GC reclaims it once refs and every Go pointer to it
// are gone, but Close paths still call release to keep refs accurate for
// diagnostics.
func (o LifetimeObserver) release() {
	atomic.AddInt64(&o.block.refs, -1)
}

// refCount reports the number of outstanding observers, owner included.
// Exposed for tests and diagnostics only.
func (o LifetimeObserver) refCount() int64 {
	return atomic.LoadInt64(&o.block.refs)
}
