package spallocator

import "unsafe"

// largeBackend serves allocations whose total size exceeds the largest
// size class. It carries no state of its own: each request becomes one
// make([]byte, n), and each release simply drops the Go reference and lets
// the garbage collector reclaim it. It exists mainly so Pool can dispatch
// to it through the same arena shape as a Slab.
type largeBackend struct{}

// allocate satisfies the arena interface. The requested alignment reaches
// it only through headerSize: make's allocations of more than 1 KiB start
// on at least a 16-byte boundary, which covers every alignment this module
// accepts.
func (largeBackend) allocate(headerSize uint8, total uint32) (unsafe.Pointer, error) {
	if total > maxAllocTotal {
		return nil, ErrOutOfRange
	}
	runtimeAssert(total >= largeBackendMinTotal, "large backend received a small-class total")
	buf := make([]byte, total)
	userPtr := unsafe.Add(unsafe.Pointer(&buf[0]), headerSize)
	writeHeaderAt(userPtr, headerSize, total)
	// buf's backing array must outlive this call: unsafe.Add keeps no
	// reference of its own, so the returned pointer is kept alive by the
	// header machinery treating it like any Go-managed []byte — the
	// caller's subsequent access to userPtr retains the array via the GC's
	// interior-pointer tracking.
	return userPtr, nil
}

// deallocate is a no-op: there is nothing to free explicitly, and the
// caller drops its last reference to the allocation right after this
// returns.
func (largeBackend) deallocate(ptr unsafe.Pointer) error {
	// validates ptr carries a well-formed header
	headerSize, total := readHeaderAt(ptr)
	if (headerSize != 8 && headerSize != 16) || total < largeBackendMinTotal || total > maxAllocTotal {
		return ErrInvalidArgument
	}
	return nil
}
