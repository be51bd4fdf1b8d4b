package spallocator

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Pool and Slab operations. Callers should match
// these with errors.Is; wrapped variants may add context via fmt.Errorf's
// %w verb.
var (
	// ErrInvalidArgument is returned for a pointer not owned by the
	// claimed allocator, a double free, an unsupported alignment, or an
	// unknown pointer passed to Slab.deallocate.
	ErrInvalidArgument = errors.New("spallocator: invalid argument")

	// ErrOutOfRange is returned when a request exceeds the maximum
	// permitted size (1 GiB for the large backend; the per-class chunk
	// cap for a Slab).
	ErrOutOfRange = errors.New("spallocator: out of range")

	// ErrOutOfMemory stands for the underlying system allocator refusing
	// a request. No current code path returns it: make does not report
	// memory exhaustion as an error value.
	ErrOutOfMemory = errors.New("spallocator: out of memory")

	// ErrPreconditionViolated signals an internal assertion failure
	// (e.g. a negative refcount or a misaligned header pointer). Treat
	// as fatal; there is no recovery path.
	ErrPreconditionViolated = errors.New("spallocator: precondition violated")

	// ErrClosed is returned by Pool operations once Close has been
	// called.
	ErrClosed = errors.New("spallocator: pool closed")

	// ErrCircuitBreakerOpen is returned by Allocate while the health
	// circuit breaker is open following a run of allocation failures.
	ErrCircuitBreakerOpen = errors.New("spallocator: circuit breaker is open")

	// ErrInvalidReference describes a handle that has already been
	// released or does not belong to the Pool it is released against. No
	// current operation returns it; closing an already-closed handle is a
	// no-op.
	ErrInvalidReference = errors.New("spallocator: invalid reference")
)

// runtimeAssert panics with ErrPreconditionViolated wrapped in msg if cond
// is false. It exists to give internal invariant violations a single,
// greppable call site, mirroring the source's runtime_assert helper.
func runtimeAssert(cond bool, msg string) {
	if !cond {
		panic(fmt.Errorf("spallocator: %s: %w", msg, ErrPreconditionViolated))
	}
}
