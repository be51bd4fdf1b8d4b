// Package spallocator implements a user-space size-class slab memory pool.
//
// # Overview
//
// Small, fixed-class allocations are served from pre-reserved chunks of
// memory subdivided into equal-size slots; requests too large for the
// largest class fall back to the Go runtime allocator. Every allocation
// carries a small reversible header so that Pool.Deallocate needs no size
// argument from the caller.
//
// Basic usage:
//
//	pool, err := spallocator.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	ptr, err := pool.Allocate(120, 8)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Deallocate(ptr)
//
// # Generic handles
//
// [Unique] and [Shared] wrap Pool allocations with RAII-flavored lifetime
// management for typed values, and [PoolAllocator] adapts a Pool to the
// shape expected by generic, allocator-parameterized containers.
//
// # Concurrency
//
// Pool and Slab are safe for concurrent use from multiple goroutines. Pool
// serializes class dispatch behind its own [SpinLock] and never holds that
// lock while a per-class Slab lock is held, so the two locks are never
// nested and the pair can never deadlock against each other.
//
// # Size classes
//
// The fixed class ladder is {16, 32, 48, 64, 96, 128, 192, 256, 384, 512,
// 768, 1024} bytes. Requests whose total size (including header) exceeds
// 1024 bytes are served by the large backend, up to a hard 1 GiB ceiling.
package spallocator
