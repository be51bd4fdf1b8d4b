//go:build linux

// File: spinlock_linux.go
//
// Linux futex-backed kernel-assisted wait for SpinLock.

package spallocator

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Futex opcodes not exported by golang.org/x/sys/unix as typed helpers; the
// raw syscall form is used instead, consistent with how the package exposes
// other Linux-only primitives.
const (
	futexWait        = 0
	futexWake        = 1
	futexPrivateFlag = 128
)

// waitUntilFree suspends the calling goroutine until *addr is observed as
// free (0), using FUTEX_WAIT so the kernel re-checks the value atomically
// and returns immediately if it has already changed — this is what
// prevents the lost-wakeup race between Unlock's store and a waiter
// arriving here.
func waitUntilFree(addr *uint32) {
	for atomic.LoadUint32(addr) == 1 {
		_, _, errno := unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			uintptr(futexWait|futexPrivateFlag),
			uintptr(1), // expected value
			0, 0, 0,
		)
		// EAGAIN: value changed before the kernel could wait — fine,
		// the Load above will see it. EINTR: spurious wake — also
		// fine, the Lock loop re-attempts the CAS regardless.
		if errno != 0 && errno != unix.EAGAIN && errno != unix.EINTR {
			return
		}
	}
}

// wakeOne wakes at most one goroutine blocked in waitUntilFree on addr.
func wakeOne(addr *uint32) {
	unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWake|futexPrivateFlag),
		uintptr(1), // wake at most one waiter
		0, 0, 0,
	)
}
