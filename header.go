package spallocator

import (
	"encoding/binary"
	"unsafe"
)

// Every Pool allocation is preceded by a small header: the byte at
// userPtr-5 holds headerSize (8 or 16), and the four bytes at
// userPtr-4..userPtr-1 hold allocSize (the total size including the
// header) as little-endian uint32. Bytes before userPtr-5, when
// headerSize is 16, are unused padding kept only to satisfy the requested
// alignment.
//
// This hard-codes little-endian layout; it is not portable to a
// big-endian target, a limitation carried forward unchanged from the
// design this module implements.
const headerTailBytes = 5

// headerSizeFor returns max(8, alignment); the result is always 8 or 16
// for the alignments this module accepts (4, 8, 16).
func headerSizeFor(alignment int) uint8 {
	if alignment < 8 {
		return 8
	}
	return uint8(alignment)
}

// writeHeaderAt writes headerSize and allocSize into the 5 bytes
// immediately preceding userPtr. userPtr must point at least headerTailBytes
// bytes into the allocation that owns it.
func writeHeaderAt(userPtr unsafe.Pointer, headerSize uint8, allocSize uint32) {
	tail := unsafe.Slice((*byte)(unsafe.Add(userPtr, -headerTailBytes)), headerTailBytes)
	tail[0] = headerSize
	binary.LittleEndian.PutUint32(tail[1:5], allocSize)
}

// readHeaderAt reads the header immediately preceding userPtr.
func readHeaderAt(userPtr unsafe.Pointer) (headerSize uint8, allocSize uint32) {
	tail := unsafe.Slice((*byte)(unsafe.Add(userPtr, -headerTailBytes)), headerTailBytes)
	headerSize = tail[0]
	allocSize = binary.LittleEndian.Uint32(tail[1:5])
	return headerSize, allocSize
}
