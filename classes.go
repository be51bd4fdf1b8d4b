package spallocator

// classLadder is the fixed set of size classes served by the slab engine.
// Every entry is a multiple of 16 and at least 16.
var classLadder = [...]int{16, 32, 48, 64, 96, 128, 192, 256, 384, 512, 768, 1024}

const (
	numClasses = len(classLadder)

	// maxClassSize is the largest class served by a Slab; totals above
	// this go to the large backend.
	maxClassSize = 1024

	// maxAllocTotal is the hard ceiling on any single allocation's total
	// size (user bytes + header), enforced at Pool.Allocate.
	maxAllocTotal = 1 << 30 // 1 GiB

	// largeBackendMinTotal is the Pool-internal precondition for
	// routing to the large backend: totals at or below maxClassSize
	// never reach it.
	largeBackendMinTotal = maxClassSize + 1

	// smallChunkSize is the chunk size used for every class in the
	// current ladder (all classes are <= 2 KiB).
	smallChunkSize = 4096

	// fourGiB bounds the number of chunks a single Slab may grow to.
	fourGiB = int64(4) << 30
)

// classIndexForTotal returns the index into classLadder of the smallest
// class that can hold total bytes, using the smallest-fit rule. ok is false
// when total exceeds the largest class, meaning the request belongs to the
// large backend instead.
//
// This is a pure function: the same total always maps to the same index,
// so callers can rely on class selection being stable across repeated
// allocate/deallocate cycles of the same size.
func classIndexForTotal(total uint32) (idx int, ok bool) {
	for i, c := range classLadder {
		if total <= uint32(c) {
			return i, true
		}
	}
	return -1, false
}

// chunkSizeForClass returns the chunk size a Slab of the given class
// allocates per growth step. The branch for class > 2 KiB is unreachable
// with the current ladder (the largest class is 1024 B) but is kept as a
// documented extension point for a future, larger class.
func chunkSizeForClass(class int) int {
	if class <= 2048 {
		return smallChunkSize
	}
	return class * 4
}

// maxChunksForClass returns the hard growth cap for a Slab of the given
// class: 4 GiB worth of chunks.
func maxChunksForClass(class int) int {
	chunkSize := int64(chunkSizeForClass(class))
	return int(fourGiB / chunkSize)
}

// slotsPerChunk returns the number of class-sized slots that fit in one
// chunk of the given class.
func slotsPerChunk(class int) int {
	return chunkSizeForClass(class) / class
}
