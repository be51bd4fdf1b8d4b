package spallocator

import (
	"sort"
	"unsafe"
)

// Slab owns every chunk for a single size class. Its lock guards chunk
// creation, the occupancy bitmap of each chunk, and the availability
// bitmap — callers must never hold a Pool lock while acquiring this one.
// Pool always drops its own lock before calling into a Slab, so the two
// locks are never nested.
type Slab struct {
	class   int
	lock    SpinLock
	chunks  []*chunkInfo
	avail   bitset // one bit per chunk; set means the chunk has a free slot
	maxCnt  int
	bases   []uintptr // sorted ascending, parallel to idxs
	idxs    []int     // chunk index for bases[i]
}

// newSlab returns an empty Slab for the given class; no chunk is allocated
// until the first request that needs one.
func newSlab(class int) *Slab {
	return &Slab{
		class:  class,
		maxCnt: maxChunksForClass(class),
	}
}

// allocate reserves one class-sized slot and returns a pointer to the user
// region (headerSize bytes past the slot's start), growing the slab if
// every existing chunk is full.
func (s *Slab) allocate(headerSize uint8, total uint32) (unsafe.Pointer, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	chunkIdx, ok := s.avail.firstOne()
	if !ok {
		var err error
		chunkIdx, err = s.growLocked()
		if err != nil {
			return nil, err
		}
	}

	c := s.chunks[chunkIdx]
	slotIdx, ok := c.occupancy.firstZero()
	if !ok {
		// availability bitmap said this chunk had room; a stale bit here
		// is an internal invariant violation, not a caller error.
		runtimeAssert(false, "available chunk reported no free slot")
	}
	c.occupancy.set(slotIdx)
	if c.full() {
		s.avail.clear(chunkIdx)
	}

	slotStart := c.slotPtr(slotIdx)
	userPtr := unsafe.Add(unsafe.Pointer(slotStart), headerSize)
	writeHeaderAt(userPtr, headerSize, total)
	return userPtr, nil
}

// deallocate releases the slot owning ptr. ptr must be a live pointer
// previously returned by allocate on this Slab.
func (s *Slab) deallocate(ptr unsafe.Pointer) error {
	headerSize, _ := readHeaderAt(ptr)
	slotStart := unsafe.Add(ptr, -int(headerSize))
	addr := uintptr(slotStart)

	s.lock.Lock()
	defer s.lock.Unlock()

	chunkIdx, ok := s.predecessorChunk(addr)
	if !ok {
		return ErrInvalidArgument
	}
	c := s.chunks[chunkIdx]
	slotIdx, ok := c.slotIndexForAddr(addr)
	if !ok {
		return ErrInvalidArgument
	}
	if !c.occupancy.get(slotIdx) {
		return ErrInvalidArgument // double free
	}
	c.occupancy.clear(slotIdx)
	s.avail.set(chunkIdx)
	return nil
}

// growLocked appends a new chunk and returns its index. The caller must
// hold s.lock.
func (s *Slab) growLocked() (int, error) {
	if len(s.chunks) >= s.maxCnt {
		return 0, ErrOutOfRange
	}
	c := newChunk(s.class)
	idx := len(s.chunks)
	s.chunks = append(s.chunks, c)
	s.avail.appendBit(true)
	s.insertBase(c.base, idx)
	return idx, nil
}

// insertBase keeps bases/idxs sorted ascending by address as new chunks
// arrive; chunk addresses are not related to creation order, so a plain
// append would break the predecessor search below.
func (s *Slab) insertBase(base uintptr, idx int) {
	i := sort.Search(len(s.bases), func(i int) bool { return s.bases[i] >= base })
	s.bases = append(s.bases, 0)
	copy(s.bases[i+1:], s.bases[i:])
	s.bases[i] = base

	s.idxs = append(s.idxs, 0)
	copy(s.idxs[i+1:], s.idxs[i:])
	s.idxs[i] = idx
}

// predecessorChunk returns the index of the chunk whose extent contains
// addr, found by locating the largest base <= addr and confirming addr
// falls within that chunk's length.
func (s *Slab) predecessorChunk(addr uintptr) (int, bool) {
	i := sort.Search(len(s.bases), func(i int) bool { return s.bases[i] > addr })
	if i == 0 {
		return 0, false
	}
	chunkIdx := s.idxs[i-1]
	c := s.chunks[chunkIdx]
	if addr < c.base || addr >= c.base+uintptr(len(c.raw)) {
		return 0, false
	}
	return chunkIdx, true
}
