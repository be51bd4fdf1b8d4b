package spallocator

import (
	"testing"
	"unsafe"
)

func TestSlabAllocateDeallocateRoundTrip(t *testing.T) {
	s := newSlab(16)
	headerSize := uint8(8)
	total := uint32(16)

	ptr, err := s.allocate(headerSize, total)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if ptr == nil {
		t.Fatal("allocate returned a nil pointer")
	}
	gotHeaderSize, gotTotal := readHeaderAt(ptr)
	if gotHeaderSize != headerSize || gotTotal != total {
		t.Fatalf("header = (%d, %d), want (%d, %d)", gotHeaderSize, gotTotal, headerSize, total)
	}

	if err := s.deallocate(ptr); err != nil {
		t.Fatalf("deallocate: %v", err)
	}
}

func TestSlabDeallocateRejectsUnknownPointer(t *testing.T) {
	s := newSlab(16)
	var stray byte
	if err := s.deallocate(unsafe.Add(unsafe.Pointer(&stray), 8)); err != ErrInvalidArgument {
		t.Fatalf("deallocate(stray) = %v, want ErrInvalidArgument", err)
	}
}

func TestSlabDeallocateRejectsDoubleFree(t *testing.T) {
	s := newSlab(16)
	ptr, err := s.allocate(8, 16)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := s.deallocate(ptr); err != nil {
		t.Fatalf("first deallocate: %v", err)
	}
	if err := s.deallocate(ptr); err != ErrInvalidArgument {
		t.Fatalf("second deallocate = %v, want ErrInvalidArgument", err)
	}
}

func TestSlabGrowsAcrossChunkBoundary(t *testing.T) {
	s := newSlab(16)
	slotsInOneChunk := slotsPerChunk(16)

	ptrs := make([]unsafe.Pointer, 0, slotsInOneChunk+5)
	for i := 0; i < slotsInOneChunk+5; i++ {
		ptr, err := s.allocate(8, 16)
		if err != nil {
			t.Fatalf("allocate #%d: %v", i, err)
		}
		ptrs = append(ptrs, ptr)
	}
	if len(s.chunks) < 2 {
		t.Fatalf("expected growth to at least 2 chunks, got %d", len(s.chunks))
	}

	for i, ptr := range ptrs {
		if err := s.deallocate(ptr); err != nil {
			t.Fatalf("deallocate #%d: %v", i, err)
		}
	}
}

func TestSlabReusesFreedSlot(t *testing.T) {
	s := newSlab(16)
	first, err := s.allocate(8, 16)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := s.deallocate(first); err != nil {
		t.Fatalf("deallocate: %v", err)
	}
	second, err := s.allocate(8, 16)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if first != second {
		t.Fatalf("expected the freed slot to be reused, got distinct pointers %p and %p", first, second)
	}
}
