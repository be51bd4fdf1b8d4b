package spallocator

import "testing"

type point struct {
	x, y int64
}

func TestUniqueRoundTrip(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	u, err := NewUnique(p, point{x: 3, y: 4})
	if err != nil {
		t.Fatalf("NewUnique: %v", err)
	}
	if got := u.Get(); got.x != 3 || got.y != 4 {
		t.Fatalf("Get() = %+v, want {3 4}", *got)
	}
	u.Get().x = 10
	if u.Get().x != 10 {
		t.Fatal("mutation through Get() did not persist")
	}

	if err := u.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if u.Get() != nil {
		t.Fatal("Get() after Close should return nil")
	}
	if err := u.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}

func TestUniqueSliceRoundTrip(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	s, err := NewUniqueSlice[int64](p, 10)
	if err != nil {
		t.Fatalf("NewUniqueSlice: %v", err)
	}
	vals := s.Slice()
	if len(vals) != 10 {
		t.Fatalf("len(Slice()) = %d, want 10", len(vals))
	}
	for i := range vals {
		vals[i] = int64(i * i)
	}
	for i, v := range s.Slice() {
		if v != int64(i*i) {
			t.Fatalf("vals[%d] = %d, want %d", i, v, i*i)
		}
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Slice() != nil {
		t.Fatal("Slice() after Close should return nil")
	}
}

func TestPoolAllocatorAdapter(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	alloc := NewPoolAllocator[point](p)
	u, err := alloc.New(point{x: 1, y: 2})
	if err != nil {
		t.Fatalf("alloc.New: %v", err)
	}
	defer u.Close()

	sl, err := alloc.NewSlice(4)
	if err != nil {
		t.Fatalf("alloc.NewSlice: %v", err)
	}
	defer sl.Close()
	if len(sl.Slice()) != 4 {
		t.Fatalf("len(NewSlice(4).Slice()) = %d, want 4", len(sl.Slice()))
	}
}
