package spallocator

import "testing"

func TestLifetimeObserverIsAliveUntilInvalidated(t *testing.T) {
	owner := newLifetimeObserver()
	clone := owner.Clone()

	if !owner.IsAlive() || !clone.IsAlive() {
		t.Fatal("both owner and clone should start alive")
	}

	owner.Invalidate()

	if owner.IsAlive() || clone.IsAlive() {
		t.Fatal("both owner and clone should observe invalidation")
	}
}

func TestLifetimeObserverCloneSharesRefCount(t *testing.T) {
	owner := newLifetimeObserver()
	if owner.refCount() != 1 {
		t.Fatalf("refCount = %d, want 1", owner.refCount())
	}
	c1 := owner.Clone()
	c2 := owner.Clone()
	if owner.refCount() != 3 {
		t.Fatalf("refCount = %d, want 3", owner.refCount())
	}
	c1.release()
	c2.release()
	if owner.refCount() != 1 {
		t.Fatalf("refCount = %d, want 1 after releasing clones", owner.refCount())
	}
}

func TestLifetimeObserverInvalidateOnCloneIsRejected(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Invalidate on a non-owning clone should panic")
		}
	}()
	owner := newLifetimeObserver()
	clone := owner.Clone()
	clone.Invalidate()
}
