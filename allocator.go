package spallocator

// PoolAllocator adapts a *Pool to the shape expected by generic,
// allocator-parameterized containers: a single type binds the element
// type once, instead of every call site naming it.
type PoolAllocator[T any] struct {
	pool *Pool
}

// NewPoolAllocator returns a PoolAllocator[T] backed by pool.
func NewPoolAllocator[T any](pool *Pool) PoolAllocator[T] {
	return PoolAllocator[T]{pool: pool}
}

// New allocates a single T initialized to value.
func (a PoolAllocator[T]) New(value T) (*Unique[T], error) {
	return NewUnique[T](a.pool, value)
}

// NewSlice allocates room for n contiguous, zero-valued Ts.
func (a PoolAllocator[T]) NewSlice(n int) (*UniqueSlice[T], error) {
	return NewUniqueSlice[T](a.pool, n)
}

// NewShared allocates a single T with shared ownership.
func (a PoolAllocator[T]) NewShared(value T) (*Shared[T], error) {
	return NewShared[T](a.pool, value)
}
