package spallocator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAllocateDeallocateSmallClass(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	ptr, err := p.Allocate(40, 8)
	require.NoError(t, err)
	require.NotNil(t, ptr)

	require.NoError(t, p.Deallocate(ptr))

	snap := p.Stats()
	assert.Equal(t, int64(1), snap.AllocsByClass[2]) // class 48 holds 40+8=48
	assert.Equal(t, int64(1), snap.DeallocsByClass[2])
}

func TestPoolAllocateRoutesLargeRequestsToLargeBackend(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	ptr, err := p.Allocate(4096, 8)
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(ptr))

	snap := p.Stats()
	assert.Equal(t, int64(1), snap.AllocsByClass[largeBackendStatsIdx])
}

func TestPoolRejectsUnsupportedAlignment(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Allocate(16, 3)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPoolRejectsOversizeRequest(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Allocate(1<<31, 8)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPoolDeallocateNilIsNoOp(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	assert.NoError(t, p.Deallocate(nil))
}

func TestPoolAllocateAfterCloseFails(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, err = p.Allocate(16, 8)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPoolConcurrentAllocateDeallocate(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			size := 16 + (n%8)*32
			ptr, err := p.Allocate(size, 8)
			if err != nil {
				errs <- err
				return
			}
			time.Sleep(time.Microsecond)
			errs <- p.Deallocate(ptr)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestPoolCircuitBreakerOpensAfterRepeatedFailures(t *testing.T) {
	p, err := New(WithCircuitBreaker(3, 50*time.Millisecond))
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 3; i++ {
		_, err := p.Allocate(1<<31, 8)
		assert.ErrorIs(t, err, ErrOutOfRange)
	}

	_, err = p.Allocate(16, 8)
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)

	time.Sleep(60 * time.Millisecond)
	ptr, err := p.Allocate(16, 8)
	assert.NoError(t, err)
	assert.NoError(t, p.Deallocate(ptr))
}

func TestPoolHealthReflectsFailureRate(t *testing.T) {
	p, err := New()
	require.NoError(t, err)
	defer p.Close()

	ptr, err := p.Allocate(16, 8)
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(ptr))

	h := p.Health()
	assert.True(t, h.Healthy)
	assert.Equal(t, float64(0), h.FailureRate)
}
