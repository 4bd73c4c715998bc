package ident

import (
	"errors"
	"sync"
	"testing"

	"github.com/agentic-research/canvas/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_SequentialIDs(t *testing.T) {
	a := New(WithPrefix("s1"))

	first, err := a.Next()
	require.NoError(t, err)
	second, err := a.Next()
	require.NoError(t, err)

	assert.Equal(t, "s1-1", first)
	assert.Equal(t, "s1-2", second)
	assert.Equal(t, uint64(3), a.Peek())
}

func TestAllocator_RandomPrefix(t *testing.T) {
	a := New()
	b := New()
	assert.Len(t, a.Prefix(), 8)
	assert.NotEqual(t, a.Prefix(), b.Prefix())
}

func TestAllocator_SamePrefixSameSequence(t *testing.T) {
	a := New(WithPrefix("replay"), WithStart(10))
	b := New(WithPrefix("replay"), WithStart(10))
	for i := 0; i < 5; i++ {
		x, err := a.Next()
		require.NoError(t, err)
		y, err := b.Next()
		require.NoError(t, err)
		assert.Equal(t, x, y)
	}
}

func TestAllocator_Exhausted(t *testing.T) {
	a := New(WithPrefix("x"), WithLimit(3))

	_, err := a.Next()
	require.NoError(t, err)
	_, err = a.Next()
	require.NoError(t, err)

	_, err = a.Next()
	assert.True(t, errors.Is(err, api.ErrAllocationExhausted))

	// Stays exhausted.
	_, err = a.Next()
	assert.ErrorIs(t, err, api.ErrAllocationExhausted)
}

func TestAllocator_ConcurrentUnique(t *testing.T) {
	a := New(WithPrefix("c"))
	const workers, perWorker = 8, 500

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				id, err := a.Next()
				if err != nil {
					t.Error(err)
					return
				}
				local = append(local, id)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestAllocator_Owns(t *testing.T) {
	a := New(WithPrefix("abc"))
	assert.True(t, a.Owns("abc-12"))
	assert.False(t, a.Owns("abc-"))
	assert.False(t, a.Owns("abd-12"))
	assert.False(t, a.Owns("button1"))
}
