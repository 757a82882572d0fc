package application

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateCeiling(t *testing.T) {
	t.Parallel()

	g := NewGate()

	assert.True(t, g.Acquire(1, 2))
	assert.True(t, g.Acquire(1, 2))
	assert.False(t, g.Acquire(1, 2))
	assert.Equal(t, 2, g.InFlight(1))

	g.Release(1)
	assert.True(t, g.Acquire(1, 2))
}

func TestGateGuildsAreIndependent(t *testing.T) {
	t.Parallel()

	g := NewGate()

	assert.True(t, g.Acquire(1, 1))
	assert.False(t, g.Acquire(1, 1))
	assert.True(t, g.Acquire(2, 1))
}

func TestGateReleaseClearsEntry(t *testing.T) {
	t.Parallel()

	g := NewGate()

	g.Acquire(1, 5)
	g.Release(1)
	assert.Equal(t, 0, g.InFlight(1))
}

func TestGateConcurrentAcquires(t *testing.T) {
	t.Parallel()

	g := NewGate()
	const workers = 16
	const ceiling = 3

	var wg sync.WaitGroup
	results := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Acquire(42, ceiling)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, ok := range results {
		if ok {
			admitted++
		}
	}
	assert.Equal(t, ceiling, admitted)
	assert.Equal(t, ceiling, g.InFlight(42))
}
