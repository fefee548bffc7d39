package gopool

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkers(t *testing.T) {
	assert.Equal(t, 1, Workers(0))
	assert.Equal(t, 1, Workers(1))
	assert.Equal(t, 1, Workers(minTasksPerWorker-1))
	assert.Equal(t, 1, Workers(minTasksPerWorker))

	// One worker per minTasksPerWorker tasks until the CPU cap.
	two := 2 * minTasksPerWorker
	if runtime.NumCPU() >= 2 {
		assert.Equal(t, 2, Workers(two))
	}
	assert.Equal(t, runtime.NumCPU(), Workers(1<<20))
}

func TestSubmit(t *testing.T) {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		total int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		require.NoError(t, Submit(func() {
			defer wg.Done()
			mu.Lock()
			total++
			mu.Unlock()
		}))
	}
	wg.Wait()
	assert.Equal(t, 32, total)
}
