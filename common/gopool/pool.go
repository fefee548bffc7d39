// Package gopool wraps a shared goroutine pool used by the batch decoding
// paths, where per-class goroutines would otherwise be unbounded on large
// archives.
package gopool

import (
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
)

var (
	// Idle workers are reclaimed after this long without a task.
	defaultPool, _    = ants.NewPool(ants.DefaultAntsPoolSize, ants.WithExpiryDuration(10*time.Second))
	minTasksPerWorker = 4
)

// Submit schedules task on the shared pool.
func Submit(task func()) error {
	return defaultPool.Submit(task)
}

// Release closes the shared pool.
func Release() {
	defaultPool.Release()
}

// Workers sizes a worker count for the given task count, capped at the
// number of CPUs.
func Workers(tasks int) int {
	workers := tasks / minTasksPerWorker
	if workers > runtime.NumCPU() {
		workers = runtime.NumCPU()
	} else if workers == 0 {
		workers = 1
	}
	return workers
}
