package concurrency

import (
	"context"
	"sync"
)

// WorkerFn runs one partition of a fanned-out computation.
type WorkerFn func(ctx context.Context, index int)

// SimpleWorkerPool fans fn out over `workers` goroutines, one index each,
// and waits for all of them. Each worker owns its index's slot, so callers
// can collect results into a pre-sized slice without locking.
func SimpleWorkerPool(ctx context.Context, workers int, fn WorkerFn) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			fn(ctx, idx)
		}(i)
	}
	wg.Wait()
}
