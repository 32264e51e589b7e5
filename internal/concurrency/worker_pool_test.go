package concurrency

import (
	"context"
	"testing"
)

func TestSimpleWorkerPool_RunsEveryIndexOnce(t *testing.T) {
	const workers = 8
	hits := make([]int, workers)

	SimpleWorkerPool(context.Background(), workers, func(_ context.Context, idx int) {
		hits[idx]++
	})

	for i, n := range hits {
		if n != 1 {
			t.Errorf("index %d ran %d times, want 1", i, n)
		}
	}
}
