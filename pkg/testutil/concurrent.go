package testutil

import (
	"sync"
	"sync/atomic"

	dErrors "credledger/pkg/domain-errors"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	// Codes counts failures by domain error code; plain errors count as
	// CodeInternal.
	Codes map[dErrors.Code]int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	total := r.Successes
	for _, n := range r.Codes {
		total += n
	}
	return total
}

// RunConcurrent executes fn in parallel goroutines and collects results.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes atomic.Int32
	)
	codes := make(map[dErrors.Code]int32)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := fn(idx); err != nil {
				mu.Lock()
				codes[dErrors.CodeOf(err)]++
				mu.Unlock()
				return
			}
			successes.Add(1)
		}(i)
	}

	wg.Wait()
	return &ConcurrentResult{Successes: successes.Load(), Codes: codes}
}
