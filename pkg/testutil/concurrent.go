// Package testutil holds helpers shared by package tests.
package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"billdash/internal/sentinel"
	dErrors "billdash/pkg/domain-errors"
)

// ConcurrentResult tallies outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int32
	Conflicts int32
	Limited   int32
	Errors    int32
}

// Total returns the number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Conflicts + r.Limited + r.Errors
}

// RunConcurrent calls fn from n goroutines at once and sorts the results:
// sentinel.ErrAlreadyUsed counts as a conflict, a rate-limit domain error as
// limited, anything else as a plain error.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, conflicts, limited, errs atomic.Int32
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflicts.Add(1)
			case dErrors.HasCode(err, dErrors.CodeRateLimit):
				limited.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	return &ConcurrentResult{
		Successes: successes.Load(),
		Conflicts: conflicts.Load(),
		Limited:   limited.Load(),
		Errors:    errs.Load(),
	}
}
