package pipeline

import (
	"context"
	"sync"
)

// WorkerPool is the pool the orchestrator creates in New and reuses for
// every stage (§5). It holds only the worker count; each Map call starts
// and stops its own worker goroutines. Stages submit independent unit-of-work
// closures via Map; results are consumed in arrival order internally but
// returned to the caller in input order, mirroring pool.map's contract.
type WorkerPool struct {
	size int
}

// NewWorkerPool creates a pool with the given worker count. A size <= 0
// falls back to 1 (sequential, still correct).
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{size: size}
}

// Size reports the configured worker count.
func (p *WorkerPool) Size() int { return p.size }

type mapJob[T any] struct {
	index int
	item  T
}

type mapResult[R any] struct {
	index  int
	result R
	err    error
}

// Map runs fn over every item using up to p.size concurrent workers.
// onChunk is invoked from the calling goroutine every chunkSize
// completions and once more at the end (§5 "every 10 completions or at
// the end"), receiving the number of items completed so far and the
// total. Map blocks until every submitted task completes or ctx is
// cancelled. Results and per-item errors are returned in input order.
func Map[T any, R any](ctx context.Context, p *WorkerPool, items []T, chunkSize int,
	fn func(context.Context, T) (R, error), onChunk func(done, total int),
) ([]R, []error) {
	total := len(items)
	results := make([]R, total)
	errs := make([]error, total)
	if total == 0 {
		return results, errs
	}
	if chunkSize <= 0 {
		chunkSize = total
	}

	jobs := make(chan mapJob[T], total)
	out := make(chan mapResult[R], total)

	var wg sync.WaitGroup
	workers := p.size
	if workers > total {
		workers = total
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					out <- mapResult[R]{index: job.index, err: ctx.Err()}
					continue
				default:
				}
				r, err := fn(ctx, job.item)
				out <- mapResult[R]{index: job.index, result: r, err: err}
			}
		}()
	}

	for i, item := range items {
		jobs <- mapJob[T]{index: i, item: item}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(out)
	}()

	done := 0
	for r := range out {
		results[r.index] = r.result
		errs[r.index] = r.err
		done++
		if onChunk != nil && (done%chunkSize == 0 || done == total) {
			onChunk(done, total)
		}
	}
	return results, errs
}
