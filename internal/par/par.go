// Package par runs index-tagged work items on a bounded worker pool and
// reassembles the results in input order.
package par

import (
	"context"
	"runtime"
	"sort"
	"sync"
)

// Item tags a payload with its position in the input sequence.
type Item[T any] struct {
	Index int
	Value T
}

type outcome[U any] struct {
	Item[U]
	err error
}

// Map applies f to every item using at most workers goroutines. Results are
// collected as index-tagged items and sorted back into input order before
// being returned, so scheduling order never leaks into the output.
//
// The first error cancels the remaining work and is returned.
func Map[T, U any](ctx context.Context, items []T, workers int, f func(ctx context.Context, i int, v T) (U, error)) ([]U, error) {
	if len(items) == 0 {
		return []U{}, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(items) {
		workers = len(items)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan Item[T])
	results := make(chan outcome[U], len(items))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				v, err := f(ctx, job.Index, job.Value)
				results <- outcome[U]{Item: Item[U]{Index: job.Index, Value: v}, err: err}
				if err != nil {
					cancel()
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, v := range items {
			select {
			case jobs <- Item[T]{Index: i, Value: v}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]Item[U], 0, len(items))
	var firstErr error
	firstErrIdx := len(items)
	for r := range results {
		if r.err != nil {
			// Prefer the lowest failing index so repeated runs report the same error.
			if r.Index < firstErrIdx {
				firstErr, firstErrIdx = r.err, r.Index
			}
			continue
		}
		collected = append(collected, r.Item)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil && len(collected) != len(items) {
		return nil, err
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].Index < collected[j].Index })
	out := make([]U, len(collected))
	for i, it := range collected {
		out[i] = it.Value
	}
	return out, nil
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
