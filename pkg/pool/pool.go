package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Result holds the outcome of one item. Err is set when the item's function
// returned an error or panicked; the rest of the pool keeps running.
type Result[R any] struct {
	Value R
	Err   error
}

// Map applies fn to every item with at most limit invocations in flight.
// Results come back indexed by input position regardless of completion order.
// Workers share a single cursor and each claims the next unclaimed index, so
// uneven per-item latency does not leave workers idle behind a fixed partition.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, index int, item T) (R, error)) []Result[R] {
	out := make([]Result[R], len(items))
	if len(items) == 0 {
		return out
	}
	if limit < 1 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < limit; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(items) {
					return
				}
				if err := ctx.Err(); err != nil {
					out[i] = Result[R]{Err: err}
					continue
				}
				out[i] = invoke(ctx, i, items[i], fn)
			}
		}()
	}
	wg.Wait()
	return out
}

func invoke[T, R any](ctx context.Context, i int, item T, fn func(ctx context.Context, index int, item T) (R, error)) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("item %d panicked: %v", i, r)
		}
	}()
	res.Value, res.Err = fn(ctx, i, item)
	return res
}
