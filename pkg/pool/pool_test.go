package pool

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestMapAppliesToAllInOrder(t *testing.T) {
	items := []int{10, 20, 30, 40, 50}
	results := Map(context.Background(), items, 2, func(_ context.Context, i int, item int) (string, error) {
		return strconv.Itoa(item * 2), nil
	})

	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	for i, item := range items {
		if results[i].Err != nil {
			t.Fatalf("item %d: unexpected error %v", i, results[i].Err)
		}
		want := strconv.Itoa(item * 2)
		if results[i].Value != want {
			t.Errorf("item %d: got %q, want %q", i, results[i].Value, want)
		}
	}
}

func TestMapEmptyInput(t *testing.T) {
	results := Map(context.Background(), nil, 4, func(_ context.Context, _ int, item int) (int, error) {
		return item, nil
	})
	if len(results) != 0 {
		t.Fatalf("got %d results for empty input", len(results))
	}
}

func TestMapNeverExceedsLimit(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int64

	items := make([]int, 20)
	Map(context.Background(), items, limit, func(_ context.Context, _ int, _ int) (int, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})

	if got := peak.Load(); got > limit {
		t.Errorf("observed %d concurrent invocations, limit is %d", got, limit)
	}
}

func TestMapRunsBatchesConcurrently(t *testing.T) {
	const (
		limit   = 3
		perItem = 30 * time.Millisecond
	)
	items := make([]int, 9)

	start := time.Now()
	Map(context.Background(), items, limit, func(_ context.Context, _ int, _ int) (int, error) {
		time.Sleep(perItem)
		return 0, nil
	})
	elapsed := time.Since(start)

	// 9 items at limit 3 need 3 rounds, far less than 9 serial sleeps
	serial := time.Duration(len(items)) * perItem
	if elapsed >= serial {
		t.Errorf("elapsed %s, not faster than serial %s", elapsed, serial)
	}
}

func TestMapIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	items := []int{0, 1, 2, 3}
	results := Map(context.Background(), items, 2, func(_ context.Context, _ int, item int) (int, error) {
		switch item {
		case 1:
			return 0, boom
		case 2:
			panic("kaboom")
		}
		return item * 10, nil
	})

	if results[0].Err != nil || results[0].Value != 0 {
		t.Errorf("item 0: got (%d, %v)", results[0].Value, results[0].Err)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("item 1: got %v, want %v", results[1].Err, boom)
	}
	if results[2].Err == nil {
		t.Error("item 2: panic not captured as error")
	}
	if results[3].Err != nil || results[3].Value != 30 {
		t.Errorf("item 3: got (%d, %v)", results[3].Value, results[3].Err)
	}
}

func TestMapStopsClaimingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int64
	items := make([]int, 50)
	results := Map(ctx, items, 1, func(_ context.Context, i int, _ int) (int, error) {
		started.Add(1)
		if i == 2 {
			cancel()
		}
		return i, nil
	})

	if started.Load() >= int64(len(items)) {
		t.Fatal("every item ran despite cancellation")
	}
	var canceled int
	for _, res := range results {
		if errors.Is(res.Err, context.Canceled) {
			canceled++
		}
	}
	if canceled == 0 {
		t.Error("no result carries the cancellation error")
	}
}
