package service

import (
	"context"
	"errors"
	"testing"
)

type stubRanker struct {
	idx int
	err error
}

func (s stubRanker) Rank(_ context.Context, _ [][]byte) (int, error) {
	return s.idx, s.err
}

func frames(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i)}
	}
	return out
}

func TestChooseCandidateTrivialSets(t *testing.T) {
	ctx := context.Background()
	if got := ChooseCandidate(ctx, stubRanker{idx: 4}, nil); got != 0 {
		t.Errorf("empty set: got %d, want 0", got)
	}
	if got := ChooseCandidate(ctx, stubRanker{idx: 4}, frames(1)); got != 0 {
		t.Errorf("single candidate: got %d, want 0", got)
	}
}

func TestChooseCandidateUsesRanker(t *testing.T) {
	got := ChooseCandidate(context.Background(), stubRanker{idx: 3}, frames(5))
	if got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestChooseCandidateFallsBackToMiddle(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		ranker CandidateRanker
	}{
		{"nil ranker", nil},
		{"ranker error", stubRanker{err: errors.New("api down")}},
		{"index too high", stubRanker{idx: 5}},
		{"negative index", stubRanker{idx: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ChooseCandidate(ctx, tc.ranker, frames(5)); got != 2 {
				t.Errorf("got %d, want middle index 2", got)
			}
		})
	}
}
