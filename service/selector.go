package service

import (
	"context"

	"github.com/rs/zerolog"
)

// CandidateRanker ranks candidate poster frames and returns the 0-based
// index of the best one.
type CandidateRanker interface {
	Rank(ctx context.Context, images [][]byte) (int, error)
}

// ChooseCandidate picks which candidate becomes the stored preview. With
// zero or one candidate the choice is trivial. Otherwise the ranker is
// consulted best-effort: a missing ranker, a transport error or an
// out-of-range answer all fall back to the middle candidate, never failing
// the recording.
func ChooseCandidate(ctx context.Context, ranker CandidateRanker, images [][]byte) int {
	if len(images) <= 1 {
		return 0
	}
	fallback := len(images) / 2
	if ranker == nil {
		return fallback
	}
	idx, err := ranker.Rank(ctx, images)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("candidate ranking failed, using middle candidate")
		return fallback
	}
	if idx < 0 || idx >= len(images) {
		zerolog.Ctx(ctx).Warn().Int("index", idx).Msg("candidate ranking out of range, using middle candidate")
		return fallback
	}
	return idx
}
