package service

import (
	"time"

	"github.com/rs/zerolog"

	"meeting-ingest/constant"
)

// Outcome records how one recording fared in a run.
type Outcome struct {
	RecordingID string
	Status      constant.SyncStatus
	Reason      string
}

// SyncReport aggregates one sync run. It is built by the caller from the
// pool results rather than accumulated in shared state, so runs are
// re-entrant and reports compose.
type SyncReport struct {
	Provider constant.Provider
	Synced   int
	Skipped  int
	Failed   int
	Outcomes []Outcome
	Phases   map[string]time.Duration
}

func newSyncReport(provider constant.Provider) *SyncReport {
	return &SyncReport{
		Provider: provider,
		Phases:   map[string]time.Duration{},
	}
}

func (r *SyncReport) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case constant.SyncStatusSynced:
		r.Synced++
	case constant.SyncStatusSkipped:
		r.Skipped++
	case constant.SyncStatusFailed:
		r.Failed++
	}
}

// Merge folds another report into this one, summing counts and phase timings.
func (r *SyncReport) Merge(other *SyncReport) {
	if other == nil {
		return
	}
	r.Synced += other.Synced
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Outcomes = append(r.Outcomes, other.Outcomes...)
	for phase, d := range other.Phases {
		r.Phases[phase] += d
	}
}

// Log emits the operator-facing end-of-run summary.
func (r *SyncReport) Log(logger *zerolog.Logger) {
	ev := logger.Info().
		Str("provider", r.Provider.String()).
		Int("synced", r.Synced).
		Int("skipped", r.Skipped).
		Int("failed", r.Failed)
	for phase, d := range r.Phases {
		ev = ev.Dur("phase_"+phase, d)
	}
	ev.Msg("sync run finished")
	for _, o := range r.Outcomes {
		if o.Status == constant.SyncStatusFailed {
			logger.Warn().Str("recording_id", o.RecordingID).Str("reason", o.Reason).Msg("recording failed")
		}
	}
}

// PreviewReport aggregates one preview generation run.
type PreviewReport struct {
	Generated int
	Skipped   int
	Failed    int
	Outcomes  []Outcome
	Elapsed   time.Duration
}

func (r *PreviewReport) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case constant.SyncStatusSynced:
		r.Generated++
	case constant.SyncStatusSkipped:
		r.Skipped++
	case constant.SyncStatusFailed:
		r.Failed++
	}
}

func (r *PreviewReport) Log(logger *zerolog.Logger) {
	logger.Info().
		Int("generated", r.Generated).
		Int("skipped", r.Skipped).
		Int("failed", r.Failed).
		Dur("elapsed", r.Elapsed).
		Msg("preview run finished")
}
