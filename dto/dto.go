package dto

import "meeting-ingest/constant"

// JobMessage is the payload published to the recording jobs queue. A sync job
// may target one provider, a preview job may target one recording.
type JobMessage struct {
	Type        constant.JobType  `json:"type"`
	Provider    constant.Provider `json:"provider,omitempty"`
	RecordingID string            `json:"recordingId,omitempty"`
	Force       bool              `json:"force,omitempty"`
	Limit       int               `json:"limit,omitempty"`
}
