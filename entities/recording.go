package entities

import (
	"time"

	"meeting-ingest/constant"
)

// Recording is one ingested meeting or call. The ID is provider-prefixed
// (zoom_<uuid>, gong_<callId>) so a re-sync of the same source recording
// always lands on the same row.
type Recording struct {
	ID              string             `json:"id" gorm:"type:varchar(255);primary_key"`
	Provider        constant.Provider  `json:"provider" gorm:"type:varchar(20);not null;index:idx_recordings_provider"`
	Title           string             `json:"title" gorm:"type:text;not null"`
	CustomTitle     *string            `json:"custom_title" gorm:"type:text"`
	Description     string             `json:"description" gorm:"type:text"`
	VideoURL        string             `json:"video_url" gorm:"type:text"`
	MediaKind       constant.MediaKind `json:"media_kind" gorm:"type:varchar(10);not null;default:'video'"`
	DurationSeconds float64            `json:"duration_seconds" gorm:"type:double precision;not null;default:0"`
	URLExpiresAt    *time.Time         `json:"url_expires_at" gorm:"type:timestamptz"`
	StartedAt       time.Time          `json:"started_at" gorm:"type:timestamptz;not null"`
	PosterURL       *string            `json:"poster_url" gorm:"type:text"`
	PreviewURL      *string            `json:"preview_url" gorm:"type:text"`
	PreviewFailedAt *time.Time         `json:"preview_failed_at" gorm:"type:timestamptz"`
	LastSyncedAt    *time.Time         `json:"last_synced_at" gorm:"type:timestamptz;index:idx_recordings_last_synced_at"`
	CreatedAt       time.Time          `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time          `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Recording) TableName() string {
	return "recordings"
}

// DisplayTitle prefers the user-edited title over the provider one.
func (r *Recording) DisplayTitle() string {
	if r.CustomTitle != nil && *r.CustomTitle != "" {
		return *r.CustomTitle
	}
	return r.Title
}
