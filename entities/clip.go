package entities

import (
	"time"

	"github.com/google/uuid"
)

// Clip is a user-created sub-range of a recording. Sync never touches it.
type Clip struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID  string    `json:"recording_id" gorm:"type:varchar(255);not null;index:idx_clips_recording_id"`
	StartSeconds float64   `json:"start_seconds" gorm:"type:double precision;not null"`
	EndSeconds   float64   `json:"end_seconds" gorm:"type:double precision;not null"`
	Title        *string   `json:"title" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Clip) TableName() string {
	return "clips"
}
