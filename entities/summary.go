package entities

import (
	"time"

	"github.com/google/uuid"
)

// Summary stores the provider-supplied brief and key points for a call,
// when the provider exposes them.
type Summary struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID string    `json:"recording_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_summaries_recording_id"`
	Brief       string    `json:"brief" gorm:"type:text"`
	KeyPoints   string    `json:"key_points" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Summary) TableName() string {
	return "summaries"
}
