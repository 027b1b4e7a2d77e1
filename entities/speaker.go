package entities

import "github.com/google/uuid"

// Speaker is derived from transcript segment labels, one row per distinct
// label per recording, recomputed on every sync.
type Speaker struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID string    `json:"recording_id" gorm:"type:varchar(255);not null;index:idx_speakers_recording_id"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
}

func (Speaker) TableName() string {
	return "speakers"
}
