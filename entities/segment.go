package entities

import "github.com/google/uuid"

// TranscriptSegment rows are owned by their recording and replaced wholesale
// on every re-sync.
type TranscriptSegment struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID  string    `json:"recording_id" gorm:"type:varchar(255);not null;index:idx_segments_recording_id"`
	StartSeconds float64   `json:"start_seconds" gorm:"type:double precision;not null"`
	EndSeconds   float64   `json:"end_seconds" gorm:"type:double precision;not null"`
	Speaker      string    `json:"speaker" gorm:"type:varchar(255)"`
	Text         string    `json:"text" gorm:"type:text;not null"`
}

func (TranscriptSegment) TableName() string {
	return "segments"
}
