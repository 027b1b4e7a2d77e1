package entities

import "github.com/google/uuid"

// ChatMessage holds one in-meeting chat line. OffsetSeconds is relative to
// the recording start.
type ChatMessage struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID   string    `json:"recording_id" gorm:"type:varchar(255);not null;index:idx_chat_messages_recording_id"`
	OffsetSeconds float64   `json:"offset_seconds" gorm:"type:double precision;not null"`
	Sender        string    `json:"sender" gorm:"type:varchar(255);not null"`
	Text          string    `json:"text" gorm:"type:text;not null"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
