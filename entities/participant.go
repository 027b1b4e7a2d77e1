package entities

import "github.com/google/uuid"

// Participant is a call party reported by the provider (Gong only today).
type Participant struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID string    `json:"recording_id" gorm:"type:varchar(255);not null;index:idx_participants_recording_id"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Email       string    `json:"email" gorm:"type:varchar(255)"`
	Affiliation string    `json:"affiliation" gorm:"type:varchar(20)"`
}

func (Participant) TableName() string {
	return "participants"
}
