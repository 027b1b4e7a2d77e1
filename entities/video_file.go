package entities

import "github.com/google/uuid"

// VideoFile is an alternate camera/view variant of one recording.
type VideoFile struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID string    `json:"recording_id" gorm:"type:varchar(255);not null;index:idx_video_files_recording_id"`
	ViewType    string    `json:"view_type" gorm:"type:varchar(100)"`
	FileType    string    `json:"file_type" gorm:"type:varchar(20)"`
	URL         string    `json:"url" gorm:"type:text;not null"`
}

func (VideoFile) TableName() string {
	return "video_files"
}
