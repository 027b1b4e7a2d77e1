package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"meeting-ingest/constant"
	"meeting-ingest/entities"
)

var ErrNotFound = errors.New("not found")

// RecordingRepository is the row store boundary of the pipeline. Child-row
// replacement is delete-all-then-insert-all per table and deliberately not
// wrapped in one transaction; a concurrent reader can observe a recording
// between the delete and the insert. Writes are scoped to one recording ID,
// so concurrent sync workers never contend on each other's rows.
type RecordingRepository interface {
	GetDB() *gorm.DB
	FindRecording(ctx context.Context, id string) (*entities.Recording, error)
	UpsertRecording(ctx context.Context, rec *entities.Recording) error
	LastSyncTimes(ctx context.Context, ids []string) (map[string]time.Time, error)
	ReplaceSegments(ctx context.Context, recordingID string, segments []*entities.TranscriptSegment) error
	ReplaceSpeakers(ctx context.Context, recordingID string, speakers []*entities.Speaker) error
	ReplaceVideoFiles(ctx context.Context, recordingID string, files []*entities.VideoFile) error
	ReplaceChatMessages(ctx context.Context, recordingID string, messages []*entities.ChatMessage) error
	ReplaceParticipants(ctx context.Context, recordingID string, participants []*entities.Participant) error
	UpsertSummary(ctx context.Context, summary *entities.Summary) error
	ListPreviewCandidates(ctx context.Context, minDuration float64, limit int, includeDone bool) ([]*entities.Recording, error)
	SetPreviewArtifacts(ctx context.Context, recordingID, previewURL, posterURL string) error
	MarkPreviewFailed(ctx context.Context, recordingID string) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) RecordingRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) FindRecording(ctx context.Context, id string) (*entities.Recording, error) {
	rec := &entities.Recording{}
	err := r.db.WithContext(ctx).First(rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *repo) UpsertRecording(ctx context.Context, rec *entities.Recording) error {
	rec.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "video_url", "media_kind",
			"duration_seconds", "url_expires_at", "started_at",
			"last_synced_at", "updated_at",
		}),
	}).Create(rec).Error
}

func (r *repo) LastSyncTimes(ctx context.Context, ids []string) (map[string]time.Time, error) {
	if len(ids) == 0 {
		return map[string]time.Time{}, nil
	}
	var rows []struct {
		ID           string
		LastSyncedAt *time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Select("id", "last_synced_at").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		if row.LastSyncedAt != nil {
			out[row.ID] = *row.LastSyncedAt
		}
	}
	return out, nil
}

// replaceChildren deletes every row owned by the recording and inserts the
// new set. No diffing, no transaction.
func replaceChildren[T any](ctx context.Context, db *gorm.DB, recordingID string, model T, rows []T) error {
	if err := db.WithContext(ctx).Where("recording_id = ?", recordingID).Delete(model).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(rows, 200).Error
}

func (r *repo) ReplaceSegments(ctx context.Context, recordingID string, segments []*entities.TranscriptSegment) error {
	return replaceChildren(ctx, r.db, recordingID, &entities.TranscriptSegment{}, segments)
}

func (r *repo) ReplaceSpeakers(ctx context.Context, recordingID string, speakers []*entities.Speaker) error {
	return replaceChildren(ctx, r.db, recordingID, &entities.Speaker{}, speakers)
}

func (r *repo) ReplaceVideoFiles(ctx context.Context, recordingID string, files []*entities.VideoFile) error {
	return replaceChildren(ctx, r.db, recordingID, &entities.VideoFile{}, files)
}

func (r *repo) ReplaceChatMessages(ctx context.Context, recordingID string, messages []*entities.ChatMessage) error {
	return replaceChildren(ctx, r.db, recordingID, &entities.ChatMessage{}, messages)
}

func (r *repo) ReplaceParticipants(ctx context.Context, recordingID string, participants []*entities.Participant) error {
	return replaceChildren(ctx, r.db, recordingID, &entities.Participant{}, participants)
}

func (r *repo) UpsertSummary(ctx context.Context, summary *entities.Summary) error {
	summary.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recording_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"brief", "key_points", "updated_at"}),
	}).Create(summary).Error
}

func (r *repo) ListPreviewCandidates(ctx context.Context, minDuration float64, limit int, includeDone bool) ([]*entities.Recording, error) {
	var recs []*entities.Recording
	q := r.db.WithContext(ctx).
		Where("media_kind = ?", constant.MediaKindVideo).
		Where("duration_seconds >= ?", minDuration).
		Order("started_at DESC")
	// includeDone regenerates previews that already exist or failed before
	if !includeDone {
		q = q.Where("preview_url IS NULL").Where("preview_failed_at IS NULL")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *repo) SetPreviewArtifacts(ctx context.Context, recordingID, previewURL, posterURL string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Where("id = ?", recordingID).
		Updates(map[string]interface{}{
			"preview_url": previewURL,
			"poster_url":  posterURL,
			"updated_at":  time.Now(),
		}).Error
}

func (r *repo) MarkPreviewFailed(ctx context.Context, recordingID string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Where("id = ?", recordingID).
		Update("preview_failed_at", time.Now()).Error
}
