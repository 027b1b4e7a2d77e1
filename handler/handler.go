package handler

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"meeting-ingest/constant"
	"meeting-ingest/dto"
	"meeting-ingest/service"
)

type ServiceDependencies struct {
	SyncService    service.SyncService
	PreviewService service.PreviewService
}

// JobHandler dispatches one queued job to the matching service. Errors bubble
// up to the consumer, which routes the message to the dead letter queue.
func JobHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.JobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal job message")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("type", string(job.Type)).
		Str("provider", job.Provider.String()).
		Str("recording_id", job.RecordingID).
		Msg("received job")

	switch job.Type {
	case constant.JobTypeSync:
		report, err := deps.SyncService.Sync(ctx, service.SyncOptions{
			Force:    job.Force,
			Provider: job.Provider,
			Limit:    job.Limit,
		})
		if report != nil {
			report.Log(zerolog.Ctx(ctx))
		}
		return err
	case constant.JobTypePreview:
		report, err := deps.PreviewService.GeneratePreviews(ctx, service.PreviewOptions{
			RecordingID: job.RecordingID,
			Limit:       job.Limit,
			Force:       job.Force,
		})
		if err != nil {
			return err
		}
		report.Log(zerolog.Ctx(ctx))
		return nil
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}
