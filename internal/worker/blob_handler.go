package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"careerDesk/internal/metrics"
	"careerDesk/internal/storage"
	"careerDesk/internal/tasks"
)

// BlobDeleteHandler 消费 blob:delete 任务，任一对象删除失败即整体重试。
type BlobDeleteHandler struct {
	blob   storage.Blob
	logger *slog.Logger
}

func NewBlobDeleteHandler(blob storage.Blob, logger *slog.Logger) *BlobDeleteHandler {
	return &BlobDeleteHandler{blob: blob, logger: logger}
}

func (h *BlobDeleteHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseBlobDelete(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := h.logger.With(slog.String("correlation_id", payload.CorrelationID))

	var errs []error
	for _, ref := range payload.Refs {
		err := h.blob.Delete(ctx, ref)
		metrics.BlobOp("delete", err)
		if err != nil {
			log.Warn("delete blob failed", slog.String("ref", ref), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		log.Info("blob deleted", slog.String("ref", ref))
	}
	return errors.Join(errs...)
}
