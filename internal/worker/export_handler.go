package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"careerDesk/internal/database"
	"careerDesk/internal/errcode"
	"careerDesk/internal/pdf"
	"careerDesk/internal/storage"
	"careerDesk/internal/tasks"
)

// ExportHandler 消费 resume:export 任务：渲染 HTML、打印 PDF、上传并通知前端。
type ExportHandler struct {
	db        *gorm.DB
	blob      storage.Blob
	source    HTMLSource
	printer   pdf.Printer
	publisher Publisher
	logger    *slog.Logger
}

func NewExportHandler(db *gorm.DB, blob storage.Blob, source HTMLSource, printer pdf.Printer, publisher Publisher, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		db:        db,
		blob:      blob,
		source:    source,
		printer:   printer,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	payload, err := tasks.ParseResumeExport(t)
	if err != nil {
		h.logger.Error("invalid export payload", slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("resume_id", payload.ResumeID),
	)
	log.Info("starting resume export")

	var record database.Resume
	if err := h.db.WithContext(ctx).Where("id = ?", payload.ResumeID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping export")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil || !isFinalAttempt(ctx) {
			return
		}
		if err := h.setStatus(ctx, record.ID, database.ExportStatusFailed, nil); err != nil {
			log.Error("mark export failed", slog.Any("error", err))
		}
		msg := ExportNotifyMessage{
			Status:        "error",
			ResumeID:      record.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishNotify(ctx, h.publisher, payload.IdentityID, msg); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	html, err := h.source.ResumeHTML(ctx, record.ID, payload.CorrelationID)
	if err != nil {
		log.Error("fetch print html failed", slog.Any("error", err))
		return err
	}

	data, err := h.printer.Print(ctx, html)
	if err != nil {
		log.Error("print pdf failed", slog.Any("error", err))
		return err
	}

	key := fmt.Sprintf("resume-exports/%s/%s.pdf", payload.IdentityID, uuid.NewString())
	if _, err := h.blob.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return err
	}

	if err := h.setStatus(ctx, record.ID, database.ExportStatusCompleted, &key); err != nil {
		log.Error("update resume export failed", slog.Any("error", err))
		return err
	}

	if previous := record.PdfKey; previous != "" && previous != key {
		if err := h.blob.Delete(ctx, previous); err != nil {
			log.Warn("delete previous pdf failed", slog.String("key", previous), slog.Any("error", err))
		}
	}

	msg := ExportNotifyMessage{
		Status:        "completed",
		ResumeID:      record.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := publishNotify(ctx, h.publisher, payload.IdentityID, msg); err != nil {
		log.Warn("publish export notification failed", slog.Any("error", err))
	}

	log.Info("resume export completed", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}

func (h *ExportHandler) setStatus(ctx context.Context, resumeID, status string, key *string) error {
	updates := map[string]any{"export_status": status}
	if key != nil {
		updates["pdf_key"] = *key
	}
	return h.db.WithContext(ctx).Model(&database.Resume{}).Where("id = ?", resumeID).UpdateColumns(updates).Error
}

// isFinalAttempt 在拿不到重试信息时按最后一次处理。
func isFinalAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return true
	}
	return retryCount >= maxRetry
}
