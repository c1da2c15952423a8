package resume

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"careerDesk/internal/database"
	"careerDesk/internal/errcode"
	"careerDesk/internal/tasks"
)

// DownloadLinkTTL 是导出 PDF 预签名链接的有效期。
const DownloadLinkTTL = 5 * time.Minute

// RequestExport 把简历标记为导出中并投递 resume:export 任务，返回任务 ID。
func (s *Service) RequestExport(ctx context.Context, identityID, resumeID, correlationID string) (string, error) {
	if s.queue == nil {
		return "", errcode.Internal(errors.New("export queue is not configured"))
	}
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return "", err
	}
	record, err := s.load(ctx, user.ID, resumeID)
	if err != nil {
		return "", err
	}

	task, err := tasks.NewResumeExportTask(record.ID, identityID, correlationID)
	if err != nil {
		return "", errcode.Internal(fmt.Errorf("build export task: %w", err))
	}
	info, err := s.queue.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(2*time.Minute))
	if err != nil {
		return "", errcode.Internal(fmt.Errorf("enqueue export task: %w", err))
	}

	if err := s.db.WithContext(ctx).Model(&database.Resume{}).
		Where("id = ?", record.ID).
		UpdateColumn("export_status", database.ExportStatusPending).Error; err != nil {
		return "", errcode.Internal(fmt.Errorf("mark export pending: %w", err))
	}
	return info.ID, nil
}

// DownloadLink 返回已导出 PDF 的限时链接；尚未导出完成时返回 Conflict。
func (s *Service) DownloadLink(ctx context.Context, identityID, resumeID string) (string, error) {
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return "", err
	}
	record, err := s.load(ctx, user.ID, resumeID)
	if err != nil {
		return "", err
	}
	if record.ExportStatus != database.ExportStatusCompleted || record.PdfKey == "" {
		return "", errcode.Conflict("pdf not ready")
	}

	url, err := s.blob.PresignedURL(ctx, record.PdfKey, DownloadLinkTTL)
	if err != nil {
		return "", errcode.Internal(fmt.Errorf("presign pdf: %w", err))
	}
	return url, nil
}

// ForPrint 按 ID 读取简历（不做归属校验），仅供内部打印渲染使用。
func (s *Service) ForPrint(ctx context.Context, resumeID string) (*Resume, error) {
	var record database.Resume
	err := s.db.WithContext(ctx).
		Preload("WorkExperiences", byOrdinal).
		Preload("Educations", byOrdinal).
		Where("id = ?", resumeID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errcode.NotFound("resume not found")
	}
	if err != nil {
		return nil, errcode.Internal(fmt.Errorf("query resume: %w", err))
	}
	out := toResponse(&record)
	return &out, nil
}
