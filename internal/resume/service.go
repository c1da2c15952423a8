package resume

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
	"gorm.io/gorm/clause"

	"careerDesk/internal/database"
	"careerDesk/internal/errcode"
	"careerDesk/internal/metrics"
	"careerDesk/internal/photo"
	"careerDesk/internal/storage"
	"careerDesk/internal/tasks"
)

// UserResolver 把身份 ID 解析为本地用户。
type UserResolver interface {
	Resolve(ctx context.Context, identityID string) (*database.User, error)
}

// Enqueuer 是 asynq.Client 的子集。
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service 实现简历的保存、查询与删除。
type Service struct {
	db         *gorm.DB
	users      UserResolver
	blob       storage.Blob
	photos     *photo.Processor
	queue      Enqueuer
	maxPerUser int
	logger     *slog.Logger
}

// NewService 构造 Service。queue 为 nil 时删除简历会同步清理对象存储；
// maxPerUser<=0 表示不限制简历数量。
func NewService(db *gorm.DB, users UserResolver, blob storage.Blob, photos *photo.Processor, queue Enqueuer, maxPerUser int) *Service {
	return &Service{
		db:         db,
		users:      users,
		blob:       blob,
		photos:     photos,
		queue:      queue,
		maxPerUser: maxPerUser,
		logger:     slog.Default(),
	}
}

// WithLogger 替换日志记录器。
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Save 新建或更新一份简历，返回规范化结果以及是否为新建。
func (s *Service) Save(ctx context.Context, req SaveRequest) (*Resume, bool, error) {
	user, err := s.users.Resolve(ctx, req.IdentityID)
	if err != nil {
		return nil, false, err
	}

	var (
		record  database.Resume
		created bool
	)
	if id := strings.TrimSpace(req.ResumeID); id != "" {
		err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, user.ID).First(&record).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
		case err != nil:
			return nil, false, errcode.Internal(fmt.Errorf("query resume: %w", err))
		}
	} else {
		created = true
	}

	if created {
		record = database.Resume{UserID: user.ID}
		if err := s.checkQuota(ctx, user.ID); err != nil {
			return nil, false, err
		}
	}

	previousPhoto := record.PhotoURL
	photoURL, err := s.resolvePhoto(ctx, req.IdentityID, previousPhoto, req.ResumeData.Photo)
	if err != nil {
		return nil, false, err
	}

	applyData(&record, req.ResumeData)
	record.PhotoURL = photoURL

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if created {
			if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
				return fmt.Errorf("create resume: %w", err)
			}
		} else if err := tx.Omit(clause.Associations).Save(&record).Error; err != nil {
			return fmt.Errorf("update resume: %w", err)
		}
		return replaceChildren(tx, record.ID, req.WorkExperiences, req.Educations)
	})
	if err != nil {
		// 事务失败时回收刚上传的新图，旧图保持不动
		if photoURL != previousPhoto {
			s.deleteBlob(ctx, photoURL)
		}
		return nil, false, errcode.From(err)
	}
	if photoURL != previousPhoto {
		s.deleteBlob(ctx, previousPhoto)
	}

	saved, err := s.load(ctx, user.ID, record.ID)
	if err != nil {
		return nil, false, err
	}
	metrics.ResumeSaved(created)

	out := toResponse(saved)
	return &out, created, nil
}

func (s *Service) checkQuota(ctx context.Context, userID string) error {
	if s.maxPerUser <= 0 {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&database.Resume{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return errcode.Internal(fmt.Errorf("count resumes: %w", err))
	}
	if count >= int64(s.maxPerUser) {
		return errcode.Forbidden("resume limit reached")
	}
	return nil
}

// resolvePhoto 计算保存后的头像 URL，需要时上传新图。旧图由调用方在提交后删除。
func (s *Service) resolvePhoto(ctx context.Context, identityID, current string, field PhotoField) (string, error) {
	if !field.Set {
		return current, nil
	}
	if field.Cleared() {
		return "", nil
	}

	value := strings.TrimSpace(field.Value)
	if current != "" && value == current {
		return current, nil
	}

	img, err := s.photos.Decode(value)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("resume-photos/%s/%s.%s", identityID, uuid.NewString(), img.Ext)
	url, err := s.blob.Upload(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType)
	metrics.BlobOp("upload", err)
	if err != nil {
		return "", errcode.Internal(fmt.Errorf("upload photo: %w", err))
	}
	return url, nil
}

// deleteBlob 删除失败只记录日志，不阻塞保存。
func (s *Service) deleteBlob(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	err := s.blob.Delete(ctx, ref)
	metrics.BlobOp("delete", err)
	if err != nil {
		s.logger.WarnContext(ctx, "delete blob failed", slog.String("ref", ref), slog.Any("error", err))
	}
}

// replaceChildren 删除该简历的全部工作经历与教育经历，再按数组顺序重建。
func replaceChildren(tx *gorm.DB, resumeID string, works []WorkExperience, edus []Education) error {
	if err := tx.Where("resume_id = ?", resumeID).Delete(&database.WorkExperience{}).Error; err != nil {
		return fmt.Errorf("clear work experiences: %w", err)
	}
	if err := tx.Where("resume_id = ?", resumeID).Delete(&database.Education{}).Error; err != nil {
		return fmt.Errorf("clear educations: %w", err)
	}

	if len(works) > 0 {
		rows := make([]database.WorkExperience, 0, len(works))
		for i, w := range works {
			rows = append(rows, database.WorkExperience{
				ResumeID:    resumeID,
				Ordinal:     i,
				Position:    strings.TrimSpace(w.Position),
				Company:     strings.TrimSpace(w.Company),
				StartDate:   database.NormalizeDate(w.StartDate),
				EndDate:     database.NormalizeDate(w.EndDate),
				Description: w.Description,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("create work experiences: %w", err)
		}
	}

	if len(edus) > 0 {
		rows := make([]database.Education, 0, len(edus))
		for i, e := range edus {
			rows = append(rows, database.Education{
				ResumeID:   resumeID,
				Ordinal:    i,
				Degree:     strings.TrimSpace(e.Degree),
				University: strings.TrimSpace(e.University),
				StartDate:  database.NormalizeDate(e.StartDate),
				EndDate:    database.NormalizeDate(e.EndDate),
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("create educations: %w", err)
		}
	}
	return nil
}

func byOrdinal(db *gorm.DB) *gorm.DB {
	return db.Order("ordinal ASC")
}

func (s *Service) load(ctx context.Context, userID, resumeID string) (*database.Resume, error) {
	var record database.Resume
	err := s.db.WithContext(ctx).
		Preload("WorkExperiences", byOrdinal).
		Preload("Educations", byOrdinal).
		Where("id = ? AND user_id = ?", resumeID, userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errcode.NotFound("resume not found")
	}
	if err != nil {
		return nil, errcode.Internal(fmt.Errorf("query resume: %w", err))
	}
	return &record, nil
}

// Get 返回该用户名下的一份简历。
func (s *Service) Get(ctx context.Context, identityID, resumeID string) (*Resume, error) {
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}
	record, err := s.load(ctx, user.ID, resumeID)
	if err != nil {
		return nil, err
	}
	out := toResponse(record)
	return &out, nil
}

// List 按更新时间倒序返回该用户的全部简历。
func (s *Service) List(ctx context.Context, identityID string) (*ListResult, error) {
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}

	var records []database.Resume
	if err := s.db.WithContext(ctx).
		Preload("WorkExperiences", byOrdinal).
		Preload("Educations", byOrdinal).
		Where("user_id = ?", user.ID).
		Order("updated_at DESC").
		Find(&records).Error; err != nil {
		return nil, errcode.Internal(fmt.Errorf("list resumes: %w", err))
	}

	result := &ListResult{Resumes: make([]Resume, 0, len(records)), TotalCount: int64(len(records))}
	for i := range records {
		result.Resumes = append(result.Resumes, toResponse(&records[i]))
	}
	return result, nil
}

// Delete 在一个事务内先删子表再删简历，提交后清理头像与导出文件。
func (s *Service) Delete(ctx context.Context, identityID, resumeID, correlationID string) (*Resume, error) {
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}
	record, err := s.load(ctx, user.ID, resumeID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", record.ID).Delete(&database.WorkExperience{}).Error; err != nil {
			return fmt.Errorf("delete work experiences: %w", err)
		}
		if err := tx.Where("resume_id = ?", record.ID).Delete(&database.Education{}).Error; err != nil {
			return fmt.Errorf("delete educations: %w", err)
		}
		if err := tx.Delete(&database.Resume{}, "id = ?", record.ID).Error; err != nil {
			return fmt.Errorf("delete resume: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, errcode.Internal(err)
	}

	s.cleanupBlobs(ctx, correlationID, record.PhotoURL, record.PdfKey)

	out := toResponse(record)
	return &out, nil
}

func (s *Service) cleanupBlobs(ctx context.Context, correlationID string, refs ...string) {
	pending := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref != "" {
			pending = append(pending, ref)
		}
	}
	if len(pending) == 0 {
		return
	}

	if s.queue != nil {
		task, err := tasks.NewBlobDeleteTask(pending, correlationID)
		if err == nil {
			_, err = s.queue.EnqueueContext(ctx, task, asynq.MaxRetry(5))
		}
		if err == nil {
			return
		}
		s.logger.WarnContext(ctx, "enqueue blob cleanup failed, deleting inline",
			slog.String("correlation_id", correlationID),
			slog.Any("error", err),
		)
	}
	for _, ref := range pending {
		s.deleteBlob(ctx, ref)
	}
}
