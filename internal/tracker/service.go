package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"careerDesk/internal/database"
	"careerDesk/internal/errcode"
)

// UserResolver 把身份 ID 解析为本地用户。
type UserResolver interface {
	Resolve(ctx context.Context, identityID string) (*database.User, error)
}

// Service 提供按用户隔离的投递记录增删改查。
type Service struct {
	db    *gorm.DB
	users UserResolver
}

func NewService(db *gorm.DB, users UserResolver) *Service {
	return &Service{db: db, users: users}
}

// Create 新建投递记录。
func (s *Service) Create(ctx context.Context, identityID string, req CreateRequest) (*Job, error) {
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = database.JobStatusApplied
	}
	if !status.Valid() {
		return nil, errcode.BadRequest(fmt.Sprintf("invalid status %q", status))
	}

	job := database.JobApplication{
		UserID:     user.ID,
		JobTitle:   strings.TrimSpace(req.JobTitle),
		Company:    strings.TrimSpace(req.Company),
		Position:   strings.TrimSpace(req.Position),
		ApplyDate:  database.NormalizeDate(req.ApplyDate),
		LastUpdate: database.NormalizeDate(req.LastUpdate),
		Status:     status,
		ResumeID:   blankToNil(req.ResumeID),
	}
	if job.JobTitle == "" || job.Company == "" || job.Position == "" {
		return nil, errcode.BadRequest("jobTitle, company and position are required")
	}

	if err := s.db.WithContext(ctx).Omit("User").Create(&job).Error; err != nil {
		return nil, errcode.From(fmt.Errorf("create job application: %w", err))
	}
	out := toJob(&job)
	return &out, nil
}

// List 返回该用户的投递记录，按投递日期倒序。
func (s *Service) List(ctx context.Context, identityID string, filter Filter) ([]Job, error) {
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("user_id = ?", user.ID)
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, errcode.BadRequest(fmt.Sprintf("invalid status %q", filter.Status))
		}
		q = q.Where("status = ?", filter.Status)
	}
	if text := strings.TrimSpace(filter.Query); text != "" {
		like := "%" + strings.ToLower(text) + "%"
		q = q.Where("(LOWER(job_title) LIKE ? OR LOWER(company) LIKE ?)", like, like)
	}

	var rows []database.JobApplication
	if err := q.Order("apply_date DESC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, errcode.Internal(fmt.Errorf("list job applications: %w", err))
	}

	jobs := make([]Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, toJob(&rows[i]))
	}
	return jobs, nil
}

// Stats 统计各状态的数量。
func (s *Service) Stats(ctx context.Context, identityID string) (*Stats, error) {
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status database.JobStatus
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&database.JobApplication{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", user.ID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, errcode.Internal(fmt.Errorf("count job applications: %w", err))
	}

	stats := &Stats{ByStatus: make(map[database.JobStatus]int64, len(database.JobStatuses))}
	for _, st := range database.JobStatuses {
		stats.ByStatus[st] = 0
	}
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
	}
	return stats, nil
}

// Update 合并请求中出现的字段；他人的记录视为不存在。
func (s *Service) Update(ctx context.Context, identityID, jobID string, req UpdateRequest) (*Job, error) {
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}
	job, err := s.find(ctx, user.ID, jobID)
	if err != nil {
		return nil, err
	}

	if req.JobTitle != nil {
		job.JobTitle = strings.TrimSpace(*req.JobTitle)
	}
	if req.Company != nil {
		job.Company = strings.TrimSpace(*req.Company)
	}
	if req.Position != nil {
		job.Position = strings.TrimSpace(*req.Position)
	}
	if req.ApplyDate.Set {
		job.ApplyDate = req.ApplyDate.Date
	}
	if req.LastUpdate.Set {
		job.LastUpdate = req.LastUpdate.Date
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, errcode.BadRequest(fmt.Sprintf("invalid status %q", *req.Status))
		}
		job.Status = *req.Status
	}
	if req.ResumeID != nil {
		job.ResumeID = blankToNil(req.ResumeID)
	}
	if job.JobTitle == "" || job.Company == "" || job.Position == "" {
		return nil, errcode.BadRequest("jobTitle, company and position cannot be empty")
	}

	if err := s.db.WithContext(ctx).Omit("User").Save(job).Error; err != nil {
		return nil, errcode.From(fmt.Errorf("update job application: %w", err))
	}
	out := toJob(job)
	return &out, nil
}

// Delete 删除一条投递记录。
func (s *Service) Delete(ctx context.Context, identityID, jobID string) error {
	user, err := s.users.Resolve(ctx, identityID)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", jobID, user.ID).Delete(&database.JobApplication{})
	if res.Error != nil {
		return errcode.Internal(fmt.Errorf("delete job application: %w", res.Error))
	}
	if res.RowsAffected == 0 {
		return errcode.NotFound("job application not found")
	}
	return nil
}

func (s *Service) find(ctx context.Context, userID, jobID string) (*database.JobApplication, error) {
	var job database.JobApplication
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", jobID, userID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errcode.NotFound("job application not found")
	}
	if err != nil {
		return nil, errcode.Internal(fmt.Errorf("query job application: %w", err))
	}
	return &job, nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
