package tracker

import (
	"bytes"
	"time"

	"careerDesk/internal/database"
)

// CreateRequest 是新建投递记录的请求体；status 缺省为 applied。
type CreateRequest struct {
	JobTitle   string             `json:"jobTitle" binding:"required"`
	Company    string             `json:"company" binding:"required"`
	Position   string             `json:"position" binding:"required"`
	ApplyDate  *database.Date     `json:"applyDate"`
	LastUpdate *database.Date     `json:"lastUpdate"`
	Status     database.JobStatus `json:"status" binding:"omitempty,jobstatus"`
	ResumeID   *string            `json:"resumeId"`
}

// UpdateRequest 只合并出现的字段；resumeId 为空字符串表示解除关联，
// 日期为 null 或空字符串表示清空。
type UpdateRequest struct {
	JobTitle   *string             `json:"jobTitle" binding:"omitempty,min=1"`
	Company    *string             `json:"company" binding:"omitempty,min=1"`
	Position   *string             `json:"position" binding:"omitempty,min=1"`
	ApplyDate  DateField           `json:"applyDate"`
	LastUpdate DateField           `json:"lastUpdate"`
	Status     *database.JobStatus `json:"status" binding:"omitempty,jobstatus"`
	ResumeID   *string             `json:"resumeId"`
}

// DateField 区分日期字段缺失（Set 为 false）与显式赋值。
type DateField struct {
	Set  bool
	Date *database.Date
}

// SetDate 构造一个已赋值的字段；nil 表示清空。
func SetDate(d *database.Date) DateField {
	return DateField{Set: true, Date: database.NormalizeDate(d)}
}

func (f *DateField) UnmarshalJSON(data []byte) error {
	f.Set = true
	f.Date = nil
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var d database.Date
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	f.Date = database.NormalizeDate(&d)
	return nil
}

// Filter 限定列表结果；零值返回全部。
type Filter struct {
	Status database.JobStatus
	Query  string
}

type Job struct {
	ID         string             `json:"id"`
	JobTitle   string             `json:"jobTitle"`
	Company    string             `json:"company"`
	Position   string             `json:"position"`
	ApplyDate  *database.Date     `json:"applyDate"`
	LastUpdate *database.Date     `json:"lastUpdate"`
	Status     database.JobStatus `json:"status"`
	ResumeID   *string            `json:"resumeId"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// Stats 按状态统计投递数量，四种状态始终出现。
type Stats struct {
	Total    int64                        `json:"total"`
	ByStatus map[database.JobStatus]int64 `json:"byStatus"`
}

func toJob(j *database.JobApplication) Job {
	return Job{
		ID:         j.ID,
		JobTitle:   j.JobTitle,
		Company:    j.Company,
		Position:   j.Position,
		ApplyDate:  j.ApplyDate,
		LastUpdate: j.LastUpdate,
		Status:     j.Status,
		ResumeID:   j.ResumeID,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}
