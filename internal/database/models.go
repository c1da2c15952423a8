package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus 是投递记录的状态取值，任意值之间可以直接替换。
type JobStatus string

const (
	JobStatusApplied   JobStatus = "applied"
	JobStatusInterview JobStatus = "interview"
	JobStatusOffer     JobStatus = "offer"
	JobStatusRejected  JobStatus = "rejected"
)

// JobStatuses 按展示顺序列出全部状态。
var JobStatuses = []JobStatus{JobStatusApplied, JobStatusInterview, JobStatusOffer, JobStatusRejected}

// Valid 判断状态是否属于四个合法取值之一。
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusApplied, JobStatusInterview, JobStatusOffer, JobStatusRejected:
		return true
	}
	return false
}

// 导出状态
const (
	ExportStatusNone      = ""
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// Base 为所有表提供字符串主键与时间戳。
type Base struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate 在插入前补齐 UUID 主键。
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// User 表示由身份服务 webhook 首次同步而来的本地账号。
type User struct {
	Base
	IdentityID      string           `gorm:"uniqueIndex;size:128;not null"`
	Email           string           `gorm:"size:255"`
	FirstName       string           `gorm:"size:128"`
	LastName        string           `gorm:"size:128"`
	Resumes         []Resume         `gorm:"constraint:OnDelete:CASCADE"`
	JobApplications []JobApplication `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示用户的一份结构化简历。
type Resume struct {
	Base
	UserID          string `gorm:"index;size:36;not null"`
	User            User   `gorm:"constraint:OnDelete:CASCADE"`
	Title           string `gorm:"size:255"`
	Description     string `gorm:"type:text"`
	FirstName       string `gorm:"size:128"`
	LastName        string `gorm:"size:128"`
	JobTitle        string `gorm:"size:255"`
	City            string `gorm:"size:128"`
	Country         string `gorm:"size:128"`
	Email           string `gorm:"size:255"`
	Phone           string `gorm:"size:64"`
	Summary         string `gorm:"type:text"`
	LinkedIn        string `gorm:"size:512"`
	PersonalWebsite string `gorm:"size:512"`
	Skills          datatypes.JSONSlice[string]
	PhotoURL        string           `gorm:"size:1024"`
	PdfKey          string           `gorm:"size:512"`
	ExportStatus    string           `gorm:"size:32"`
	WorkExperiences []WorkExperience `gorm:"constraint:OnDelete:CASCADE"`
	Educations      []Education      `gorm:"constraint:OnDelete:CASCADE"`
}

// WorkExperience 属于某一份简历；Ordinal 记录写入时的数组下标。
type WorkExperience struct {
	Base
	ResumeID    string `gorm:"index;size:36;not null"`
	Ordinal     int
	Position    string `gorm:"size:255"`
	Company     string `gorm:"size:255"`
	StartDate   *Date
	EndDate     *Date
	Description string `gorm:"type:text"`
}

// Education 属于某一份简历。
type Education struct {
	Base
	ResumeID   string `gorm:"index;size:36;not null"`
	Ordinal    int
	Degree     string `gorm:"size:255"`
	University string `gorm:"size:255"`
	StartDate  *Date
	EndDate    *Date
}

// JobApplication 表示一条投递记录；ResumeID 不做外键约束。
type JobApplication struct {
	Base
	UserID     string    `gorm:"index;size:36;not null"`
	User       User      `gorm:"constraint:OnDelete:CASCADE"`
	JobTitle   string    `gorm:"size:255;not null"`
	Company    string    `gorm:"size:255;not null"`
	Position   string    `gorm:"size:128;not null"`
	ApplyDate  *Date
	LastUpdate *Date
	Status     JobStatus `gorm:"size:16;index;not null;default:applied"`
	ResumeID   *string   `gorm:"size:36"`
}

// AllModels 返回需要迁移的全部模型，父表在前。
func AllModels() []any {
	return []any{
		&User{},
		&Resume{},
		&WorkExperience{},
		&Education{},
		&JobApplication{},
	}
}
