package resume

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"careerDesk/internal/database"
)

// SaveRequest 是 POST /api/resume/create 的请求体。
// ResumeID 为空或不属于该用户时新建，否则更新。
type SaveRequest struct {
	IdentityID      string           `json:"identityId" binding:"required"`
	ResumeID        string           `json:"resumeId,omitempty"`
	ResumeData      ResumeData       `json:"resumeData"`
	WorkExperiences []WorkExperience `json:"workExperiences"`
	Educations      []Education      `json:"educations"`
}

// ResumeData 是简历的个人信息部分。
type ResumeData struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	JobTitle        string     `json:"jobTitle"`
	City            string     `json:"city"`
	Country         string     `json:"country"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Summary         string     `json:"summary"`
	LinkedIn        string     `json:"linkedIn"`
	PersonalWebsite string     `json:"personalWebsite"`
	Skills          Skills     `json:"skills"`
	Photo           PhotoField `json:"photo,omitzero"`
}

// WorkExperience 同时用于请求与响应；数组顺序即展示顺序。
type WorkExperience struct {
	Position    string         `json:"position"`
	Company     string         `json:"company"`
	StartDate   *database.Date `json:"startDate"`
	EndDate     *database.Date `json:"endDate"`
	Description string         `json:"description"`
}

type Education struct {
	Degree     string         `json:"degree"`
	University string         `json:"university"`
	StartDate  *database.Date `json:"startDate"`
	EndDate    *database.Date `json:"endDate"`
}

// Resume 是返回给前端的规范化简历。
type Resume struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	FirstName       string           `json:"firstName"`
	LastName        string           `json:"lastName"`
	JobTitle        string           `json:"jobTitle"`
	City            string           `json:"city"`
	Country         string           `json:"country"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone"`
	Summary         string           `json:"summary"`
	LinkedIn        string           `json:"linkedIn"`
	PersonalWebsite string           `json:"personalWebsite"`
	Skills          []string         `json:"skills"`
	Photo           string           `json:"photo,omitempty"`
	ExportStatus    string           `json:"exportStatus,omitempty"`
	WorkExperiences []WorkExperience `json:"workExperiences"`
	Educations      []Education      `json:"educations"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// ListResult 是 GET /api/resume/user/:identityId 的响应体。
type ListResult struct {
	Resumes    []Resume `json:"resumes"`
	TotalCount int64    `json:"totalCount"`
}

// Skills 接受字符串数组或逗号分隔的字符串，去掉空白项。
type Skills []string

func (s *Skills) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	var raw []string
	if len(data) > 0 && data[0] == '"' {
		var joined string
		if err := json.Unmarshal(data, &joined); err != nil {
			return err
		}
		raw = strings.Split(joined, ",")
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("skills must be a list or a comma separated string: %w", err)
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*s = out
	return nil
}

// PhotoField 区分三种语义：
//   - 字段缺失：Set=false，保持原值
//   - null 或 ""：Set=true 且 Value 为空，清除
//   - 其它字符串：新的图片编码，或回传的已存储 URL（视为未变）
type PhotoField struct {
	Set   bool
	Value string
}

// NewPhoto 构造一个携带值的字段；空字符串表示清除。
func NewPhoto(value string) PhotoField {
	return PhotoField{Set: true, Value: value}
}

// Cleared 报告请求是否要求删除头像。
func (p PhotoField) Cleared() bool {
	return p.Set && strings.TrimSpace(p.Value) == ""
}

func (p *PhotoField) UnmarshalJSON(data []byte) error {
	p.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		p.Value = ""
		return nil
	}
	return json.Unmarshal(data, &p.Value)
}

func (p PhotoField) MarshalJSON() ([]byte, error) {
	if p.Value == "" {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// IsZero 供 omitzero 使用：未设置时不输出该字段。
func (p PhotoField) IsZero() bool {
	return !p.Set
}

func toResponse(r *database.Resume) Resume {
	out := Resume{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		JobTitle:        r.JobTitle,
		City:            r.City,
		Country:         r.Country,
		Email:           r.Email,
		Phone:           r.Phone,
		Summary:         r.Summary,
		LinkedIn:        r.LinkedIn,
		PersonalWebsite: r.PersonalWebsite,
		Skills:          []string(r.Skills),
		Photo:           r.PhotoURL,
		ExportStatus:    r.ExportStatus,
		WorkExperiences: make([]WorkExperience, 0, len(r.WorkExperiences)),
		Educations:      make([]Education, 0, len(r.Educations)),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if out.Skills == nil {
		out.Skills = []string{}
	}
	for _, w := range r.WorkExperiences {
		out.WorkExperiences = append(out.WorkExperiences, WorkExperience{
			Position:    w.Position,
			Company:     w.Company,
			StartDate:   w.StartDate,
			EndDate:     w.EndDate,
			Description: w.Description,
		})
	}
	for _, e := range r.Educations {
		out.Educations = append(out.Educations, Education{
			Degree:     e.Degree,
			University: e.University,
			StartDate:  e.StartDate,
			EndDate:    e.EndDate,
		})
	}
	return out
}

func applyData(r *database.Resume, d ResumeData) {
	r.Title = strings.TrimSpace(d.Title)
	r.Description = d.Description
	r.FirstName = strings.TrimSpace(d.FirstName)
	r.LastName = strings.TrimSpace(d.LastName)
	r.JobTitle = strings.TrimSpace(d.JobTitle)
	r.City = strings.TrimSpace(d.City)
	r.Country = strings.TrimSpace(d.Country)
	r.Email = strings.TrimSpace(d.Email)
	r.Phone = strings.TrimSpace(d.Phone)
	r.Summary = d.Summary
	r.LinkedIn = strings.TrimSpace(d.LinkedIn)
	r.PersonalWebsite = strings.TrimSpace(d.PersonalWebsite)
	r.Skills = []string(d.Skills)
	if r.Skills == nil {
		r.Skills = []string{}
	}
}
