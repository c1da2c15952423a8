package autosave

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"

	"careerDesk/internal/resume"
)

// Photo 是编辑器中的头像：要么是本地选中的文件（Data 非空），要么是服务端已存储的 URL。
type Photo struct {
	Name         string    `json:"name,omitempty"`
	Size         int64     `json:"size,omitempty"`
	Type         string    `json:"type,omitempty"`
	LastModified time.Time `json:"lastModified,omitzero"`
	URL          string    `json:"url,omitempty"`
	Data         []byte    `json:"-"`
}

// Draft 是编辑器内存中的完整简历。
type Draft struct {
	Title           string                  `json:"title"`
	Description     string                  `json:"description"`
	FirstName       string                  `json:"firstName"`
	LastName        string                  `json:"lastName"`
	JobTitle        string                  `json:"jobTitle"`
	City            string                  `json:"city"`
	Country         string                  `json:"country"`
	Email           string                  `json:"email"`
	Phone           string                  `json:"phone"`
	Summary         string                  `json:"summary"`
	LinkedIn        string                  `json:"linkedIn"`
	PersonalWebsite string                  `json:"personalWebsite"`
	Skills          []string                `json:"skills"`
	Photo           *Photo                  `json:"photo,omitempty"`
	WorkExperiences []resume.WorkExperience `json:"workExperiences"`
	Educations      []resume.Education      `json:"educations"`
}

// Clone 深拷贝，保证快照不受后续编辑影响。
func (d Draft) Clone() Draft {
	out := d
	out.Skills = slices.Clone(d.Skills)
	out.WorkExperiences = slices.Clone(d.WorkExperiences)
	out.Educations = slices.Clone(d.Educations)
	if d.Photo != nil {
		p := *d.Photo
		p.Data = slices.Clone(d.Photo.Data)
		out.Photo = &p
	}
	return out
}

// photoKey 把文件值折算为元数据（name/size/type/lastModified），不比较内容。
type photoKey struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Type         string    `json:"type"`
	LastModified time.Time `json:"lastModified"`
	URL          string    `json:"url"`
}

func keyOf(p *Photo) *photoKey {
	if p == nil {
		return nil
	}
	return &photoKey{Name: p.Name, Size: p.Size, Type: p.Type, LastModified: p.LastModified.UTC(), URL: p.URL}
}

// diffView 序列化时用元数据替换头像，空切片与 nil 视为相同。
type diffView struct {
	Draft
	Photo *photoKey `json:"photo"`
}

func canonical(d Draft) []byte {
	if len(d.Skills) == 0 {
		d.Skills = nil
	}
	if len(d.WorkExperiences) == 0 {
		d.WorkExperiences = nil
	}
	if len(d.Educations) == 0 {
		d.Educations = nil
	}
	b, err := json.Marshal(diffView{Draft: d, Photo: keyOf(d.Photo)})
	if err != nil {
		// Draft 只包含可序列化字段
		panic(err)
	}
	return b
}

// Equal 结构化比较两份草稿。
func Equal(a, b Draft) bool {
	return bytes.Equal(canonical(a), canonical(b))
}

// PhotoChanged 判断头像是否需要随请求发送。
func PhotoChanged(prev, cur Draft) bool {
	pk, ck := keyOf(prev.Photo), keyOf(cur.Photo)
	if pk == nil || ck == nil {
		return pk != ck
	}
	return *pk != *ck
}
