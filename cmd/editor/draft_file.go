package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"careerDesk/internal/autosave"
	"careerDesk/internal/resume"
)

// draftFile 是编辑器读取的 JSON 文件：草稿字段外加一个可选的本地头像路径。
type draftFile struct {
	autosave.Draft
	PhotoPath string `json:"photoPath,omitempty"`
}

// loadDraft 解析草稿文件；photoPath 相对于草稿文件所在目录。
// 文件既没有 photo 也没有 photoPath 时沿用 keep，只有 "photo": null 才表示清除。
func loadDraft(path string, keep *autosave.Photo) (autosave.Draft, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return autosave.Draft{}, fmt.Errorf("read draft: %w", err)
	}
	var f draftFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return autosave.Draft{}, fmt.Errorf("parse draft: %w", err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return autosave.Draft{}, fmt.Errorf("parse draft: %w", err)
	}

	d := f.Draft
	if p := strings.TrimSpace(f.PhotoPath); p != "" {
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		photo, err := loadPhoto(p)
		if err != nil {
			return autosave.Draft{}, err
		}
		d.Photo = photo
	} else if _, ok := keys["photo"]; !ok && keep != nil {
		p := *keep
		d.Photo = &p
	}
	return d, nil
}

func loadPhoto(path string) (*autosave.Photo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat photo: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	return &autosave.Photo{
		Name:         filepath.Base(path),
		Size:         info.Size(),
		Type:         mimetype.Detect(data).String(),
		LastModified: info.ModTime().UTC(),
		Data:         data,
	}, nil
}

// fromResume 把服务端简历转换成草稿，作为已保存快照。
func fromResume(r *resume.Resume) autosave.Draft {
	d := autosave.Draft{
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
		Skills:          r.Skills,
		WorkExperiences: r.WorkExperiences,
		Educations:      r.Educations,
	}
	if r.Photo != "" {
		d.Photo = &autosave.Photo{URL: r.Photo}
	}
	return d
}
