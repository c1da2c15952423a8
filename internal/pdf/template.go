package pdf

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"careerDesk/internal/database"
	"careerDesk/internal/resume"
)

//go:embed resume.html.tmpl
var resumeTemplateSource string

var resumeTemplate = template.Must(template.New("resume").Funcs(template.FuncMap{
	"period": period,
	"join":   strings.Join,
	"lines":  func(s string) []string { return strings.Split(strings.TrimSpace(s), "\n") },
}).Parse(resumeTemplateSource))

// RenderHTML 把简历渲染为可打印的 HTML 文档。
func RenderHTML(r *resume.Resume) ([]byte, error) {
	var buf bytes.Buffer
	if err := resumeTemplate.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("render resume html: %w", err)
	}
	return buf.Bytes(), nil
}

// period 格式化起止日期，结束日期为空时显示 Present。
func period(start, end *database.Date) string {
	switch {
	case start == nil && end == nil:
		return ""
	case start == nil:
		return end.Format("Jan 2006")
	case end == nil:
		return start.Format("Jan 2006") + " – Present"
	default:
		return start.Format("Jan 2006") + " – " + end.Format("Jan 2006")
	}
}
