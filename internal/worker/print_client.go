package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"careerDesk/internal/pdf"
	"careerDesk/internal/resume"
)

// HTMLSource 提供待打印的简历 HTML。
type HTMLSource interface {
	ResumeHTML(ctx context.Context, resumeID, correlationID string) ([]byte, error)
}

// InternalPrintClient 通过 /api/resume/print/:resumeId 拉取 HTML，
// 只允许 Worker 携带 INTERNAL_API_SECRET 访问。
type InternalPrintClient struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func NewInternalPrintClient(baseURL, secret string) *InternalPrintClient {
	return &InternalPrintClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		secret:     strings.TrimSpace(secret),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *InternalPrintClient) ResumeHTML(ctx context.Context, resumeID, correlationID string) ([]byte, error) {
	if c.secret == "" {
		return nil, fmt.Errorf("internal api secret missing")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("internal api base url missing")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/resume/print/"+resumeID, nil)
	if err != nil {
		return nil, fmt.Errorf("build internal request: %w", err)
	}
	req.Header.Set("X-Internal-Secret", c.secret)
	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request print html: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return nil, fmt.Errorf("print html status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read print html: %w", err)
	}
	return data, nil
}

// ResumeReader 按 ID 读取简历，不做归属校验。
type ResumeReader interface {
	ForPrint(ctx context.Context, resumeID string) (*resume.Resume, error)
}

// LocalHTMLSource 在 Worker 进程内直接渲染，不经过 HTTP。
type LocalHTMLSource struct {
	reader ResumeReader
}

func NewLocalHTMLSource(reader ResumeReader) *LocalHTMLSource {
	return &LocalHTMLSource{reader: reader}
}

func (s *LocalHTMLSource) ResumeHTML(ctx context.Context, resumeID, _ string) ([]byte, error) {
	r, err := s.reader.ForPrint(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	return pdf.RenderHTML(r)
}
