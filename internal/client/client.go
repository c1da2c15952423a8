// Package client 通过 HTTP 调用简历接口，作为自动保存的 Saver。
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"careerDesk/internal/autosave"
	"careerDesk/internal/resume"
)

var _ autosave.Saver = (*Client)(nil)

// Client 调用 /api/resume/create 等接口。
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithToken 为请求附加 Bearer 会话令牌。
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError 是非 2xx 响应。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Save 实现 autosave.Saver。
func (c *Client) Save(ctx context.Context, req autosave.SaveRequest) (*resume.Resume, error) {
	body := resume.SaveRequest{
		IdentityID:      req.IdentityID,
		ResumeID:        req.ResumeID,
		ResumeData:      resumeData(req.Draft, req.PhotoChanged),
		WorkExperiences: req.Draft.WorkExperiences,
		Educations:      req.Draft.Educations,
	}
	var out resume.Resume
	if err := c.do(ctx, http.MethodPost, "/api/resume/create", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get 读取一份简历，编辑器启动时用它作为初始快照。
func (c *Client) Get(ctx context.Context, identityID, resumeID string) (*resume.Resume, error) {
	var out resume.Resume
	path := fmt.Sprintf("/api/resume/user/%s/%s", identityID, resumeID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func resumeData(d autosave.Draft, photoChanged bool) resume.ResumeData {
	data := resume.ResumeData{
		Title:           d.Title,
		Description:     d.Description,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		JobTitle:        d.JobTitle,
		City:            d.City,
		Country:         d.Country,
		Email:           d.Email,
		Phone:           d.Phone,
		Summary:         d.Summary,
		LinkedIn:        d.LinkedIn,
		PersonalWebsite: d.PersonalWebsite,
		Skills:          resume.Skills(d.Skills),
	}
	if photoChanged {
		data.Photo = encodePhoto(d.Photo)
	}
	return data
}

// encodePhoto：nil 表示清除，本地文件编码为 data URL，否则回传已存储的 URL。
func encodePhoto(p *autosave.Photo) resume.PhotoField {
	switch {
	case p == nil:
		return resume.NewPhoto("")
	case len(p.Data) > 0:
		ctype := p.Type
		if ctype == "" {
			ctype = mimetype.Detect(p.Data).String()
		}
		return resume.NewPhoto("data:" + ctype + ";base64," + base64.StdEncoding.EncodeToString(p.Data))
	default:
		return resume.NewPhoto(p.URL)
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		var body struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			msg = body.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
