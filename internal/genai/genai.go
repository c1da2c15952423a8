// Package genai 封装简历摘要与工作描述的文本生成。
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"careerDesk/internal/config"
)

// DefaultModel 在未配置 GEMINI_MODEL 时使用。
const DefaultModel = "gemini-2.5-flash"

// ErrDisabled 表示未配置 API Key。
var ErrDisabled = errors.New("ai text generation is not configured")

// SummaryInput 是生成个人摘要所需的字段。
type SummaryInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	JobTitle  string `json:"jobTitle" binding:"required"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

// WorkInput 是生成工作经历描述所需的字段。
type WorkInput struct {
	Position    string `json:"position" binding:"required"`
	Company     string `json:"company" binding:"required"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// Writer 生成简历文本；结果仅供参考，失败不影响保存。
type Writer interface {
	Summary(ctx context.Context, in SummaryInput) (string, error)
	WorkDescription(ctx context.Context, in WorkInput) (string, error)
}

// Client 基于 langchaingo 调用 Gemini。
type Client struct {
	model llms.Model
}

// New 按配置创建 Gemini 客户端；未配置 Key 时返回 ErrDisabled。
func New(ctx context.Context, cfg config.AIConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(cfg.APIKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{model: llm}, nil
}

// NewWithModel 使用任意 llms.Model。
func NewWithModel(model llms.Model) *Client {
	return &Client{model: model}
}

func (c *Client) Summary(ctx context.Context, in SummaryInput) (string, error) {
	return c.generate(ctx, summaryPrompt(in))
}

func (c *Client) WorkDescription(ctx context.Context, in WorkInput) (string, error) {
	return c.generate(ctx, workPrompt(in))
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithTemperature(0.4))
	if err != nil {
		return "", fmt.Errorf("generate text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("model returned an empty response")
	}
	return text, nil
}

func summaryPrompt(in SummaryInput) string {
	name := strings.TrimSpace(in.FirstName + " " + in.LastName)
	if name == "" {
		name = "the candidate"
	}
	place := joinNonEmpty(", ", in.City, in.Country)

	var b strings.Builder
	fmt.Fprintf(&b, "Write one concise, professional and short resume summary for %s, a %s", name, strings.TrimSpace(in.JobTitle))
	if place != "" {
		fmt.Fprintf(&b, " based in %s", place)
	}
	b.WriteString(". Reply with the summary text only, no headings or quotes.")
	return b.String()
}

func workPrompt(in WorkInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a concise resume description of the role %s at %s", strings.TrimSpace(in.Position), strings.TrimSpace(in.Company))
	if period := joinNonEmpty(" to ", in.StartDate, in.EndDate); period != "" {
		fmt.Fprintf(&b, " (%s)", period)
	}
	b.WriteString(". Use three short achievement-oriented sentences in plain text.")
	if notes := strings.TrimSpace(in.Description); notes != "" {
		fmt.Fprintf(&b, " Build on these notes: %s", notes)
	}
	return b.String()
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
