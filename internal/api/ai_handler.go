package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"careerDesk/internal/api/middleware"
	"careerDesk/internal/genai"
)

const aiRateWindow = time.Hour

// AIHandler 生成摘要与工作描述，按 identity 每小时限流。
type AIHandler struct {
	writer  genai.Writer
	counter redisRateCounter
	limit   int
	now     func() time.Time
}

func NewAIHandler(writer genai.Writer, counter redisRateCounter, limitPerHour int) *AIHandler {
	return &AIHandler{writer: writer, counter: counter, limit: limitPerHour, now: time.Now}
}

type summaryRequest struct {
	IdentityID string `json:"identityId" binding:"required"`
	genai.SummaryInput
}

type workDescriptionRequest struct {
	IdentityID string `json:"identityId" binding:"required"`
	genai.WorkInput
}

func (h *AIHandler) Summary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.generate(c, req.IdentityID, func(ctx context.Context) (string, error) {
		return h.writer.Summary(ctx, req.SummaryInput)
	})
}

func (h *AIHandler) WorkDescription(c *gin.Context) {
	var req workDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.generate(c, req.IdentityID, func(ctx context.Context) (string, error) {
		return h.writer.WorkDescription(ctx, req.WorkInput)
	})
}

func (h *AIHandler) generate(c *gin.Context, identityID string, fn func(context.Context) (string, error)) {
	if !requireSubject(c, identityID) {
		return
	}
	if h.writer == nil {
		Error(c, http.StatusServiceUnavailable, genai.ErrDisabled.Error())
		return
	}
	if !h.allow(c, identityID) {
		Error(c, http.StatusTooManyRequests, "ai rate limit exceeded, try again later")
		return
	}

	text, err := fn(c.Request.Context())
	if err != nil {
		if errors.Is(err, genai.ErrDisabled) {
			Error(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		middleware.LoggerFromContext(c).Warn("ai generation failed", slog.Any("error", err))
		Error(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}

// allow 以小时为窗口计数；redis 不可用时放行。
func (h *AIHandler) allow(c *gin.Context, identityID string) bool {
	if h.counter == nil || h.limit <= 0 {
		return true
	}
	bucket := h.now().UTC().Truncate(aiRateWindow).Unix()
	key := fmt.Sprintf("ai_rate:%s:%d", identityID, bucket)

	count, err := incrWithTTL(c.Request.Context(), h.counter, key, aiRateWindow)
	if err != nil {
		middleware.LoggerFromContext(c).Warn("ai rate counter unavailable", slog.Any("error", err))
		return true
	}
	return count <= int64(h.limit)
}
