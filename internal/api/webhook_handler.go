package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"careerDesk/internal/api/middleware"
	"careerDesk/internal/identity"
)

const maxWebhookBody = 1 << 20

// WebhookHandler 接收身份服务的事件回调。
type WebhookHandler struct {
	verifier    *identity.Verifier
	provisioner *identity.Provisioner
}

func NewWebhookHandler(verifier *identity.Verifier, provisioner *identity.Provisioner) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, provisioner: provisioner}
}

// Clerk 校验签名后处理 user.created，其它事件直接确认。
func (h *WebhookHandler) Clerk(c *gin.Context) {
	if h.verifier == nil {
		Error(c, http.StatusServiceUnavailable, "webhook secret is not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		BadRequest(c, "read body failed")
		return
	}

	evt, err := h.verifier.Verify(payload, c.Request.Header)
	if err != nil {
		respondError(c, err)
		return
	}

	created, err := h.provisioner.Handle(c.Request.Context(), evt)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.LoggerFromContext(c).Info("webhook processed",
		slog.String("event", evt.Type),
		slog.String("identity_id", evt.Data.ID),
		slog.Bool("provisioned", created),
	)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
