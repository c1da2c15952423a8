package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"careerDesk/internal/api/middleware"
	"careerDesk/internal/pdf"
	"careerDesk/internal/resume"
)

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	svc *resume.Service
}

func NewResumeHandler(svc *resume.Service) *ResumeHandler {
	return &ResumeHandler{svc: svc}
}

// Save 新建或更新简历：新建返回 201，更新返回 200。
func (h *ResumeHandler) Save(c *gin.Context) {
	var req resume.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if !requireSubject(c, req.IdentityID) {
		return
	}

	out, created, err := h.svc.Save(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, out)
}

func (h *ResumeHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), c.Param("identityId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ResumeHandler) Get(c *gin.Context) {
	out, err := h.svc.Get(c.Request.Context(), c.Param("identityId"), c.Param("resumeId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Delete 返回被删除的简历。
func (h *ResumeHandler) Delete(c *gin.Context) {
	out, err := h.svc.Delete(c.Request.Context(), c.Param("identityId"), c.Param("resumeId"), middleware.GetCorrelationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// RequestExport 投递 PDF 导出任务，结果通过 WebSocket 推送。
func (h *ResumeHandler) RequestExport(c *gin.Context) {
	taskID, err := h.svc.RequestExport(c.Request.Context(), c.Param("identityId"), c.Param("resumeId"), middleware.GetCorrelationID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": taskID, "status": "pending"})
}

// DownloadLink 返回已导出 PDF 的短期下载链接。
func (h *ResumeHandler) DownloadLink(c *gin.Context) {
	url, err := h.svc.DownloadLink(c.Request.Context(), c.Param("identityId"), c.Param("resumeId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"url":       url,
		"expiresIn": int(resume.DownloadLinkTTL.Seconds()),
	})
}

// Print 供 worker 渲染打印页，仅允许携带内部密钥访问。
func (h *ResumeHandler) Print(c *gin.Context) {
	out, err := h.svc.ForPrint(c.Request.Context(), c.Param("resumeId"))
	if err != nil {
		respondError(c, err)
		return
	}
	html, err := pdf.RenderHTML(out)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
