package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"careerDesk/internal/api/middleware"
	"careerDesk/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }

// respondError 按 errcode 分类写出错误；内部错误的消息原样透传。
func respondError(c *gin.Context, err error) {
	e := errcode.From(err)
	if e.Kind == errcode.KindInternal {
		middleware.LoggerFromContext(c).Error("request failed", "error", err)
	}
	Error(c, e.Status(), e.Message)
}

// requireSubject 拒绝请求体中不属于当前会话的 identity id。
func requireSubject(c *gin.Context, identityID string) bool {
	if middleware.SubjectAllows(c, identityID) {
		return true
	}
	Forbidden(c, "identity mismatch")
	return false
}
