package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const sessionSubjectKey = "sessionSubject"

// SubjectVerifier 从会话令牌中取出 identity id。
type SubjectVerifier interface {
	Subject(token string) (string, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// IdentityGuard 校验 Bearer 会话令牌，并要求 sub 与路径中的 :identityId 一致。
// verifier 为 nil 时不做任何校验。
func IdentityGuard(verifier SubjectVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}

		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}
		subject, err := verifier.Subject(token)
		if err != nil || subject == "" {
			abortUnauthorized(c)
			return
		}

		if identityID := c.Param("identityId"); identityID != "" && identityID != subject {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "identity mismatch"})
			return
		}

		c.Set(sessionSubjectKey, subject)
		c.Next()
	}
}

// SubjectAllows 判断请求体中的 identity id 是否属于当前会话。
// 未启用校验（上下文中没有 subject）时总是放行。
func SubjectAllows(c *gin.Context, identityID string) bool {
	subject, ok := c.Get(sessionSubjectKey)
	if !ok {
		return true
	}
	return subject == identityID
}

// BearerToken 解析 "Bearer <token>" 形式的 Authorization 头。
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
