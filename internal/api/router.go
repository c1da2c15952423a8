package api

import (
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"careerDesk/internal/api/middleware"
	"careerDesk/internal/config"
	"careerDesk/internal/metrics"
)

// originPolicy 由显式白名单与一个预览部署通配模式组成。
type originPolicy struct {
	exact   map[string]struct{}
	pattern string
}

func newOriginPolicy(cfg config.APIConfig) *originPolicy {
	p := &originPolicy{exact: make(map[string]struct{}, len(cfg.AllowedOrigins)), pattern: cfg.PreviewOriginPattern}
	for _, o := range cfg.AllowedOrigins {
		p.exact[o] = struct{}{}
	}
	return p
}

// Allow 判断 origin 是否可跨域访问；通配符 * 不跨越 "/"。
func (p *originPolicy) Allow(origin string) bool {
	if _, ok := p.exact[origin]; ok {
		return true
	}
	if p.pattern == "" {
		return false
	}
	ok, err := path.Match(p.pattern, origin)
	return err == nil && ok
}

// NewRouter 构建 Gin 路由引擎，挂载通用中间件、健康检查与指标端点。
func NewRouter(cfg *config.Config, logger *slog.Logger) *gin.Engine {
	registerValidators()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
	)

	origins := newOriginPolicy(cfg.API)
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  origins.Allow,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader},
		ExposeHeaders:    []string{middleware.CorrelationIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
