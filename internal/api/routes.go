package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"careerDesk/internal/api/middleware"
	"careerDesk/internal/config"
	"careerDesk/internal/genai"
	"careerDesk/internal/identity"
	"careerDesk/internal/resume"
	"careerDesk/internal/tracker"
)

// Deps 汇总路由需要的服务；可选项为 nil 时对应功能关闭。
type Deps struct {
	API         config.APIConfig
	Resumes     *resume.Service
	Jobs        *tracker.Service
	Webhooks    *identity.Verifier
	Provisioner *identity.Provisioner
	Sessions    *identity.SessionVerifier
	Writer      genai.Writer
	Redis       *redis.Client
	AIRateLimit int
	Logger      *slog.Logger
}

// RegisterRoutes 在 /api 前缀下注册业务路由。
func RegisterRoutes(router *gin.Engine, deps Deps) {
	var verifier middleware.SubjectVerifier
	if deps.Sessions != nil {
		verifier = deps.Sessions
	}
	var counter redisRateCounter
	if deps.Redis != nil {
		counter = deps.Redis
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resumeHandler := NewResumeHandler(deps.Resumes)
	jobHandler := NewJobHandler(deps.Jobs)
	webhookHandler := NewWebhookHandler(deps.Webhooks, deps.Provisioner)
	aiHandler := NewAIHandler(deps.Writer, counter, deps.AIRateLimit)
	guard := middleware.IdentityGuard(verifier)

	api := router.Group("/api")
	{
		api.POST("/webhook/clerk-webhook", webhookHandler.Clerk)

		if deps.Redis != nil {
			wsHandler := NewWsHandler(deps.Redis, verifier, newOriginPolicy(deps.API), logger)
			api.GET("/ws/:identityId", wsHandler.HandleConnection)
		}

		jobs := api.Group("/job/:identityId", guard)
		{
			jobs.POST("", jobHandler.Create)
			jobs.GET("", jobHandler.List)
			jobs.GET("/stats", jobHandler.Stats)
			jobs.PUT("/:jobId", jobHandler.Update)
			jobs.DELETE("/:jobId", jobHandler.Delete)
		}

		resumes := api.Group("/resume")
		{
			resumes.POST("/create", guard, resumeHandler.Save)
			resumes.GET("/user/:identityId", guard, resumeHandler.List)
			resumes.GET("/user/:identityId/:resumeId", guard, resumeHandler.Get)
			resumes.DELETE("/delete/:identityId/:resumeId", guard, resumeHandler.Delete)
			resumes.POST("/export/:identityId/:resumeId", guard, resumeHandler.RequestExport)
			resumes.GET("/export/:identityId/:resumeId", guard, resumeHandler.DownloadLink)
			resumes.GET("/print/:resumeId", middleware.InternalSecretMiddleware(deps.API.InternalSecret), resumeHandler.Print)
		}

		ai := api.Group("/ai", guard)
		{
			ai.POST("/summary", aiHandler.Summary)
			ai.POST("/work-description", aiHandler.WorkDescription)
		}
	}
}
