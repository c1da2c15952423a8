package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"careerDesk/internal/api"
	"careerDesk/internal/config"
	"careerDesk/internal/database"
	"careerDesk/internal/genai"
	"careerDesk/internal/identity"
	"careerDesk/internal/photo"
	"careerDesk/internal/resume"
	"careerDesk/internal/storage"
	"careerDesk/internal/tracker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDatabase(cfg.Database, cfg.Log.Level)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.String("db", cfg.Database.Name),
	)

	blob, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	photos := photo.NewProcessor(cfg.Photo)
	users := identity.NewResolver(db, cfg.Identity.CacheTTL)
	resumes := resume.NewService(db, users, blob, photos, asynqClient, cfg.Resume.MaxPerUser).WithLogger(logger)

	deps := api.Deps{
		API:         cfg.API,
		Resumes:     resumes,
		Jobs:        tracker.NewService(db, users),
		Provisioner: identity.NewProvisioner(db),
		Redis:       redisClient,
		AIRateLimit: cfg.AI.RateLimitPerHour,
		Logger:      logger,
	}

	if cfg.Identity.WebhookSecret != "" {
		if deps.Webhooks, err = identity.NewVerifier(cfg.Identity.WebhookSecret); err != nil {
			log.Fatalf("init webhook verifier: %v", err)
		}
	} else {
		logger.Warn("CLERK_WEBHOOK_SECRET not set, user provisioning webhook disabled")
	}

	if deps.Sessions, err = identity.NewSessionVerifier(cfg.Identity.JWTPublicKey); err != nil {
		log.Fatalf("init session verifier: %v", err)
	}
	if deps.Sessions == nil {
		logger.Warn("CLERK_JWT_PUBLIC_KEY not set, identity routes are not guarded")
	}

	switch writer, err := genai.New(ctx, cfg.AI); {
	case err == nil:
		deps.Writer = writer
	case errors.Is(err, genai.ErrDisabled):
		logger.Info("ai text generation disabled")
	default:
		log.Fatalf("init ai client: %v", err)
	}

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
