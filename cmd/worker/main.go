package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"careerDesk/internal/config"
	"careerDesk/internal/database"
	"careerDesk/internal/identity"
	"careerDesk/internal/metrics"
	"careerDesk/internal/pdf"
	"careerDesk/internal/photo"
	"careerDesk/internal/resume"
	"careerDesk/internal/storage"
	"careerDesk/internal/tasks"
	"careerDesk/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database, cfg.Log.Level)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	blob, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	logger.Info("storage ready", slog.String("driver", cfg.Storage.Driver))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	// 配置了内部密钥时通过 API 的打印接口取 HTML，否则在进程内渲染。
	var source worker.HTMLSource
	if cfg.API.InternalSecret != "" && cfg.API.BackendBaseURL != "" {
		source = worker.NewInternalPrintClient(cfg.API.BackendBaseURL, cfg.API.InternalSecret)
	} else {
		users := identity.NewResolver(db, cfg.Identity.CacheTTL)
		source = worker.NewLocalHTMLSource(resume.NewService(db, users, blob, photo.NewProcessor(cfg.Photo), nil, 0))
	}

	exportHandler := worker.NewExportHandler(db, blob, source, pdf.NewRodPrinter(), redisClient, logger)
	blobHandler := worker.NewBlobDeleteHandler(blob, logger)

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues:      map[string]int{"default": 1},
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMiddleware())
	mux.Handle(tasks.TypeResumeExport, exportHandler)
	mux.Handle(tasks.TypeBlobDelete, blobHandler)

	if cfg.Worker.MetricsPort > 0 {
		go serveMetrics(cfg.Worker.MetricsPort, logger)
	}

	logger.Info("worker service started",
		slog.String("redis_addr", cfg.Redis.Addr()),
		slog.Int("concurrency", cfg.Worker.Concurrency),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}

func serveMetrics(port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", slog.Any("error", err))
	}
}
