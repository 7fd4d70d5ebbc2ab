package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/Dinesh-Das/QR-sub002/internal/app"
	"github.com/Dinesh-Das/QR-sub002/internal/auth"
	jobmetrics "github.com/Dinesh-Das/QR-sub002/internal/jobs"
	"github.com/Dinesh-Das/QR-sub002/internal/platform/cache"
	"github.com/Dinesh-Das/QR-sub002/internal/platform/db"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
	"github.com/Dinesh-Das/QR-sub002/internal/users"
	"github.com/Dinesh-Das/QR-sub002/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	accessRepo := rbac.NewPGRepository(pool)
	accessService := rbac.NewService(accessRepo, redisClient, cfg.AccessCacheTTL, logger)
	directory := users.NewDirectory(users.NewRepository(pool))
	sessionStore := auth.NewRepository(pool)

	fanoutJob := jobs.NewNotifyFanoutJob(directory, logger, metrics)
	warmupJob := jobs.NewAccessWarmupJob(accessService, logger, metrics)
	pruneJob := jobs.NewSessionsPruneJob(sessionStore, logger, metrics)

	warmupTask, err := jobs.NewAccessWarmupTask(jobs.AccessWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	pruneTask := jobs.NewSessionsPruneTask()

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskNotifyFanout, Handler: fanoutJob.Handle},
			{Type: jobs.TaskAccessWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskSessionsPrune, Handler: pruneJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 2 * * *", Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
