package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Dinesh-Das/QR-sub002/internal/app"
	"github.com/Dinesh-Das/QR-sub002/internal/audit"
	"github.com/Dinesh-Das/QR-sub002/internal/auth"
	"github.com/Dinesh-Das/QR-sub002/internal/observability"
	"github.com/Dinesh-Das/QR-sub002/internal/plants"
	"github.com/Dinesh-Das/QR-sub002/internal/platform/cache"
	"github.com/Dinesh-Das/QR-sub002/internal/platform/db"
	"github.com/Dinesh-Das/QR-sub002/internal/rbac"
	"github.com/Dinesh-Das/QR-sub002/internal/roles"
	"github.com/Dinesh-Das/QR-sub002/internal/shared"
	"github.com/Dinesh-Das/QR-sub002/internal/users"
	"github.com/Dinesh-Das/QR-sub002/internal/workflow"
	"github.com/Dinesh-Das/QR-sub002/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	sessionManager := shared.NewSessionManager(redisClient, "qrsub_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	metrics := observability.NewMetrics()

	// The audit sink must outlive the request path; it is drained after
	// the server has stopped accepting requests.
	sink := audit.NewSink(audit.NewPGStore(pool), logger, 512)

	accessRepo := rbac.NewPGRepository(pool)
	accessService := rbac.NewService(accessRepo, redisClient, cfg.AccessCacheTTL, logger)
	resolver := rbac.Resolver{Loader: accessService}
	gate := rbac.Gate{Resolver: resolver, Audit: sink, Logger: logger, Metrics: metrics}
	gatekeeper := rbac.Gatekeeper{Resolver: resolver, Audit: sink, Logger: logger, Metrics: metrics}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, logger)
	authHandler := auth.NewHandler(logger, authService, accessService, sessionManager, csrfManager)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, accessService, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, gate)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, accessService, logger)
	usersHandler := users.NewHandler(logger, usersService, gate)

	plantsRepo := plants.NewRepository(pool)
	plantsService := plants.NewService(plantsRepo)
	plantsHandler := plants.NewHandler(logger, plantsService, gate)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	workflowRepo := workflow.NewRepository(pool)
	workflowService := workflow.NewService(workflowRepo, plantsService, jobsClient, metrics, logger)
	workflowHandler := workflow.NewHandler(logger, workflowService, gate)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     authHandler,
		RolesHandler:    rolesHandler,
		UsersHandler:    usersHandler,
		PlantsHandler:   plantsHandler,
		WorkflowHandler: workflowHandler,
		JobHandler:      jobHandler,
		Gate:            gate,
		Gatekeeper:      gatekeeper,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	if err := sink.Close(shutdownCtx); err != nil {
		logger.Warn("audit sink drain", slog.Any("error", err))
	}
}
