package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dreamtoapp/jbrtechno-admin/internal/app"
	"github.com/dreamtoapp/jbrtechno-admin/internal/auth"
	"github.com/dreamtoapp/jbrtechno-admin/internal/authz"
	"github.com/dreamtoapp/jbrtechno-admin/internal/observability"
	"github.com/dreamtoapp/jbrtechno-admin/internal/platform/cache"
	"github.com/dreamtoapp/jbrtechno-admin/internal/platform/db"
	"github.com/dreamtoapp/jbrtechno-admin/internal/shared"
	"github.com/dreamtoapp/jbrtechno-admin/internal/users"
	"github.com/dreamtoapp/jbrtechno-admin/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, "jbradmin_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	activityLogger := shared.NewActivityLogger(pool)

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

	catalog := authz.DefaultCatalog()
	authzRepo := authz.NewRepository(pool)
	grantCache := authz.NewGrantCache(authzRepo, redisClient, cfg.GrantCacheTTL, logger)
	resolver := authz.NewResolver(catalog, authzRepo, grantCache, logger)

	metrics := observability.NewMetrics()

	gate := authz.NewGate(authz.GateConfig{
		LoginPath:        cfg.GateLoginPath,
		NoAccessPath:     cfg.GateNoAccessPath,
		LegacyCookieName: cfg.GateLegacyCookie,
		ExcludedPrefixes: cfg.GateExcludedPrefixes,
	}, catalog, resolver, grantCache, metrics, logger)

	notifier := jobs.NewPermissionNotifier(jobsClient, logger)
	adminService := authz.NewAdminService(catalog, grantCache, authzRepo, authzRepo, activityLogger, notifier, logger)
	permissionsHandler := authz.NewPermissionsHandler(logger, adminService)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, activityLogger)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, activityLogger, logger)
	usersHandler := users.NewHandler(logger, usersService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Gate:               gate,
		Grants:             grantCache,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		PermissionsHandler: permissionsHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
}
