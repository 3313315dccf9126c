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

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/auth"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/config"
	"github.com/yukikurage/taskhub-api/internal/constants"
	"github.com/yukikurage/taskhub-api/internal/database"
	"github.com/yukikurage/taskhub-api/internal/handlers"
	"github.com/yukikurage/taskhub-api/internal/logger"
	"github.com/yukikurage/taskhub-api/internal/metrics"
	"github.com/yukikurage/taskhub-api/internal/middleware"
	"github.com/yukikurage/taskhub-api/internal/notify"
	"github.com/yukikurage/taskhub-api/internal/repository"
	"github.com/yukikurage/taskhub-api/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", logger.Error(err))
		os.Exit(1)
	}
	log := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		return err
	}
	if err := database.Migrate(); err != nil {
		return err
	}
	db := database.GetDB()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}

	// Notifications fan out through Redis so every instance reaches its own sockets
	hub := notify.NewHub()
	broker := notify.NewRedisBroker(rdb, hub, log)
	go func() {
		if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification broker stopped", logger.Error(err))
		}
	}()
	dispatcher := notify.NewDispatcher(broker, cfg.NotifyQueueSize, log)
	go dispatcher.Run(ctx)

	// Repositories
	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	overrideRepo := repository.NewOverrideRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	recorder := audit.NewRecorder(auditRepo, audit.WithTimeout(cfg.AuditWriteTimeout), audit.WithLogger(log))

	metrics.Register(prometheus.DefaultRegisterer)

	permissionService := services.NewPermissionService(overrideRepo, userRepo, recorder, dispatcher)
	engine := authz.NewEngine(permissionService, authz.WithObserver(metrics.ObserveDecision))

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}
	authenticator := auth.NewAuthenticator(tokens, auth.NewRedisRevocationList(rdb))

	taskDeps := services.TaskServiceDeps{
		Tasks:    taskRepo,
		Projects: projectRepo,
		Users:    userRepo,
		Engine:   engine,
		Audit:    recorder,
		Notifier: dispatcher,
	}
	if cfg.OpenAIAPIKey != "" {
		taskDeps.Generator = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log), metrics.Middleware())

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		cfg.RedisAddr(),
		"", // username (empty for default user)
		cfg.RedisPassword,
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return err
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})

	r.GET("/health", func(c *gin.Context) {
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("", sessions.Sessions(constants.SessionCookieName, store),
		middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)))
	handlers.RegisterRoutes(api, handlers.Dependencies{
		Authenticator: authenticator,
		Auth:          services.NewAuthService(userRepo, tenantRepo, authenticator, recorder),
		Tenants:       services.NewTenantService(tenantRepo, userRepo, engine, recorder),
		Users:         services.NewUserService(userRepo, engine, recorder),
		Permissions:   permissionService,
		Projects:      services.NewProjectService(projectRepo, userRepo, engine, recorder),
		Tasks:         services.NewTaskService(taskDeps),
		Reports:       services.NewReportService(taskRepo, projectRepo, engine),
		Audit:         services.NewAuditService(auditRepo, engine),
		Hub:           hub,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logger.Error(err))
	}
	<-dispatcher.Done()
	recorder.Wait()
	return nil
}
