package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/smd-syllabus-api/api/swagger"
	"github.com/noah-isme/smd-syllabus-api/internal/handler"
	internalmiddleware "github.com/noah-isme/smd-syllabus-api/internal/middleware"
	"github.com/noah-isme/smd-syllabus-api/internal/repository"
	"github.com/noah-isme/smd-syllabus-api/internal/service"
	"github.com/noah-isme/smd-syllabus-api/pkg/cache"
	"github.com/noah-isme/smd-syllabus-api/pkg/config"
	"github.com/noah-isme/smd-syllabus-api/pkg/database"
	"github.com/noah-isme/smd-syllabus-api/pkg/jobs"
	"github.com/noah-isme/smd-syllabus-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/smd-syllabus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/smd-syllabus-api/pkg/middleware/requestid"
)

// @title SMD Syllabus Workflow API
// @version 1.0.0
// @description Syllabus lifecycle, review collaboration and AI task polling
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	syllabusRepo := repository.NewSyllabusRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	collaborationRepo := repository.NewCollaborationRepository(db)
	taskRepo := repository.NewAITaskRepository(redisClient, logr)
	defer taskRepo.Close() //nolint:errcheck

	syllabusSvc := service.NewSyllabusService(syllabusRepo, revisionRepo, historyRepo, validate, logr,
		service.WithSyllabusMetrics(metrics))
	collaborationSvc := service.NewCollaborationService(syllabusRepo, collaborationRepo, commentRepo, validate, metrics, logr)

	worker := service.NewAITaskWorker(taskRepo, service.NewHTTPAnalyzer(cfg.AITasks.ServiceURL, cfg.AITasks.ServiceTimeout),
		metrics, logr, cfg.AITasks.TaskTTL)
	aiQueue := jobs.NewQueue("ai-tasks", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.AITasks.WorkerConcurrency,
		BufferSize: cfg.AITasks.QueueBuffer,
		JobTimeout: cfg.AITasks.ServiceTimeout + 5*time.Second,
		Logger:     logr,
	})
	aiQueue.Start(ctx)
	defer aiQueue.Stop()

	aiSvc := service.NewAITaskService(taskRepo, aiQueue, validate, metrics, logr, service.AITaskConfig{
		Enabled: cfg.AITasks.Enabled,
		TaskTTL: cfg.AITasks.TaskTTL,
	})
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Syllabi:        handler.NewSyllabusHandler(syllabusSvc),
		Collaborations: handler.NewCollaborationHandler(collaborationSvc),
		AITasks:        handler.NewAITaskHandler(aiSvc),
		Auth:           authSvc,
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "ai_tasks", cfg.AITasks.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server exited")
	return nil
}
