package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uniplanner-api/internal/handler"
	"github.com/noah-isme/uniplanner-api/internal/repository"
	"github.com/noah-isme/uniplanner-api/internal/service"
	"github.com/noah-isme/uniplanner-api/pkg/cache"
	"github.com/noah-isme/uniplanner-api/pkg/config"
	"github.com/noah-isme/uniplanner-api/pkg/database"
	"github.com/noah-isme/uniplanner-api/pkg/jobs"
	"github.com/noah-isme/uniplanner-api/pkg/logger"
)

// @title UniPlanner API
// @version 1.0.0
// @description Academic planning engine: prerequisite-aware enrollment and study plans
// @BasePath /api/v1
// @schemes http
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, logr); err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	location := cfg.Planner.Location()

	var cacheRepo service.CacheRepository
	if cfg.Planner.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, planner cache disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, cfg.Redis.Namespace, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Planner.CacheTTL, logr, cacheRepo != nil)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	recordRepo := repository.NewStudentCourseRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	configRepo := repository.NewStudyConfigRepository(db)

	catalogSvc := service.NewCatalogService(courseRepo, logr)
	if err := catalogSvc.Load(ctx); err != nil {
		logr.Fatal("failed to load course catalog", zap.Error(err))
	}

	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentServiceParams{
		DB:       db,
		Records:  recordRepo,
		Students: userRepo,
		Catalog:  catalogSvc,
		Metrics:  metrics,
		Logger:   logr,
	})
	plannerSvc := service.NewPlannerService(service.PlannerServiceParams{
		Tasks:      taskRepo,
		Configs:    configRepo,
		Enrollment: enrollmentSvc,
		Catalog:    catalogSvc,
		Cache:      cacheSvc,
		Metrics:    metrics,
		Logger:     logr,
		Config: service.PlannerConfig{
			Location:            location,
			HorizonDays:         cfg.Planner.HorizonDays,
			UrgentDays:          cfg.Planner.UrgentDays,
			RecommendationLimit: cfg.Planner.RecommendationLimit,
			CacheTTL:            cfg.Planner.CacheTTL,
			ExportEnabled:       cfg.Planner.ExportEnabled,
		},
	})
	enrollmentSvc.SetRefresher(plannerSvc)

	warmup := jobs.NewQueue("planner-warmup", plannerSvc.HandleWarmup, jobs.QueueConfig{
		Workers:    cfg.Planner.WarmupWorkers,
		MaxRetries: cfg.Planner.WarmupRetries,
		JobTimeout: 30 * time.Second,
		Logger:     logr,
	})
	warmup.Start(ctx)
	defer warmup.Stop()
	plannerSvc.SetWarmupQueue(warmup)

	authSvc := service.NewAuthService(service.AuthServiceParams{
		DB:        db,
		Users:     userRepo,
		Records:   recordRepo,
		Configs:   configRepo,
		Catalog:   catalogSvc,
		Validator: validate,
		Logger:    logr,
		Config: service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            "uniplanner-api",
		},
	})
	taskSvc := service.NewTaskService(service.TaskServiceParams{
		Repo:      taskRepo,
		Catalog:   catalogSvc,
		Refresher: plannerSvc,
		Validator: validate,
		Logger:    logr,
		Location:  location,
	})
	studyConfigSvc := service.NewStudyConfigService(configRepo, plannerSvc, validate, logr)

	router := newRouter(cfg, logr, metrics, authSvc, routeHandlers{
		auth:        handler.NewAuthHandler(authSvc),
		courses:     handler.NewCourseHandler(catalogSvc),
		enrollment:  handler.NewEnrollmentHandler(enrollmentSvc),
		studyConfig: handler.NewStudyConfigHandler(studyConfigSvc),
		tasks:       handler.NewTaskHandler(taskSvc),
		planner:     handler.NewPlannerHandler(plannerSvc),
		metrics: handler.NewMetricsHandler(metrics,
			handler.ReadinessCheck{Name: "database", Check: database.Ping(db)},
			handler.ReadinessCheck{Name: "cache", Check: cacheSvc.Ping},
			handler.ReadinessCheck{Name: "catalog", Check: func(context.Context) error {
				if !catalogSvc.Ready() {
					return errors.New("course catalog not loaded")
				}
				return nil
			}},
		),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env, "timezone", location.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}
