package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/uniplanner-api/api/swagger"
	"github.com/noah-isme/uniplanner-api/internal/handler"
	"github.com/noah-isme/uniplanner-api/internal/middleware"
	"github.com/noah-isme/uniplanner-api/internal/models"
	"github.com/noah-isme/uniplanner-api/internal/service"
	"github.com/noah-isme/uniplanner-api/pkg/config"
	"github.com/noah-isme/uniplanner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uniplanner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uniplanner-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth        *handler.AuthHandler
	courses     *handler.CourseHandler
	enrollment  *handler.EnrollmentHandler
	studyConfig *handler.StudyConfigHandler
	tasks       *handler.TaskHandler
	planner     *handler.PlannerHandler
	metrics     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, authSvc *service.AuthService, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	auth := middleware.JWT(authSvc)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.GET("/me", auth, h.auth.Me)

	courses := api.Group("/courses")
	courses.GET("", h.courses.List)
	courses.GET("/search", h.courses.Search)
	courses.GET("/:code", h.courses.Get)

	me := api.Group("/me", auth)
	me.GET("/courses/status", h.enrollment.Status)
	me.GET("/courses/approved", h.enrollment.Approved)
	me.GET("/courses/in-progress", h.enrollment.InProgress)
	me.POST("/courses/check", h.enrollment.Check)
	me.POST("/courses/enroll", h.enrollment.Enroll)
	me.POST("/courses/withdraw", h.enrollment.Withdraw)
	me.GET("/study-config", h.studyConfig.Get)
	me.PUT("/study-config", h.studyConfig.Replace)
	me.POST("/study-config/preset", h.studyConfig.ApplyPreset)

	tasks := api.Group("/tasks", auth)
	tasks.GET("", h.tasks.List)
	tasks.POST("", h.tasks.Create)
	tasks.GET("/:id", h.tasks.Get)
	tasks.DELETE("/:id", h.tasks.Delete)
	tasks.POST("/:id/progress", h.tasks.UpdateProgress)
	tasks.POST("/:id/complete", h.tasks.Complete)

	planner := api.Group("/planner", auth)
	planner.GET("/plan", h.planner.Plan)
	planner.GET("/plan/export", h.planner.Export)
	planner.GET("/weekly-load", h.planner.WeeklyLoad)
	planner.GET("/urgent", h.planner.Urgent)
	planner.GET("/recommendations", h.planner.Recommendations)
	planner.GET("/statistics", h.planner.Statistics)

	admin := api.Group("/admin", auth, middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/catalog/reload", h.courses.Reload)
	admin.GET("/metrics", h.metrics.System)

	return r
}
