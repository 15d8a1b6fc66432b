package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uniplanner-api/internal/dto"
	"github.com/noah-isme/uniplanner-api/internal/service"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
	"github.com/noah-isme/uniplanner-api/pkg/response"
)

type plannerService interface {
	Plan(ctx context.Context, userID string) (*dto.PlanResponse, bool, error)
	WeeklyLoad(ctx context.Context, userID string) (*dto.WeeklyLoadResponse, bool, error)
	Urgent(ctx context.Context, userID string, days int) (*dto.RankedTasksResponse, error)
	Recommendations(ctx context.Context, userID string, limit int) (*dto.RankedTasksResponse, error)
	Statistics(ctx context.Context, userID string) (*dto.StatisticsResponse, error)
	Export(ctx context.Context, userID, format string) (*service.ExportFile, error)
}

// PlannerHandler serves study plans and the derived task views.
type PlannerHandler struct {
	service plannerService
}

// NewPlannerHandler constructs the handler.
func NewPlannerHandler(service plannerService) *PlannerHandler {
	return &PlannerHandler{service: service}
}

// Plan godoc
// @Summary Today's study plan
// @Description Day-by-day allocation of pending tasks within the study budget
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /planner/plan [get]
func (h *PlannerHandler) Plan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	plan, cacheHit, err := h.service.Plan(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, plan, withCacheMeta(c, cacheHit))
}

// Export godoc
// @Summary Download today's study plan
// @Tags Planner
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /planner/plan/export [get]
func (h *PlannerHandler) Export(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	file, err := h.service.Export(c.Request.Context(), userID, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// WeeklyLoad godoc
// @Summary Weekly workload
// @Description Estimated hours of pending tasks per ISO week of their deadline
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /planner/weekly-load [get]
func (h *PlannerHandler) WeeklyLoad(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	load, cacheHit, err := h.service.WeeklyLoad(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, load, withCacheMeta(c, cacheHit))
}

// Urgent godoc
// @Summary Urgent tasks
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Param days query int false "Days ahead"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /planner/urgent [get]
func (h *PlannerHandler) Urgent(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days", -1)
	if !ok {
		return
	}
	result, err := h.service.Urgent(c.Request.Context(), userID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Recommendations godoc
// @Summary Recommended tasks
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of tasks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /planner/recommendations [get]
func (h *PlannerHandler) Recommendations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		return
	}
	result, err := h.service.Recommendations(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Statistics godoc
// @Summary Workload and curriculum statistics
// @Tags Planner
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /planner/statistics [get]
func (h *PlannerHandler) Statistics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	stats, err := h.service.Statistics(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a non-negative integer", key)))
		return 0, false
	}
	return value, true
}
