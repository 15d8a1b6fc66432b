package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uniplanner-api/internal/dto"
	"github.com/noah-isme/uniplanner-api/internal/models"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
	"github.com/noah-isme/uniplanner-api/pkg/response"
)

type catalogService interface {
	List(filter models.CourseFilter) ([]models.Course, error)
	Get(code string) (models.Course, error)
	Search(query string) ([]models.Course, error)
	Reload(ctx context.Context) (int, error)
	LoadedAt() time.Time
}

// CourseHandler serves the read-only course catalog.
type CourseHandler struct {
	service catalogService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(service catalogService) *CourseHandler {
	return &CourseHandler{service: service}
}

// List godoc
// @Summary List catalog courses
// @Tags Courses
// @Produce json
// @Param semester query int false "Curriculum semester"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	if raw := strings.TrimSpace(c.Query("semester")); raw != "" {
		semester, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be a number"))
			return
		}
		filter.Semester = semester
	}

	courses, err := h.service.List(filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses, map[string]interface{}{"count": len(courses)})
}

// Search godoc
// @Summary Search courses by code or name
// @Tags Courses
// @Produce json
// @Param q query string true "Search term"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/search [get]
func (h *CourseHandler) Search(c *gin.Context) {
	courses, err := h.service.Search(c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses, map[string]interface{}{"count": len(courses)})
}

// Get godoc
// @Summary Get course by code
// @Tags Courses
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{code} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Reload godoc
// @Summary Reload course catalog
// @Description Rebuilds the in-memory course graph from the database
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /admin/catalog/reload [post]
func (h *CourseHandler) Reload(c *gin.Context) {
	count, err := h.service.Reload(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.CatalogReloadResponse{Courses: count, LoadedAt: h.service.LoadedAt()})
}
