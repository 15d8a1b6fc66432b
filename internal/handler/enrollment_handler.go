package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uniplanner-api/internal/dto"
	"github.com/noah-isme/uniplanner-api/internal/planner"
	"github.com/noah-isme/uniplanner-api/internal/service"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
	"github.com/noah-isme/uniplanner-api/pkg/response"
)

type enrollmentService interface {
	Status(ctx context.Context, userID string) ([]planner.CourseStatus, error)
	Approved(ctx context.Context, userID string) (*service.CourseList, error)
	InProgress(ctx context.Context, userID string) (*service.CourseList, error)
	Check(ctx context.Context, userID, code string) (planner.Decision, error)
	Enroll(ctx context.Context, userID, code string) (*planner.EnrollmentChange, error)
	Withdraw(ctx context.Context, userID, code string) (*service.WithdrawResult, error)
}

// EnrollmentHandler exposes the authenticated student's academic record.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(service enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// Status godoc
// @Summary Catalog status board
// @Description Every course marked APPROVED, IN_PROGRESS, AVAILABLE or BLOCKED for the student
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /me/courses/status [get]
func (h *EnrollmentHandler) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	board, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, board)
}

// Approved godoc
// @Summary Approved courses
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /me/courses/approved [get]
func (h *EnrollmentHandler) Approved(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	list, err := h.service.Approved(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// InProgress godoc
// @Summary In-progress courses
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /me/courses/in-progress [get]
func (h *EnrollmentHandler) InProgress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	list, err := h.service.InProgress(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Check godoc
// @Summary Check enrollment eligibility
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CourseActionRequest true "Course"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me/courses/check [post]
func (h *EnrollmentHandler) Check(c *gin.Context) {
	userID, code, ok := h.bindCourse(c)
	if !ok {
		return
	}
	decision, err := h.service.Check(c.Request.Context(), userID, code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, decision)
}

// Enroll godoc
// @Summary Enroll in a course
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CourseActionRequest true "Course"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/courses/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	userID, code, ok := h.bindCourse(c)
	if !ok {
		return
	}
	change, err := h.service.Enroll(c.Request.Context(), userID, code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, change)
}

// Withdraw godoc
// @Summary Withdraw from a course
// @Description Withdrawing from a course that is not in progress reports withdrawn=false
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CourseActionRequest true "Course"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me/courses/withdraw [post]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	userID, code, ok := h.bindCourse(c)
	if !ok {
		return
	}
	result, err := h.service.Withdraw(c.Request.Context(), userID, code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *EnrollmentHandler) bindCourse(c *gin.Context) (string, string, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		return "", "", false
	}
	var req dto.CourseActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid course payload"))
		return "", "", false
	}
	if strings.TrimSpace(req.CourseCode) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course_code is required"))
		return "", "", false
	}
	return userID, req.CourseCode, true
}
