package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uniplanner-api/internal/dto"
	"github.com/noah-isme/uniplanner-api/internal/models"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
	"github.com/noah-isme/uniplanner-api/pkg/response"
)

type studyConfigService interface {
	Get(ctx context.Context, userID string) (*models.StudyConfiguration, error)
	Replace(ctx context.Context, userID string, req dto.UpdateStudyConfigRequest) (*models.StudyConfiguration, error)
	ApplyPreset(ctx context.Context, userID string, req dto.ApplyPresetRequest) (*models.StudyConfiguration, error)
}

// StudyConfigHandler manages the student's study budget.
type StudyConfigHandler struct {
	service studyConfigService
}

// NewStudyConfigHandler constructs the handler.
func NewStudyConfigHandler(service studyConfigService) *StudyConfigHandler {
	return &StudyConfigHandler{service: service}
}

// Get godoc
// @Summary Get study configuration
// @Tags Study Configuration
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me/study-config [get]
func (h *StudyConfigHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cfg, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

// Replace godoc
// @Summary Replace study configuration
// @Tags Study Configuration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateStudyConfigRequest true "Study configuration"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/study-config [put]
func (h *StudyConfigHandler) Replace(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.UpdateStudyConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid study configuration payload"))
		return
	}
	cfg, err := h.service.Replace(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

// ApplyPreset godoc
// @Summary Reset study configuration to a preset
// @Tags Study Configuration
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ApplyPresetRequest true "Study mode"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/study-config/preset [post]
func (h *StudyConfigHandler) ApplyPreset(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.ApplyPresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid preset payload"))
		return
	}
	cfg, err := h.service.ApplyPreset(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}
