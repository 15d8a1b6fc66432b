package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uniplanner-api/internal/dto"
	"github.com/noah-isme/uniplanner-api/internal/models"
	"github.com/noah-isme/uniplanner-api/internal/planner"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

type studyConfigRepository interface {
	Get(ctx context.Context, userID string) (*models.StudyConfiguration, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, cfg *models.StudyConfiguration) error
}

// StudyConfigService reads and replaces a student's study budget.
type StudyConfigService struct {
	repo      studyConfigRepository
	refresher plannerRefresher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudyConfigService constructs a StudyConfigService.
func NewStudyConfigService(repo studyConfigRepository, refresher plannerRefresher, validate *validator.Validate, logger *zap.Logger) *StudyConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudyConfigService{repo: repo, refresher: refresher, validator: validate, logger: logger}
}

// Get returns the stored configuration.
func (s *StudyConfigService) Get(ctx context.Context, userID string) (*models.StudyConfiguration, error) {
	cfg, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "study configuration not found")
		}
		return nil, appErrors.Internal(err, "failed to load study configuration")
	}
	return cfg, nil
}

// Replace validates and stores a new configuration. Weekdays are stored
// deduplicated and sorted.
func (s *StudyConfigService) Replace(ctx context.Context, userID string, req dto.UpdateStudyConfigRequest) (*models.StudyConfiguration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid study configuration payload")
	}

	days := make([]int64, 0, len(req.DaysOfWeek))
	for _, day := range req.DaysOfWeek {
		days = append(days, int64(day))
	}
	cfg := models.StudyConfiguration{
		UserID:         userID,
		StudyMode:      req.StudyMode,
		DailyHours:     req.DailyHours,
		DaysOfWeek:     days,
		PreferredStart: strings.TrimSpace(req.PreferredStart),
		PreferredEnd:   strings.TrimSpace(req.PreferredEnd),
		BreakMinutes:   req.BreakMinutes,
	}
	if err := planner.ValidateConfiguration(cfg); err != nil {
		return nil, err
	}

	if cfg.StudyMode == "" {
		current, err := s.Get(ctx, userID)
		switch {
		case err == nil:
			cfg.StudyMode = current.StudyMode
		case errors.Is(err, appErrors.ErrNotFound):
			cfg.StudyMode = models.StudyModeModerate
		default:
			return nil, err
		}
	}

	normalized := planner.ConfigurationFromModel(cfg)
	cfg.DaysOfWeek = make([]int64, 0, len(normalized.AllowedDays))
	for _, day := range normalized.AllowedDays {
		cfg.DaysOfWeek = append(cfg.DaysOfWeek, int64(day))
	}

	return s.store(ctx, &cfg)
}

// ApplyPreset resets the configuration to the defaults of a study mode.
func (s *StudyConfigService) ApplyPreset(ctx context.Context, userID string, req dto.ApplyPresetRequest) (*models.StudyConfiguration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid preset payload")
	}
	preset, err := planner.PresetFor(req.StudyMode)
	if err != nil {
		return nil, err
	}
	cfg := preset.Model(userID)
	return s.store(ctx, &cfg)
}

func (s *StudyConfigService) store(ctx context.Context, cfg *models.StudyConfiguration) (*models.StudyConfiguration, error) {
	if err := s.repo.Upsert(ctx, nil, cfg); err != nil {
		return nil, appErrors.Internal(err, "failed to save study configuration")
	}
	s.logger.Info("study configuration replaced",
		zap.String("user_id", cfg.UserID),
		zap.Float64("daily_hours", cfg.DailyHours),
		zap.Int("days", len(cfg.DaysOfWeek)),
	)
	if s.refresher != nil {
		s.refresher.Refresh(ctx, cfg.UserID)
	}
	return cfg, nil
}
