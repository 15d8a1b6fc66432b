package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uniplanner-api/internal/models"
)

// StudyConfigRepository stores one study configuration per student.
type StudyConfigRepository struct {
	db *sqlx.DB
}

// NewStudyConfigRepository creates the repository.
func NewStudyConfigRepository(db *sqlx.DB) *StudyConfigRepository {
	return &StudyConfigRepository{db: db}
}

func (r *StudyConfigRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Get returns the configuration of a student.
func (r *StudyConfigRepository) Get(ctx context.Context, userID string) (*models.StudyConfiguration, error) {
	const query = `SELECT user_id, study_mode, daily_hours, days_of_week, preferred_start, preferred_end, break_minutes, updated_at
FROM study_configurations WHERE user_id = $1`
	var cfg models.StudyConfiguration
	if err := r.db.GetContext(ctx, &cfg, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get study configuration: %w", err)
	}
	return &cfg, nil
}

// Upsert replaces the configuration of a student.
func (r *StudyConfigRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, cfg *models.StudyConfiguration) error {
	cfg.UpdatedAt = time.Now().UTC()
	const query = `
INSERT INTO study_configurations (user_id, study_mode, daily_hours, days_of_week, preferred_start, preferred_end, break_minutes, updated_at)
VALUES (:user_id, :study_mode, :daily_hours, :days_of_week, :preferred_start, :preferred_end, :break_minutes, :updated_at)
ON CONFLICT (user_id) DO UPDATE
SET study_mode = EXCLUDED.study_mode,
    daily_hours = EXCLUDED.daily_hours,
    days_of_week = EXCLUDED.days_of_week,
    preferred_start = EXCLUDED.preferred_start,
    preferred_end = EXCLUDED.preferred_end,
    break_minutes = EXCLUDED.break_minutes,
    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, cfg); err != nil {
		return fmt.Errorf("upsert study configuration: %w", err)
	}
	return nil
}
