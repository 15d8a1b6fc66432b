package planner

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/uniplanner-api/internal/models"
	appErrors "github.com/noah-isme/uniplanner-api/pkg/errors"
)

// Window is an advisory daily study window in HH:MM form. The allocator ignores it.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// StudyConfiguration is the study budget the allocator works with.
type StudyConfiguration struct {
	DailyHours      float64        `json:"daily_hours"`
	AllowedDays     []time.Weekday `json:"allowed_days"`
	PreferredWindow Window         `json:"preferred_window"`
}

// Allows reports whether weekday is a study day.
func (c StudyConfiguration) Allows(day time.Weekday) bool {
	for _, allowed := range c.AllowedDays {
		if allowed == day {
			return true
		}
	}
	return false
}

// Preset describes the defaults applied at registration for a study mode.
type Preset struct {
	Mode            models.StudyMode
	DailyHours      float64
	AllowedDays     []time.Weekday
	PreferredWindow Window
	BreakMinutes    int
}

var weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

var presets = map[models.StudyMode]float64{
	models.StudyModeIntensive: 6.0,
	models.StudyModeModerate:  4.0,
	models.StudyModeLight:     2.5,
}

// PresetFor returns the registration defaults for a study mode.
func PresetFor(mode models.StudyMode) (Preset, error) {
	hours, ok := presets[mode]
	if !ok {
		return Preset{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown study mode %q", mode))
	}
	days := make([]time.Weekday, len(weekdays))
	copy(days, weekdays)
	return Preset{
		Mode:            mode,
		DailyHours:      hours,
		AllowedDays:     days,
		PreferredWindow: Window{Start: "08:00", End: "22:00"},
		BreakMinutes:    15,
	}, nil
}

// Model renders the preset as a persisted configuration for userID.
func (p Preset) Model(userID string) models.StudyConfiguration {
	days := make([]int64, 0, len(p.AllowedDays))
	for _, day := range p.AllowedDays {
		days = append(days, int64(day))
	}
	return models.StudyConfiguration{
		UserID:         userID,
		StudyMode:      p.Mode,
		DailyHours:     p.DailyHours,
		DaysOfWeek:     days,
		PreferredStart: p.PreferredWindow.Start,
		PreferredEnd:   p.PreferredWindow.End,
		BreakMinutes:   p.BreakMinutes,
	}
}

// ConfigurationFromModel converts a stored configuration into the allocator's
// view, dropping out-of-range and duplicate weekdays.
func ConfigurationFromModel(cfg models.StudyConfiguration) StudyConfiguration {
	seen := make(map[time.Weekday]bool, len(cfg.DaysOfWeek))
	days := make([]time.Weekday, 0, len(cfg.DaysOfWeek))
	for _, raw := range cfg.DaysOfWeek {
		if raw < 0 || raw > 6 {
			continue
		}
		day := time.Weekday(raw)
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return StudyConfiguration{
		DailyHours:      cfg.DailyHours,
		AllowedDays:     days,
		PreferredWindow: Window{Start: cfg.PreferredStart, End: cfg.PreferredEnd},
	}
}

// ValidateConfiguration applies the rules for a replacement configuration:
// positive daily hours up to 24, weekdays 0-6 and an ordered HH:MM window.
func ValidateConfiguration(cfg models.StudyConfiguration) error {
	if math.IsNaN(cfg.DailyHours) || cfg.DailyHours <= 0 || cfg.DailyHours > 24 {
		return appErrors.Clone(appErrors.ErrValidation, "daily_hours must be greater than 0 and at most 24")
	}
	for _, day := range cfg.DaysOfWeek {
		if day < 0 || day > 6 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day of week %d", day))
		}
	}
	if cfg.PreferredStart == "" && cfg.PreferredEnd == "" {
		return nil
	}
	start, err := ParseClock(cfg.PreferredStart)
	if err != nil {
		return err
	}
	end, err := ParseClock(cfg.PreferredEnd)
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "preferred_start must be before preferred_end")
	}
	return nil
}

// ParseClock parses an HH:MM time of day.
func ParseClock(raw string) (time.Time, error) {
	value, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Invalid(err, fmt.Sprintf("invalid time of day %q", raw))
	}
	return value, nil
}

// ParseDeadline combines a YYYY-MM-DD date with an optional HH:MM time of day
// in loc. Without a time of day the deadline is the end of that day.
func ParseDeadline(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, appErrors.Invalid(err, fmt.Sprintf("invalid deadline date %q", date))
	}
	if strings.TrimSpace(timeOfDay) == "" {
		return day.Add(23*time.Hour + 59*time.Minute + 59*time.Second), nil
	}
	clock, err := ParseClock(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
}
