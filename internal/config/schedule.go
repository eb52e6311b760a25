package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/iliyamo/site-reservation/internal/scheduling"
)

// ScheduleConfig carries the booking rules shared by the availability
// generators and the reservation writer.
//
// Example file:
//
//	granularity_minutes = 15
//	concurrent_limit = 5
//	sequential_limit = 8
//	default_duration_minutes = 60
//	lock_ttl = "5s"
//
//	[operating_window]
//	open = "06:00"
//	close = "19:00"
type ScheduleConfig struct {
	OperatingWindow        scheduling.Window `toml:"operating_window"`
	GranularityMinutes     int               `toml:"granularity_minutes"`
	ConcurrentLimit        int               `toml:"concurrent_limit"`
	SequentialLimit        int               `toml:"sequential_limit"`
	DefaultDurationMinutes int               `toml:"default_duration_minutes"`
	LockTTL                duration          `toml:"lock_ttl"`
}

// duration decodes "5s"-style strings from TOML.
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// DefaultSchedule is 06:00-19:00 on a 15 minute grid.
func DefaultSchedule() ScheduleConfig {
	return ScheduleConfig{
		OperatingWindow:        scheduling.DefaultWindow,
		GranularityMinutes:     int(scheduling.DefaultGranularity / time.Minute),
		ConcurrentLimit:        scheduling.DefaultConcurrentLimit,
		SequentialLimit:        scheduling.DefaultSequentialLimit,
		DefaultDurationMinutes: scheduling.DefaultDurationMinutes,
		LockTTL:                duration{5 * time.Second},
	}
}

// LoadSchedule starts from DefaultSchedule, overlays the TOML file at path
// when path is non-empty and the file exists, then applies SCHEDULE_*
// environment overrides. The result is validated.
func LoadSchedule(path string) (ScheduleConfig, error) {
	cfg := DefaultSchedule()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return ScheduleConfig{}, fmt.Errorf("schedule config %s: %w", path, err)
		}
	}
	if v := os.Getenv("SCHEDULE_OPEN"); v != "" {
		c, err := scheduling.ParseClock(v)
		if err != nil {
			return ScheduleConfig{}, fmt.Errorf("SCHEDULE_OPEN: %w", err)
		}
		cfg.OperatingWindow.Open = c
	}
	if v := os.Getenv("SCHEDULE_CLOSE"); v != "" {
		c, err := scheduling.ParseClock(v)
		if err != nil {
			return ScheduleConfig{}, fmt.Errorf("SCHEDULE_CLOSE: %w", err)
		}
		cfg.OperatingWindow.Close = c
	}
	cfg.GranularityMinutes = envInt("SCHEDULE_GRANULARITY_MINUTES", cfg.GranularityMinutes)
	cfg.ConcurrentLimit = envInt("SCHEDULE_CONCURRENT_LIMIT", cfg.ConcurrentLimit)
	cfg.SequentialLimit = envInt("SCHEDULE_SEQUENTIAL_LIMIT", cfg.SequentialLimit)
	cfg.DefaultDurationMinutes = envInt("SCHEDULE_DEFAULT_DURATION_MINUTES", cfg.DefaultDurationMinutes)
	cfg.LockTTL.Duration = envDur("SCHEDULE_LOCK_TTL", cfg.LockTTL.Duration)

	if err := cfg.Validate(); err != nil {
		return ScheduleConfig{}, err
	}
	return cfg, nil
}

// Validate rejects windows that close before they open, grids that do not
// divide an hour and non-positive limits.
func (c ScheduleConfig) Validate() error {
	if err := c.OperatingWindow.Validate(); err != nil {
		return err
	}
	if c.GranularityMinutes <= 0 || 60%c.GranularityMinutes != 0 {
		return fmt.Errorf("granularity_minutes must divide 60, got %d", c.GranularityMinutes)
	}
	if c.ConcurrentLimit < 1 || c.SequentialLimit < 1 {
		return fmt.Errorf("slot limits must be positive (concurrent=%d sequential=%d)", c.ConcurrentLimit, c.SequentialLimit)
	}
	if c.DefaultDurationMinutes <= 0 || c.DefaultDurationMinutes%c.GranularityMinutes != 0 {
		return fmt.Errorf("default_duration_minutes must be a positive multiple of %d", c.GranularityMinutes)
	}
	if c.LockTTL.Duration <= 0 {
		return errors.New("lock_ttl must be positive")
	}
	return nil
}

// Granularity is the grid step as a duration.
func (c ScheduleConfig) Granularity() time.Duration {
	return time.Duration(c.GranularityMinutes) * time.Minute
}
