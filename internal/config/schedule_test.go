package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/site-reservation/internal/scheduling"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "schedule.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadSchedule_Defaults(t *testing.T) {
	cfg, err := LoadSchedule("")
	require.NoError(t, err)
	assert.Equal(t, scheduling.DefaultWindow, cfg.OperatingWindow)
	assert.Equal(t, 15, cfg.GranularityMinutes)
	assert.Equal(t, 15*time.Minute, cfg.Granularity())
	assert.Equal(t, 5, cfg.ConcurrentLimit)
	assert.Equal(t, 8, cfg.SequentialLimit)
	assert.Equal(t, 60, cfg.DefaultDurationMinutes)
}

func TestLoadSchedule_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadSchedule(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule(), cfg)
}

func TestLoadSchedule_File(t *testing.T) {
	p := writeFile(t, `
granularity_minutes = 30
concurrent_limit = 3
lock_ttl = "2s"

[operating_window]
open = "08:00"
close = "17:30"
`)
	cfg, err := LoadSchedule(p)
	require.NoError(t, err)
	assert.Equal(t, scheduling.ClockTime{Hour: 8}, cfg.OperatingWindow.Open)
	assert.Equal(t, scheduling.ClockTime{Hour: 17, Minute: 30}, cfg.OperatingWindow.Close)
	assert.Equal(t, 30, cfg.GranularityMinutes)
	assert.Equal(t, 3, cfg.ConcurrentLimit)
	assert.Equal(t, 8, cfg.SequentialLimit, "unset keys keep their default")
	assert.Equal(t, 2*time.Second, cfg.LockTTL.Duration)
}

func TestLoadSchedule_EnvOverridesFile(t *testing.T) {
	p := writeFile(t, "[operating_window]\nopen = \"08:00\"\nclose = \"17:00\"\n")
	t.Setenv("SCHEDULE_CLOSE", "20:00")
	t.Setenv("SCHEDULE_SEQUENTIAL_LIMIT", "4")

	cfg, err := LoadSchedule(p)
	require.NoError(t, err)
	assert.Equal(t, "08:00-20:00", cfg.OperatingWindow.String())
	assert.Equal(t, 4, cfg.SequentialLimit)
}

func TestLoadSchedule_Invalid(t *testing.T) {
	cases := map[string]string{
		"inverted window": "[operating_window]\nopen = \"19:00\"\nclose = \"06:00\"\n",
		"bad clock":       "[operating_window]\nopen = \"6am\"\nclose = \"19:00\"\n",
		"odd granularity": "granularity_minutes = 7\n",
		"zero limit":      "concurrent_limit = 0\n",
		"bad duration":    "default_duration_minutes = 50\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSchedule(writeFile(t, body))
			assert.Error(t, err)
		})
	}

	t.Setenv("SCHEDULE_OPEN", "25:00")
	_, err := LoadSchedule("")
	assert.Error(t, err)
}
