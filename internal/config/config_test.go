package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/lessons")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 15*time.Minute, cfg.DialogTimeout)
	assert.Equal(t, 24*time.Hour, cfg.RescheduleTTL)
	assert.Equal(t, 6, cfg.FirstHour)
	assert.Equal(t, 23, cfg.LastHour)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/lessons")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("ENV", "production")
	t.Setenv("DIALOG_TIMEOUT", "5m")
	t.Setenv("RESCHEDULE_TTL", "12h")
	t.Setenv("FIRST_HOUR", "9")
	t.Setenv("LAST_HOUR", "18")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 5*time.Minute, cfg.DialogTimeout)
	assert.Equal(t, 12*time.Hour, cfg.RescheduleTTL)
	assert.Equal(t, 9, cfg.FirstHour)
	assert.Equal(t, 18, cfg.LastHour)
}

func TestLoad_Required(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DB_DSN", "postgres://localhost:5432/lessons")
	t.Setenv("TELEGRAM_TOKEN", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_InvalidHoursRange(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/lessons")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("FIRST_HOUR", "20")
	t.Setenv("LAST_HOUR", "10")

	_, err := Load()
	assert.Error(t, err)
}
