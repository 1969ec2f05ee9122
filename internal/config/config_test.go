package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 3232, cfg.Port)
	assert.Equal(t, 24, cfg.SessionTTLHours)
	assert.Equal(t, 30, cfg.BackupRetentionDays)
	assert.Equal(t, "0 4 * * *", cfg.PurgeScanSchedule)
	assert.Equal(t, 50, cfg.BulkShiftBatchSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("SESSION_TTL_HOURS", "72")
	t.Setenv("BULK_SHIFT_BATCH_SIZE", "10")

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 72, cfg.SessionTTLHours)
	assert.Equal(t, 10, cfg.BulkShiftBatchSize)
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 3232, cfg.Port)
}
