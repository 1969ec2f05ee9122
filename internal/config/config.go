package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cast"
)

type Config struct {
	Port                int
	DatabaseURL         string
	RedisAddr           string
	JWTSecret           string
	SessionTTLHours     int
	BackupRetentionDays int
	PurgeScanSchedule   string
	BulkShiftBatchSize  int
}

func Load() *Config {
	return &Config{
		Port:                envInt("PORT", 3232),
		DatabaseURL:         env("DATABASE_URL", "postgres://markervault:markervault@db:5432/markervault?sslmode=disable"),
		RedisAddr:           env("REDIS_ADDR", "redis:6379"),
		JWTSecret:           env("JWT_SECRET", "change-me-in-production"),
		SessionTTLHours:     envInt("SESSION_TTL_HOURS", 24),
		BackupRetentionDays: envInt("BACKUP_RETENTION_DAYS", 30),
		PurgeScanSchedule:   env("PURGE_SCAN_SCHEDULE", "0 4 * * *"),
		BulkShiftBatchSize:  envInt("BULK_SHIFT_BATCH_SIZE", 50),
	}
}

// MergeFromDB overlays settings-table values onto the env config. Missing
// table or rows are fine; env values stand.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "session_ttl_hours":
			if v := cast.ToInt(value); v > 0 {
				c.SessionTTLHours = v
			}
		case "backup_retention_days":
			if v := cast.ToInt(value); v > 0 {
				c.BackupRetentionDays = v
			}
		case "purge_scan_schedule":
			if value != "" {
				c.PurgeScanSchedule = value
			}
		case "bulk_shift_batch_size":
			if v := cast.ToInt(value); v > 0 {
				c.BulkShiftBatchSize = v
			}
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
