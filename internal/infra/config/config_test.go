package config

import (
	"testing"
	"time"

	"reminder_service/internal/domain/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, "0 9 * * *", cfg.DailyScanSpec)
	assert.Equal(t, time.Minute, cfg.TaskScanInterval)
	assert.Equal(t, time.Hour, cfg.DailyBackoff)
	assert.Equal(t, 5*time.Minute, cfg.TaskBackoff)
	assert.Equal(t, reminder.LedgerTable, cfg.Ledgers[reminder.DomainAnniversary])
	assert.Equal(t, reminder.LedgerTable, cfg.Ledgers[reminder.DomainPlan])
	assert.Equal(t, reminder.LedgerMarker, cfg.Ledgers[reminder.DomainTask])
	assert.Equal(t, reminder.ModeExactMatch, cfg.ThresholdModes[reminder.DomainAnniversary])
	assert.Equal(t, reminder.ModeExactMatch, cfg.ThresholdModes[reminder.DomainPlan])
	assert.Equal(t, reminder.ModeCumulative, cfg.ThresholdModes[reminder.DomainTask])
	assert.Equal(t, TemplateSourceFile, cfg.TemplateSource)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 5, cfg.SendRatePerSec)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/reminders")
	t.Setenv("REMINDER_TIMEZONE", "Europe/Berlin")
	t.Setenv("TASK_SCAN_INTERVAL", "30s")
	t.Setenv("PLAN_LEDGER", "marker")
	t.Setenv("PLAN_THRESHOLD_MODE", "Cumulative")
	t.Setenv("TEMPLATE_SOURCE", "database")
	t.Setenv("ADMIN_TELEGRAM_ID", "12345")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, 30*time.Second, cfg.TaskScanInterval)
	assert.Equal(t, reminder.LedgerMarker, cfg.Ledgers[reminder.DomainPlan])
	assert.Equal(t, reminder.ModeCumulative, cfg.ThresholdModes[reminder.DomainPlan])
	assert.Equal(t, reminder.ModeCumulative, cfg.ThresholdModes[reminder.DomainTask])
	assert.Equal(t, TemplateSourceDatabase, cfg.TemplateSource)
	assert.Equal(t, int64(12345), cfg.AdminTelegramID)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without url":     {"STORE_DRIVER": "postgres", "DATABASE_URL": ""},
		"unknown driver":           {"STORE_DRIVER": "mysql"},
		"bad timezone":             {"STORE_DRIVER": "memory", "REMINDER_TIMEZONE": "Mars/Olympus"},
		"bad duration":             {"STORE_DRIVER": "memory", "TASK_BACKOFF": "soon"},
		"bad ledger":               {"STORE_DRIVER": "memory", "TASK_LEDGER": "redis"},
		"bad threshold mode":       {"STORE_DRIVER": "memory", "ANNIVERSARY_THRESHOLD_MODE": "weekly"},
		"db templates from memory": {"STORE_DRIVER": "memory", "TEMPLATE_SOURCE": "database"},
		"smtp without from":        {"STORE_DRIVER": "memory", "SMTP_HOST": "smtp.example.com", "SMTP_FROM": ""},
		"bad admin id":             {"STORE_DRIVER": "memory", "ADMIN_TELEGRAM_ID": "admin"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
