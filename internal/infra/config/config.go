package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"reminder_service/internal/domain/reminder"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	TemplateSourceDatabase = "database"
	TemplateSourceFile     = "file"
)

// SMTPConfig holds the email relay settings. Host empty means email is disabled.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// AppConfig holds all configuration for the application
type AppConfig struct {
	StoreDriver string
	DatabaseURL string
	LogLevel    string
	Environment string

	Timezone         string
	Location         *time.Location
	DailyScanSpec    string
	TaskScanInterval time.Duration
	DailyBackoff     time.Duration
	TaskBackoff      time.Duration
	ScanTimeout      time.Duration
	Ledgers          map[reminder.Domain]reminder.LedgerStrategy
	ThresholdModes   map[reminder.Domain]reminder.ThresholdMode

	TemplateSource string
	TemplateFile   string

	SMTP            SMTPConfig
	TelegramToken   string
	AdminTelegramID int64
	SendRatePerSec  int

	HTTPAddr       string
	CheckpointPath string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.StoreDriver = strings.ToLower(getenv("STORE_DRIVER", StoreDriverPostgres))
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case StoreDriverMemory:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (want postgres or memory)", cfg.StoreDriver)
	}

	cfg.LogLevel = strings.ToLower(getenv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getenv("ENVIRONMENT", "development"))

	cfg.Timezone = getenv("REMINDER_TIMEZONE", "UTC")
	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE: %w", err)
	}

	cfg.DailyScanSpec = getenv("DAILY_SCAN_SPEC", "0 9 * * *") // 09:00 every day
	if cfg.TaskScanInterval, err = durationEnv("TASK_SCAN_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.DailyBackoff, err = durationEnv("DAILY_BACKOFF", time.Hour); err != nil {
		return nil, err
	}
	if cfg.TaskBackoff, err = durationEnv("TASK_BACKOFF", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ScanTimeout, err = durationEnv("SCAN_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.Ledgers = make(map[reminder.Domain]reminder.LedgerStrategy, len(reminder.Domains))
	for _, d := range reminder.Domains {
		def := reminder.LedgerTable
		if d == reminder.DomainTask {
			def = reminder.LedgerMarker
		}
		name := strings.ToUpper(string(d)) + "_LEDGER"
		strategy, err := reminder.ParseLedgerStrategy(getenv(name, string(def)))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		cfg.Ledgers[d] = strategy
	}

	cfg.ThresholdModes = make(map[reminder.Domain]reminder.ThresholdMode, len(reminder.Domains))
	for _, d := range reminder.Domains {
		def := reminder.ModeExactMatch
		if d == reminder.DomainTask {
			def = reminder.ModeCumulative
		}
		name := strings.ToUpper(string(d)) + "_THRESHOLD_MODE"
		mode, err := reminder.ParseThresholdMode(getenv(name, string(def)))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		cfg.ThresholdModes[d] = mode
	}

	cfg.TemplateSource = strings.ToLower(getenv("TEMPLATE_SOURCE", TemplateSourceFile))
	cfg.TemplateFile = getenv("TEMPLATE_FILE", "configs/templates.yaml")
	switch cfg.TemplateSource {
	case TemplateSourceFile:
	case TemplateSourceDatabase:
		if cfg.StoreDriver != StoreDriverPostgres {
			return nil, fmt.Errorf("TEMPLATE_SOURCE=database requires STORE_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid TEMPLATE_SOURCE %q (want database or file)", cfg.TemplateSource)
	}

	cfg.SMTP = SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
		FromName: os.Getenv("SMTP_FROM_NAME"),
	}
	if cfg.SMTP.Port, err = intEnv("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.SMTP.Host != "" && cfg.SMTP.From == "" {
		return nil, fmt.Errorf("SMTP_FROM is not set")
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	if cfg.SendRatePerSec, err = intEnv("SEND_RATE_PER_SEC", 5); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
	cfg.CheckpointPath = getenv("CHECKPOINT_PATH", "data/checkpoints.db")

	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
