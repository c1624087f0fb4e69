package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reminder_service/internal/app"
	"reminder_service/internal/domain/reminder"
	"reminder_service/internal/infra/channel"
	"reminder_service/internal/infra/checkpoint"
	"reminder_service/internal/infra/config"
	idb "reminder_service/internal/infra/database"
	"reminder_service/internal/infra/email"
	"reminder_service/internal/infra/logger"
	"reminder_service/internal/infra/memory"
	"reminder_service/internal/infra/scheduler"
	"reminder_service/internal/infra/telegram"
	"reminder_service/internal/infra/templates"

	"gopkg.in/telebot.v3"
)

// engine holds every wired component. close releases them in reverse order.
type engine struct {
	cfg      *config.AppConfig
	db       *sql.DB
	store    reminder.Store
	bot      *telebot.Bot
	scanners []*app.Scanner
	closers  []func() error
}

func (e *engine) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			logger.Log.WithError(err).Warn("Error during shutdown")
		}
	}
}

// newEngine connects the store, renderer and channels and builds one scanner per domain.
func newEngine(ctx context.Context, cfg *config.AppConfig, withPoller bool) (*engine, error) {
	e := &engine{cfg: cfg}
	log := logger.Component("main")

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("Using in-memory store: nothing is persisted")
		e.store = memory.NewStore(cfg.Ledgers)
	default:
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		e.db = db
		e.closers = append(e.closers, db.Close)
		e.store = idb.NewPostgresReminderStore(db, cfg.Ledgers)
		log.Info("Database connection established successfully.")
	}

	var renderer reminder.TemplateRenderer
	if cfg.TemplateSource == config.TemplateSourceDatabase {
		renderer = idb.NewPostgresTemplateRepository(e.db)
	} else {
		catalog, err := templates.LoadFile(cfg.TemplateFile)
		if err != nil {
			e.close()
			return nil, err
		}
		renderer = catalog
	}

	router := &channel.Router{}
	if cfg.SMTP.Host != "" {
		router.Email = email.NewSMTPChannel(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		}, logger.Log.WithField("app", "reminderd"))
	} else {
		log.Warn("SMTP_HOST not set: email reminders will fail")
	}
	if cfg.TelegramToken != "" {
		bot, err := newBot(cfg.TelegramToken, withPoller)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("could not create Telegram bot: %w", err)
		}
		e.bot = bot
		router.Telegram = telegram.NewChannel(telegram.NewTelebotAdapter(bot))
	} else {
		log.Warn("TELEGRAM_TOKEN not set: telegram reminders will fail")
	}

	dispatcher := app.NewDispatcher(renderer, channel.NewThrottled(router, cfg.SendRatePerSec), logger.Log.WithField("app", "reminderd"))
	for _, d := range reminder.Domains {
		settings := app.DefaultDomainSettings(d)
		settings.Location = cfg.Location
		if mode, ok := cfg.ThresholdModes[d]; ok {
			settings.Mode = mode
		}
		e.scanners = append(e.scanners, app.NewScanner(settings, e.store, dispatcher, reminder.SystemClock{}, logger.Log.WithField("app", "reminderd")))
	}
	return e, nil
}

// newScheduler builds the per-domain loops: daily domains on the cron spec
// with catch-up, the task domain on the short interval.
func (e *engine) newScheduler(ctx context.Context) (*scheduler.ReminderScheduler, error) {
	cfg := e.cfg
	daily, err := scheduler.DailySchedule(cfg.DailyScanSpec, cfg.Location)
	if err != nil {
		return nil, err
	}

	checkpoints, err := checkpoint.OpenSQLite(ctx, cfg.CheckpointPath)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, checkpoints.Close)

	base := logger.Log.WithField("app", "reminderd")
	var runners []*scheduler.Runner
	for _, sc := range e.scanners {
		job := scheduler.Job{
			Domain:  sc.Domain(),
			Timeout: cfg.ScanTimeout,
			Scan:    sc.CheckAndSendReminders,
		}
		if sc.Domain() == reminder.DomainTask {
			job.Schedule = scheduler.IntervalSchedule(cfg.TaskScanInterval)
			job.Backoff = cfg.TaskBackoff
		} else {
			job.Schedule = daily
			job.Backoff = cfg.DailyBackoff
			job.CatchUp = true
		}
		runners = append(runners, scheduler.NewRunner(job, reminder.SystemClock{}, scheduler.SleepContext, checkpoints, base))
	}
	return scheduler.NewReminderScheduler(runners, base), nil
}

func newBot(token string, withPoller bool) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token: token,
		OnError: func(err error, c telebot.Context) {
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID).WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telegram handler error")
		},
	}
	if withPoller {
		pref.Poller = &telebot.LongPoller{Timeout: 10 * time.Second}
	}
	return telebot.NewBot(pref)
}
