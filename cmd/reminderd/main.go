package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reminder_service/internal/app"
	"reminder_service/internal/domain/reminder"
	"reminder_service/internal/infra/config"
	idb "reminder_service/internal/infra/database"
	"reminder_service/internal/infra/httpapi"
	"reminder_service/internal/infra/logger"
	"reminder_service/internal/infra/telegram"
	"reminder_service/internal/infra/templates"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const version = "v0.3.0"

func main() {
	cliApp := cli.App{
		Name:     "reminderd",
		HelpName: "reminderd",
		Usage:    "Recurring-event reminder engine.",
		Version:  version,
		Commands: []cli.Command{
			{
				Name:   "serve",
				Usage:  "run the scheduler, ops HTTP API and Telegram bot",
				Action: serve,
			},
			{
				Name:  "run-now",
				Usage: "scan one domain (or all) once and print the summary",
				Flags: []cli.Flag{
					cli.StringFlag{
						Name:  "domain, d",
						Usage: "domain to scan: anniversary, plan or task (all when empty)",
					},
				},
				Action: runNow,
			},
			{
				Name:  "migrate",
				Usage: "create the Postgres tables and seed default templates",
				Flags: []cli.Flag{
					cli.StringFlag{
						Name:  "templates, t",
						Usage: "YAML template catalog to upsert into reminder_templates",
					},
				},
				Action: migrate,
			},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "reminderd: %s\n", err.Error())
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	return cfg, nil
}

func serve(_ *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Component("main")
	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"store":       cfg.StoreDriver,
		"timezone":    cfg.Timezone,
	}).Info("Reminder engine starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer eng.close()

	sched, err := eng.newScheduler(ctx)
	if err != nil {
		return err
	}
	ops := app.NewOpsService(eng.scanners, eng.store, sched, cfg.AdminTelegramID)

	sched.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(ops, logger.Component("httpapi")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("Ops HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Ops HTTP API stopped")
		}
	}()

	if eng.bot != nil {
		telegram.RegisterOpsHandlers(ctx, eng.bot, ops, cfg.AdminTelegramID, logger.Component("telegram"))
		go eng.bot.Start()
		log.Info("Telegram bot started")
	}

	<-ctx.Done()
	log.Info("Shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown")
	}
	if eng.bot != nil {
		eng.bot.Stop()
	}
	sched.Stop()
	log.Info("Application shut down gracefully.")
	return nil
}

func runNow(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	domains := reminder.Domains
	if raw := c.String("domain"); raw != "" {
		d, err := reminder.ParseDomain(raw)
		if err != nil {
			return err
		}
		domains = []reminder.Domain{d}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer eng.close()

	ops := app.NewOpsService(eng.scanners, eng.store, nil, cfg.AdminTelegramID)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, d := range domains {
		runCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.ScanTimeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, cfg.ScanTimeout)
		}
		summary, err := ops.RunNow(runCtx, d)
		cancel()
		if err != nil {
			return fmt.Errorf("%s scan failed: %w", d, err)
		}
		if err := enc.Encode(summary); err != nil {
			return err
		}
	}
	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("migrate requires STORE_DRIVER=postgres")
	}
	ctx := context.Background()
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("could not connect to database: %w", err)
	}
	defer db.Close()
	if err := idb.Migrate(ctx, db); err != nil {
		return err
	}
	log := logger.Component("main")
	log.Info("Schema is up to date")

	if path := c.String("templates"); path != "" {
		catalog, err := templates.LoadFile(path)
		if err != nil {
			return err
		}
		n, err := idb.NewPostgresTemplateRepository(db).ImportCatalog(ctx, catalog)
		if err != nil {
			return err
		}
		log.WithField("templates", n).WithField("file", path).Info("Templates imported")
	}
	return nil
}
