package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"diary/internal/amqp"
	"diary/internal/cli"
	"diary/internal/config"
	dlog "diary/internal/log"
	"diary/internal/services"
	gsheet "diary/internal/sheets/google"
	"diary/internal/storage"
	"diary/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(dlog.ComponentWorker)
	logger.Info("Starting diary-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.SheetsEnabled() {
		logger.Error("Google Sheets disabled - set GOOGLE_SPREADSHEET_ID to run the worker")
		os.Exit(1)
	}

	hour, minute, _ := config.ParseClock(cfg.SheetsRepublishAt)
	loc, _ := time.LoadLocation(cfg.SheetsRepublishLocation)

	// The worker reads the same database the server writes
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", dlog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", dlog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	syncWorker := worker.NewSyncWorker(services.NewReportService(repo, repo), sheetsClient)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	// Catch up on anything missed while the worker was down
	if err := syncWorker.RepublishCurrentYear(ctx, loc); err != nil {
		logger.Error("Startup republish failed", dlog.FieldError, err)
	}

	if err := syncWorker.StartSchedule(ctx, hour, minute, loc); err != nil {
		logger.Error("Failed to schedule daily republish", dlog.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", dlog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		g.Go(func() error {
			err := amqpClient.ConsumeEntryChanges(gctx, syncWorker.HandleEntryChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down worker...")
		cli.RunCleanup(logger, 30*time.Second, func(context.Context) {
			syncWorker.Stop()
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", dlog.FieldError, err)
		os.Exit(1)
	}
}
