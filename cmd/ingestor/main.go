package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"stockfeed/config"
	"stockfeed/internal/ingest"
	"stockfeed/internal/scheduler"
	"stockfeed/logger"
	"stockfeed/pkg/storage/postgres"
	"stockfeed/pkg/yahoo"

	"go.uber.org/zap"
)

func main() {
	days := flag.Int("days", 0, "lookback window in days (0 = configured default)")
	symbol := flag.String("symbol", "", "restrict the run to a single ticker")
	dryRun := flag.Bool("dry-run", false, "fetch and report without writing to the database")
	daemon := flag.Bool("daemon", false, "keep running and ingest on the configured cron schedule")
	flag.Parse()

	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize PostgreSQL client and run migrations
	client, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, true, log)
	if err != nil {
		log.Fatal("failed to connect to DB", zap.Error(err))
	}
	defer client.Close()

	// Wire the pipeline: provider -> fetcher -> detector -> orchestrator
	provider := yahoo.NewClient(cfg.Provider)
	fetcher := ingest.NewRangeFetcher(provider, cfg.Ingest, log)
	detector := ingest.NewGapDetector(client, log)
	orchestrator := ingest.NewOrchestrator(client, detector, fetcher, client, cfg.Ingest, log)

	opts := ingest.Options{
		Symbol:       *symbol,
		LookbackDays: *days,
		DryRun:       *dryRun,
	}

	if !*daemon {
		runOnce(orchestrator, opts, log)
		return
	}

	sched := scheduler.New(orchestrator, opts, log)
	if err := sched.Register(cfg.Schedule.IngestCron); err != nil {
		log.Fatal("failed to register cron task", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		go sched.RunNow()
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping")
}

func runOnce(orchestrator *ingest.Orchestrator, opts ingest.Options, log *zap.Logger) {
	summary, err := orchestrator.Run(context.Background(), opts)
	if err != nil {
		log.Fatal("ingestion run failed", zap.Error(err))
	}

	for _, res := range summary.Results {
		log.Info("symbol result",
			zap.String("symbol", res.Symbol),
			zap.String("status", string(res.Status)),
			zap.Int("gaps", res.Gaps),
			zap.Int("gaps_failed", res.GapsFailed),
			zap.Int("imported", res.Imported),
		)
	}
	log.Info("run summary",
		zap.Int("symbols", len(summary.Results)),
		zap.Int("failed_symbols", summary.FailedSymbols()),
		zap.Int("imported", summary.Imported()),
		zap.Bool("dry_run", summary.DryRun),
	)
}
