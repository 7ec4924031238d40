package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"wdlsync/internal/config"
	"wdlsync/internal/persistence"
	"wdlsync/internal/service"
	"wdlsync/internal/wdl"
	"wdlsync/pkg/log"
)

func main() {
	dbPath := flag.String("db", "", "SQLite database path (overrides WDL_DB_PATH)")
	outDir := flag.String("out", "", "output directory for per-second CSVs (overrides WDL_OUTPUT_DIR)")
	cronExpr := flag.String("cron", "", "cron expression for scheduled syncs (overrides SYNC_CRON_EXPR)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.NewFromEnv(func(c *config.Config) {
		if *dbPath != "" {
			c.Sync.DBPath = *dbPath
		}
		if *outDir != "" {
			c.Sync.OutputDir = *outDir
		}
		if *cronExpr != "" {
			c.Sync.CronExpr = *cronExpr
		}
	})
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	if cfg.Log.File != "" {
		fileLogger, err := log.InitFileLogger(cfg.Log.File, log.ParseLevel(cfg.Log.Level))
		if err != nil {
			log.Fatal("Failed to open log file: %v", err)
		}
		defer fileLogger.Close()
	} else {
		log.InitLogger(log.ParseLevel(cfg.Log.Level))
	}

	store, err := persistence.NewSQLiteStore(cfg.Sync.DBPath)
	if err != nil {
		log.Fatal("Failed to open job header store: %v", err)
	}
	defer store.Close()

	client, err := wdl.NewClient(&wdl.Config{
		APIKey:      cfg.API.APIKey,
		APIURL:      cfg.API.APIURL,
		Timeout:     cfg.API.Timeout,
		MaxAttempts: cfg.API.MaxAttempts,
		RetryDelay:  cfg.API.RetryDelay,
	})
	if err != nil {
		log.Fatal("Failed to create API client: %v", err)
	}

	ctx := context.Background()

	if cfg.Sync.CronExpr == "" {
		svc := service.NewSyncService(*cfg, client, store)
		if _, err := svc.Run(ctx); err != nil {
			log.Error("Sync failed: %v", err)
			os.Exit(1)
		}
		return
	}

	runner := cron.New()
	svc := service.NewRunnableSyncService(*cfg, client, store, runner)
	if err := svc.Schedule(ctx); err != nil {
		log.Fatal("Failed to schedule sync: %v", err)
	}
	runner.Start()
	select {}
}
