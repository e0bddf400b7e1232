package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"civitas/internal/platform/config"
	"civitas/internal/platform/logger"
	"civitas/internal/platform/postgres"
	"civitas/internal/timeline/store"
	dErrors "civitas/pkg/domain-errors"
)

// cliFlags holds every flag value; a flag only overrides configuration when
// it was set explicitly.
type cliFlags struct {
	configPath      string
	logLevel        string
	logFormat       string
	outputDir       string
	databaseURL     string
	since           string
	granularity     string
	mergeLabourCoop bool
	electionsFile   string
	source          string
	cacheDir        string
	redisURL        string
	forceRefresh    bool
	maxConcurrency  int
	includeHistory  bool
	input           string
	addr            string
}

var flags cliFlags

// loadConfig resolves defaults, the YAML file, the environment, then flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := flags.configPath
	if path == "" {
		path = os.Getenv("CIVITAS_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, dErrors.Wrap(err, dErrors.CodeValidation, "load configuration")
	}

	changed := cmd.Flags().Changed
	set := func(name string, apply func()) {
		if changed(name) {
			apply()
		}
	}
	set("log-level", func() { cfg.Log.Level = flags.logLevel })
	set("log-format", func() { cfg.Log.Format = flags.logFormat })
	set("output-dir", func() { cfg.Output.Dir = flags.outputDir })
	set("database-url", func() { cfg.Output.DatabaseURL = flags.databaseURL })
	set("since", func() { cfg.Timeline.Since = flags.since })
	set("granularity", func() { cfg.Timeline.Granularity = flags.granularity })
	set("merge-labour-coop", func() { cfg.Timeline.MergeLabourCoop = flags.mergeLabourCoop })
	set("elections-file", func() { cfg.Timeline.ElectionsFile = flags.electionsFile })
	set("source", func() { cfg.Harvest.Source = flags.source })
	set("cache-dir", func() { cfg.Harvest.CacheDir = flags.cacheDir })
	set("redis-url", func() { cfg.Redis.URL = flags.redisURL })
	set("force-refresh", func() { cfg.Harvest.ForceRefresh = flags.forceRefresh })
	set("max-concurrency", func() { cfg.Harvest.MaxConcurrency = flags.maxConcurrency })
	set("include-history", func() { cfg.Harvest.IncludeHistory = flags.includeHistory })
	set("addr", func() { cfg.Server.Addr = flags.addr })

	if err := cfg.Validate(); err != nil {
		return config.Config{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid configuration")
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	return log
}

// openPostgres opens and migrates the run database. It returns nil when no
// database is configured.
func openPostgres(ctx context.Context, cfg config.Output) (*sql.DB, *store.PostgresStore, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, nil
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "open database")
	}
	pg := store.NewPostgresStore(db)
	if err := pg.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, pg, nil
}
