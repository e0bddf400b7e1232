package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"civitas/internal/harvest"
	"civitas/internal/harvest/cache"
	harvestmetrics "civitas/internal/harvest/metrics"
	"civitas/internal/platform/config"
	platformmetrics "civitas/internal/platform/metrics"
	"civitas/internal/platform/redis"
	timelinemetrics "civitas/internal/timeline/metrics"
	"civitas/internal/timeline/models"
	"civitas/internal/timeline/service"
	"civitas/internal/timeline/store"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Harvest membership data and write events and snapshots",
	Long: `Harvest Commons membership records (or read them from --input), derive
the event stream and chamber snapshots, and write them to the output
directory and, when configured, Postgres.`,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&flags.since, "since", "", "Drop spells ending before this date (yyyy-mm-dd)")
	f.StringVar(&flags.granularity, "granularity", "", "Snapshot granularity: events, monthly, both")
	f.BoolVar(&flags.mergeLabourCoop, "merge-labour-coop", false, "Map Labour Co-operative label variants to the single labour_coop party")
	f.StringVar(&flags.electionsFile, "elections-file", "", "YAML general election calendar")
	f.StringVar(&flags.source, "source", "", "Harvest source: membersApi or odata")
	f.StringVar(&flags.cacheDir, "cache-dir", "", "Directory for cached upstream responses")
	f.StringVar(&flags.redisURL, "redis-url", "", "Cache upstream responses in Redis instead of on disk")
	f.BoolVar(&flags.forceRefresh, "force-refresh", false, "Ignore cached responses")
	f.IntVar(&flags.maxConcurrency, "max-concurrency", 0, "Concurrent member detail fetches")
	f.BoolVar(&flags.includeHistory, "include-history", false, "Fetch dedicated history endpoints")
	f.StringVar(&flags.input, "input", "", "Build from a harvest JSON file instead of harvesting")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := platformmetrics.NewRegistry()
	stores := []service.ArtifactStore{store.NewFileStore(cfg.Output.Dir)}
	db, pg, err := openPostgres(ctx, cfg.Output)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		stores = append(stores, pg)
	}

	var src service.Harvester
	if flags.input == "" {
		cacheStore, closeCache, err := openCache(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeCache()
		src, err = harvest.New(cfg.Harvest, cacheStore, log, harvestmetrics.New(reg))
		if err != nil {
			return err
		}
	}

	pipeline, err := service.New(cfg.Timeline, src,
		service.WithLogger(log),
		service.WithMetrics(timelinemetrics.New(reg)),
		service.WithStores(stores...),
	)
	if err != nil {
		return err
	}

	var summary service.Summary
	if flags.input != "" {
		h, err := readHarvest(flags.input)
		if err != nil {
			return err
		}
		summary, err = pipeline.Build(ctx, h)
		if err != nil {
			return err
		}
	} else {
		summary, err = pipeline.Run(ctx)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// openCache picks Redis when a URL is configured, otherwise the cache
// directory.
func openCache(ctx context.Context, cfg config.Config, log *slog.Logger) (cache.Store, func(), error) {
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if rc != nil {
		log.InfoContext(ctx, "caching responses in redis")
		return cache.NewRedisStore(rc.Client, cfg.Redis.TTL), func() { _ = rc.Close() }, nil
	}
	fs, err := cache.NewFileStore(cfg.Harvest.CacheDir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

func readHarvest(path string) (models.Harvest, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied input path
	if err != nil {
		return models.Harvest{}, fmt.Errorf("read input: %w", err)
	}
	var h models.Harvest
	if err := json.Unmarshal(raw, &h); err != nil {
		return models.Harvest{}, fmt.Errorf("decode input %s: %w", path, err)
	}
	return h, nil
}
