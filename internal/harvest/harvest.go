// Package harvest collects raw member, party and seat records from upstream
// Parliament data services.
package harvest

import (
	"context"
	"fmt"
	"log/slog"

	"civitas/internal/harvest/cache"
	"civitas/internal/harvest/fetch"
	"civitas/internal/harvest/membersapi"
	"civitas/internal/harvest/metrics"
	"civitas/internal/harvest/odata"
	"civitas/internal/platform/config"
	"civitas/internal/timeline/models"
)

// Source produces a raw harvest. Party aliases are not applied here.
type Source interface {
	Harvest(ctx context.Context) (models.Harvest, error)
}

// New builds the source named by cfg.Source over a fetch client that caches
// into store.
func New(cfg config.Harvest, store cache.Store, logger *slog.Logger, m *metrics.Metrics) (Source, error) {
	client := fetch.New(
		fetch.WithHTTPClient(fetch.DefaultHTTPClient(cfg.RequestTimeout)),
		fetch.WithCache(store),
		fetch.WithForceRefresh(cfg.ForceRefresh),
		fetch.WithRateLimit(cfg.RequestsPerSecond),
		fetch.WithRetries(cfg.MaxRetries, 0),
		fetch.WithLogger(logger),
		fetch.WithMetrics(m),
	)

	switch cfg.Source {
	case config.SourceMembersAPI:
		return membersapi.New(client,
			membersapi.WithBaseURL(cfg.MembersAPIBaseURL),
			membersapi.WithConcurrency(cfg.MaxConcurrency),
			membersapi.WithHistory(cfg.IncludeHistory),
			membersapi.WithLogger(logger),
			membersapi.WithMetrics(m),
		), nil
	case config.SourceOData:
		return odata.New(client,
			odata.WithURL(cfg.ODataURL),
			odata.WithLogger(logger),
		), nil
	default:
		return nil, fmt.Errorf("unknown harvest source %q", cfg.Source)
	}
}
