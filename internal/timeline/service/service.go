// Package service runs the timeline pipeline end to end: harvest, normalize,
// validate, derive events, replay snapshots, and persist the run.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"civitas/internal/platform/config"
	"civitas/internal/timeline/elections"
	"civitas/internal/timeline/events"
	"civitas/internal/timeline/metrics"
	"civitas/internal/timeline/models"
	"civitas/internal/timeline/normalize"
	"civitas/internal/timeline/snapshots"
	"civitas/internal/timeline/validate"
	dErrors "civitas/pkg/domain-errors"
)

// maxDiagnosticLines caps how many findings per category reach the log.
const maxDiagnosticLines = 10

// Run outcomes recorded in metrics.
const (
	outcomeOK           = "ok"
	outcomeHarvestError = "harvest_error"
	outcomePersistError = "persist_error"
)

// Harvester supplies raw records.
type Harvester interface {
	Harvest(ctx context.Context) (models.Harvest, error)
}

// ArtifactStore persists a finished run.
type ArtifactStore interface {
	Save(ctx context.Context, run models.Run) error
}

// Summary describes one finished run.
type Summary struct {
	RunID       string          `json:"runId"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Members     int             `json:"members"`
	PartySpells int             `json:"partySpells"`
	SeatSpells  int             `json:"seatSpells"`
	Stats       normalize.Stats `json:"stats"`
	Diagnostics int             `json:"diagnostics"`
	Events      int             `json:"events"`
	Snapshots   int             `json:"snapshots"`
}

// Pipeline wires the four timeline stages to a harvester and artifact stores.
type Pipeline struct {
	harvester Harvester
	stores    []ArtifactStore
	normalize normalize.Config
	since     models.Date
	monthly   bool
	calendar  []models.Election
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	clock     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClock sets the time source for generatedAt.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithStores adds artifact stores. Every store receives every run.
func WithStores(stores ...ArtifactStore) Option {
	return func(p *Pipeline) {
		for _, s := range stores {
			if s != nil {
				p.stores = append(p.stores, s)
			}
		}
	}
}

// WithCalendar replaces the general election calendar, taking precedence
// over the configured elections file.
func WithCalendar(calendar []models.Election) Option {
	return func(p *Pipeline) {
		if calendar != nil {
			p.calendar = calendar
		}
	}
}

// New builds a pipeline from timeline configuration. harvester may be nil when
// only Build is used.
func New(cfg config.Timeline, harvester Harvester, opts ...Option) (*Pipeline, error) {
	since, ok := models.ParseDate(cfg.Since)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid since date %q", cfg.Since))
	}
	p := &Pipeline{
		harvester: harvester,
		normalize: normalize.Config{
			Since:           since,
			MergeLabourCoop: cfg.MergeLabourCoop,
			PartyAliases:    cfg.PartyAliases,
		},
		since:   since,
		monthly: cfg.Monthly(),
		logger:  slog.Default(),
		tracer:  otel.Tracer("civitas/timeline/service"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.calendar == nil {
		calendar, err := loadCalendar(cfg.ElectionsFile)
		if err != nil {
			return nil, err
		}
		p.calendar = calendar
	}
	return p, nil
}

func loadCalendar(path string) ([]models.Election, error) {
	if path == "" {
		return elections.Baseline(), nil
	}
	calendar, err := elections.LoadFile(path)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "load elections file")
	}
	return calendar, nil
}

// Run harvests and then builds.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if p.harvester == nil {
		return Summary{}, errors.New("pipeline has no harvester")
	}
	hctx, span := p.tracer.Start(ctx, "timeline.harvest")
	start := time.Now()
	h, err := p.harvester.Harvest(hctx)
	p.metrics.ObserveStage("harvest", time.Since(start))
	span.End()
	if err != nil {
		p.metrics.IncrementRun(outcomeHarvestError)
		return Summary{}, fmt.Errorf("harvest: %w", err)
	}
	p.logger.InfoContext(ctx, "harvest complete",
		"members", len(h.Members),
		"party_spells", len(h.PartySpells),
		"seat_spells", len(h.SeatSpells),
	)
	return p.Build(ctx, h)
}

// Build runs every stage after harvesting. Empty or fully invalid input
// produces an empty run, not an error.
func (p *Pipeline) Build(ctx context.Context, h models.Harvest) (Summary, error) {
	ctx, span := p.tracer.Start(ctx, "timeline.build")
	defer span.End()

	runID := uuid.NewString()
	generatedAt := p.clock().UTC()
	logger := p.logger.With("run_id", runID)
	span.SetAttributes(attribute.String("run_id", runID))

	var norm normalize.Result
	p.stage(ctx, "normalize", func(context.Context) {
		norm = normalize.Normalize(h, p.normalize)
	})
	p.recordStats(ctx, logger, norm.Stats)

	diagnostics := 0
	p.stage(ctx, "validate", func(ctx context.Context) {
		diagnostics += p.report(ctx, logger, "party", validate.Check("party", norm.PartySpells))
		diagnostics += p.report(ctx, logger, "seat", validate.Check("seat", norm.SeatSpells))
	})

	var evs []models.Event
	p.stage(ctx, "events", func(context.Context) {
		evs = events.Build(events.Input{
			PartySpells: norm.PartySpells,
			SeatSpells:  norm.SeatSpells,
			Elections:   p.calendar,
			Since:       p.since,
		})
	})
	for _, e := range evs {
		p.metrics.IncrementEvent(e.Type.String())
	}

	var snaps snapshots.Result
	p.stage(ctx, "snapshots", func(context.Context) {
		snaps = snapshots.Build(norm.Normalized, evs,
			snapshots.WithMonthly(p.monthly),
			snapshots.WithClock(func() time.Time { return generatedAt }),
		)
	})
	p.metrics.AddSnapshots(len(snaps.Snapshots))
	if len(evs) == 0 {
		logger.WarnContext(ctx, "no events derived; run is empty")
	}

	files := snapshots.Files(snaps.Snapshots)
	run := models.Run{
		ID:          runID,
		GeneratedAt: generatedAt,
		Normalized:  norm.Normalized,
		Events:      evs,
		Snapshots:   files,
		Index:       snapshots.Index(files),
	}

	var err error
	p.stage(ctx, "persist", func(ctx context.Context) {
		err = p.persist(ctx, run)
	})
	if err != nil {
		p.metrics.IncrementRun(outcomePersistError)
		span.RecordError(err)
		return Summary{}, err
	}
	p.metrics.IncrementRun(outcomeOK)

	summary := Summary{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Members:     len(norm.Members),
		PartySpells: len(norm.PartySpells),
		SeatSpells:  len(norm.SeatSpells),
		Stats:       norm.Stats,
		Diagnostics: diagnostics,
		Events:      len(evs),
		Snapshots:   len(files),
	}
	logger.InfoContext(ctx, "timeline built",
		"members", summary.Members,
		"events", summary.Events,
		"snapshots", summary.Snapshots,
		"diagnostics", summary.Diagnostics,
	)
	return summary, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context)) {
	ctx, span := p.tracer.Start(ctx, "timeline."+name)
	defer span.End()
	start := time.Now()
	fn(ctx)
	p.metrics.ObserveStage(name, time.Since(start))
}

func (p *Pipeline) persist(ctx context.Context, run models.Run) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range p.stores {
		g.Go(func() error {
			return s.Save(ctx, run)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("persist run: %w", err)
	}
	return nil
}

func (p *Pipeline) recordStats(ctx context.Context, logger *slog.Logger, s normalize.Stats) {
	for _, k := range []struct {
		kind  string
		stats normalize.KindStats
	}{{"party", s.Party}, {"seat", s.Seat}} {
		p.metrics.AddDropped(k.kind, "invalid", k.stats.Invalid)
		p.metrics.AddDropped(k.kind, "unparseable_start", k.stats.UnparseableStart)
		p.metrics.AddDropped(k.kind, "duplicate", k.stats.Duplicate)
		p.metrics.AddDropped(k.kind, "before_since", k.stats.BeforeSince)
		logger.InfoContext(ctx, "normalized spells",
			"kind", k.kind,
			"input", k.stats.Input,
			"output", k.stats.Output,
			"dropped", k.stats.Dropped(),
			"before_since", k.stats.BeforeSince,
			"open_ended_by_bad_end", k.stats.UnparseableEnd,
		)
	}
	p.metrics.AddDropped("member", "invalid", s.InvalidMembers)
	p.metrics.AddDropped("member", "duplicate", s.DuplicateMembers)
}

// report logs a validation report at WARN, at most maxDiagnosticLines per
// category, and returns the number of findings.
func (p *Pipeline) report(ctx context.Context, logger *slog.Logger, kind string, r validate.Report) int {
	total := 0
	for _, c := range []struct {
		category string
		lines    []string
	}{
		{"negative_duration", r.NegativeDurations},
		{"overlap", r.Overlaps},
		{"gap", r.Gaps},
	} {
		total += len(c.lines)
		p.metrics.AddDiagnostics(kind, c.category, len(c.lines))
		for i, line := range c.lines {
			if i == maxDiagnosticLines {
				logger.WarnContext(ctx, "further diagnostics elided",
					"kind", kind, "category", c.category, "count", len(c.lines)-maxDiagnosticLines)
				break
			}
			logger.WarnContext(ctx, line, "kind", kind, "category", c.category)
		}
	}
	return total
}
