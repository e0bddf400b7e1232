package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Harvester,ArtifactStore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"civitas/internal/platform/config"
	"civitas/internal/timeline/metrics"
	"civitas/internal/timeline/models"
	"civitas/internal/timeline/service/mocks"
	dErrors "civitas/pkg/domain-errors"
)

var fixedNow = time.Date(2024, 9, 1, 12, 0, 0, 0, time.FixedZone("BST", 3600))

func sampleHarvest() models.Harvest {
	return models.Harvest{
		Members: []models.Member{{MemberID: 1, Name: "Alice"}, {MemberID: 2, Name: "Bob"}},
		PartySpells: []models.RawPartySpell{
			{MemberID: 1, PartyID: "lab", PartyName: "Labour", Start: "2019-12-12"},
			{MemberID: 2, PartyID: "con", PartyName: "Conservative", Start: "2019-12-12", End: "2021-03-01"},
			{MemberID: 2, PartyID: "ind", PartyName: "Independent", Start: "2021-03-01"},
		},
		SeatSpells: []models.RawSeatSpell{
			{MemberID: 1, ConstituencyID: "a", ConstituencyName: "Aston", Start: "2019-12-12"},
			{MemberID: 2, ConstituencyID: "b", ConstituencyName: "Bury", Start: "2019-12-12"},
		},
	}
}

// =============================================================================
// Pipeline Test Suite
// =============================================================================

type PipelineSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	harvester *mocks.MockHarvester
	store     *mocks.MockArtifactStore
	metrics   *metrics.Metrics
	pipeline  *Pipeline
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.harvester = mocks.NewMockHarvester(s.ctrl)
	s.store = mocks.NewMockArtifactStore(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.pipeline = s.newPipeline(config.Timeline{Since: "2019-01-01", Granularity: config.GranularityEvents})
}

func (s *PipelineSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *PipelineSuite) newPipeline(cfg config.Timeline, opts ...Option) *Pipeline {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return fixedNow }),
		WithStores(s.store),
		WithCalendar([]models.Election{
			{Date: models.MustParseDate("2019-12-12"), Label: "2019 General Election"},
		}),
	}
	p, err := New(cfg, s.harvester, append(base, opts...)...)
	s.Require().NoError(err)
	return p
}

func (s *PipelineSuite) TestNew() {
	s.Run("invalid since is a validation error", func() {
		_, err := New(config.Timeline{Since: "soon"}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing elections file is a validation error", func() {
		_, err := New(config.Timeline{
			Since:         "2005-01-01",
			ElectionsFile: filepath.Join(s.T().TempDir(), "missing.yaml"),
		}, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("defaults to the built-in calendar", func() {
		p, err := New(config.Timeline{Since: "2005-01-01"}, nil)
		s.Require().NoError(err)
		s.NotEmpty(p.calendar)
		s.NotNil(p.logger)
	})
}

func (s *PipelineSuite) TestRun() {
	ctx := context.Background()

	s.Run("persists the built run and summarizes it", func() {
		var saved models.Run
		s.harvester.EXPECT().Harvest(gomock.Any()).Return(sampleHarvest(), nil)
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, run models.Run) error {
				saved = run
				return nil
			})

		summary, err := s.pipeline.Run(ctx)
		s.Require().NoError(err)

		_, parseErr := uuid.Parse(summary.RunID)
		s.NoError(parseErr)
		s.Equal(summary.RunID, saved.ID)
		s.Equal(fixedNow.UTC(), summary.GeneratedAt)
		s.Equal(2, summary.Members)
		s.Equal(2, summary.Events)
		s.Equal(2, summary.Snapshots)
		s.Equal(0, summary.Diagnostics)

		s.Require().Len(saved.Events, 2)
		s.Equal(models.EventGeneralElection, saved.Events[0].Type)
		s.Equal(models.EventPartySwitch, saved.Events[1].Type)
		s.Require().Len(saved.Snapshots, 2)
		s.Equal("official-parliament-2019-12-12.json", saved.Snapshots[0].Name)
		s.Equal(fixedNow.UTC(), saved.Snapshots[1].Snapshot.Meta.GeneratedAt)
		s.Equal(map[string]int{"lab": 1, "ind": 1}, saved.Snapshots[1].Snapshot.Parties)
		s.Len(saved.Index, 2)

		s.Equal(1.0, promtest.ToFloat64(s.metrics.RunsTotal.WithLabelValues(outcomeOK)))
		s.Equal(1.0, promtest.ToFloat64(s.metrics.Events.WithLabelValues("partySwitch")))
	})

	s.Run("harvest failure stops the run before persisting", func() {
		s.harvester.EXPECT().Harvest(gomock.Any()).Return(models.Harvest{}, errors.New("upstream down"))

		_, err := s.pipeline.Run(ctx)
		s.ErrorContains(err, "upstream down")
		s.Equal(1.0, promtest.ToFloat64(s.metrics.RunsTotal.WithLabelValues(outcomeHarvestError)))
	})

	s.Run("without a harvester", func() {
		p, err := New(config.Timeline{Since: "2005-01-01"}, nil)
		s.Require().NoError(err)
		_, err = p.Run(ctx)
		s.Error(err)
	})
}

func (s *PipelineSuite) TestBuild() {
	ctx := context.Background()

	s.Run("store failure is returned", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		_, err := s.pipeline.Build(ctx, sampleHarvest())
		s.ErrorContains(err, "disk full")
		s.Equal(1.0, promtest.ToFloat64(s.metrics.RunsTotal.WithLabelValues(outcomePersistError)))
	})

	s.Run("empty input yields an empty run without error", func() {
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, run models.Run) error {
				s.Empty(run.Events)
				s.Empty(run.Snapshots)
				s.Empty(run.Index)
				return nil
			})

		summary, err := s.pipeline.Build(ctx, models.Harvest{})
		s.Require().NoError(err)
		s.Zero(summary.Events)
		s.Zero(summary.Snapshots)
	})

	s.Run("overlapping spells are counted as diagnostics only", func() {
		h := sampleHarvest()
		h.SeatSpells = append(h.SeatSpells, models.RawSeatSpell{
			MemberID: 1, ConstituencyID: "c", ConstituencyName: "Crewe", Start: "2020-06-01",
		})
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		summary, err := s.pipeline.Build(ctx, h)
		s.Require().NoError(err)
		s.Equal(1, summary.Diagnostics)
		s.Equal(1.0, promtest.ToFloat64(s.metrics.Diagnostics.WithLabelValues("seat", "overlap")))
	})

	s.Run("monthly granularity adds month boundary snapshots", func() {
		p := s.newPipeline(config.Timeline{Since: "2019-01-01", Granularity: config.GranularityBoth})
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		summary, err := p.Build(ctx, sampleHarvest())
		s.Require().NoError(err)
		s.Greater(summary.Snapshots, summary.Events)
	})

	s.Run("party aliases are applied before events are derived", func() {
		p := s.newPipeline(config.Timeline{
			Since:        "2019-01-01",
			Granularity:  config.GranularityEvents,
			PartyAliases: map[string]string{"ind": "con"},
		})
		var saved models.Run
		s.store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, run models.Run) error {
				saved = run
				return nil
			})

		_, err := p.Build(ctx, sampleHarvest())
		s.Require().NoError(err)
		for _, e := range saved.Events {
			s.NotEqual(models.EventPartySwitch, e.Type)
		}
	})
}
