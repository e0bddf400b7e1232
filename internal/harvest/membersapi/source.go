// Package membersapi harvests Commons members and their party and seat
// spells from the Parliament Members API.
package membersapi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"civitas/internal/harvest/metrics"
	"civitas/internal/timeline/models"
	dErrors "civitas/pkg/domain-errors"
)

// DefaultBaseURL is the public Members API root.
const DefaultBaseURL = "https://members-api.parliament.uk/api"

// PageSize is the member search page size.
const PageSize = 100

// Getter fetches a URL and decodes its JSON body.
type Getter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Source harvests from the Members API.
type Source struct {
	client         Getter
	baseURL        string
	concurrency    int
	includeHistory bool
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// Option configures a Source.
type Option func(*Source)

func WithBaseURL(url string) Option {
	return func(s *Source) {
		if url != "" {
			s.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithConcurrency bounds in-flight member detail fetches.
func WithConcurrency(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithHistory also consults the dedicated incumbency history endpoint.
func WithHistory(enabled bool) Option {
	return func(s *Source) {
		s.includeHistory = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Source) {
		s.metrics = m
	}
}

// New builds a Source over client.
func New(client Getter, opts ...Option) *Source {
	s := &Source{
		client:      client,
		baseURL:     DefaultBaseURL,
		concurrency: 6,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// memberSpells is what one member contributed.
type memberSpells struct {
	parties []models.SourcedPartySpell
	seats   []models.SourcedSeatSpell
}

// Harvest lists every Commons member and resolves their spells. A failed
// member search aborts the harvest; a failed member detail only drops that
// member's spells.
func (s *Source) Harvest(ctx context.Context) (models.Harvest, error) {
	members, err := s.search(ctx)
	if err != nil {
		return models.Harvest{}, err
	}
	s.logger.InfoContext(ctx, "member search complete", "count", len(members))

	results := make([]memberSpells, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, m := range members {
		if m.MemberID <= 0 {
			continue
		}
		g.Go(func() error {
			spells, err := s.member(gctx, m.MemberID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.metrics.IncrementSkipped()
				s.logger.WarnContext(gctx, "member harvest failed", "member_id", m.MemberID, "error", err)
				return nil
			}
			results[i] = spells
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Harvest{}, dErrors.Wrap(err, dErrors.CodeTimeout, "member harvest interrupted")
	}

	h := models.Harvest{Members: members}
	provenance := make(map[models.Provenance]int)
	for _, r := range results {
		for _, p := range r.parties {
			h.PartySpells = append(h.PartySpells, p.Spell)
			provenance[p.Provenance]++
		}
		for _, ss := range r.seats {
			h.SeatSpells = append(h.SeatSpells, ss.Spell)
		}
	}
	s.logger.InfoContext(ctx, "members api harvest complete",
		"members", len(h.Members),
		"party_spells", len(h.PartySpells),
		"seat_spells", len(h.SeatSpells),
		"party_history", provenance[models.ProvenanceHistory],
		"party_detail", provenance[models.ProvenanceDetail],
		"party_latest", provenance[models.ProvenanceLatest],
	)
	return h, nil
}

// search pages through the member list until a short page.
func (s *Source) search(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	for skip := 0; ; skip += PageSize {
		url := fmt.Sprintf("%s/Members/Search?House=Commons&IsCurrentMember=false&skip=%d&take=%d", s.baseURL, skip, PageSize)
		var page searchPage
		if err := s.client.GetJSON(ctx, url, &page); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "member search failed")
		}
		items := page.members()
		for _, it := range items {
			id, name := it.identity()
			members = append(members, models.Member{MemberID: id, Name: name})
		}
		if len(items) < PageSize {
			return members, nil
		}
	}
}

// member fetches one detail payload and resolves both provenance chains.
func (s *Source) member(ctx context.Context, memberID int) (memberSpells, error) {
	var detail memberDetail
	url := fmt.Sprintf("%s/Members/%d", s.baseURL, memberID)
	if err := s.client.GetJSON(ctx, url, &detail); err != nil {
		return memberSpells{}, err
	}

	var out memberSpells
	if parties, prov, ok := resolve(ctx, s.partyChain(), memberID, detail); ok {
		for _, p := range parties {
			p.Provisional = prov.Provisional()
			out.parties = append(out.parties, models.SourcedPartySpell{Spell: p, Provenance: prov})
		}
	} else {
		s.logger.DebugContext(ctx, "no party spells", "member_id", memberID)
	}
	if seats, prov, ok := resolve(ctx, s.seatChain(), memberID, detail); ok {
		for _, ss := range seats {
			ss.Provisional = prov.Provisional()
			out.seats = append(out.seats, models.SourcedSeatSpell{Spell: ss, Provenance: prov})
		}
	} else {
		s.logger.DebugContext(ctx, "no seat spells", "member_id", memberID)
	}
	return out, nil
}
