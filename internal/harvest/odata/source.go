// Package odata harvests Commons memberships from the Members Data Platform
// bulk XML listing.
//
// The listing carries one row per incumbency with the member's party for that
// row only, so seat spells are reliable but party switches inside one
// continuous tenure are invisible.
package odata

import (
	"cmp"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"civitas/internal/harvest/fetch"
	"civitas/internal/timeline/models"
	dErrors "civitas/pkg/domain-errors"
	pstrings "civitas/pkg/platform/strings"
)

// DefaultURL lists every Commons membership, current and historical.
const DefaultURL = "https://data.parliament.uk/membersdataplatform/services/mnis/members/query/House=Commons|Membership=All/"

// Fetcher returns the raw body of a URL.
type Fetcher interface {
	Get(ctx context.Context, url, ext, accept string) ([]byte, error)
}

// Source harvests from the bulk listing.
type Source struct {
	client Fetcher
	url    string
	logger *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

func WithURL(url string) Option {
	return func(s *Source) {
		if url != "" {
			s.url = url
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(client Fetcher, opts ...Option) *Source {
	s := &Source{client: client, url: DefaultURL, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Harvest fetches and parses the listing.
func (s *Source) Harvest(ctx context.Context) (models.Harvest, error) {
	s.logger.InfoContext(ctx, "fetching bulk commons membership list", "url", s.url)
	body, err := s.client.Get(ctx, s.url, "xml", fetch.AcceptXML)
	if err != nil {
		return models.Harvest{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "membership listing fetch failed")
	}
	rows, err := Parse(body)
	if err != nil {
		return models.Harvest{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "membership listing unreadable")
	}
	s.logger.InfoContext(ctx, "parsed membership rows", "rows", len(rows))
	return Build(rows), nil
}

// Row is one Commons incumbency from the listing.
type Row struct {
	MemberID   int
	DisplayAs  string
	PartyID    string
	PartyName  string
	MemberFrom string
	Start      string
	End        string
}

type listing struct {
	Members []member `xml:"Member"`
}

type member struct {
	ID         string `xml:"Member_Id,attr"`
	DisplayAs  string `xml:"DisplayAs"`
	Party      party  `xml:"Party"`
	House      string `xml:"House"`
	MemberFrom string `xml:"MemberFrom"`
	Start      string `xml:"HouseStartDate"`
	End        string `xml:"HouseEndDate"`
}

type party struct {
	ID   string `xml:"Id,attr"`
	Name string `xml:",chardata"`
}

// Parse reads the listing, keeping Commons rows that carry a member id and a
// start date. Nil end dates decode as "".
func Parse(body []byte) ([]Row, error) {
	var l listing
	if err := xml.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("decode membership listing: %w", err)
	}
	rows := make([]Row, 0, len(l.Members))
	for _, m := range l.Members {
		id, err := strconv.Atoi(strings.TrimSpace(m.ID))
		if err != nil || id == 0 {
			continue
		}
		if strings.TrimSpace(m.House) != "Commons" {
			continue
		}
		start := strings.TrimSpace(m.Start)
		if start == "" {
			continue
		}
		r := Row{
			MemberID:   id,
			DisplayAs:  strings.TrimSpace(m.DisplayAs),
			PartyID:    pstrings.FirstNonEmpty(m.Party.ID, "unknown"),
			PartyName:  pstrings.FirstNonEmpty(m.Party.Name, "Unknown"),
			MemberFrom: strings.TrimSpace(m.MemberFrom),
			Start:      start,
			End:        strings.TrimSpace(m.End),
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// Build turns rows into a harvest. Members are unique by id (first row wins),
// constituency ids are slugs of their names, and consecutive rows for the
// same member and party collapse into one party spell.
func Build(rows []Row) models.Harvest {
	var h models.Harvest
	seen := make(map[int]struct{})
	for _, r := range rows {
		if _, ok := seen[r.MemberID]; !ok {
			seen[r.MemberID] = struct{}{}
			h.Members = append(h.Members, models.Member{MemberID: r.MemberID, Name: r.DisplayAs})
		}

		name := pstrings.FirstNonEmpty(r.MemberFrom, "Unknown")
		constituencyID := pstrings.Slugify(name)
		if constituencyID == "" {
			constituencyID = fmt.Sprintf("constituency-%d", r.MemberID)
		}
		h.SeatSpells = append(h.SeatSpells, models.RawSeatSpell{
			MemberID:         r.MemberID,
			ConstituencyID:   constituencyID,
			ConstituencyName: name,
			Start:            r.Start,
			End:              r.End,
		})
		h.PartySpells = append(h.PartySpells, models.RawPartySpell{
			MemberID:  r.MemberID,
			PartyID:   r.PartyID,
			PartyName: r.PartyName,
			Start:     r.Start,
			End:       r.End,
		})
	}
	h.PartySpells = collapse(h.PartySpells)
	return h
}

// collapse merges a party spell into its predecessor when both belong to the
// same member and party and the predecessor is open or ends where the next
// begins. Timestamps share one format within the listing, so string order is
// date order.
func collapse(spells []models.RawPartySpell) []models.RawPartySpell {
	slices.SortStableFunc(spells, func(a, b models.RawPartySpell) int {
		return cmp.Or(cmp.Compare(a.MemberID, b.MemberID), cmp.Compare(a.Start, b.Start))
	})
	out := make([]models.RawPartySpell, 0, len(spells))
	for _, ps := range spells {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if prev.MemberID == ps.MemberID && prev.PartyID == ps.PartyID && (prev.End == "" || prev.End == ps.Start) {
				switch {
				case prev.End == "":
				case ps.End == "":
					prev.End = ""
				case ps.End > prev.End:
					prev.End = ps.End
				}
				continue
			}
		}
		out = append(out, ps)
	}
	return out
}
