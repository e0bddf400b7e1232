package membersapi

import (
	"context"
	"fmt"

	"civitas/internal/harvest/fetch"
	"civitas/internal/timeline/models"
)

// source is one link in a provenance chain. collect returns nil when the
// source has nothing for the member.
type source[T any] struct {
	provenance models.Provenance
	collect    func(ctx context.Context, memberID int, d memberDetail) []T
}

// resolve walks chain in priority order and returns the spells of the first
// source that yields any.
func resolve[T any](ctx context.Context, chain []source[T], memberID int, d memberDetail) ([]T, models.Provenance, bool) {
	for _, src := range chain {
		if spells := src.collect(ctx, memberID, d); len(spells) > 0 {
			return spells, src.provenance, true
		}
	}
	return nil, "", false
}

func (s *Source) partyChain() []source[models.RawPartySpell] {
	return []source[models.RawPartySpell]{
		{provenance: models.ProvenanceHistory, collect: s.partiesFromHistory},
		{provenance: models.ProvenanceDetail, collect: partiesFromDetail},
		{provenance: models.ProvenanceLatest, collect: partyFromLatest},
	}
}

func (s *Source) seatChain() []source[models.RawSeatSpell] {
	chain := make([]source[models.RawSeatSpell], 0, 3)
	if s.includeHistory {
		chain = append(chain, source[models.RawSeatSpell]{provenance: models.ProvenanceHistory, collect: s.seatsFromHistory})
	}
	return append(chain,
		source[models.RawSeatSpell]{provenance: models.ProvenanceDetail, collect: seatsFromDetail},
		source[models.RawSeatSpell]{provenance: models.ProvenanceLatest, collect: seatFromLatest},
	)
}

// partiesFromHistory reads the dedicated /Parties endpoint. Failures fall
// through to the next source.
func (s *Source) partiesFromHistory(ctx context.Context, memberID int, _ memberDetail) []models.RawPartySpell {
	var entries partyList
	url := fmt.Sprintf("%s/Members/%d/Parties", s.baseURL, memberID)
	if err := s.client.GetJSON(ctx, url, &entries); err != nil {
		s.logHistoryMiss(ctx, memberID, "parties", err)
		return nil
	}
	return partySpells(memberID, entries)
}

func (s *Source) seatsFromHistory(ctx context.Context, memberID int, _ memberDetail) []models.RawSeatSpell {
	var entries incumbencyList
	url := fmt.Sprintf("%s/Members/%d/Incumbencies", s.baseURL, memberID)
	if err := s.client.GetJSON(ctx, url, &entries); err != nil {
		s.logHistoryMiss(ctx, memberID, "incumbencies", err)
		return nil
	}
	return seatSpells(memberID, entries)
}

func (s *Source) logHistoryMiss(ctx context.Context, memberID int, endpoint string, err error) {
	if fetch.IsNotFound(err) {
		s.logger.DebugContext(ctx, "no history endpoint data", "member_id", memberID, "endpoint", endpoint)
		return
	}
	s.logger.DebugContext(ctx, "history fetch failed", "member_id", memberID, "endpoint", endpoint, "error", err)
}

func partiesFromDetail(_ context.Context, memberID int, d memberDetail) []models.RawPartySpell {
	var out []models.RawPartySpell
	for _, container := range d.partyContainers() {
		out = append(out, partySpells(memberID, container)...)
	}
	return out
}

// partyFromLatest derives a single spell from the latest party and house
// membership. It is heuristic: any mid-term switch is invisible.
func partyFromLatest(_ context.Context, memberID int, d memberDetail) []models.RawPartySpell {
	lp, lhm := d.latest()
	if lp == nil || lhm == nil || lhm.MembershipStartDate == "" || lp.ID == "" {
		return nil
	}
	return []models.RawPartySpell{{
		MemberID:  memberID,
		PartyID:   string(lp.ID),
		PartyName: first(lp.Name, lp.Abbreviation, lp.ID),
		Start:     string(lhm.MembershipStartDate),
		End:       string(lhm.MembershipEndDate),
	}}
}

func seatsFromDetail(_ context.Context, memberID int, d memberDetail) []models.RawSeatSpell {
	return seatSpells(memberID, d.incumbencies())
}

func seatFromLatest(_ context.Context, memberID int, d memberDetail) []models.RawSeatSpell {
	_, lhm := d.latest()
	if lhm == nil || lhm.MembershipStartDate == "" || lhm.MembershipFromID == "" {
		return nil
	}
	return []models.RawSeatSpell{{
		MemberID:         memberID,
		ConstituencyID:   string(lhm.MembershipFromID),
		ConstituencyName: first(lhm.MembershipFrom, lhm.MembershipFromID),
		Start:            string(lhm.MembershipStartDate),
		End:              string(lhm.MembershipEndDate),
	}}
}

// partySpells keeps entries that carry an id, a name and a start.
func partySpells(memberID int, entries []partyEntry) []models.RawPartySpell {
	var out []models.RawPartySpell
	for _, e := range entries {
		id, name, start, end := e.fields()
		if id == "" || name == "" || start == "" {
			continue
		}
		out = append(out, models.RawPartySpell{
			MemberID:  memberID,
			PartyID:   id,
			PartyName: name,
			Start:     start,
			End:       end,
		})
	}
	return out
}

func seatSpells(memberID int, entries []incumbency) []models.RawSeatSpell {
	var out []models.RawSeatSpell
	for _, inc := range entries {
		id, name, start, end := inc.fields()
		if id == "" || name == "" || start == "" {
			continue
		}
		out = append(out, models.RawSeatSpell{
			MemberID:         memberID,
			ConstituencyID:   id,
			ConstituencyName: name,
			Start:            start,
			End:              end,
		})
	}
	return out
}
