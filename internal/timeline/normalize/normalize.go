// Package normalize turns harvested spell records into the canonical spell
// set: resolved dates, start-ordered, party labels collapsed, and trimmed to
// the configured since cutoff.
//
// Normalize is pure domain logic. Malformed records are dropped and counted
// in Stats rather than reported as errors.
package normalize

import (
	"cmp"
	"slices"

	"civitas/internal/timeline/models"
)

// Config controls the optional transforms.
type Config struct {
	// Since drops spells that ended before this date. Zero keeps everything.
	Since models.Date
	// MergeLabourCoop folds Labour Co-operative label variants into one party.
	MergeLabourCoop bool
	// PartyAliases maps an original party id to its canonical id.
	PartyAliases map[string]string
}

// KindStats counts what happened to one kind of spell.
type KindStats struct {
	Input            int `json:"input"`
	Invalid          int `json:"invalid"`
	UnparseableStart int `json:"unparseableStart"`
	UnparseableEnd   int `json:"unparseableEnd"`
	Duplicate        int `json:"duplicate"`
	BeforeSince      int `json:"beforeSince"`
	Output           int `json:"output"`
}

// Dropped is the number of records removed for being malformed or repeated.
func (k KindStats) Dropped() int {
	return k.Invalid + k.UnparseableStart + k.Duplicate
}

// Stats summarizes a normalization run for diagnostics.
type Stats struct {
	Party            KindStats `json:"party"`
	Seat             KindStats `json:"seat"`
	InvalidMembers   int       `json:"invalidMembers"`
	DuplicateMembers int       `json:"duplicateMembers"`
}

// Result is the normalized data plus the counters gathered producing it.
type Result struct {
	models.Normalized
	Stats Stats
}

// Normalize canonicalizes a harvest. Output spells are sorted by start
// (stable), carry only resolvable dates, and normalizing the output again
// yields the same output.
func Normalize(h models.Harvest, cfg Config) Result {
	var stats Stats

	partySpells := resolvePartySpells(h.PartySpells, &stats.Party)
	seatSpells := resolveSeatSpells(h.SeatSpells, &stats.Seat)

	if cfg.MergeLabourCoop {
		partySpells = mergeLabourCoop(partySpells)
	}
	partySpells = applyAliases(partySpells, cfg.PartyAliases)

	partySpells = dedupeSpells(partySpells, partyKeyOf, &stats.Party)
	seatSpells = dedupeSpells(seatSpells, seatKeyOf, &stats.Seat)

	partySpells = keepSince(partySpells, cfg.Since, &stats.Party)
	seatSpells = keepSince(seatSpells, cfg.Since, &stats.Seat)
	stats.Party.Output = len(partySpells)
	stats.Seat.Output = len(seatSpells)

	members := dedupeMembers(h.Members, &stats)

	return Result{
		Normalized: models.Normalized{
			Members:        members,
			PartySpells:    partySpells,
			SeatSpells:     seatSpells,
			Parties:        partyCatalog(partySpells),
			Constituencies: constituencyCatalog(seatSpells),
		},
		Stats: stats,
	}
}

func resolvePartySpells(raw []models.RawPartySpell, stats *KindStats) []models.PartySpell {
	stats.Input = len(raw)
	out := make([]models.PartySpell, 0, len(raw))
	for _, r := range raw {
		if models.Validate(r) != nil {
			stats.Invalid++
			continue
		}
		period, ok := resolvePeriod(r.Start, r.End, stats)
		if !ok {
			continue
		}
		out = append(out, models.PartySpell{
			MemberID:    r.MemberID,
			PartyID:     r.PartyID,
			PartyName:   r.PartyName,
			Period:      period,
			Provisional: r.Provisional,
		})
	}
	sortByStart(out)
	return out
}

func resolveSeatSpells(raw []models.RawSeatSpell, stats *KindStats) []models.SeatSpell {
	stats.Input = len(raw)
	out := make([]models.SeatSpell, 0, len(raw))
	for _, r := range raw {
		if models.Validate(r) != nil {
			stats.Invalid++
			continue
		}
		period, ok := resolvePeriod(r.Start, r.End, stats)
		if !ok {
			continue
		}
		out = append(out, models.SeatSpell{
			MemberID:         r.MemberID,
			ConstituencyID:   r.ConstituencyID,
			ConstituencyName: r.ConstituencyName,
			Period:           period,
			Provisional:      r.Provisional,
		})
	}
	sortByStart(out)
	return out
}

// resolvePeriod parses start and end. An unresolvable start drops the record;
// an unresolvable end leaves the spell open.
func resolvePeriod(start, end string, stats *KindStats) (models.Period, bool) {
	s, ok := models.ParseDate(start)
	if !ok {
		stats.UnparseableStart++
		return models.Period{}, false
	}
	p := models.Period{Start: s}
	if end == "" {
		return p, true
	}
	if e, ok := models.ParseDate(end); ok {
		p.End = &e
	} else {
		stats.UnparseableEnd++
	}
	return p, true
}

func sortByStart[S models.Spell](spells []S) {
	slices.SortStableFunc(spells, func(a, b S) int {
		return a.Interval().Start.Compare(b.Interval().Start)
	})
}

// keepSince keeps spells that are open or end on/after since.
func keepSince[S models.Spell](spells []S, since models.Date, stats *KindStats) []S {
	if since.IsZero() {
		return spells
	}
	out := spells[:0]
	for _, s := range spells {
		if s.Interval().EndsBefore(since) {
			stats.BeforeSince++
			continue
		}
		out = append(out, s)
	}
	return out
}

type periodKey struct {
	start  models.Date
	end    models.Date
	hasEnd bool
}

func periodKeyOf(p models.Period) periodKey {
	k := periodKey{start: p.Start}
	if p.End != nil {
		k.end, k.hasEnd = *p.End, true
	}
	return k
}

type partyKey struct {
	period      periodKey
	memberID    int
	partyID     string
	partyName   string
	provisional bool
}

func partyKeyOf(s models.PartySpell) partyKey {
	return partyKey{periodKeyOf(s.Period), s.MemberID, s.PartyID, s.PartyName, s.Provisional}
}

type seatKey struct {
	period           periodKey
	memberID         int
	constituencyID   string
	constituencyName string
	provisional      bool
}

func seatKeyOf(s models.SeatSpell) seatKey {
	return seatKey{periodKeyOf(s.Period), s.MemberID, s.ConstituencyID, s.ConstituencyName, s.Provisional}
}

// dedupeSpells drops exact repeats, keeping the first occurrence.
func dedupeSpells[S any, K comparable](spells []S, key func(S) K, stats *KindStats) []S {
	seen := make(map[K]struct{}, len(spells))
	out := spells[:0]
	for _, s := range spells {
		k := key(s)
		if _, ok := seen[k]; ok {
			stats.Duplicate++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

func dedupeMembers(members []models.Member, stats *Stats) []models.Member {
	seen := make(map[int]struct{}, len(members))
	out := make([]models.Member, 0, len(members))
	for _, m := range members {
		if models.Validate(m) != nil {
			stats.InvalidMembers++
			continue
		}
		if _, ok := seen[m.MemberID]; ok {
			stats.DuplicateMembers++
			continue
		}
		seen[m.MemberID] = struct{}{}
		out = append(out, m)
	}
	return out
}

func partyCatalog(spells []models.PartySpell) []models.PartyRef {
	names := make(map[string]string)
	for _, s := range spells {
		if _, ok := names[s.PartyID]; !ok {
			names[s.PartyID] = s.PartyName
		}
	}
	out := make([]models.PartyRef, 0, len(names))
	for id, name := range names {
		out = append(out, models.PartyRef{PartyID: id, Name: name})
	}
	slices.SortFunc(out, func(a, b models.PartyRef) int { return cmp.Compare(a.PartyID, b.PartyID) })
	return out
}

func constituencyCatalog(spells []models.SeatSpell) []models.ConstituencyRef {
	names := make(map[string]string)
	for _, s := range spells {
		if _, ok := names[s.ConstituencyID]; !ok {
			names[s.ConstituencyID] = s.ConstituencyName
		}
	}
	out := make([]models.ConstituencyRef, 0, len(names))
	for id, name := range names {
		out = append(out, models.ConstituencyRef{ConstituencyID: id, Name: name})
	}
	slices.SortFunc(out, func(a, b models.ConstituencyRef) int { return cmp.Compare(a.ConstituencyID, b.ConstituencyID) })
	return out
}
