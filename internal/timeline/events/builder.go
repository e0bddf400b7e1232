// Package events derives the ordered stream of chamber events from
// normalized spells and a general election calendar.
//
// Build is pure domain logic - no I/O, no side effects. The same inputs always
// produce the same output, in the same order.
package events

import (
	"slices"

	"civitas/internal/timeline/elections"
	"civitas/internal/timeline/models"
)

// Input is everything Build reads.
type Input struct {
	PartySpells []models.PartySpell
	SeatSpells  []models.SeatSpell
	// Elections is the general election calendar; entries before Since are
	// ignored.
	Elections []models.Election
	Since     models.Date
}

// Build returns the deduplicated events ordered by date, with same-day ties
// broken by EventType.Priority and then by derivation order.
func Build(in Input) []models.Event {
	calendar := elections.Since(in.Elections, in.Since)
	b := &builder{
		since:            in.Since,
		generalElections: make(map[models.Date]struct{}, len(calendar)),
		events:           []models.Event{},
	}
	for _, e := range calendar {
		b.generalElections[e.Date] = struct{}{}
	}

	for _, e := range calendar {
		b.add(models.Event{Date: e.Date, Type: models.EventGeneralElection, Note: e.Label})
	}
	b.seatChanges(in.SeatSpells)
	b.constituencyEvents(in.SeatSpells)
	b.partySwitches(in.PartySpells)

	out := b.events
	slices.SortStableFunc(out, func(x, y models.Event) int {
		if c := x.Date.Compare(y.Date); c != 0 {
			return c
		}
		return x.Type.Priority() - y.Type.Priority()
	})
	return out
}

type eventKey struct {
	date           models.Date
	typ            models.EventType
	memberID       int
	hasMember      bool
	constituencyID string
	fromPartyID    string
	toPartyID      string
}

func keyOf(e models.Event) eventKey {
	k := eventKey{
		date:           e.Date,
		typ:            e.Type,
		constituencyID: e.ConstituencyID,
		fromPartyID:    e.FromPartyID,
		toPartyID:      e.ToPartyID,
	}
	k.memberID, k.hasMember = e.Member()
	return k
}

type builder struct {
	since            models.Date
	generalElections map[models.Date]struct{}
	seen             map[eventKey]struct{}
	events           []models.Event
}

// add keeps the first event per key.
func (b *builder) add(e models.Event) {
	if b.seen == nil {
		b.seen = make(map[eventKey]struct{})
	}
	k := keyOf(e)
	if _, ok := b.seen[k]; ok {
		return
	}
	b.seen[k] = struct{}{}
	b.events = append(b.events, e)
}

// transitional reports whether a spell starting on d marks a change worth an
// event: on or after since and not a general election day.
func (b *builder) transitional(d models.Date) bool {
	if d.Before(b.since) {
		return false
	}
	_, isElection := b.generalElections[d]
	return !isElection
}

// seatChanges emits a seatChange when a member's consecutive seat spells are
// in different constituencies.
func (b *builder) seatChanges(spells []models.SeatSpell) {
	for _, g := range groupBy(spells, func(s models.SeatSpell) int { return s.MemberID }) {
		for i := 1; i < len(g.spells); i++ {
			prev, curr := g.spells[i-1], g.spells[i]
			if prev.ConstituencyID == curr.ConstituencyID || !b.transitional(curr.Start) {
				continue
			}
			b.add(models.Event{
				Date:           curr.Start,
				Type:           models.EventSeatChange,
				MemberID:       models.MemberRef(g.key),
				ConstituencyID: curr.ConstituencyID,
			})
		}
	}
}

// constituencyEvents emits a byElection for every occupancy beginning outside
// a general election, and a vacancy pair around every gap between occupants.
func (b *builder) constituencyEvents(spells []models.SeatSpell) {
	for _, g := range groupBy(spells, func(s models.SeatSpell) string { return s.ConstituencyID }) {
		for i, s := range g.spells {
			if b.transitional(s.Start) {
				b.add(models.Event{
					Date:           s.Start,
					Type:           models.EventByElection,
					MemberID:       models.MemberRef(s.MemberID),
					ConstituencyID: g.key,
				})
			}
			if i+1 < len(g.spells) {
				next := g.spells[i+1]
				if s.EndsBefore(next.Start) {
					b.add(models.Event{Date: *s.End, Type: models.EventVacancyStart, ConstituencyID: g.key})
					b.add(models.Event{Date: next.Start, Type: models.EventVacancyEnd, ConstituencyID: g.key})
				}
			}
		}
	}
}

// partySwitches emits a partySwitch when a member's consecutive party spells
// carry different party ids.
func (b *builder) partySwitches(spells []models.PartySpell) {
	for _, g := range groupBy(spells, func(s models.PartySpell) int { return s.MemberID }) {
		for i := 1; i < len(g.spells); i++ {
			prev, curr := g.spells[i-1], g.spells[i]
			if prev.PartyID == curr.PartyID || !b.transitional(curr.Start) {
				continue
			}
			b.add(models.Event{
				Date:        curr.Start,
				Type:        models.EventPartySwitch,
				MemberID:    models.MemberRef(g.key),
				FromPartyID: prev.PartyID,
				ToPartyID:   curr.PartyID,
			})
		}
	}
}

type group[K comparable, S models.Spell] struct {
	key    K
	spells []S
}

// groupBy buckets spells by key in first-seen key order, each bucket sorted
// by start (stable).
func groupBy[K comparable, S models.Spell](spells []S, key func(S) K) []group[K, S] {
	index := make(map[K]int)
	var groups []group[K, S]
	for _, s := range spells {
		k := key(s)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group[K, S]{key: k})
		}
		groups[i].spells = append(groups[i].spells, s)
	}
	for _, g := range groups {
		slices.SortStableFunc(g.spells, func(a, b S) int {
			return a.Interval().Start.Compare(b.Interval().Start)
		})
	}
	return groups
}
