package snapshots

import "civitas/internal/timeline/models"

// lookup answers spell queries by member. Per-member slices keep the
// normalized order, so the first match is the same spell a linear scan over
// the full list would find.
type lookup struct {
	party map[int][]models.PartySpell
	seat  map[int][]models.SeatSpell
	names map[int]string
	seats []models.SeatSpell
}

func newLookup(n models.Normalized) *lookup {
	l := &lookup{
		party: make(map[int][]models.PartySpell),
		seat:  make(map[int][]models.SeatSpell),
		names: make(map[int]string, len(n.Members)),
		seats: n.SeatSpells,
	}
	for _, p := range n.PartySpells {
		l.party[p.MemberID] = append(l.party[p.MemberID], p)
	}
	for _, s := range n.SeatSpells {
		l.seat[s.MemberID] = append(l.seat[s.MemberID], s)
	}
	for _, m := range n.Members {
		if _, ok := l.names[m.MemberID]; !ok {
			l.names[m.MemberID] = m.Name
		}
	}
	return l
}

func (l *lookup) partyAt(memberID int, d models.Date) (models.PartySpell, bool) {
	for _, p := range l.party[memberID] {
		if p.ActiveAt(d) {
			return p, true
		}
	}
	return models.PartySpell{}, false
}

func (l *lookup) seatAt(memberID int, d models.Date) (models.SeatSpell, bool) {
	for _, s := range l.seat[memberID] {
		if s.ActiveAt(d) {
			return s, true
		}
	}
	return models.SeatSpell{}, false
}

// seatStarting finds the member's spell in the constituency that begins on d.
func (l *lookup) seatStarting(memberID int, constituencyID string, d models.Date) (models.SeatSpell, bool) {
	for _, s := range l.seat[memberID] {
		if s.ConstituencyID == constituencyID && s.Start == d {
			return s, true
		}
	}
	return models.SeatSpell{}, false
}

// partyStarting finds the member's spell with the party that begins on d.
func (l *lookup) partyStarting(memberID int, partyID string, d models.Date) (models.PartySpell, bool) {
	for _, p := range l.party[memberID] {
		if p.PartyID == partyID && p.Start == d {
			return p, true
		}
	}
	return models.PartySpell{}, false
}

func (l *lookup) name(memberID int) (string, bool) {
	n, ok := l.names[memberID]
	return n, ok
}

// seated returns the chamber as it stands on d: every active seat spell
// joined to a concurrently active party spell. Seats without a party are
// left out.
func (l *lookup) seated(d models.Date) ChamberState {
	state := make(ChamberState)
	for _, s := range l.seats {
		if !s.ActiveAt(d) {
			continue
		}
		p, ok := l.partyAt(s.MemberID, d)
		if !ok {
			continue
		}
		state[s.MemberID] = holding(p, s)
	}
	return state
}

func holding(p models.PartySpell, s models.SeatSpell) Holding {
	return Holding{
		PartyID:          p.PartyID,
		PartyName:        p.PartyName,
		ConstituencyID:   s.ConstituencyID,
		ConstituencyName: s.ConstituencyName,
	}
}
