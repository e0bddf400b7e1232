package models

// Period is a closed date interval. A nil End means the interval is still
// open.
type Period struct {
	Start Date  `json:"start"`
	End   *Date `json:"end,omitempty"`
}

// ActiveAt reports whether d falls inside the period, both ends inclusive.
func (p Period) ActiveAt(d Date) bool {
	if p.Start.After(d) {
		return false
	}
	return p.End == nil || !p.End.Before(d)
}

// Interval exposes the period to code that works across spell kinds.
func (p Period) Interval() Period { return p }

// EndsBefore reports whether the period has an end strictly before d.
func (p Period) EndsBefore(d Date) bool {
	return p.End != nil && p.End.Before(d)
}

// Spell is implemented by PartySpell and SeatSpell.
type Spell interface {
	Member() int
	Interval() Period
}

// Member is a legislator seen in harvested data.
type Member struct {
	MemberID int    `json:"memberId" validate:"gte=0"`
	Name     string `json:"name" validate:"required"`
}

// PartySpell is one continuous party affiliation.
type PartySpell struct {
	MemberID  int    `json:"memberId"`
	PartyID   string `json:"partyId"`
	PartyName string `json:"partyName"`
	Period
	Provisional bool `json:"provisional,omitempty"`
}

func (s PartySpell) Member() int { return s.MemberID }

// SeatSpell is one continuous tenure of a constituency seat.
type SeatSpell struct {
	MemberID         int    `json:"memberId"`
	ConstituencyID   string `json:"constituencyId"`
	ConstituencyName string `json:"constituencyName"`
	Period
	Provisional bool `json:"provisional,omitempty"`
}

func (s SeatSpell) Member() int { return s.MemberID }

// RawPartySpell is a party spell as supplied by a harvester, before dates are
// resolved.
type RawPartySpell struct {
	MemberID    int    `json:"memberId" validate:"gte=0"`
	PartyID     string `json:"partyId" validate:"required"`
	PartyName   string `json:"partyName" validate:"required"`
	Start       string `json:"start" validate:"required"`
	End         string `json:"end,omitempty"`
	Provisional bool   `json:"provisional,omitempty"`
}

// RawSeatSpell is a seat spell as supplied by a harvester.
type RawSeatSpell struct {
	MemberID         int    `json:"memberId" validate:"gte=0"`
	ConstituencyID   string `json:"constituencyId" validate:"required"`
	ConstituencyName string `json:"constituencyName" validate:"required"`
	Start            string `json:"start" validate:"required"`
	End              string `json:"end,omitempty"`
	Provisional      bool   `json:"provisional,omitempty"`
}

// Raw converts a normalized spell back into harvester form.
func (s PartySpell) Raw() RawPartySpell {
	return RawPartySpell{
		MemberID:    s.MemberID,
		PartyID:     s.PartyID,
		PartyName:   s.PartyName,
		Start:       s.Start.String(),
		End:         endString(s.End),
		Provisional: s.Provisional,
	}
}

// Raw converts a normalized spell back into harvester form.
func (s SeatSpell) Raw() RawSeatSpell {
	return RawSeatSpell{
		MemberID:         s.MemberID,
		ConstituencyID:   s.ConstituencyID,
		ConstituencyName: s.ConstituencyName,
		Start:            s.Start.String(),
		End:              endString(s.End),
		Provisional:      s.Provisional,
	}
}

func endString(d *Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// Harvest is the raw output of a harvesting collaborator.
type Harvest struct {
	Members     []Member        `json:"members"`
	PartySpells []RawPartySpell `json:"partySpells"`
	SeatSpells  []RawSeatSpell  `json:"seatSpells"`
}

// PartyRef and ConstituencyRef are catalog entries derived from spells.
type PartyRef struct {
	PartyID string `json:"partyId"`
	Name    string `json:"name"`
}

type ConstituencyRef struct {
	ConstituencyID string `json:"constituencyId"`
	Name           string `json:"name"`
}

// Normalized is the canonical spell set every downstream stage reads.
type Normalized struct {
	Members        []Member          `json:"members"`
	PartySpells    []PartySpell      `json:"partySpells"`
	SeatSpells     []SeatSpell       `json:"seatSpells"`
	Parties        []PartyRef        `json:"parties"`
	Constituencies []ConstituencyRef `json:"constituencies"`
}
