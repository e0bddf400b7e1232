package models

// EventType classifies a change in chamber composition.
type EventType string

const (
	EventGeneralElection EventType = "generalElection"
	EventByElection      EventType = "byElection"
	EventPartySwitch     EventType = "partySwitch"
	EventSeatChange      EventType = "seatChange"
	EventVacancyStart    EventType = "vacancyStart"
	EventVacancyEnd      EventType = "vacancyEnd"
)

// EventTypes lists every type in tie-break order.
var EventTypes = []EventType{
	EventGeneralElection,
	EventVacancyEnd,
	EventByElection,
	EventPartySwitch,
	EventSeatChange,
	EventVacancyStart,
}

// Priority orders events that share a date. Lower runs first.
func (t EventType) Priority() int {
	switch t {
	case EventGeneralElection:
		return 0
	case EventVacancyEnd:
		return 1
	case EventByElection:
		return 2
	case EventPartySwitch:
		return 3
	case EventSeatChange:
		return 4
	case EventVacancyStart:
		return 5
	default:
		return len(EventTypes)
	}
}

func (t EventType) IsValid() bool {
	return t.Priority() < len(EventTypes)
}

func (t EventType) String() string { return string(t) }

// Event is a dated change in chamber composition. Optional references are nil
// or empty when the event type does not carry them.
type Event struct {
	Date           Date      `json:"date"`
	Type           EventType `json:"type"`
	MemberID       *int      `json:"memberId,omitempty"`
	ConstituencyID string    `json:"constituencyId,omitempty"`
	FromPartyID    string    `json:"fromPartyId,omitempty"`
	ToPartyID      string    `json:"toPartyId,omitempty"`
	Note           string    `json:"note,omitempty"`
}

// Member returns the referenced member id, if any.
func (e Event) Member() (int, bool) {
	if e.MemberID == nil {
		return 0, false
	}
	return *e.MemberID, true
}

// MemberRef boxes a member id for Event.MemberID.
func MemberRef(id int) *int {
	return &id
}

// Election is a general election calendar entry.
type Election struct {
	Date  Date   `json:"date" yaml:"date"`
	Label string `json:"label" yaml:"label"`
}
