package snapshots

import (
	"maps"
	"slices"
)

// Holding is what one member holds in the chamber at a point in time.
type Holding struct {
	PartyID          string
	PartyName        string
	ConstituencyID   string
	ConstituencyName string
}

// ChamberState maps member id to current holding. It is owned by a single
// replay and never shared.
type ChamberState map[int]Holding

// vacate removes every member sitting for the constituency.
func (s ChamberState) vacate(constituencyID string) {
	maps.DeleteFunc(s, func(_ int, h Holding) bool {
		return h.ConstituencyID == constituencyID
	})
}

func (s ChamberState) clear() {
	clear(s)
}

// MemberIDs returns the seated member ids in ascending order.
func (s ChamberState) MemberIDs() []int {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns an independent copy.
func (s ChamberState) Clone() ChamberState {
	return maps.Clone(s)
}
