// Package snapshots replays an ordered event stream over chamber state and
// records the full composition after every event.
//
// Build is a left fold: the state is created per call, threaded through the
// events, and returned alongside the snapshots it produced. Missing spell
// joins leave the member out of the state; they are never errors.
package snapshots

import (
	"strconv"
	"time"

	"civitas/internal/timeline/models"
)

// Option configures a Build call.
type Option func(*options)

type options struct {
	monthly bool
	now     func() time.Time
}

// WithMonthly also emits a snapshot on the first day of every month the
// replay enters.
func WithMonthly(enabled bool) Option {
	return func(o *options) {
		o.monthly = enabled
	}
}

// WithClock sets the source of meta.generatedAt. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Result is the outcome of a replay.
type Result struct {
	Snapshots []models.Snapshot
	// Final is the chamber state after the last event.
	Final ChamberState
}

// Build replays events over the normalized spells. With no events it returns
// no snapshots and an empty state.
func Build(n models.Normalized, events []models.Event, opts ...Option) Result {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	r := &replay{
		spells: newLookup(n),
		meta: models.SnapshotMeta{
			GeneratedAt: o.now().UTC(),
			Source: models.SnapshotSource{
				MembersHash: Hash(n.Members),
				EventsHash:  Hash(events),
			},
		},
		snapshots: []models.Snapshot{},
	}
	if len(events) == 0 {
		return Result{Snapshots: r.snapshots, Final: ChamberState{}}
	}

	first := events[0].Date
	state := r.spells.seated(first)
	month := first.FirstOfMonth()

	for _, ev := range events {
		evMonth := ev.Date.FirstOfMonth()
		if o.monthly {
			// Months skipped between events carry the state as it stood
			// before this event.
			for m := month.AddMonths(1); m.Before(evMonth); m = m.AddMonths(1) {
				r.emit(state, m)
			}
		}

		r.apply(state, ev)
		r.emit(state, ev.Date)

		if evMonth.After(month) {
			if o.monthly {
				r.emit(state, evMonth)
			}
			month = evMonth
		}
	}

	return Result{Snapshots: r.snapshots, Final: state}
}

type replay struct {
	spells    *lookup
	meta      models.SnapshotMeta
	snapshots []models.Snapshot
}

// apply mutates state for one event.
func (r *replay) apply(state ChamberState, ev models.Event) {
	switch ev.Type {
	case models.EventGeneralElection:
		state.clear()
		for id, h := range r.spells.seated(ev.Date) {
			state[id] = h
		}

	case models.EventByElection:
		id, ok := ev.Member()
		if !ok || ev.ConstituencyID == "" {
			return
		}
		seat, ok := r.spells.seatStarting(id, ev.ConstituencyID, ev.Date)
		if !ok {
			return
		}
		party, ok := r.spells.partyAt(id, ev.Date)
		if !ok {
			return
		}
		state[id] = holding(party, seat)

	case models.EventPartySwitch:
		id, ok := ev.Member()
		if !ok || ev.ToPartyID == "" {
			return
		}
		current, seated := state[id]
		if !seated {
			return
		}
		party, ok := r.spells.partyStarting(id, ev.ToPartyID, ev.Date)
		if !ok {
			return
		}
		current.PartyID = party.PartyID
		current.PartyName = party.PartyName
		state[id] = current

	case models.EventVacancyStart:
		if ev.ConstituencyID != "" {
			state.vacate(ev.ConstituencyID)
		}

	case models.EventVacancyEnd, models.EventSeatChange:
		// A following byElection or generalElection seats the new holder.
	}
}

// emit projects state into a snapshot dated d.
func (r *replay) emit(state ChamberState, d models.Date) {
	ids := state.MemberIDs()
	members := make([]models.SnapshotMember, 0, len(ids))
	parties := make(map[string]int)

	for _, id := range ids {
		h := state[id]
		name, ok := r.spells.name(id)
		if !ok {
			name = strconv.Itoa(id)
		}
		members = append(members, models.SnapshotMember{
			MemberID:         id,
			Name:             name,
			ConstituencyID:   h.ConstituencyID,
			ConstituencyName: h.ConstituencyName,
			PartyID:          h.PartyID,
			PartyName:        h.PartyName,
			Provisional:      r.provisional(id, d),
		})
		parties[h.PartyID]++
	}

	r.snapshots = append(r.snapshots, models.Snapshot{
		Date:    d,
		Meta:    r.meta,
		Members: members,
		Parties: parties,
		Total:   len(members),
	})
}

// provisional is true when either spell active for the member on d came from
// a fallback source.
func (r *replay) provisional(memberID int, d models.Date) bool {
	if p, ok := r.spells.partyAt(memberID, d); ok && p.Provisional {
		return true
	}
	if s, ok := r.spells.seatAt(memberID, d); ok && s.Provisional {
		return true
	}
	return false
}
