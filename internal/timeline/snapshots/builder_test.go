package snapshots

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civitas/internal/timeline/elections"
	"civitas/internal/timeline/events"
	"civitas/internal/timeline/models"
)

var fixedNow = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func date(s string) models.Date { return models.MustParseDate(s) }

func period(start, end string) models.Period {
	p := models.Period{Start: date(start)}
	if end != "" {
		e := date(end)
		p.End = &e
	}
	return p
}

func seat(member int, constituency, start, end string) models.SeatSpell {
	return models.SeatSpell{
		MemberID:         member,
		ConstituencyID:   constituency,
		ConstituencyName: "Constituency " + constituency,
		Period:           period(start, end),
	}
}

func party(member int, id, start, end string) models.PartySpell {
	return models.PartySpell{MemberID: member, PartyID: id, PartyName: "Party " + id, Period: period(start, end)}
}

func snapshotOn(t *testing.T, snaps []models.Snapshot, d string) models.Snapshot {
	t.Helper()
	for _, s := range snaps {
		if s.Date == date(d) {
			return s
		}
	}
	require.Failf(t, "missing snapshot", "no snapshot dated %s", d)
	return models.Snapshot{}
}

func constituencies(s models.Snapshot) []string {
	var out []string
	for _, m := range s.Members {
		out = append(out, m.ConstituencyID)
	}
	return out
}

func assertWellFormed(t *testing.T, snaps []models.Snapshot) {
	t.Helper()
	for _, s := range snaps {
		assert.Equal(t, len(s.Members), s.Total, "snapshot %s", s.Date)
		assert.True(t, slices.IsSortedFunc(s.Members, func(a, b models.SnapshotMember) int {
			return a.MemberID - b.MemberID
		}), "snapshot %s members out of order", s.Date)
		tally := 0
		for _, n := range s.Parties {
			tally += n
		}
		assert.Equal(t, s.Total, tally, "snapshot %s party tally", s.Date)
	}
}

func TestVacancyEmptiesSeatUntilByElection(t *testing.T) {
	n := models.Normalized{
		Members: []models.Member{{MemberID: 1, Name: "Ada"}, {MemberID: 2, Name: "Bea"}, {MemberID: 3, Name: "Cy"}},
		SeatSpells: []models.SeatSpell{
			seat(1, "D", "2005-05-05", "2012-01-01"),
			seat(3, "E", "2005-05-05", ""),
			seat(2, "D", "2012-03-01", ""),
		},
		PartySpells: []models.PartySpell{
			party(1, "lab", "2005-05-05", "2012-01-01"),
			party(2, "con", "2012-03-01", ""),
			party(3, "ld", "2005-05-05", ""),
		},
	}
	evs := events.Build(events.Input{
		PartySpells: n.PartySpells,
		SeatSpells:  n.SeatSpells,
		Elections:   elections.Baseline(),
		Since:       date("2005-01-01"),
	})

	res := Build(n, evs, WithClock(clock))
	require.Len(t, res.Snapshots, len(evs))
	assertWellFormed(t, res.Snapshots)

	i := slices.IndexFunc(evs, func(e models.Event) bool { return e.Type == models.EventVacancyStart })
	require.GreaterOrEqual(t, i, 0)
	afterVacancy := res.Snapshots[i]
	assert.Equal(t, date("2012-01-01"), afterVacancy.Date)
	assert.NotContains(t, constituencies(afterVacancy), "D")
	assert.Equal(t, 1, afterVacancy.Total)

	j := slices.IndexFunc(evs, func(e models.Event) bool { return e.Type == models.EventByElection })
	require.Greater(t, j, i)
	afterBy := res.Snapshots[j]
	assert.Contains(t, constituencies(afterBy), "D")
	assert.Equal(t, map[string]int{"con": 1, "ld": 1}, afterBy.Parties)

	assert.Equal(t, ChamberState{
		2: {PartyID: "con", PartyName: "Party con", ConstituencyID: "D", ConstituencyName: "Constituency D"},
		3: {PartyID: "ld", PartyName: "Party ld", ConstituencyID: "E", ConstituencyName: "Constituency E"},
	}, res.Final)
}

func monthlyFixture() (models.Normalized, []models.Event) {
	n := models.Normalized{
		Members: []models.Member{{MemberID: 1, Name: "Ada"}, {MemberID: 2, Name: "Bea"}},
		SeatSpells: []models.SeatSpell{
			seat(1, "A", "2019-12-12", ""),
			seat(2, "B", "2020-03-10", ""),
		},
		PartySpells: []models.PartySpell{
			party(1, "lab", "2019-12-12", ""),
			party(2, "con", "2020-03-10", ""),
		},
	}
	evs := events.Build(events.Input{
		PartySpells: n.PartySpells,
		SeatSpells:  n.SeatSpells,
		Elections:   []models.Election{{Date: date("2019-12-12"), Label: "2019 General Election"}},
		Since:       date("2019-01-01"),
	})
	return n, evs
}

func TestMonthlySnapshots(t *testing.T) {
	n, evs := monthlyFixture()
	require.Len(t, evs, 2)

	res := Build(n, evs, WithMonthly(true), WithClock(clock))
	assertWellFormed(t, res.Snapshots)

	var dates []string
	for _, s := range res.Snapshots {
		dates = append(dates, s.Date.String())
	}
	assert.Equal(t, []string{"2019-12-12", "2020-01-01", "2020-02-01", "2020-03-10", "2020-03-01"}, dates)

	assert.Equal(t, 1, snapshotOn(t, res.Snapshots, "2020-01-01").Total)
	assert.Equal(t, 1, snapshotOn(t, res.Snapshots, "2020-02-01").Total)
	assert.Equal(t, 2, snapshotOn(t, res.Snapshots, "2020-03-01").Total)
}

func TestEventSnapshotsOnlyWithoutMonthly(t *testing.T) {
	n, evs := monthlyFixture()
	res := Build(n, evs, WithMonthly(false), WithClock(clock))
	require.Len(t, res.Snapshots, 2)
	assert.Equal(t, date("2019-12-12"), res.Snapshots[0].Date)
	assert.Equal(t, date("2020-03-10"), res.Snapshots[1].Date)
}

func TestSeedUsesFirstEventDate(t *testing.T) {
	n := models.Normalized{
		SeatSpells:  []models.SeatSpell{seat(5, "A", "2001-06-07", ""), seat(6, "B", "2001-06-07", "")},
		PartySpells: []models.PartySpell{party(5, "lab", "2001-06-07", "")},
	}
	evs := []models.Event{
		{Date: date("2006-01-01"), Type: models.EventVacancyEnd, ConstituencyID: "Z"},
	}

	res := Build(n, evs, WithClock(clock))
	require.Len(t, res.Snapshots, 1)
	snap := res.Snapshots[0]
	require.Len(t, snap.Members, 1, "member 6 has no party spell")
	assert.Equal(t, 5, snap.Members[0].MemberID)
	assert.Equal(t, "5", snap.Members[0].Name, "unknown members fall back to their id")
}

func TestPartySwitch(t *testing.T) {
	n := models.Normalized{
		SeatSpells: []models.SeatSpell{seat(1, "A", "2005-05-05", "")},
		PartySpells: []models.PartySpell{
			party(1, "X", "2005-05-05", "2008-01-01"),
			party(1, "Y", "2008-01-01", ""),
			party(9, "Z", "2008-01-01", ""),
		},
	}
	evs := []models.Event{
		{Date: date("2005-05-05"), Type: models.EventGeneralElection},
		{Date: date("2008-01-01"), Type: models.EventPartySwitch, MemberID: models.MemberRef(1), FromPartyID: "X", ToPartyID: "Y"},
		{Date: date("2008-01-01"), Type: models.EventPartySwitch, MemberID: models.MemberRef(9), ToPartyID: "Z"},
	}

	res := Build(n, evs, WithClock(clock))
	require.Len(t, res.Snapshots, 3)
	assert.Equal(t, map[string]int{"X": 1}, res.Snapshots[0].Parties)

	switched := res.Snapshots[1]
	require.Len(t, switched.Members, 1)
	assert.Equal(t, "Y", switched.Members[0].PartyID)
	assert.Equal(t, "Party Y", switched.Members[0].PartyName)
	assert.Equal(t, "A", switched.Members[0].ConstituencyID)

	assert.Equal(t, 1, res.Snapshots[2].Total, "a switch for an unseated member changes nothing")
}

func TestByElectionNeedsExactSeatStart(t *testing.T) {
	n := models.Normalized{
		SeatSpells:  []models.SeatSpell{seat(4, "Q", "2013-02-28", "")},
		PartySpells: []models.PartySpell{party(4, "snp", "2010-01-01", "")},
	}
	evs := []models.Event{
		{Date: date("2013-03-01"), Type: models.EventByElection, MemberID: models.MemberRef(4), ConstituencyID: "Q"},
		{Date: date("2013-02-28"), Type: models.EventByElection, MemberID: models.MemberRef(4), ConstituencyID: "Q"},
	}

	res := Build(n, evs, WithClock(clock))
	require.Len(t, res.Snapshots, 2)
	// The seed on 2013-03-01 already holds member 4, a mismatched start
	// leaves it as is.
	assert.Equal(t, 1, res.Snapshots[0].Total)
	assert.Equal(t, 1, res.Snapshots[1].Total)
}

func TestGeneralElectionRebuilds(t *testing.T) {
	n := models.Normalized{
		SeatSpells: []models.SeatSpell{
			seat(1, "A", "2005-05-05", "2010-05-05"),
			seat(2, "A", "2010-05-06", ""),
			seat(3, "B", "2010-05-06", ""),
		},
		PartySpells: []models.PartySpell{
			party(1, "lab", "2005-05-05", "2010-05-05"),
			party(2, "con", "2010-05-06", ""),
		},
	}
	evs := []models.Event{
		{Date: date("2005-05-05"), Type: models.EventGeneralElection},
		{Date: date("2010-05-06"), Type: models.EventGeneralElection},
	}

	res := Build(n, evs, WithClock(clock))
	require.Len(t, res.Snapshots, 2)
	assert.Equal(t, []string{"A"}, constituencies(res.Snapshots[0]))
	second := res.Snapshots[1]
	require.Len(t, second.Members, 1, "member 3 has no party and is dropped")
	assert.Equal(t, 2, second.Members[0].MemberID)
}

func TestProvisionalPropagates(t *testing.T) {
	provisionalSeat := seat(2, "B", "2005-05-05", "")
	provisionalSeat.Provisional = true
	provisionalParty := party(3, "ind", "2005-05-05", "")
	provisionalParty.Provisional = true

	n := models.Normalized{
		SeatSpells:  []models.SeatSpell{seat(1, "A", "2005-05-05", ""), provisionalSeat, seat(3, "C", "2005-05-05", "")},
		PartySpells: []models.PartySpell{party(1, "lab", "2005-05-05", ""), party(2, "lab", "2005-05-05", ""), provisionalParty},
	}
	evs := []models.Event{{Date: date("2005-05-05"), Type: models.EventGeneralElection}}

	res := Build(n, evs, WithClock(clock))
	require.Len(t, res.Snapshots, 1)
	flags := map[int]bool{}
	for _, m := range res.Snapshots[0].Members {
		flags[m.MemberID] = m.Provisional
	}
	assert.Equal(t, map[int]bool{1: false, 2: true, 3: true}, flags)
}

func TestMetaIsStable(t *testing.T) {
	n, evs := monthlyFixture()

	a := Build(n, evs, WithClock(clock))
	b := Build(n, evs, WithClock(clock))
	require.NotEmpty(t, a.Snapshots)

	meta := a.Snapshots[0].Meta
	assert.Equal(t, fixedNow, meta.GeneratedAt)
	assert.Len(t, meta.Source.MembersHash, 10)
	assert.Len(t, meta.Source.EventsHash, 10)
	assert.Equal(t, Hash(n.Members), meta.Source.MembersHash)
	assert.Equal(t, a.Snapshots, b.Snapshots)

	other := Build(n, evs[:1], WithClock(clock))
	assert.NotEqual(t, meta.Source.EventsHash, other.Snapshots[0].Meta.Source.EventsHash)
	assert.Equal(t, meta.Source.MembersHash, other.Snapshots[0].Meta.Source.MembersHash)
}

func TestBuildWithoutEvents(t *testing.T) {
	n, _ := monthlyFixture()
	res := Build(n, nil, WithMonthly(true))
	assert.NotNil(t, res.Snapshots)
	assert.Empty(t, res.Snapshots)
	assert.Empty(t, res.Final)
}

func TestFilesAndIndex(t *testing.T) {
	n, evs := monthlyFixture()
	evs = append(evs, models.Event{Date: date("2020-03-10"), Type: models.EventVacancyEnd, ConstituencyID: "B"})

	res := Build(n, evs, WithClock(clock))
	files := Files(res.Snapshots)
	require.Len(t, files, 3)
	assert.Equal(t, "official-parliament-2019-12-12.json", files[0].Name)
	assert.Equal(t, "official-parliament-2020-03-10.json", files[1].Name)
	assert.Equal(t, "official-parliament-2020-03-10-2.json", files[2].Name)

	index := Index(files)
	require.Len(t, index, 3)
	assert.Equal(t, models.IndexEntry{
		Date:        date("2020-03-10"),
		SafeDate:    "2020-03-10",
		File:        "official-parliament-2020-03-10-2.json",
		Total:       2,
		GeneratedAt: fixedNow,
	}, index[2])
}
