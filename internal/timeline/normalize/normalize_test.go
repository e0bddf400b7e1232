package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civitas/internal/timeline/models"
)

func sampleHarvest() models.Harvest {
	return models.Harvest{
		Members: []models.Member{
			{MemberID: 1, Name: "Ann Example"},
			{MemberID: 2, Name: "Bob Example"},
			{MemberID: 1, Name: "Ann Duplicate"},
			{MemberID: 3, Name: ""},
		},
		PartySpells: []models.RawPartySpell{
			{MemberID: 2, PartyID: "15", PartyName: "Labour", Start: "2010-05-06T00:00:00"},
			{MemberID: 1, PartyID: "4", PartyName: "Conservative", Start: "2001-06-07", End: "2005-05-05"},
			{MemberID: 1, PartyID: "4", PartyName: "Conservative", Start: "May 5, 2005"},
			{MemberID: 3, PartyID: "47", PartyName: "Labour Co-operative", Start: "2015-05-07"},
			{MemberID: 4, PartyID: "99", PartyName: "Labour and Co-operative Party", Start: "2017-06-08"},
			{MemberID: 5, PartyID: "8", PartyName: "Independent", Start: "sometime"},
			{MemberID: 6, PartyID: "", PartyName: "Nameless", Start: "2015-05-07"},
			{MemberID: 7, PartyID: "8", PartyName: "Independent", Start: "1997-05-01", End: "2001-06-07"},
			{MemberID: 8, PartyID: "8", PartyName: "Independent", Start: "2019-12-12", End: "whenever"},
		},
		SeatSpells: []models.RawSeatSpell{
			{MemberID: 1, ConstituencyID: "c2", ConstituencyName: "Second", Start: "2005-05-05"},
			{MemberID: 2, ConstituencyID: "c1", ConstituencyName: "First", Start: "2010-05-06"},
			{MemberID: 2, ConstituencyID: "c1", ConstituencyName: "First", Start: "2010-05-06"},
			{MemberID: 9, ConstituencyID: "c3", ConstituencyName: "Old", Start: "1992-04-09", End: "1997-05-01"},
		},
	}
}

func TestNormalize(t *testing.T) {
	since := models.MustParseDate("2005-01-01")
	res := Normalize(sampleHarvest(), Config{Since: since})

	t.Run("drops records with unresolvable start or missing ids", func(t *testing.T) {
		assert.Equal(t, 1, res.Stats.Party.UnparseableStart)
		assert.Equal(t, 1, res.Stats.Party.Invalid)
		for _, s := range res.PartySpells {
			assert.False(t, s.Start.IsZero())
			assert.NotEqual(t, 5, s.MemberID)
			assert.NotEqual(t, 6, s.MemberID)
		}
	})

	t.Run("unparseable end leaves the spell open", func(t *testing.T) {
		assert.Equal(t, 1, res.Stats.Party.UnparseableEnd)
		var found bool
		for _, s := range res.PartySpells {
			if s.MemberID == 8 {
				found = true
				assert.Nil(t, s.End)
			}
		}
		assert.True(t, found)
	})

	t.Run("truncates dates to ISO days", func(t *testing.T) {
		for _, s := range res.PartySpells {
			if s.MemberID == 2 {
				assert.Equal(t, "2010-05-06", s.Start.String())
			}
		}
	})

	t.Run("filters spells ending before since", func(t *testing.T) {
		assert.Equal(t, 1, res.Stats.Party.BeforeSince)
		for _, s := range res.PartySpells {
			assert.NotEqual(t, 7, s.MemberID)
		}
		assert.Equal(t, 1, res.Stats.Seat.BeforeSince)
	})

	t.Run("drops exact duplicate spells", func(t *testing.T) {
		assert.Equal(t, 1, res.Stats.Seat.Duplicate)
		assert.Len(t, res.SeatSpells, 2)
	})

	t.Run("output is sorted by start", func(t *testing.T) {
		for i := 1; i < len(res.PartySpells); i++ {
			assert.False(t, res.PartySpells[i].Start.Before(res.PartySpells[i-1].Start))
		}
		for i := 1; i < len(res.SeatSpells); i++ {
			assert.False(t, res.SeatSpells[i].Start.Before(res.SeatSpells[i-1].Start))
		}
	})

	t.Run("members are deduplicated and validated", func(t *testing.T) {
		require.Len(t, res.Members, 2)
		assert.Equal(t, "Ann Example", res.Members[0].Name)
		assert.Equal(t, 1, res.Stats.DuplicateMembers)
		assert.Equal(t, 1, res.Stats.InvalidMembers)
	})

	t.Run("catalogs are sorted by id with first seen names", func(t *testing.T) {
		require.NotEmpty(t, res.Parties)
		for i := 1; i < len(res.Parties); i++ {
			assert.Less(t, res.Parties[i-1].PartyID, res.Parties[i].PartyID)
		}
		assert.Equal(t, []models.ConstituencyRef{
			{ConstituencyID: "c1", Name: "First"},
			{ConstituencyID: "c2", Name: "Second"},
		}, res.Constituencies)
	})
}

func TestNormalizeKeepsSpellEndingOnSince(t *testing.T) {
	h := models.Harvest{PartySpells: []models.RawPartySpell{
		{MemberID: 1, PartyID: "4", PartyName: "Conservative", Start: "2001-06-07", End: "2005-01-01"},
	}}
	res := Normalize(h, Config{Since: models.MustParseDate("2005-01-01")})
	assert.Len(t, res.PartySpells, 1)
}

func TestMergeLabourCoop(t *testing.T) {
	res := Normalize(sampleHarvest(), Config{MergeLabourCoop: true})

	byMember := map[int]models.PartySpell{}
	for _, s := range res.PartySpells {
		byMember[s.MemberID] = s
	}
	assert.Equal(t, LabourCoopID, byMember[3].PartyID)
	assert.Equal(t, LabourCoopName, byMember[3].PartyName)
	assert.Equal(t, LabourCoopID, byMember[4].PartyID)
	assert.Equal(t, "15", byMember[2].PartyID, "plain Labour is untouched")
}

func TestPartyAliases(t *testing.T) {
	t.Run("collapses aliased ids", func(t *testing.T) {
		res := Normalize(sampleHarvest(), Config{PartyAliases: map[string]string{"99": "47"}})
		for _, s := range res.PartySpells {
			assert.NotEqual(t, "99", s.PartyID)
		}
	})

	t.Run("resolves chains", func(t *testing.T) {
		aliases := map[string]string{"a": "b", "b": "c"}
		assert.Equal(t, "c", ResolveAlias("a", aliases))
		assert.Equal(t, "c", ResolveAlias("c", aliases))
		assert.Equal(t, "z", ResolveAlias("z", aliases))
	})

	t.Run("cycles resolve to one id", func(t *testing.T) {
		aliases := map[string]string{"x": "b", "b": "a", "a": "b"}
		assert.Equal(t, "a", ResolveAlias("x", aliases))
		assert.Equal(t, "a", ResolveAlias("a", aliases))
		assert.Equal(t, "a", ResolveAlias("b", aliases))
	})
}

func TestNormalizeIsFixedPoint(t *testing.T) {
	cfg := Config{
		Since:           models.MustParseDate("2005-01-01"),
		MergeLabourCoop: true,
		PartyAliases:    map[string]string{"99": "47", "47": "15"},
	}
	first := Normalize(sampleHarvest(), cfg)

	again := models.Harvest{Members: first.Members}
	for _, s := range first.PartySpells {
		again.PartySpells = append(again.PartySpells, s.Raw())
	}
	for _, s := range first.SeatSpells {
		again.SeatSpells = append(again.SeatSpells, s.Raw())
	}
	second := Normalize(again, cfg)

	assert.Equal(t, first.Normalized, second.Normalized)
	assert.Zero(t, second.Stats.Party.Dropped())
	assert.Zero(t, second.Stats.Seat.Dropped())
}

func TestNormalizeEmpty(t *testing.T) {
	res := Normalize(models.Harvest{}, Config{})
	assert.Empty(t, res.PartySpells)
	assert.Empty(t, res.SeatSpells)
	assert.Empty(t, res.Members)
}
