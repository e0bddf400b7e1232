package membersapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civitas/internal/harvest/fetch"
	"civitas/internal/timeline/models"
	dErrors "civitas/pkg/domain-errors"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func routes(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}
		body, ok := responses[key]
		switch {
		case !ok:
			w.WriteHeader(http.StatusNotFound)
		case body == "500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func searchKey(skip int) string {
	return fmt.Sprintf("/api/Members/Search?House=Commons&IsCurrentMember=false&skip=%d&take=%d", skip, PageSize)
}

func TestHarvestResolvesProvenanceChains(t *testing.T) {
	srv := routes(t, map[string]string{
		searchKey(0): `{"items":[
			{"value":{"id":1,"nameDisplayAs":"Ada Member"}},
			{"value":{"id":2,"nameDisplayAs":"Bea Member"}},
			{"value":{"id":3,"nameDisplayAs":"Cy Member"}}
		]}`,
		"/api/Members/1/Parties": `[
			{"PartyId":"4","Party":"Conservative","Start":"2005-05-05T00:00:00","End":"2010-01-01T00:00:00"},
			{"PartyId":"17","Party":"Liberal Democrat","Start":"2010-01-01T00:00:00"},
			{"PartyId":"","Party":"missing id","Start":"2001-01-01"}
		]`,
		"/api/Members/1": `{"value":{"Incumbencies":[{"Constituency":{"id":10,"name":"Bath"},"start":"2005-05-05T00:00:00"}]}}`,
		"/api/Members/2": `{"value":{
			"latestParty":{"id":8,"name":"Labour"},
			"latestHouseMembership":{"membershipFrom":"Hackney","membershipFromId":99,"membershipStartDate":"1987-06-11T00:00:00"}
		}}`,
		"/api/Members/3": "500",
	})

	client := fetch.New(fetch.WithRetries(0, time.Millisecond), fetch.WithLogger(quiet))
	src := New(client, WithBaseURL(srv.URL+"/api/"), WithConcurrency(2), WithLogger(quiet))

	h, err := src.Harvest(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.Member{
		{MemberID: 1, Name: "Ada Member"},
		{MemberID: 2, Name: "Bea Member"},
		{MemberID: 3, Name: "Cy Member"},
	}, h.Members)

	assert.Equal(t, []models.RawPartySpell{
		{MemberID: 1, PartyID: "4", PartyName: "Conservative", Start: "2005-05-05T00:00:00", End: "2010-01-01T00:00:00"},
		{MemberID: 1, PartyID: "17", PartyName: "Liberal Democrat", Start: "2010-01-01T00:00:00"},
		{MemberID: 2, PartyID: "8", PartyName: "Labour", Start: "1987-06-11T00:00:00", Provisional: true},
	}, h.PartySpells)

	assert.Equal(t, []models.RawSeatSpell{
		{MemberID: 1, ConstituencyID: "10", ConstituencyName: "Bath", Start: "2005-05-05T00:00:00"},
		{MemberID: 2, ConstituencyID: "99", ConstituencyName: "Hackney", Start: "1987-06-11T00:00:00", Provisional: true},
	}, h.SeatSpells)
}

func TestHarvestSearchFailure(t *testing.T) {
	srv := routes(t, map[string]string{searchKey(0): "500"})
	client := fetch.New(fetch.WithRetries(0, time.Millisecond), fetch.WithLogger(quiet))

	_, err := New(client, WithBaseURL(srv.URL+"/api"), WithLogger(quiet)).Harvest(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

// stubGetter answers from a map of URL to JSON and records requests.
type stubGetter struct {
	mu        sync.Mutex
	responses map[string]string
	requested []string
}

func (g *stubGetter) GetJSON(_ context.Context, url string, v any) error {
	g.mu.Lock()
	g.requested = append(g.requested, url)
	g.mu.Unlock()
	body, ok := g.responses[url]
	if !ok {
		return &fetch.Error{URL: url, Status: http.StatusNotFound}
	}
	return json.Unmarshal([]byte(body), v)
}

func TestSearchPaginates(t *testing.T) {
	var page strings.Builder
	page.WriteString(`{"items":[`)
	for i := 1; i <= PageSize; i++ {
		if i > 1 {
			page.WriteString(",")
		}
		fmt.Fprintf(&page, `{"value":{"id":%d,"nameDisplayAs":"Member %d"}}`, i, i)
	}
	page.WriteString(`]}`)

	base := "https://members.test/api"
	getter := &stubGetter{responses: map[string]string{
		base + searchKey(0)[len("/api"):]:        page.String(),
		base + searchKey(PageSize)[len("/api"):]: `{"value":[{"MemberId":"501","Name":"Last Member"}]}`,
	}}

	members, err := New(getter, WithBaseURL(base), WithLogger(quiet)).search(context.Background())
	require.NoError(t, err)
	require.Len(t, members, PageSize+1)
	assert.Equal(t, models.Member{MemberID: 501, Name: "Last Member"}, members[PageSize])
}

func TestDetailContainersAndHistory(t *testing.T) {
	base := "https://members.test/api"
	getter := &stubGetter{responses: map[string]string{
		base + "/Members/7": `{
			"Parties":[{"value":{"id":"lab","name":"Labour"},"start":"2001-06-07","end":"2004-02-01"}],
			"value":{"PartyHistory":[{"Id":15,"Name":"Independent","Start":"2004-02-01"}]},
			"Incumbencies":[{"ConstituencyId":"c1","Constituency":"Old Seat","Start":"2001-06-07"}]
		}`,
		base + "/Members/7/Incumbencies": `{"value":[{"ConstituencyId":"c2","Constituency":"New Seat","Start":"2010-05-06"}]}`,
	}}

	src := New(getter, WithBaseURL(base), WithHistory(true), WithLogger(quiet))
	spells, err := src.member(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, spells.parties, 2)
	for _, p := range spells.parties {
		assert.Equal(t, models.ProvenanceDetail, p.Provenance)
		assert.False(t, p.Spell.Provisional)
	}
	assert.Equal(t, "15", spells.parties[0].Spell.PartyID, "value containers come first")
	assert.Equal(t, "lab", spells.parties[1].Spell.PartyID)

	require.Len(t, spells.seats, 1)
	assert.Equal(t, models.ProvenanceHistory, spells.seats[0].Provenance)
	assert.Equal(t, "c2", spells.seats[0].Spell.ConstituencyID)
	assert.Contains(t, getter.requested, base+"/Members/7/Parties")
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
		D flexString `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":" x ","b":42,"c":null,"d":{"nested":true}}`), &v))
	assert.Equal(t, flexString("x"), v.A)
	assert.Equal(t, flexString("42"), v.B)
	assert.Equal(t, flexString(""), v.C)
	assert.Equal(t, flexString(""), v.D)
}
