package membersapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// The Members API is inconsistent about casing, nesting and id types across
// endpoints. These payload types accept every shape seen in practice;
// encoding/json already matches keys case-insensitively.

// flexString decodes a JSON string or number. Anything else decodes as "".
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == 'n' {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*f = ""
		return nil
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

func first(values ...flexString) string {
	for _, v := range values {
		if v != "" {
			return string(v)
		}
	}
	return ""
}

// searchPage is one page of /Members/Search.
type searchPage struct {
	Items   []searchItem `json:"items"`
	Value   []searchItem `json:"value"`
	Results []searchItem `json:"results"`
}

func (p searchPage) members() []searchItem {
	switch {
	case len(p.Items) > 0:
		return p.Items
	case len(p.Value) > 0:
		return p.Value
	default:
		return p.Results
	}
}

type searchItem struct {
	Value *struct {
		ID            flexString `json:"id"`
		NameDisplayAs flexString `json:"nameDisplayAs"`
	} `json:"value"`
	MemberID  flexString `json:"MemberId"`
	ID        flexString `json:"Id"`
	Name      flexString `json:"Name"`
	DisplayAs flexString `json:"DisplayAs"`
}

// identity returns the member id and display name, id 0 when absent.
func (it searchItem) identity() (int, string) {
	var vid, vname flexString
	if it.Value != nil {
		vid, vname = it.Value.ID, it.Value.NameDisplayAs
	}
	id, err := strconv.Atoi(first(vid, it.MemberID, it.ID))
	if err != nil {
		id = 0
	}
	return id, first(vname, it.Name, it.DisplayAs)
}

// partyEntry is one party spell, from the /Parties endpoint or a container
// in the detail payload.
type partyEntry struct {
	Value *struct {
		ID            flexString `json:"id"`
		Name          flexString `json:"name"`
		NameDisplayAs flexString `json:"nameDisplayAs"`
		Start         flexString `json:"start"`
		End           flexString `json:"end"`
	} `json:"value"`
	PartyID       flexString `json:"PartyId"`
	ID            flexString `json:"Id"`
	Party         flexString `json:"Party"`
	Name          flexString `json:"Name"`
	NameDisplayAs flexString `json:"nameDisplayAs"`
	Start         flexString `json:"Start"`
	End           flexString `json:"End"`
}

func (p partyEntry) fields() (id, name, start, end string) {
	var v struct{ id, name, display, start, end flexString }
	if p.Value != nil {
		v.id, v.name, v.display = p.Value.ID, p.Value.Name, p.Value.NameDisplayAs
		v.start, v.end = p.Value.Start, p.Value.End
	}
	return first(v.id, p.PartyID, p.ID),
		first(v.name, v.display, p.Party, p.Name, p.NameDisplayAs),
		first(p.Start, v.start),
		first(p.End, v.end)
}

// partyList accepts a bare array or an envelope carrying one.
type partyList []partyEntry

func (l *partyList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var entries []partyEntry
		if err := json.Unmarshal(b, &entries); err != nil {
			return err
		}
		*l = entries
		return nil
	}
	var env struct {
		Value []partyEntry `json:"value"`
		Items []partyEntry `json:"items"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	*l = append(env.Value, env.Items...)
	return nil
}

// incumbency is one seat spell in the detail payload. Constituency is either
// a name or an object.
type incumbency struct {
	ConstituencyID flexString      `json:"ConstituencyId"`
	Constituency   json.RawMessage `json:"Constituency"`
	Start          flexString      `json:"Start"`
	End            flexString      `json:"End"`
}

func (inc incumbency) fields() (id, name, start, end string) {
	id = string(inc.ConstituencyID)
	raw := bytes.TrimSpace(inc.Constituency)
	if len(raw) > 0 && raw[0] == '{' {
		var obj struct {
			ID             flexString `json:"id"`
			ConstituencyID flexString `json:"ConstituencyId"`
			Name           flexString `json:"name"`
			NameDisplayAs  flexString `json:"nameDisplayAs"`
			Value          *struct {
				ID            flexString `json:"id"`
				Name          flexString `json:"name"`
				NameDisplayAs flexString `json:"nameDisplayAs"`
			} `json:"value"`
		}
		if json.Unmarshal(raw, &obj) == nil {
			var vid, vname, vdisplay flexString
			if obj.Value != nil {
				vid, vname, vdisplay = obj.Value.ID, obj.Value.Name, obj.Value.NameDisplayAs
			}
			if id == "" {
				id = first(obj.ID, obj.ConstituencyID, vid)
			}
			name = first(obj.Name, obj.NameDisplayAs, vname, vdisplay)
		}
	} else {
		var s flexString
		if json.Unmarshal(raw, &s) == nil {
			name = string(s)
		}
	}
	return id, name, string(inc.Start), string(inc.End)
}

type latestParty struct {
	ID           flexString `json:"id"`
	Name         flexString `json:"name"`
	Abbreviation flexString `json:"abbreviation"`
}

type houseMembership struct {
	MembershipFrom      flexString `json:"membershipFrom"`
	MembershipFromID    flexString `json:"membershipFromId"`
	MembershipStartDate flexString `json:"membershipStartDate"`
	MembershipEndDate   flexString `json:"membershipEndDate"`
}

type detailBody struct {
	Parties               partyList        `json:"Parties"`
	PartyHistory          partyList        `json:"PartyHistory"`
	Incumbencies          []incumbency     `json:"Incumbencies"`
	LatestParty           *latestParty     `json:"latestParty"`
	LatestHouseMembership *houseMembership `json:"latestHouseMembership"`
}

// memberDetail is /Members/{id}. Fields may sit at the top level or under
// value.
type memberDetail struct {
	Value *detailBody `json:"value"`
	detailBody
}

func (d memberDetail) partyContainers() []partyList {
	var out []partyList
	if d.Value != nil {
		out = append(out, d.Value.Parties, d.Value.PartyHistory)
	}
	return append(out, d.Parties, d.PartyHistory)
}

func (d memberDetail) incumbencies() []incumbency {
	if d.Value != nil && len(d.Value.Incumbencies) > 0 {
		return d.Value.Incumbencies
	}
	return d.Incumbencies
}

func (d memberDetail) latest() (*latestParty, *houseMembership) {
	if d.Value != nil {
		return d.Value.LatestParty, d.Value.LatestHouseMembership
	}
	return nil, nil
}

// incumbencyList accepts a bare array or an envelope carrying one.
type incumbencyList []incumbency

func (l *incumbencyList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var entries []incumbency
		if err := json.Unmarshal(b, &entries); err != nil {
			return err
		}
		*l = entries
		return nil
	}
	var env struct {
		Value []incumbency `json:"value"`
		Items []incumbency `json:"items"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	*l = append(env.Value, env.Items...)
	return nil
}
