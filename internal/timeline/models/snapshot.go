package models

import "time"

// SnapshotMember is one seat holder at a snapshot date.
type SnapshotMember struct {
	MemberID         int    `json:"memberId"`
	Name             string `json:"name"`
	ConstituencyID   string `json:"constituencyId"`
	ConstituencyName string `json:"constituencyName"`
	PartyID          string `json:"partyId"`
	PartyName        string `json:"partyName"`
	Provisional      bool   `json:"provisional,omitempty"`
}

// SnapshotSource identifies the inputs a snapshot was built from.
type SnapshotSource struct {
	MembersHash string `json:"membersHash"`
	EventsHash  string `json:"eventsHash"`
}

type SnapshotMeta struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Source      SnapshotSource `json:"source"`
}

// Snapshot is the full chamber composition at one date. Total always equals
// len(Members) and Members is sorted by MemberID.
type Snapshot struct {
	Date    Date             `json:"date"`
	Meta    SnapshotMeta     `json:"meta"`
	Members []SnapshotMember `json:"members"`
	Parties map[string]int   `json:"parties"`
	Total   int              `json:"total"`
}

// IndexEntry summarizes one persisted snapshot for a presentation layer.
type IndexEntry struct {
	Date        Date      `json:"date"`
	SafeDate    string    `json:"safeDate"`
	File        string    `json:"file"`
	Total       int       `json:"total"`
	GeneratedAt time.Time `json:"generatedAt"`
}
