package models

import "time"

// SnapshotFile is a snapshot with the artifact name it is stored under.
type SnapshotFile struct {
	Name     string
	Snapshot Snapshot
}

// Run is everything one pipeline execution produces.
type Run struct {
	ID          string
	GeneratedAt time.Time
	Normalized  Normalized
	Events      []Event
	Snapshots   []SnapshotFile
	Index       []IndexEntry
}
