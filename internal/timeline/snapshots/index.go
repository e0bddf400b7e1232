package snapshots

import (
	"fmt"

	"civitas/internal/timeline/models"
)

// IndexFile is the name of the snapshot index artifact.
const IndexFile = "official.index.json"

// SafeDate renders a snapshot date for use in a file name and the index's
// safeDate field. Dates are day precision, so the ISO form is already safe.
func SafeDate(d models.Date) string {
	return d.String()
}

// Files names every snapshot. The first snapshot on a date is
// official-parliament-<date>.json; later ones on the same date get -2, -3 and
// so on, so no artifact overwrites another.
func Files(snaps []models.Snapshot) []models.SnapshotFile {
	seen := make(map[models.Date]int, len(snaps))
	out := make([]models.SnapshotFile, 0, len(snaps))
	for _, s := range snaps {
		seen[s.Date]++
		name := "official-parliament-" + SafeDate(s.Date)
		if n := seen[s.Date]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		out = append(out, models.SnapshotFile{Name: name + ".json", Snapshot: s})
	}
	return out
}

// Index summarizes named snapshots for a presentation layer, in replay order.
func Index(files []models.SnapshotFile) []models.IndexEntry {
	out := make([]models.IndexEntry, 0, len(files))
	for _, f := range files {
		out = append(out, models.IndexEntry{
			Date:        f.Snapshot.Date,
			SafeDate:    SafeDate(f.Snapshot.Date),
			File:        f.Name,
			Total:       f.Snapshot.Total,
			GeneratedAt: f.Snapshot.Meta.GeneratedAt,
		})
	}
	return out
}
