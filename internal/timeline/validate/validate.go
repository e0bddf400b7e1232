// Package validate reports temporal inconsistencies in normalized spells.
// Findings are diagnostics only; nothing here blocks the pipeline.
package validate

import (
	"fmt"
	"slices"

	"civitas/internal/timeline/models"
)

// Report holds one human-readable line per finding, by category.
type Report struct {
	NegativeDurations []string `json:"negativeDurations"`
	Overlaps          []string `json:"overlaps"`
	Gaps              []string `json:"gaps"`
}

// Empty reports whether no finding was made.
func (r Report) Empty() bool {
	return len(r.NegativeDurations) == 0 && len(r.Overlaps) == 0 && len(r.Gaps) == 0
}

// Check inspects one kind of spell (label is "party" or "seat"). Spells are
// grouped by member and ordered by start; members are visited in ascending id
// order so the report is deterministic.
func Check[S models.Spell](label string, spells []S) Report {
	byMember := make(map[int][]models.Period)
	for _, s := range spells {
		byMember[s.Member()] = append(byMember[s.Member()], s.Interval())
	}
	ids := make([]int, 0, len(byMember))
	for id := range byMember {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	r := Report{
		NegativeDurations: []string{},
		Overlaps:          []string{},
		Gaps:              []string{},
	}
	for _, id := range ids {
		periods := byMember[id]
		slices.SortStableFunc(periods, func(a, b models.Period) int {
			return a.Start.Compare(b.Start)
		})
		for i, curr := range periods {
			if curr.End != nil && curr.End.Before(curr.Start) {
				r.NegativeDurations = append(r.NegativeDurations,
					fmt.Sprintf("%s negative duration member=%d spell(%s)", label, id, span(curr)))
			}
			if i == 0 {
				continue
			}
			prev := periods[i-1]
			switch {
			case prev.End == nil || prev.End.After(curr.Start):
				r.Overlaps = append(r.Overlaps,
					fmt.Sprintf("%s overlap member=%d prev(%s) curr(%s)", label, id, span(prev), span(curr)))
			case prev.End.Before(curr.Start):
				r.Gaps = append(r.Gaps,
					fmt.Sprintf("%s gap member=%d days=%d prev(%s) curr(%s)", label, id, prev.End.DaysUntil(curr.Start), span(prev), span(curr)))
			}
		}
	}
	return r
}

func span(p models.Period) string {
	end := ""
	if p.End != nil {
		end = p.End.String()
	}
	return p.Start.String() + "-" + end
}
