package normalize

import (
	"slices"
	"strings"

	"civitas/internal/timeline/models"
)

const (
	LabourCoopID   = "labour_coop"
	LabourCoopName = "Labour & Co-operative"
)

func isLabourCoop(name string) bool {
	return name == "Labour Co-operative" ||
		(strings.Contains(name, "Labour") && strings.Contains(name, "Co-operative"))
}

func mergeLabourCoop(spells []models.PartySpell) []models.PartySpell {
	for i := range spells {
		if isLabourCoop(spells[i].PartyName) {
			spells[i].PartyID = LabourCoopID
			spells[i].PartyName = LabourCoopName
		}
	}
	return spells
}

func applyAliases(spells []models.PartySpell, aliases map[string]string) []models.PartySpell {
	if len(aliases) == 0 {
		return spells
	}
	for i := range spells {
		spells[i].PartyID = ResolveAlias(spells[i].PartyID, aliases)
	}
	return spells
}

// ResolveAlias follows alias chains to their canonical id. A cycle resolves
// to its lexically smallest member so every id in the cycle agrees.
func ResolveAlias(id string, aliases map[string]string) string {
	path := []string{id}
	cur := id
	for {
		next, ok := aliases[cur]
		if !ok || next == "" || next == cur {
			return cur
		}
		if i := slices.Index(path, next); i >= 0 {
			return slices.Min(path[i:])
		}
		path = append(path, next)
		cur = next
	}
}
