package models

// Provenance tags where a harvested spell came from, in priority order.
type Provenance string

const (
	// ProvenanceHistory is a dedicated history endpoint: authoritative.
	ProvenanceHistory Provenance = "history"
	// ProvenanceDetail is a history block embedded in a member detail payload.
	ProvenanceDetail Provenance = "detail"
	// ProvenanceBulk is a bulk membership listing row.
	ProvenanceBulk Provenance = "bulk"
	// ProvenanceLatest is a single spell reconstructed from "latest" fields.
	ProvenanceLatest Provenance = "latest"
)

// Provisional reports whether spells from this source are heuristic.
func (p Provenance) Provisional() bool {
	return p == ProvenanceLatest
}

// SourcedPartySpell pairs a harvested party spell with its provenance.
type SourcedPartySpell struct {
	Spell      RawPartySpell
	Provenance Provenance
}

// SourcedSeatSpell pairs a harvested seat spell with its provenance.
type SourcedSeatSpell struct {
	Spell      RawSeatSpell
	Provenance Provenance
}
