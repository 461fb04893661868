// Package reference defines the core domain types for harvested citation records.
package reference

// Record is one related document discovered for a seed: a paper citing the
// seed, or a paper the seed cites. Fields the source does not carry are
// empty strings, never omitted, so the persisted schema stays stable.
type Record struct {
	Title    string `json:"title"`
	DOI      string `json:"doi"`
	ScopusID string `json:"scopus_id"` // Empty means unusable for graph building
	Year     string `json:"year"`      // Four-digit year or empty
	Type     string `json:"type"`      // Document subtype, e.g. "Article", "Review"
}

// HasID reports whether the record can be linked to other documents.
func (r Record) HasID() bool {
	return r.ScopusID != ""
}

// Direction names which side of the citation relation a harvest collects.
type Direction string

const (
	// Citing collects documents that cite the seed.
	Citing Direction = "citing"
	// Cited collects documents the seed references.
	Cited Direction = "cited"
)
