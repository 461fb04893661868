// Package scopus provides a rate-limited client for the Elsevier Scopus APIs
// used to harvest citing and cited documents.
package scopus

import (
	"bytes"
	"encoding/json"
)

// SearchEnvelope is the response of the Scopus search endpoint.
type SearchEnvelope struct {
	Results *SearchResults `json:"search-results"`
}

// SearchResults is the body of a search response.
type SearchResults struct {
	TotalResults string        `json:"opensearch:totalResults,omitempty"`
	StartIndex   string        `json:"opensearch:startIndex,omitempty"`
	ItemsPerPage string        `json:"opensearch:itemsPerPage,omitempty"`
	Entries      []SearchEntry `json:"entry"`
}

// SearchEntry is one document in a search response. Scopus signals an empty
// result set with a single entry carrying an "error" field.
type SearchEntry struct {
	Title       string          `json:"dc:title"`
	DOI         string          `json:"prism:doi"`
	Identifier  string          `json:"dc:identifier"` // "SCOPUS_ID:<id>"
	EID         string          `json:"eid,omitempty"`
	CoverDate   string          `json:"prism:coverDate"` // YYYY-MM-DD
	Subtype     string          `json:"subtypeDescription"`
	Publication string          `json:"prism:publicationName,omitempty"`
	Error       json.RawMessage `json:"error,omitempty"`
}

// IsError reports whether the entry is the API's "no matches" marker.
func (e SearchEntry) IsError() bool {
	return len(e.Error) > 0
}

// AbstractEnvelope is the response of the abstract retrieval endpoint (view=REF).
type AbstractEnvelope struct {
	Response *AbstractResponse `json:"abstracts-retrieval-response"`
}

// AbstractResponse holds the reference list of a document.
type AbstractResponse struct {
	References *ReferenceList `json:"references"`
}

// ReferenceList wraps the "reference" member, which Scopus emits as an
// object when a document has exactly one reference and as an array otherwise.
type ReferenceList struct {
	TotalReferences string           `json:"@total-references,omitempty"`
	Reference       ReferenceEntries `json:"reference"`
}

// ReferenceEntries decodes from either a single object or an array.
type ReferenceEntries []ReferenceEntry

// UnmarshalJSON implements json.Unmarshaler.
func (r *ReferenceEntries) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}
	if data[0] == '{' {
		var one ReferenceEntry
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*r = ReferenceEntries{one}
		return nil
	}
	var many []ReferenceEntry
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

// ReferenceEntry is one cited document in an abstract retrieval response.
type ReferenceEntry struct {
	ScopusID string `json:"scopus-id"`
	RefInfo  struct {
		PublicationInfo struct {
			Title string `json:"title"`
			DOI   string `json:"doi"`
		} `json:"ref-publicationinfo"`
	} `json:"ref-info"`
}
