// Package harvest drives the Scopus client across seeds: paginating each
// seed's result set and checkpointing every completed seed to the store.
package harvest

import (
	"context"

	"github.com/AUMikkel/survey-scripts/internal/reference"
	"github.com/AUMikkel/survey-scripts/internal/scopus"
)

// DefaultMaxResults bounds pagination for one seed.
const DefaultMaxResults = 5000

// Status tells how a seed's harvest ended.
type Status int

const (
	// StatusComplete: the API reported the end of the result set.
	StatusComplete Status = iota
	// StatusCapped: pagination stopped at the max-results bound.
	StatusCapped
	// StatusDegraded: a request failed and later pages were not fetched.
	// The records gathered before the failure are kept.
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusCapped:
		return "capped"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of harvesting one seed.
type Outcome struct {
	Seed    string
	Records []reference.Record
	Pages   int // page requests issued
	Status  Status
	Err     error // cause when Status is StatusDegraded
}

// Harvester collects the related documents of one seed.
type Harvester interface {
	Harvest(ctx context.Context, seed string) Outcome
	Direction() reference.Direction
}

// PageSource fetches one page of citing documents.
type PageSource interface {
	FetchCitingPage(ctx context.Context, seed string, offset int) scopus.Page
	PageSize() int
}

// Citing harvests every document citing a seed, page by page.
type Citing struct {
	source     PageSource
	maxResults int
}

// NewCiting creates a citing-direction harvester. A non-positive maxResults
// uses DefaultMaxResults.
func NewCiting(source PageSource, maxResults int) *Citing {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Citing{source: source, maxResults: maxResults}
}

// Direction implements Harvester.
func (h *Citing) Direction() reference.Direction {
	return reference.Citing
}

// Harvest fetches pages from offset 0 until the API returns its terminal
// page, a page comes back empty or failed, or the offset reaches the
// max-results bound. Short pages do not end the loop. Records from every
// page fetched before the stop are returned.
func (h *Citing) Harvest(ctx context.Context, seed string) Outcome {
	out := Outcome{Seed: seed, Records: []reference.Record{}, Status: StatusComplete}

	pageSize := h.source.PageSize()
	if pageSize <= 0 {
		pageSize = scopus.DefaultPageSize
	}

	for offset := 0; ; offset += pageSize {
		if offset >= h.maxResults {
			out.Status = StatusCapped
			return out
		}

		page := h.source.FetchCitingPage(ctx, seed, offset)
		out.Pages++

		switch page.Status {
		case scopus.PageFailed:
			out.Status = StatusDegraded
			out.Err = page.Err
			return out
		case scopus.PageTerminal:
			return out
		}
		if len(page.Records) == 0 {
			return out
		}

		out.Records = append(out.Records, page.Records...)
	}
}

// ReferenceSource fetches the reference list of a document.
type ReferenceSource interface {
	FetchReferences(ctx context.Context, seed string) scopus.Page
}

// References harvests the documents a seed cites.
type References struct {
	source ReferenceSource
}

// NewReferences creates a cited-direction harvester.
func NewReferences(source ReferenceSource) *References {
	return &References{source: source}
}

// Direction implements Harvester.
func (h *References) Direction() reference.Direction {
	return reference.Cited
}

// Harvest fetches the seed's reference list in a single request.
func (h *References) Harvest(ctx context.Context, seed string) Outcome {
	page := h.source.FetchReferences(ctx, seed)
	out := Outcome{Seed: seed, Records: []reference.Record{}, Pages: 1, Status: StatusComplete}
	if page.Status == scopus.PageFailed {
		out.Status = StatusDegraded
		out.Err = page.Err
		return out
	}
	out.Records = append(out.Records, page.Records...)
	return out
}
