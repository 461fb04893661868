package scopus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AUMikkel/survey-scripts/internal/reference"
)

// PageStatus classifies the result of fetching one page.
type PageStatus int

const (
	// PageRecords is a successfully decoded page. Its record list may be
	// shorter than the page size, or empty.
	PageRecords PageStatus = iota
	// PageTerminal is the API's "no results" marker: nothing at or beyond this offset.
	PageTerminal
	// PageFailed means the request exhausted its retries or the body did not
	// decode. It carries no records and is reported as zero results.
	PageFailed
)

func (s PageStatus) String() string {
	switch s {
	case PageRecords:
		return "records"
	case PageTerminal:
		return "terminal"
	case PageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Page is one fetched slice of a result set.
type Page struct {
	Offset  int
	Status  PageStatus
	Records []reference.Record
	Total   int   // opensearch:totalResults when reported
	Err     error // cause when Status is PageFailed
}

// CitingQuery returns the search expression matching documents that cite seed.
func CitingQuery(seed string) string {
	return "REF(" + seed + ")"
}

// CitingPageURL builds the search URL for one page of citing documents.
func (c *Client) CitingPageURL(seed string, offset int) string {
	q := url.Values{}
	q.Set("query", CitingQuery(seed))
	q.Set("start", strconv.Itoa(offset))
	q.Set("count", strconv.Itoa(c.pageSize))
	return c.baseURL + "/content/search/scopus?" + q.Encode()
}

// FetchCitingPage fetches the page of documents citing seed that starts at
// offset. Failures never escape as errors: they produce a PageFailed page
// so the caller can stop paginating and keep what it already has.
func (c *Client) FetchCitingPage(ctx context.Context, seed string, offset int) Page {
	page := Page{Offset: offset}

	body, err := c.Get(ctx, c.CitingPageURL(seed, offset), nil)
	if err != nil {
		return c.failPage(page, seed, err)
	}

	page, err = DecodeSearchPage(body, offset)
	if err != nil {
		return c.failPage(page, seed, err)
	}

	pagesTotal.WithLabelValues(page.Status.String()).Inc()
	return page
}

// DecodeSearchPage decodes a search response body into a Page. Missing
// optional fields decode as empty strings. A body without a search-results
// member decodes as an empty page.
func DecodeSearchPage(body []byte, offset int) (Page, error) {
	page := Page{Offset: offset}

	var env SearchEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return page, fmt.Errorf("%w: parsing search results: %v", ErrInvalidResponse, err)
	}
	if env.Results == nil {
		return page, nil
	}

	page.Total, _ = strconv.Atoi(env.Results.TotalResults)

	entries := env.Results.Entries
	if len(entries) == 1 && entries[0].IsError() {
		page.Status = PageTerminal
		return page, nil
	}

	page.Records = make([]reference.Record, 0, len(entries))
	for _, e := range entries {
		page.Records = append(page.Records, MapEntry(e))
	}
	return page, nil
}

// MapEntry converts a search entry to a Record.
func MapEntry(e SearchEntry) reference.Record {
	return reference.Record{
		Title:    e.Title,
		DOI:      e.DOI,
		ScopusID: Normalize(e.Identifier),
		Year:     coverYear(e.CoverDate),
		Type:     e.Subtype,
	}
}

func (c *Client) failPage(page Page, seed string, err error) Page {
	page.Status = PageFailed
	page.Records = nil
	page.Err = err
	pagesTotal.WithLabelValues(page.Status.String()).Inc()
	c.logger.Warn().
		Err(err).
		Str("seed", seed).
		Int("offset", page.Offset).
		Msg("page failed, treating as empty")
	return page
}

// referenceHeader selects the XOCS representation, which carries reference lists.
var referenceHeader = http.Header{"X-ELS-ResourceVersion": []string{"XOCS"}}

// ReferencesURL builds the abstract retrieval URL listing seed's references.
func (c *Client) ReferencesURL(seed string) string {
	return c.baseURL + "/content/abstract/scopus_id/" + url.PathEscape(seed) + "?view=REF"
}

// FetchReferences fetches the documents referenced by seed. The whole list
// arrives in one response, returned as a single page: PageRecords when the
// document lists references, PageTerminal when it lists none, PageFailed on
// exhausted retries or an undecodable body.
func (c *Client) FetchReferences(ctx context.Context, seed string) Page {
	page := Page{}

	body, err := c.Get(ctx, c.ReferencesURL(seed), referenceHeader)
	if err != nil {
		return c.failPage(page, seed, err)
	}

	page, err = DecodeReferences(body)
	if err != nil {
		return c.failPage(page, seed, err)
	}
	if page.Status == PageTerminal {
		c.logger.Info().Str("seed", seed).Msg("no references listed")
	}

	pagesTotal.WithLabelValues(page.Status.String()).Inc()
	return page
}

// DecodeReferences decodes an abstract retrieval body into a Page.
func DecodeReferences(body []byte) (Page, error) {
	page := Page{}

	var env AbstractEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return page, fmt.Errorf("%w: parsing references: %v", ErrInvalidResponse, err)
	}
	if env.Response == nil || env.Response.References == nil || len(env.Response.References.Reference) == 0 {
		page.Status = PageTerminal
		return page, nil
	}

	refs := env.Response.References
	page.Total, _ = strconv.Atoi(refs.TotalReferences)
	page.Records = make([]reference.Record, 0, len(refs.Reference))
	for _, r := range refs.Reference {
		page.Records = append(page.Records, reference.Record{
			Title:    r.RefInfo.PublicationInfo.Title,
			DOI:      r.RefInfo.PublicationInfo.DOI,
			ScopusID: Normalize(r.ScopusID),
		})
	}
	return page, nil
}
