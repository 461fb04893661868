// Package importer converts external search exports into seed lists.
package importer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AUMikkel/survey-scripts/internal/scopus"
)

// Seed is one entry of a seed file, as read by harvest.LoadSeeds.
type Seed struct {
	Title    string `json:"title"`
	DOI      string `json:"doi"`
	ScopusID string `json:"scopus_id"`
}

// Column names of a Scopus CSV export. EID holds the 2-s2.0- form.
const (
	columnTitle = "title"
	columnDOI   = "doi"
	columnEID   = "eid"
)

// ErrNoHeader is returned when the export has no header row.
var ErrNoHeader = errors.New("missing CSV header row")

// ParseScopusCSV reads a Scopus CSV export and returns one seed per data
// row, in file order. Missing columns and blank cells yield empty fields;
// a row without a usable EID is kept, and later skipped by the collector.
// Malformed rows are reported in the error slice and left out.
func ParseScopusCSV(r io.Reader) ([]Seed, []error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, []error{ErrNoHeader}
	}
	if err != nil {
		return nil, []error{fmt.Errorf("reading CSV header: %w", err)}
	}
	cols := indexColumns(header)

	var seeds []Seed
	var errs []error
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, err)
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			break
		}

		seeds = append(seeds, Seed{
			Title:    cell(row, cols, columnTitle),
			DOI:      cell(row, cols, columnDOI),
			ScopusID: scopus.Normalize(cell(row, cols, columnEID)),
		})
	}

	return seeds, errs
}

// indexColumns maps lower-cased header names to their positions.
func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff") // Excel BOM
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// WriteSeeds writes seeds as an indented JSON array to path.
func WriteSeeds(path string, seeds []Seed) error {
	if seeds == nil {
		seeds = []Seed{}
	}
	data, err := json.MarshalIndent(seeds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding seeds: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing seeds: %w", err)
	}
	return nil
}
