// Package export writes harvest results as CSV for spreadsheets.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/AUMikkel/survey-scripts/internal/storage"
	"github.com/AUMikkel/survey-scripts/internal/store"
)

var recordHeader = []string{"seed_id", "title", "doi", "scopus_id", "year", "type"}

// WriteStoreCSV flattens a results store to one row per record, in store
// order. Seeds without records produce no rows.
func WriteStoreCSV(w io.Writer, st *store.Store) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return 0, err
	}

	rows := 0
	for _, seed := range st.Keys() {
		records, _ := st.Records(seed)
		for _, r := range records {
			if err := cw.Write([]string{seed, r.Title, r.DOI, r.ScopusID, r.Year, r.Type}); err != nil {
				return rows, err
			}
			rows++
		}
	}

	cw.Flush()
	return rows, cw.Error()
}

var sharedHeader = []string{"scopus_id", "title", "type", "seed_ids", "count"}

// WriteSharedCSV writes shared documents with their seed IDs joined by ", ".
func WriteSharedCSV(w io.Writer, docs []storage.SharedDocument) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sharedHeader); err != nil {
		return err
	}
	for _, d := range docs {
		row := []string{d.ScopusID, d.Title, d.Type, strings.Join(d.Seeds, ", "), strconv.Itoa(d.Count)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
