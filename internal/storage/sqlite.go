// Package storage maintains an ephemeral SQLite index of a results store.
//
// The JSON store stays the source of truth; the database is rebuilt from it
// on demand and can be deleted at any time.
package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/AUMikkel/survey-scripts/internal/reference"
	"github.com/AUMikkel/survey-scripts/internal/store"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		-- One row per seed, including seeds with no records
		CREATE TABLE IF NOT EXISTS seeds (
			seed_id TEXT PRIMARY KEY,
			record_count INTEGER NOT NULL
		);

		-- One row per harvested record, in store order
		CREATE TABLE IF NOT EXISTS citations (
			seed_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			doi TEXT NOT NULL,
			scopus_id TEXT NOT NULL,
			year TEXT NOT NULL,
			type TEXT NOT NULL,
			PRIMARY KEY (seed_id, position)
		);

		CREATE INDEX IF NOT EXISTS idx_citations_scopus_id ON citations(scopus_id) WHERE scopus_id != '';

		-- Title search (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS citations_fts USING fts5(
			scopus_id,
			title
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromStore clears the database and loads every seed of st.
// Returns the number of records indexed.
func (d *DB) RebuildFromStore(st *store.Store) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"seeds", "citations", "citations_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	seedStmt, err := tx.Prepare(`INSERT INTO seeds (seed_id, record_count) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing seed insert: %w", err)
	}
	defer seedStmt.Close()

	citeStmt, err := tx.Prepare(`
		INSERT INTO citations (seed_id, position, title, doi, scopus_id, year, type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing citation insert: %w", err)
	}
	defer citeStmt.Close()

	ftsStmt, err := tx.Prepare(`INSERT INTO citations_fts (scopus_id, title) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	total := 0
	indexed := make(map[string]bool)
	for _, seed := range st.Keys() {
		records, _ := st.Records(seed)
		if _, err := seedStmt.Exec(seed, len(records)); err != nil {
			return 0, fmt.Errorf("inserting seed %s: %w", seed, err)
		}
		for i, r := range records {
			if _, err := citeStmt.Exec(seed, i, r.Title, r.DOI, r.ScopusID, r.Year, r.Type); err != nil {
				return 0, fmt.Errorf("inserting record %d of %s: %w", i, seed, err)
			}
			// Index each titled document once, keyed by ID when it has one.
			key := r.ScopusID
			if key == "" {
				key = "title:" + r.Title
			}
			if r.Title != "" && !indexed[key] {
				indexed[key] = true
				if _, err := ftsStmt.Exec(r.ScopusID, r.Title); err != nil {
					return 0, fmt.Errorf("inserting fts for %s: %w", seed, err)
				}
			}
		}
		total += len(records)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return total, nil
}

// Stats summarizes the indexed store.
type Stats struct {
	Seeds          int `json:"seeds"`
	EmptySeeds     int `json:"empty_seeds"`
	Records        int `json:"records"`
	RecordsNoID    int `json:"records_without_id"`
	DistinctCiters int `json:"distinct_documents"`
}

// Stats returns counts over the indexed store.
func (d *DB) Stats() (Stats, error) {
	var s Stats
	err := d.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM seeds),
			(SELECT COUNT(*) FROM seeds WHERE record_count = 0),
			(SELECT COUNT(*) FROM citations),
			(SELECT COUNT(*) FROM citations WHERE scopus_id = ''),
			(SELECT COUNT(DISTINCT scopus_id) FROM citations WHERE scopus_id != '')
	`).Scan(&s.Seeds, &s.EmptySeeds, &s.Records, &s.RecordsNoID, &s.DistinctCiters)
	if err != nil {
		return Stats{}, fmt.Errorf("computing stats: %w", err)
	}
	return s, nil
}

// SharedDocument is a related document linked to several seeds.
type SharedDocument struct {
	ScopusID string   `json:"scopus_id"`
	Title    string   `json:"title"`
	Type     string   `json:"type"`
	Seeds    []string `json:"seeds"`
	Count    int      `json:"count"`
}

// Shared returns documents related to at least minSeeds distinct seeds,
// most connected first. A non-empty docType restricts the result to that
// document type (e.g. "Review"). A non-positive limit means no limit.
func (d *DB) Shared(minSeeds int, docType string, limit int) ([]SharedDocument, error) {
	if minSeeds < 1 {
		minSeeds = 1
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := d.db.Query(`
		SELECT scopus_id, MAX(title), MAX(type), COUNT(DISTINCT seed_id) AS n, GROUP_CONCAT(DISTINCT seed_id)
		FROM citations
		WHERE scopus_id != '' AND (? = '' OR type = ?)
		GROUP BY scopus_id
		HAVING n >= ?
		ORDER BY n DESC, scopus_id
		LIMIT ?
	`, docType, docType, minSeeds, limit)
	if err != nil {
		return nil, fmt.Errorf("querying shared documents: %w", err)
	}
	defer rows.Close()

	docs := []SharedDocument{}
	for rows.Next() {
		var doc SharedDocument
		var seeds string
		if err := rows.Scan(&doc.ScopusID, &doc.Title, &doc.Type, &doc.Count, &seeds); err != nil {
			return nil, fmt.Errorf("scanning shared document: %w", err)
		}
		doc.Seeds = strings.Split(seeds, ",")
		sort.Strings(doc.Seeds)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// RecordsOf returns the indexed records of a seed in store order.
func (d *DB) RecordsOf(seed string) ([]reference.Record, error) {
	rows, err := d.db.Query(`
		SELECT title, doi, scopus_id, year, type
		FROM citations
		WHERE seed_id = ?
		ORDER BY position
	`, seed)
	if err != nil {
		return nil, fmt.Errorf("querying records of %s: %w", seed, err)
	}
	defer rows.Close()

	records := []reference.Record{}
	for rows.Next() {
		var r reference.Record
		if err := rows.Scan(&r.Title, &r.DOI, &r.ScopusID, &r.Year, &r.Type); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SearchTitles performs a full-text search over record titles.
func (d *DB) SearchTitles(query string, limit int) ([]reference.Record, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := d.db.Query(`
		SELECT scopus_id, title
		FROM citations_fts
		WHERE citations_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching titles: %w", err)
	}
	defer rows.Close()

	records := []reference.Record{}
	for rows.Next() {
		var r reference.Record
		if err := rows.Scan(&r.ScopusID, &r.Title); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// prepareFTSQuery quotes queries containing FTS5 syntax characters so they
// are matched as a phrase.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
