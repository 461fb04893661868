package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AUMikkel/survey-scripts/internal/storage"
	"github.com/AUMikkel/survey-scripts/internal/store"
)

const defaultDBPath = "citeharvest.db"

var (
	indexStorePath string
	indexDBPath    string
)

func init() {
	indexCmd.Flags().StringVar(&indexStorePath, "store", "", "Results store to index (required)")
	indexCmd.Flags().StringVar(&indexDBPath, "db", defaultDBPath, "SQLite database to rebuild")
	indexCmd.MarkFlagRequired("store")
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the SQLite query index from a results store",
	Long: `Rebuild the SQLite query database from a results store.

The store stays the source of truth; the database can be deleted and
rebuilt at any time.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

// IndexResult is the response for the index command.
type IndexResult struct {
	Status  string `json:"status"`
	DB      string `json:"db"`
	Seeds   int    `json:"seeds"`
	Records int    `json:"records"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	st, err := store.Load(indexStorePath)
	if err != nil {
		exitWithError(ExitDataError, "loading store: %v", err)
	}

	db := mustOpenDatabase(indexDBPath)
	defer db.Close()

	n, err := db.RebuildFromStore(st)
	if err != nil {
		exitWithError(ExitError, "rebuilding index: %v", err)
	}

	if humanOutput {
		outputHuman("Rebuilt %s with %d records from %d seeds\n", indexDBPath, n, st.Len())
		return nil
	}
	return outputJSON(IndexResult{Status: "rebuilt", DB: indexDBPath, Seeds: st.Len(), Records: n})
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(path string) *storage.DB {
	db, err := storage.OpenDB(path)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// errIndexNotFound is returned by checkIndex for a missing database file.
var errIndexNotFound = errors.New("index not found")

// checkIndex reports whether path holds a database built by 'citeharvest index'.
func checkIndex(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errIndexNotFound, path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// mustOpenIndex opens an existing index for queries, exits if there is none.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenIndex(path string) *storage.DB {
	if err := checkIndex(path); err != nil {
		if errors.Is(err, errIndexNotFound) {
			exitWithError(ExitConfigError, "%v\n\nRun 'citeharvest index --store <file> --db %s' to create it.", err, path)
		}
		exitWithError(ExitError, "opening database: %v", err)
	}
	return mustOpenDatabase(path)
}
