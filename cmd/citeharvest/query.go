package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AUMikkel/survey-scripts/internal/export"
	"github.com/AUMikkel/survey-scripts/internal/scopus"
)

var (
	queryDBPath string
	sharedMin   int
	sharedType  string
	sharedCSV   string
	queryLimit  int
)

func init() {
	queryCmd.PersistentFlags().StringVar(&queryDBPath, "db", defaultDBPath, "SQLite database built by 'citeharvest index'")

	sharedCmd.Flags().IntVar(&sharedMin, "min-seeds", 2, "Minimum number of seeds a document must be linked to")
	sharedCmd.Flags().StringVar(&sharedType, "type", "", "Only documents of this type (e.g. Review)")
	sharedCmd.Flags().IntVar(&queryLimit, "limit", 50, "Maximum results (0 = no limit)")
	sharedCmd.Flags().StringVar(&sharedCSV, "csv", "", "Also write the results to this CSV file")
	searchCmd.Flags().IntVar(&queryLimit, "limit", 50, "Maximum results (0 = no limit)")

	queryCmd.AddCommand(statsCmd, sharedCmd, recordsCmd, searchCmd)
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query an indexed results store",
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show seed and record counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db := mustOpenIndex(queryDBPath)
		defer db.Close()

		stats, err := db.Stats()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			outputHuman("Seeds:              %d (%d without results)\n", stats.Seeds, stats.EmptySeeds)
			outputHuman("Records:            %d (%d without Scopus ID)\n", stats.Records, stats.RecordsNoID)
			outputHuman("Distinct documents: %d\n", stats.DistinctCiters)
			return nil
		}
		return outputJSON(stats)
	},
}

var sharedCmd = &cobra.Command{
	Use:   "shared",
	Short: "List documents linked to several seeds",
	Long: `List documents that appear in the results of at least --min-seeds
seeds, most connected first. In a citing store these are documents citing
many seeds; with --type Review they are candidate related reviews.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db := mustOpenIndex(queryDBPath)
		defer db.Close()

		docs, err := db.Shared(sharedMin, sharedType, queryLimit)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if sharedCSV != "" {
			if _, err := withOutput(sharedCSV, func(w io.Writer) (int, error) {
				return len(docs), export.WriteSharedCSV(w, docs)
			}); err != nil {
				exitWithError(ExitError, "writing CSV: %v", err)
			}
		}
		if humanOutput {
			if len(docs) == 0 {
				outputHuman("No documents linked to %d or more seeds\n", sharedMin)
				return nil
			}
			for i, d := range docs {
				outputHuman("%d. [%d] %s (%s)\n", i+1, d.Count, d.ScopusID, d.Type)
				outputHuman("   %s\n", truncateString(d.Title, titleMaxLen))
				outputHuman("   seeds: %s\n\n", strings.Join(d.Seeds, ", "))
			}
			return nil
		}
		return outputJSON(docs)
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records <seed>",
	Short: "List the stored records of one seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := mustOpenIndex(queryDBPath)
		defer db.Close()

		seed := scopus.Normalize(args[0])
		records, err := db.RecordsOf(seed)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			outputHuman("%d records for %s\n", len(records), seed)
			for _, r := range records {
				outputHuman("  %-12s %-4s %-12s %s\n", r.ScopusID, r.Year, r.Type, truncateString(r.Title, titleMaxLen))
			}
			return nil
		}
		return outputJSON(records)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over record titles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := mustOpenIndex(queryDBPath)
		defer db.Close()

		records, err := db.SearchTitles(strings.Join(args, " "), queryLimit)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			for _, r := range records {
				outputHuman("  %-12s %s\n", r.ScopusID, truncateString(r.Title, titleMaxLen))
			}
			return nil
		}
		return outputJSON(records)
	},
}
