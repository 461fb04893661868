package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/AUMikkel/survey-scripts/internal/importer"
)

var seedsImportOut string

func init() {
	seedsImportCmd.Flags().StringVar(&seedsImportOut, "out", "", "Seed file to write (required)")
	seedsImportCmd.MarkFlagRequired("out")
	seedsCmd.AddCommand(seedsImportCmd)
	rootCmd.AddCommand(seedsCmd)
}

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Prepare seed files",
}

var seedsImportCmd = &cobra.Command{
	Use:   "import <scopus-export.csv>",
	Short: "Convert a Scopus CSV export into a seed file",
	Long: `Convert a Scopus CSV export into a JSON seed file usable with
harvest and references. The Title, DOI and EID columns are used; the EID is
normalized to a bare Scopus ID.`,
	Example: `  citeharvest seeds import scopus.csv --out seeds.json`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSeedsImport,
}

// SeedsImportResult is the response for the seeds import command.
type SeedsImportResult struct {
	Status   string   `json:"status"`
	Path     string   `json:"path"`
	Seeds    int      `json:"seeds"`
	NoID     int      `json:"without_id"`
	Warnings []string `json:"warnings,omitempty"`
}

func runSeedsImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		exitWithError(ExitDataError, "opening export: %v", err)
	}
	defer f.Close()

	seeds, errs := importer.ParseScopusCSV(f)
	if len(seeds) == 0 && len(errs) > 0 {
		exitWithError(ExitDataError, "parsing export: %v", errs[0])
	}

	if err := importer.WriteSeeds(seedsImportOut, seeds); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	result := SeedsImportResult{Status: "imported", Path: seedsImportOut, Seeds: len(seeds)}
	for _, s := range seeds {
		if s.ScopusID == "" {
			result.NoID++
		}
	}
	for _, e := range errs {
		result.Warnings = append(result.Warnings, e.Error())
	}

	if humanOutput {
		outputHuman("Saved %d seeds to %s", result.Seeds, result.Path)
		if result.NoID > 0 {
			outputHuman(" (%d without a Scopus ID)", result.NoID)
		}
		outputHuman("\n")
		for _, w := range result.Warnings {
			outputHuman("  warning: %s\n", w)
		}
		return nil
	}
	return outputJSON(result)
}
