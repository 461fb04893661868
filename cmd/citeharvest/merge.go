package main

import (
	"github.com/spf13/cobra"

	"github.com/AUMikkel/survey-scripts/internal/store"
)

var mergeOut string

func init() {
	mergeCmd.Flags().StringVar(&mergeOut, "out", "", "Store to merge into, created if missing (required)")
	mergeCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge <store>...",
	Short: "Combine batch stores into one",
	Long: `Combine results stores, e.g. from runs over separate --from/--to
windows, into --out. Inputs are merged in argument order; a seed already in
--out (or in an earlier input) keeps its existing results.`,
	Example: `  citeharvest merge --out all.json batch_0.json batch_1.json`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runMerge,
}

// MergeResult is the response for the merge command.
type MergeResult struct {
	Status    string   `json:"status"`
	Path      string   `json:"path"`
	Inputs    int      `json:"inputs"`
	Added     int      `json:"added"`
	Seeds     int      `json:"seeds"`
	Conflicts []string `json:"conflicts"`
}

func runMerge(cmd *cobra.Command, args []string) error {
	dst, err := store.Load(mergeOut)
	if err != nil {
		exitWithError(ExitDataError, "loading %s: %v", mergeOut, err)
	}

	result := MergeResult{Status: "merged", Path: mergeOut, Inputs: len(args), Conflicts: []string{}}
	for _, path := range args {
		src, err := store.Load(path)
		if err != nil {
			exitWithError(ExitDataError, "loading %s: %v", path, err)
		}
		added, conflicts := dst.Merge(src)
		result.Added += added
		result.Conflicts = append(result.Conflicts, conflicts...)
	}

	if err := dst.Save(mergeOut); err != nil {
		exitWithError(ExitPersistence, "%v", err)
	}
	result.Seeds = dst.Len()

	if humanOutput {
		outputHuman("Merged %d stores into %s: %d seeds added, %d total\n", result.Inputs, result.Path, result.Added, result.Seeds)
		if len(result.Conflicts) > 0 {
			outputHuman("  %d seeds were already present and kept their results\n", len(result.Conflicts))
		}
		return nil
	}
	return outputJSON(result)
}
