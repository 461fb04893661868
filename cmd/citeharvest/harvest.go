package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AUMikkel/survey-scripts/internal/config"
	"github.com/AUMikkel/survey-scripts/internal/harvest"
	"github.com/AUMikkel/survey-scripts/internal/scopus"
)

// Flags shared by harvest and references
var (
	seedsPath string
	outPath   string
	seedFrom  int
	seedTo    int
	idKey     string
)

func init() {
	for _, cmd := range []*cobra.Command{harvestCmd, referencesCmd} {
		cmd.Flags().StringVar(&seedsPath, "seeds", "", "JSON array of seed objects (required)")
		cmd.Flags().StringVar(&outPath, "out", "", "Results store file, created or resumed (required)")
		cmd.Flags().IntVar(&seedFrom, "from", 0, "First seed index to process (inclusive)")
		cmd.Flags().IntVar(&seedTo, "to", 0, "Seed index to stop at (exclusive, 0 = end)")
		cmd.Flags().StringVar(&idKey, "id-key", "", "Seed object field holding the identifier (overrides config id_key)")
		cmd.MarkFlagRequired("seeds")
		cmd.MarkFlagRequired("out")
		rootCmd.AddCommand(cmd)
	}
}

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Collect the documents citing each seed",
	Long: `Collect, for each seed, every Scopus document whose reference list
contains it, paging through REF(<seed>) search results.

Seeds already present in the store are skipped without any request, so the
command can be re-run after an interruption. A seed whose pages fail after
retries is stored with the records gathered so far.`,
	Example: `  citeharvest harvest --seeds papers.json --out citing.json
  citeharvest harvest --seeds papers.json --out citing.json --from 100 --to 200`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollect(func(cfg *config.Config, client *scopus.Client) harvest.Harvester {
			return harvest.NewCiting(client, cfg.MaxResults)
		})
	},
}

var referencesCmd = &cobra.Command{
	Use:   "references",
	Short: "Collect the reference list of each seed",
	Long: `Collect, for each seed, the documents in its reference list using the
Scopus abstract retrieval endpoint (one request per seed).

Resumption works as for harvest; use a separate --out file.`,
	Example: `  citeharvest references --seeds reviews.json --out references.json`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollect(func(cfg *config.Config, client *scopus.Client) harvest.Harvester {
			return harvest.NewReferences(client)
		})
	},
}

func runCollect(newHarvester func(*config.Config, *scopus.Client) harvest.Harvester) error {
	cfg := mustLoadConfig()
	if idKey == "" {
		idKey = cfg.IDKey
	}

	seeds, err := harvest.LoadSeeds(seedsPath, idKey)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	seeds = harvest.Window(seeds, seedFrom, seedTo)

	client := scopus.NewClient(
		scopus.WithAPIKey(cfg.APIKey),
		scopus.WithBaseURL(cfg.BaseURL),
		scopus.WithPageSize(cfg.PageSize),
		scopus.WithRequestDelay(cfg.RequestDelay),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, sum, err := harvest.NewCollector(newHarvester(cfg, client), outPath).
		WithOffset(seedFrom).
		Run(ctx, seeds)
	if err != nil {
		code := exitCodeFor(err)
		if errors.Is(err, context.Canceled) {
			exitWithError(code, "interrupted after %d seeds; completed seeds are saved in %s", sum.Fetched, outPath)
		}
		exitWithError(code, "%v", err)
	}

	if humanOutput {
		outputHuman("Collected %s results for %d seeds (%d skipped, %d invalid) in %s\n",
			sum.Direction, sum.Fetched, sum.Skipped, sum.Invalid, formatDuration(sum.Duration))
		outputHuman("  records:  %d over %d pages\n", sum.Records, sum.Pages)
		outputHuman("  store:    %s (%d seeds)\n", sum.StorePath, sum.StoreSeeds)
		if len(sum.Degraded) > 0 {
			outputHuman("  degraded: %d seeds had failed pages\n", len(sum.Degraded))
		}
		if len(sum.Capped) > 0 {
			outputHuman("  capped:   %d seeds reached max_results\n", len(sum.Capped))
		}
		return nil
	}
	return outputJSON(sum)
}
