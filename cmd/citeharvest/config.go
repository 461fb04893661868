package main

import (
	"github.com/spf13/cobra"

	"github.com/AUMikkel/survey-scripts/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration a harvest would run with, after applying the
config file, .env and the SCOPUS_API_KEY environment variable.

The API key is masked. The command does not fail when the key is missing;
"valid" reports whether a harvest would start.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Path         string `json:"path"`
	APIKey       string `json:"api_key"`
	BaseURL      string `json:"base_url"`
	PageSize     int    `json:"page_size"`
	MaxResults   int    `json:"max_results"`
	RequestDelay string `json:"request_delay"`
	IDKey        string `json:"id_key"`
	Valid        bool   `json:"valid"`
	Problem      string `json:"problem,omitempty"`
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	path := configPath
	if path == "" {
		path = config.Path()
	}
	resp := ConfigResponse{
		Path:         path,
		APIKey:       cfg.MaskedAPIKey(),
		BaseURL:      cfg.BaseURL,
		PageSize:     cfg.PageSize,
		MaxResults:   cfg.MaxResults,
		RequestDelay: cfg.RequestDelay.String(),
		IDKey:        cfg.IDKey,
		Valid:        true,
	}
	if err := cfg.Validate(); err != nil {
		resp.Valid = false
		resp.Problem = err.Error()
	}

	if humanOutput {
		outputHuman("config:        %s\n", resp.Path)
		outputHuman("api_key:       %s\n", resp.APIKey)
		outputHuman("base_url:      %s\n", resp.BaseURL)
		outputHuman("page_size:     %d\n", resp.PageSize)
		outputHuman("max_results:   %d\n", resp.MaxResults)
		outputHuman("request_delay: %s\n", resp.RequestDelay)
		outputHuman("id_key:        %s\n", resp.IDKey)
		if !resp.Valid {
			outputHuman("\nproblem: %s\n", resp.Problem)
		}
		return nil
	}
	return outputJSON(resp)
}
