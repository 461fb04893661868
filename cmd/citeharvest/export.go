package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/AUMikkel/survey-scripts/internal/export"
	"github.com/AUMikkel/survey-scripts/internal/store"
)

var (
	exportStorePath string
	exportOut       string
)

func init() {
	exportCmd.Flags().StringVar(&exportStorePath, "store", "", "Results store to export (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "CSV file to write (default stdout)")
	exportCmd.MarkFlagRequired("store")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a results store as CSV",
	Long:  `Export a results store as CSV, one row per record with its seed ID.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Load(exportStorePath)
		if err != nil {
			exitWithError(ExitDataError, "loading store: %v", err)
		}

		rows, err := withOutput(exportOut, func(w io.Writer) (int, error) {
			return export.WriteStoreCSV(w, st)
		})
		if err != nil {
			exitWithError(ExitError, "writing CSV: %v", err)
		}
		if exportOut != "" {
			if humanOutput {
				outputHuman("Exported %d records to %s\n", rows, exportOut)
				return nil
			}
			return outputJSON(StatusResponse{Status: fmt.Sprintf("exported %d records", rows), Path: exportOut})
		}
		return nil
	},
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// withOutput runs write against path, or stdout when path is empty.
func withOutput(path string, write func(io.Writer) (int, error)) (int, error) {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
