package main

import (
	"context"
	"errors"

	"github.com/AUMikkel/survey-scripts/internal/config"
	"github.com/AUMikkel/survey-scripts/internal/harvest"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing API key, invalid values)
	ExitDataError   = 3 // Data error (unreadable or malformed seed file or store)
	ExitPersistence = 4 // Results store could not be written
	ExitInterrupted = 130
)

// exitCodeFor maps an error returned by a collector run to an exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, harvest.ErrCheckpoint):
		return ExitPersistence
	case errors.Is(err, harvest.ErrStoreLoad):
		return ExitDataError
	case errors.Is(err, config.ErrMissingAPIKey):
		return ExitConfigError
	default:
		return ExitError
	}
}
