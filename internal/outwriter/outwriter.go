// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteMatrix prints a feature matrix using the configured output format.
func (ow *OutWriter) WriteMatrix(m schema.FeatureMatrix, report schema.TransformReport, cfg *contract.Config, duration time.Duration) error {
	return WriteMatrixResults(m, report, cfg, duration)
}

// WriteState prints a fitted state using the configured output format.
func (ow *OutWriter) WriteState(key string, state *schema.FittedState, cfg *contract.Config) error {
	return WriteStateResults(key, state, cfg)
}

// getMaxColumnWidth calculates the maximum width for column names in table output
// based on terminal width and the number of columns shown.
func getMaxColumnWidth(cfg *contract.Config, columns int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Each cell costs its text plus a separator and padding
	available := termWidth/max(columns, 1) - 3
	if available < 8 {
		return 8
	}
	if available > 40 {
		return 40
	}
	return available
}
