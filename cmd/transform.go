package cmd

import (
	"github.com/huangsam/estateprep/core"
	"github.com/huangsam/estateprep/internal/contract"
	"github.com/spf13/cobra"
)

// transformCmd applies a stored state to new records.
var transformCmd = &cobra.Command{
	Use:   "transform <input-file>",
	Short: "Transform records into feature vectors with a stored state.",
	Long: `Load the fitted state stored under --state-key and transform every input record
into a feature vector with the exact column layout seen at fit time.

Missing numeric values are imputed with the training mean and categorical values
never seen at fit time are encoded as all zeros. Both are counted in the summary.

Examples:
  # Print feature vectors as a table
  estateprep transform new.csv

  # Write model-ready vectors to CSV
  estateprep transform new.json --output csv --output-file features.csv

  # Columnar output for pandas or DuckDB
  estateprep transform new.csv --output parquet --output-file features.parquet`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTransform(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot transform records", err)
		}
	},
}
