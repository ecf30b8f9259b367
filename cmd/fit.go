package cmd

import (
	"github.com/huangsam/estateprep/core"
	"github.com/huangsam/estateprep/internal/contract"
	"github.com/spf13/cobra"
)

// fitCmd learns a fitted state from a training file.
var fitCmd = &cobra.Command{
	Use:   "fit <training-file>",
	Short: "Fit the preprocessing pipeline on training records and store its state.",
	Long: `Fit every pipeline stage on a training batch and persist the fitted state.

Fitting learns:
- The observed mean of each numeric feature, used to impute missing values
- The mean and population standard deviation used for scaling
- The sorted vocabulary of each categorical feature
- The passthrough columns carried unchanged from the first record

The state is stored under --state-key. An existing state is never replaced
unless --overwrite is given. Each fit is recorded in the run history.

Examples:
  # Fit on a CSV training file with the default real-estate features
  estateprep fit train.csv

  # Fit a second state with custom features
  estateprep fit train.jsonl --state-key v2 --numeric HouseAge,DistanceToStation --categorical PostCode

  # Refit and also write the training feature matrix
  estateprep fit train.csv --overwrite --output csv --output-file train_features.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteFit(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot fit preprocessor", err)
		}
	},
}
