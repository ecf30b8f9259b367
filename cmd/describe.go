package cmd

import (
	"github.com/huangsam/estateprep/core"
	"github.com/huangsam/estateprep/internal/contract"
	"github.com/spf13/cobra"
)

// describeCmd prints a stored state.
var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show the columns, statistics and vocabularies of a stored state.",
	Long: `Print what a fitted state learned: its output column layout, the imputation
and scaling statistics of each numeric feature and the vocabulary of each
categorical feature.

Examples:
  # Describe the default state
  estateprep describe

  # Dump a named state as JSON
  estateprep describe --state-key v2 --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteDescribe(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot describe state", err)
		}
	},
}
