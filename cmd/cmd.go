// Package cmd defines the command-line interface for estateprep.
package cmd

import (
	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the state subcommands to the parent state command
	stateCmd.AddCommand(stateStatusCmd)
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateClearCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	defaults := schema.DefaultDescriptor()
	rootCmd.PersistentFlags().StringSlice("numeric", defaults.Numeric, "Comma-separated numeric feature names")
	rootCmd.PersistentFlags().StringSlice("categorical", defaults.Categorical, "Comma-separated categorical feature names")
	rootCmd.PersistentFlags().String("date", defaults.Date, "Name of the YYYY.MM transaction date feature")
	rootCmd.PersistentFlags().String("input-format", string(schema.AutoIn), "Input format: auto or csv or json or jsonl")
	rootCmd.PersistentFlags().StringP("state-key", "k", contract.DefaultStateKey, "Key of the fitted state to store or load")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for feature values")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("state-backend", string(schema.SQLiteBackend), "Fitted-state backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("state-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("run-backend", string(schema.SQLiteBackend), "Fit-run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("run-db-connect", "", "Database connection string for fit-run tracking")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: trace or debug or info or warn or error or off")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Feature flags live under the features section of the config file
	for key, flag := range map[string]string{
		"features.numeric":     "numeric",
		"features.categorical": "categorical",
		"features.date":        "date",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			contract.LogFatal("Error binding feature flags", err)
		}
	}

	// Bind all flags of fitCmd to Viper
	fitCmd.Flags().Bool("overwrite", false, "Replace an existing fitted state with the same key")
	if err := viper.BindPFlags(fitCmd.Flags()); err != nil {
		contract.LogFatal("Error binding fit flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
