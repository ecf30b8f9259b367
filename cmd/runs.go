package cmd

import (
	"fmt"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/internal/iocache"
	"github.com/huangsam/estateprep/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsSetup loads minimal configuration needed for run history operations.
// This is used by commands that need run access without full shared setup.
func runsSetup() error {
	backend, connStr, err := storeSettings("run-backend", "run-db-connect")
	if err != nil {
		return err
	}

	// Initialize the run store only (no state store for runs commands)
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}

	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file") // Used by export command
	return nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func runsMigrateSetup() error {
	backend, connStr, err := storeSettings("run-backend", "run-db-connect")
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend {
		connStr = sqlitePath(connStr, contract.GetRunDBFilePath())
	}

	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	return nil
}

// runsMigrateSetupWrapper wraps runsMigrateSetup to provide PreRunE for migrate command.
func runsMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsMigrateSetup()
}

// runsCmd focused on fit-run history.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage fit-run history and exports",
	Long: `Manage the history of fit runs.

Every fit records:
- Run metadata (state key, timestamps, duration, configuration)
- The number of training records and output columns
- The full output column layout with the stage that produced each column

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show run history statistics
  export  - Export runs and column layouts to Parquet
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  # Check run history
  estateprep runs status

  # Export for analysis in pandas/DuckDB
  estateprep runs export --output-file runs`,
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all fit-run history",
	Long: `Delete all stored fit runs and their column layouts.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before clearing
  estateprep runs export --output-file backup
  estateprep runs clear`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		if err := iocache.ClearRuns(cfg.RunBackend, sqlitePath(cfg.RunDBConnect, contract.GetRunDBFilePath()), cfg.RunDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// runsStatusCmd shows run history status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show detailed information about fit-run tracking.

Displays:
- Backend type and connection status
- Total number of fit runs stored
- Last and oldest fit run timestamps
- Total training records across all runs
- Database table sizes

Examples:
  # Check run tracking status
  estateprep runs status`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := runStore().GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		iocache.PrintRunStatus(status)
	},
}

// runsExportCmd exports run history to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export fit-run history to Parquet for BI tools and analytics",
	Long: `Export all stored fit runs to Parquet format.

Exports two datasets next to --output-file:
- <output-file>.fit_runs.parquet - metadata about each fit
- <output-file>.fit_run_columns.parquet - the output column layout of each fit

Requires: --output-file parameter

Examples:
  # Export all data
  estateprep runs export --output-file history

  # Use with DuckDB for analysis
  duckdb -c "SELECT * FROM read_parquet('history.fit_runs.parquet') LIMIT 10"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteRunExport(rootCtx, runStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the fit-run store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  estateprep runs migrate

  # Migrate to specific version
  estateprep runs migrate --target-version 2

  # Rollback to initial state
  estateprep runs migrate --target-version 0`,
	PreRunE: runsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateRuns(cfg.RunBackend, cfg.RunDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

// runStore returns the initialized run store or exits.
func runStore() contract.RunStore {
	store := iocache.Manager.GetRunStore()
	if store == nil {
		contract.LogFatal("Run store unavailable", fmt.Errorf("run store is not initialized"))
	}
	return store
}
