package cmd

import (
	"fmt"

	"github.com/huangsam/estateprep/core"
	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/internal/iocache"
	"github.com/spf13/cobra"
)

// stateSetup loads minimal configuration needed for state store operations.
// This is used by commands that need state access without full shared setup.
func stateSetup() error {
	backend, connStr, err := storeSettings("state-backend", "state-db-connect")
	if err != nil {
		return err
	}

	// Initialize the state store only (no run tracking for state commands)
	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}

	cfg.StateBackend = backend
	cfg.StateDBConnect = connStr
	return nil
}

// stateSetupWrapper wraps stateSetup to provide PreRunE for state commands.
func stateSetupWrapper(_ *cobra.Command, _ []string) error {
	return stateSetup()
}

// stateCmd focused on fitted-state management.
//
// Note: State subcommands use minimal initialization (stateSetup) instead of
// the full sharedSetup, so they work without a valid feature configuration.
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage stored fitted states",
	Long: `Manage the fitted states written by fit and read by transform.

Each state is stored under its key together with a format version and the time
it was fitted.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (nothing is kept)

Subcommands:
  status - Show state store statistics and connection info
  list   - List stored state keys
  clear  - Remove all fitted states

Examples:
  # Check which states exist
  estateprep state list

  # Start over
  estateprep state clear`,
}

// stateClearCmd clears the state store.
var stateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all fitted states",
	Long: `Delete every fitted state from the configured backend.

WARNING: transform cannot run again until a new state is fitted.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the state table

Examples:
  # Clear SQLite states (default)
  estateprep state clear

  # Clear MySQL states (set connection string via env variable)
  ESTATEPREP_STATE_BACKEND=mysql ESTATEPREP_STATE_DB_CONNECT="..." estateprep state clear`,
	PreRunE: stateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the handle before the file or table disappears
		iocache.CloseStores()
		if err := iocache.ClearStates(cfg.StateBackend, sqlitePath(cfg.StateDBConnect, contract.GetStateDBFilePath()), cfg.StateDBConnect); err != nil {
			contract.LogFatal("Failed to clear fitted states", err)
		}
		fmt.Println("Fitted states cleared successfully.")
	},
}

// stateStatusCmd shows state store status.
var stateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display state store statistics and connection details",
	Long: `Show detailed information about the fitted-state store.

Displays:
- Backend type and connection status
- Total number of stored states
- Last and oldest fit timestamps
- State table size

Examples:
  # Check state store status
  estateprep state status`,
	PreRunE: stateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := stateStore().GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get state status", err)
		}
		iocache.PrintStateStatus(status)
	},
}

// stateListCmd lists stored states.
var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored fitted states, newest first",
	Long: `List the key, format version and fit time of every stored state.

Examples:
  # List states
  estateprep state list`,
	PreRunE: stateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		states, err := stateStore().List(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to list fitted states", err)
		}
		iocache.PrintStateList(states)
	},
}

// stateStore returns the initialized state store or exits.
func stateStore() contract.StateStore {
	store := iocache.Manager.GetStateStore()
	if store == nil {
		contract.LogFatal("State store unavailable", core.ErrNoStateStore)
	}
	return store
}

// sqlitePath returns the SQLite file named by connStr, or the default path when it is empty.
func sqlitePath(connStr, defaultPath string) string {
	if connStr != "" {
		return connStr
	}
	return defaultPath
}
