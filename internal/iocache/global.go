package iocache

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
)

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// InitStores initializes the global manager with the state store and the run store.
// An empty backend leaves the corresponding store unset.
func InitStores(stateBackend schema.DatabaseBackend, stateConnStr string, runBackend schema.DatabaseBackend, runConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var err error

		var states contract.StateStore
		if stateBackend != "" {
			states, err = NewStateStore(stateTable, stateBackend, stateConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize state store: %w", err)
				return
			}
		}

		var runs contract.RunStore
		if runBackend != "" {
			runs, err = NewRunStore(runBackend, runConnStr)
			if err != nil {
				if states != nil {
					_ = states.Close()
				}
				initErr = fmt.Errorf("failed to initialize run store: %w", err)
				return
			}
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.states = states
		Manager.runs = runs
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.states != nil {
			_ = Manager.states.Close()
		}
		if Manager.runs != nil {
			_ = Manager.runs.Close()
		}
	})
}

// ClearStates removes every fitted state for the specified backend.
// For SQLite, it deletes the database file. For MySQL/PostgreSQL, it drops the table.
func ClearStates(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearTables(backend, dbFilePath, connStr, stateTable)
}

// ClearRuns removes all fit-run history for the specified backend.
// For SQLite, it deletes the database file. For MySQL/PostgreSQL, it drops the run tables
// and the migration version table, so a later migrate starts from version 0.
func ClearRuns(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearTables(backend, dbFilePath, connStr, fitRunColumnsTable, fitRunsTable, migrationsTable)
}

func clearTables(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		// Remove the file; ignore if it doesn't exist
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		for _, table := range tables {
			if err := clearSQLTable(backend, connStr, table); err != nil {
				return err
			}
		}
		return nil

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// clearSQLTable connects to the SQL database and drops the table if it exists.
func clearSQLTable(backend schema.DatabaseBackend, connStr, tableName string) error {
	driver, err := driverName(backend)
	if err != nil {
		return err
	}
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", backend, err)
	}

	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(tableName, backend))
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	return nil
}
