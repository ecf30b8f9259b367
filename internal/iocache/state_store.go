package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
)

// stateTable is the name of the table holding fitted states.
const stateTable = "estateprep_fitted_states"

// StateStoreImpl keeps fitted states in a key/value table.
type StateStoreImpl struct {
	db        *sql.DB
	tableName string
	backend   schema.DatabaseBackend
	connStr   string
}

var _ contract.StateStore = &StateStoreImpl{} // Compile-time check

// NewStateStore initializes a StateStore for the backend. NoneBackend yields a store that keeps nothing.
func NewStateStore(tableName string, backend schema.DatabaseBackend, connStr string) (contract.StateStore, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	if backend == schema.NoneBackend {
		return &StateStoreImpl{tableName: tableName, backend: backend, connStr: connStr}, nil
	}

	db, err := openDB(backend, connStr, contract.GetStateDBFilePath())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(getCreateStateTableQuery(tableName, backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	return &StateStoreImpl{
		db:        db,
		tableName: tableName,
		backend:   backend,
		connStr:   connStr,
	}, nil
}

// getCreateStateTableQuery returns the CREATE TABLE query for the given backend.
func getCreateStateTableQuery(tableName string, backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(tableName, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				state_key VARCHAR(128) PRIMARY KEY,
				state_value LONGBLOB NOT NULL,
				state_version INT NOT NULL,
				state_timestamp BIGINT NOT NULL
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				state_key TEXT PRIMARY KEY,
				state_value BYTEA NOT NULL,
				state_version INTEGER NOT NULL,
				state_timestamp BIGINT NOT NULL
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				state_key TEXT PRIMARY KEY,
				state_value BLOB NOT NULL,
				state_version INTEGER NOT NULL,
				state_timestamp INTEGER NOT NULL
			);
		`, quotedTableName)
	}
}

// getUpsertQuery returns the UPSERT query for the backend.
func (ss *StateStoreImpl) getUpsertQuery() string {
	quotedTableName := quoteTableName(ss.tableName, ss.backend)
	switch ss.backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (state_key, state_value, state_version, state_timestamp) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE state_value = new.state_value, state_version = new.state_version, state_timestamp = new.state_timestamp`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (state_key, state_value, state_version, state_timestamp) VALUES ($1, $2, $3, $4)
			ON CONFLICT (state_key) DO UPDATE SET state_value = EXCLUDED.state_value, state_version = EXCLUDED.state_version, state_timestamp = EXCLUDED.state_timestamp`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (state_key, state_value, state_version, state_timestamp) VALUES (?, ?, ?, ?)`, quotedTableName)
	}
}

// Get retrieves the state stored under key.
func (ss *StateStoreImpl) Get(ctx context.Context, key string) (schema.StoredState, error) {
	if ss.db == nil {
		return schema.StoredState{}, sql.ErrNoRows
	}

	query := fmt.Sprintf(`SELECT state_value, state_version, state_timestamp FROM %s WHERE state_key = %s`,
		quoteTableName(ss.tableName, ss.backend), placeholder(ss.backend, 1))
	stored := schema.StoredState{Key: key}
	if err := ss.db.QueryRowContext(ctx, query, key).Scan(&stored.Value, &stored.Version, &stored.Timestamp); err != nil {
		return schema.StoredState{}, err
	}
	return stored, nil
}

// Set inserts or replaces the state stored under key.
func (ss *StateStoreImpl) Set(ctx context.Context, key string, value []byte, version int, timestamp int64) error {
	if ss.db == nil {
		return nil
	}
	_, err := ss.db.ExecContext(ctx, ss.getUpsertQuery(), key, value, version, timestamp)
	return err
}

// Delete removes the state stored under key.
func (ss *StateStoreImpl) Delete(ctx context.Context, key string) error {
	if ss.db == nil {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE state_key = %s`,
		quoteTableName(ss.tableName, ss.backend), placeholder(ss.backend, 1))
	_, err := ss.db.ExecContext(ctx, query, key)
	return err
}

// List returns the stored keys with their version and timestamp, newest first.
func (ss *StateStoreImpl) List(ctx context.Context) ([]schema.StoredState, error) {
	if ss.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT state_key, state_version, state_timestamp FROM %s ORDER BY state_timestamp DESC, state_key`,
		quoteTableName(ss.tableName, ss.backend))
	rows, err := ss.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fitted states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.StoredState
	for rows.Next() {
		var stored schema.StoredState
		if err := rows.Scan(&stored.Key, &stored.Version, &stored.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan fitted state: %w", err)
		}
		results = append(results, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fitted states: %w", err)
	}
	return results, nil
}

// Close closes the underlying DB connection.
func (ss *StateStoreImpl) Close() error {
	if ss.db != nil {
		return ss.db.Close()
	}
	return nil
}

// GetStatus returns status information about the state store.
func (ss *StateStoreImpl) GetStatus(ctx context.Context) (schema.StateStatus, error) {
	status := schema.StateStatus{
		Backend:   string(ss.backend),
		Connected: ss.db != nil,
	}
	if ss.db == nil {
		return status, nil
	}

	quotedTableName := quoteTableName(ss.tableName, ss.backend)
	row := ss.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName))
	if err := row.Scan(&status.TotalStates); err != nil {
		return status, fmt.Errorf("failed to get total states: %w", err)
	}
	if status.TotalStates == 0 {
		return status, nil
	}

	var lastTs, oldestTs int64
	row = ss.db.QueryRowContext(ctx, fmt.Sprintf("SELECT MAX(state_timestamp), MIN(state_timestamp) FROM %s", quotedTableName))
	if err := row.Scan(&lastTs, &oldestTs); err != nil {
		return status, fmt.Errorf("failed to get state times: %w", err)
	}
	status.LastStateTime = time.Unix(lastTs, 0)
	status.OldestStateTime = time.Unix(oldestTs, 0)
	status.TableSizeBytes = ss.tableSize(ctx, int64(status.TotalStates))
	return status, nil
}

// tableSize estimates the bytes used by the table, falling back to a rough per-row guess.
func (ss *StateStoreImpl) tableSize(ctx context.Context, rows int64) int64 {
	estimate := rows * 1000
	var size int64
	switch ss.backend {
	case schema.SQLiteBackend:
		row := ss.db.QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return 0
		}
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(ss.connStr)
		if err != nil || cfg.DBName == "" {
			return estimate
		}
		row := ss.db.QueryRowContext(ctx,
			"SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
			cfg.DBName, ss.tableName)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	case schema.PostgreSQLBackend:
		row := ss.db.QueryRowContext(ctx, "SELECT pg_total_relation_size($1)", ss.tableName)
		if err := row.Scan(&size); err != nil {
			return estimate
		}
	default:
		return estimate
	}
	return size
}
