package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
)

// Table names for fit-run tracking.
const (
	fitRunsTable       = "estateprep_fit_runs"
	fitRunColumnsTable = "estateprep_fit_run_columns"
)

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &RunStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, contract.GetRunDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := createRunTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create fit-run tables: %w", err)
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

// createRunTables creates the fit-run tracking tables.
func createRunTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{fitRunsTable, getCreateFitRunsQuery(backend)},
		{fitRunColumnsTable, getCreateFitRunColumnsQuery(backend)},
	}
	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateFitRunsQuery returns the CREATE TABLE query for estateprep_fit_runs.
func getCreateFitRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(fitRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				state_key VARCHAR(128) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_records INT NOT NULL DEFAULT 0,
				total_columns INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				state_key TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_records INT NOT NULL DEFAULT 0,
				total_columns INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				state_key TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_records INTEGER NOT NULL DEFAULT 0,
				total_columns INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateFitRunColumnsQuery returns the CREATE TABLE query for estateprep_fit_run_columns.
func getCreateFitRunColumnsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(fitRunColumnsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				column_index INT NOT NULL,
				column_name VARCHAR(512) NOT NULL,
				column_kind VARCHAR(32) NOT NULL,
				PRIMARY KEY (run_id, column_index)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				column_index INT NOT NULL,
				column_name TEXT NOT NULL,
				column_kind TEXT NOT NULL,
				PRIMARY KEY (run_id, column_index)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				column_index INTEGER NOT NULL,
				column_name TEXT NOT NULL,
				column_kind TEXT NOT NULL,
				PRIMARY KEY (run_id, column_index)
			);
		`, quotedTableName)
	}
}

// BeginRun creates a new fit run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(ctx context.Context, stateKey string, startTime time.Time, configParams map[string]any) (int64, error) {
	if rs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(fitRunsTable, rs.backend)
	var runID int64
	switch rs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (state_key, start_time, config_params) VALUES ($1, $2, $3) RETURNING run_id`, quotedTableName)
		err = rs.db.QueryRowContext(ctx, query, stateKey, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (state_key, start_time, config_params) VALUES (?, ?, ?)`, quotedTableName)
		var result sql.Result
		result, err = rs.db.ExecContext(ctx, query, stateKey, formatTime(startTime, rs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert fit run: %w", err)
	}
	return runID, nil
}

// EndRun updates the fit run with completion data.
func (rs *RunStoreImpl) EndRun(ctx context.Context, runID int64, endTime time.Time, totalRecords, totalColumns int) error {
	if rs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(fitRunsTable, rs.backend)
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, placeholder(rs.backend, 1))
	var startTime dbTime
	if err := rs.db.QueryRowContext(ctx, query, runID).Scan(&startTime); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(startTime.Time).Milliseconds()

	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, total_records = %s, total_columns = %s WHERE run_id = %s`,
		quotedTableName,
		placeholder(rs.backend, 1), placeholder(rs.backend, 2), placeholder(rs.backend, 3),
		placeholder(rs.backend, 4), placeholder(rs.backend, 5))
	if _, err := rs.db.ExecContext(ctx, update, formatTime(endTime, rs.backend), durationMs, totalRecords, totalColumns, runID); err != nil {
		return fmt.Errorf("failed to update fit run: %w", err)
	}
	return nil
}

// RecordColumns stores the output column layout of a run in a single transaction.
func (rs *RunStoreImpl) RecordColumns(ctx context.Context, runID int64, columns []schema.Column) error {
	if rs.db == nil || len(columns) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (run_id, column_index, column_name, column_kind) VALUES (%s, %s, %s, %s)`,
		quoteTableName(fitRunColumnsTable, rs.backend),
		placeholder(rs.backend, 1), placeholder(rs.backend, 2), placeholder(rs.backend, 3), placeholder(rs.backend, 4))

	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare column insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, col := range columns {
		if _, err := stmt.ExecContext(ctx, runID, i, col.Name, string(col.Kind)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert column %s: %w", col.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit columns: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus(ctx context.Context) (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.db == nil {
		return status, nil
	}

	quotedRuns := quoteTableName(fitRunsTable, rs.backend)
	row := rs.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedRuns))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var lastRunTime dbTime
		row = rs.db.QueryRowContext(ctx, fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quotedRuns))
		if err := row.Scan(&status.LastRunID, &lastRunTime); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunTime = lastRunTime.Time

		var oldestRunTime dbTime
		row = rs.db.QueryRowContext(ctx, fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quotedRuns))
		if err := row.Scan(&oldestRunTime); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldestRunTime.Time

		row = rs.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(SUM(total_records), 0) FROM %s", quotedRuns))
		if err := row.Scan(&status.TotalRecords); err != nil {
			return status, fmt.Errorf("failed to get total records: %w", err)
		}
	}

	for _, table := range []string{fitRunsTable, fitRunColumnsTable} {
		var count int64
		row = rs.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// GetAllRuns retrieves all fit runs from the store.
func (rs *RunStoreImpl) GetAllRuns(ctx context.Context) ([]schema.FitRunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, state_key, start_time, end_time, run_duration_ms, total_records, total_columns, config_params
		FROM %s ORDER BY run_id`, quoteTableName(fitRunsTable, rs.backend))
	rows, err := rs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fit runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FitRunRecord
	for rows.Next() {
		var record schema.FitRunRecord
		var startTime, endTime dbTime
		if err := rows.Scan(&record.RunID, &record.StateKey, &startTime, &endTime, &record.RunDurationMs,
			&record.TotalRecords, &record.TotalColumns, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan fit run: %w", err)
		}
		record.StartTime = startTime.Time
		record.EndTime = endTime.Ptr()
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fit runs: %w", err)
	}
	return results, nil
}

// GetAllColumns retrieves all recorded run columns from the store.
func (rs *RunStoreImpl) GetAllColumns(ctx context.Context) ([]schema.FitColumnRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, column_index, column_name, column_kind FROM %s ORDER BY run_id, column_index`,
		quoteTableName(fitRunColumnsTable, rs.backend))
	rows, err := rs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fit run columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FitColumnRecord
	for rows.Next() {
		var record schema.FitColumnRecord
		if err := rows.Scan(&record.RunID, &record.ColumnIndex, &record.ColumnName, &record.ColumnKind); err != nil {
			return nil, fmt.Errorf("failed to scan fit run column: %w", err)
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fit run columns: %w", err)
	}
	return results, nil
}
