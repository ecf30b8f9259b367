package schema

import "time"

// StoredState is a fitted state as kept in the state store.
type StoredState struct {
	Key       string
	Value     []byte // JSON encoding of FittedState
	Version   int
	Timestamp int64
}

// FitRunRecord represents a row from the fit_runs table.
type FitRunRecord struct {
	RunID         int64
	StateKey      string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalRecords  int32
	TotalColumns  int32
	ConfigParams  *string
}

// FitColumnRecord represents a row from the fit_run_columns table.
// It keeps the column layout a run produced so layout drift between fits can be audited.
type FitColumnRecord struct {
	RunID       int64
	ColumnIndex int32
	ColumnName  string
	ColumnKind  string
}
