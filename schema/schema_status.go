package schema

import "time"

// StateStatus represents the status of the fitted-state store.
type StateStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalStates     int       `json:"total_states"`
	LastStateTime   time.Time `json:"last_state_time"`
	OldestStateTime time.Time `json:"oldest_state_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// RunStatus represents the status of the fit-run store.
type RunStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalRecords  int              `json:"total_records"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}
