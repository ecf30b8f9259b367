// Package contract provides interfaces and shared utilities for estateprep's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/estateprep/schema"
)

// StoreManager defines the interface for managing persistence stores.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetStateStore() StateStore
	GetRunStore() RunStore
}

// StateStore keeps fitted preprocessing states by key.
type StateStore interface {
	// Get returns the state stored under key, or sql.ErrNoRows when there is none.
	Get(ctx context.Context, key string) (schema.StoredState, error)

	// Set inserts or replaces the state stored under key.
	Set(ctx context.Context, key string, value []byte, version int, timestamp int64) error

	// Delete removes the state stored under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all stored states without their values, newest first.
	List(ctx context.Context) ([]schema.StoredState, error)

	// GetStatus returns status information about the state store
	GetStatus(ctx context.Context) (schema.StateStatus, error)

	// Close closes the underlying connection
	Close() error
}

// RunStore records fit runs and the column layout each run produced.
type RunStore interface {
	// BeginRun creates a new fit run and returns its unique ID
	BeginRun(ctx context.Context, stateKey string, startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the fit run with completion data
	EndRun(ctx context.Context, runID int64, endTime time.Time, totalRecords, totalColumns int) error

	// RecordColumns stores the output column layout of a run
	RecordColumns(ctx context.Context, runID int64, columns []schema.Column) error

	// GetAllRuns returns every recorded fit run, oldest first
	GetAllRuns(ctx context.Context) ([]schema.FitRunRecord, error)

	// GetAllColumns returns every recorded column, ordered by run and position
	GetAllColumns(ctx context.Context) ([]schema.FitColumnRecord, error)

	// GetStatus returns status information about the run store
	GetStatus(ctx context.Context) (schema.RunStatus, error)

	// Close closes the underlying connection
	Close() error
}
