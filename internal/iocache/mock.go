package iocache

import (
	"context"
	"time"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetStateStore implements the StoreManager interface.
func (m *MockStoreManager) GetStateStore() contract.StateStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.StateStore)
	return store
}

// GetRunStore implements the StoreManager interface.
func (m *MockStoreManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}

// MockStateStore is a mock implementation of StateStore for testing.
type MockStateStore struct {
	mock.Mock
}

var _ contract.StateStore = &MockStateStore{} // Compile-time check

// Get implements the StateStore interface.
func (m *MockStateStore) Get(ctx context.Context, key string) (schema.StoredState, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(schema.StoredState), args.Error(1)
}

// Set implements the StateStore interface.
func (m *MockStateStore) Set(ctx context.Context, key string, value []byte, version int, timestamp int64) error {
	args := m.Called(ctx, key, value, version, timestamp)
	return args.Error(0)
}

// Delete implements the StateStore interface.
func (m *MockStateStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// List implements the StateStore interface.
func (m *MockStateStore) List(ctx context.Context) ([]schema.StoredState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]schema.StoredState)
	return states, args.Error(1)
}

// GetStatus implements the StateStore interface.
func (m *MockStateStore) GetStatus(ctx context.Context) (schema.StateStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.StateStatus), args.Error(1)
}

// Close implements the StateStore interface.
func (m *MockStateStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(ctx context.Context, stateKey string, startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(ctx, stateKey, startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(ctx context.Context, runID int64, endTime time.Time, totalRecords, totalColumns int) error {
	args := m.Called(ctx, runID, endTime, totalRecords, totalColumns)
	return args.Error(0)
}

// RecordColumns implements the RunStore interface.
func (m *MockRunStore) RecordColumns(ctx context.Context, runID int64, columns []schema.Column) error {
	args := m.Called(ctx, runID, columns)
	return args.Error(0)
}

// GetAllRuns implements the RunStore interface.
func (m *MockRunStore) GetAllRuns(ctx context.Context) ([]schema.FitRunRecord, error) {
	args := m.Called(ctx)
	runs, _ := args.Get(0).([]schema.FitRunRecord)
	return runs, args.Error(1)
}

// GetAllColumns implements the RunStore interface.
func (m *MockRunStore) GetAllColumns(ctx context.Context) ([]schema.FitColumnRecord, error) {
	args := m.Called(ctx)
	cols, _ := args.Get(0).([]schema.FitColumnRecord)
	return cols, args.Error(1)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus(ctx context.Context) (schema.RunStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.RunStatus), args.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
