package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
)

// Errors returned when reading or writing persisted fitted states.
var (
	ErrStateNotFound = errors.New("fitted state not found")
	ErrStateExists   = errors.New("fitted state already exists")
	ErrNoStateStore  = errors.New("state store is not initialized")

	ErrStateNotPersisted = errors.New("fit needs a persistent state backend; state backend none keeps nothing")
)

// LoadState reads and decodes the fitted state stored under key.
func LoadState(ctx context.Context, store contract.StateStore, key string) (*schema.FittedState, error) {
	if store == nil {
		return nil, ErrNoStateStore
	}
	stored, err := store.Get(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q (run fit first)", ErrStateNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fitted state %q: %w", key, err)
	}
	if stored.Version != schema.StateFormatVersion {
		return nil, fmt.Errorf("fitted state %q has format version %d, expected %d; refit it", key, stored.Version, schema.StateFormatVersion)
	}

	var state schema.FittedState
	if err := json.Unmarshal(stored.Value, &state); err != nil {
		return nil, fmt.Errorf("failed to decode fitted state %q: %w", key, err)
	}
	return &state, nil
}

// SaveState encodes and stores a fitted state under key.
// An existing state is only replaced when overwrite is set.
func SaveState(ctx context.Context, store contract.StateStore, key string, state *schema.FittedState, overwrite bool) error {
	if store == nil {
		return ErrNoStateStore
	}
	if !overwrite {
		if err := ensureStateAbsent(ctx, store, key); err != nil {
			return err
		}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode fitted state: %w", err)
	}
	if err := store.Set(ctx, key, data, schema.StateFormatVersion, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to store fitted state %q: %w", key, err)
	}
	return nil
}

// ensureStateAbsent fails with ErrStateExists when key is already taken.
func ensureStateAbsent(ctx context.Context, store contract.StateStore, key string) error {
	_, err := store.Get(ctx, key)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %q (use --overwrite to replace it)", ErrStateExists, key)
	case errors.Is(err, sql.ErrNoRows):
		return nil
	default:
		return fmt.Errorf("failed to check fitted state %q: %w", key, err)
	}
}
