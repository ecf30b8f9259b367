// Package core has the command orchestration around the preprocessing pipeline:
// loading records, fitting, persisting states, tracking runs and writing results.
package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/huangsam/estateprep/core/prep"
	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/internal/dataload"
	"github.com/huangsam/estateprep/internal/logger"
	"github.com/huangsam/estateprep/internal/outwriter"
	"github.com/huangsam/estateprep/schema"
)

// ExecutorFunc defines the function signature for executing commands that need the stores.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// ExecuteFit fits a preprocessor on the training file, persists its state and records the run.
// The training feature matrix is written only when an output file is configured.
func ExecuteFit(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	log := logger.Named("fit")

	if cfg.StateBackend == schema.NoneBackend {
		return ErrStateNotPersisted
	}
	states := mgr.GetStateStore()
	if states == nil {
		return ErrNoStateStore
	}
	if !cfg.Overwrite {
		// Fail before doing any work
		if err := ensureStateAbsent(ctx, states, cfg.StateKey); err != nil {
			return err
		}
	}

	records, err := loadRecords(cfg)
	if err != nil {
		return err
	}

	runs := mgr.GetRunStore()
	runID := beginRun(ctx, runs, cfg, start)

	state, m, report, err := fitRecords(cfg.Features, records)
	if err != nil {
		abortRun(ctx, runs, runID)
		return err
	}
	if err := SaveState(ctx, states, cfg.StateKey, state, true); err != nil {
		abortRun(ctx, runs, runID)
		return err
	}
	endRun(ctx, runs, runID, state, len(records))
	logReport(log, report)

	log.Info().
		Str("state_key", cfg.StateKey).
		Int("records", len(records)).
		Int("columns", state.Width()).
		Dur("elapsed", time.Since(start)).
		Msg("fitted state stored")

	if cfg.OutputFile == "" {
		return nil
	}
	return outwriter.NewOutWriter().WriteMatrix(m, report, cfg, time.Since(start))
}

// ExecuteTransform transforms the input file with a stored state and writes the feature matrix.
func ExecuteTransform(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()

	p, err := LoadPreprocessor(ctx, cfg, mgr.GetStateStore())
	if err != nil {
		return err
	}
	records, err := loadRecords(cfg)
	if err != nil {
		return err
	}

	m, report, err := p.TransformWithReport(records)
	if err != nil {
		return fmt.Errorf("transform failed: %w", err)
	}
	logReport(logger.Named("transform"), report)
	return outwriter.NewOutWriter().WriteMatrix(m, report, cfg, time.Since(start))
}

// ExecuteDescribe prints the stored state of the configured key.
func ExecuteDescribe(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	state, err := LoadState(ctx, mgr.GetStateStore(), cfg.StateKey)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteState(cfg.StateKey, state, cfg)
}

// LoadPreprocessor builds a fitted, read-only preprocessor from the state stored under cfg.StateKey.
// The stored state must have been fitted with the configured features.
func LoadPreprocessor(ctx context.Context, cfg *contract.Config, store contract.StateStore) (*prep.Preprocessor, error) {
	state, err := LoadState(ctx, store, cfg.StateKey)
	if err != nil {
		return nil, err
	}
	p, err := prep.NewFromState(cfg.Features, state)
	if err != nil {
		return nil, fmt.Errorf("stored state %q does not match configured features: %w", cfg.StateKey, err)
	}
	return p, nil
}

// fitRecords fits a new preprocessor and transforms the training batch with it.
func fitRecords(desc schema.Descriptor, records []schema.RawRecord) (*schema.FittedState, schema.FeatureMatrix, schema.TransformReport, error) {
	var report schema.TransformReport
	p, err := prep.New(desc)
	if err != nil {
		return nil, schema.FeatureMatrix{}, report, err
	}
	if err := p.Fit(records); err != nil {
		return nil, schema.FeatureMatrix{}, report, fmt.Errorf("fit failed: %w", err)
	}
	m, report, err := p.TransformWithReport(records)
	if err != nil {
		return nil, schema.FeatureMatrix{}, report, fmt.Errorf("transform of training batch failed: %w", err)
	}
	state, err := p.State()
	if err != nil {
		return nil, schema.FeatureMatrix{}, report, err
	}
	return state, m, report, nil
}

// loadRecords reads the configured input file.
func loadRecords(cfg *contract.Config) ([]schema.RawRecord, error) {
	if cfg.InputPath == "" {
		return nil, fmt.Errorf("an input file is required")
	}
	records, err := dataload.LoadFile(cfg.InputPath, cfg.InputFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", cfg.InputPath, err)
	}
	logger.Get().Debug().Str("path", cfg.InputPath).Int("records", len(records)).Msg("loaded records")
	return records, nil
}

// beginRun starts run tracking. Tracking failures never fail the fit.
func beginRun(ctx context.Context, runs contract.RunStore, cfg *contract.Config, start time.Time) int64 {
	if runs == nil {
		return 0
	}
	params := map[string]any{
		"state_key":   cfg.StateKey,
		"input_path":  cfg.InputPath,
		"numeric":     cfg.Features.Numeric,
		"categorical": cfg.Features.Categorical,
		"date":        cfg.Features.Date,
	}
	runID, err := runs.BeginRun(ctx, cfg.StateKey, start, params)
	if err != nil {
		contract.LogWarn("Fit run tracking initialization failed", err)
		return 0
	}
	return runID
}

// endRun finalizes run tracking with the fitted column layout.
func endRun(ctx context.Context, runs contract.RunStore, runID int64, state *schema.FittedState, records int) {
	if runs == nil || runID <= 0 {
		return
	}
	if err := runs.RecordColumns(ctx, runID, state.Columns()); err != nil {
		contract.LogWarn("Failed to record fit run columns", err)
	}
	if err := runs.EndRun(ctx, runID, time.Now(), records, state.Width()); err != nil {
		contract.LogWarn("Failed to finalize fit run tracking", err)
	}
}

// abortRun closes a run whose fit failed, with no records and no columns.
func abortRun(ctx context.Context, runs contract.RunStore, runID int64) {
	if runs == nil || runID <= 0 {
		return
	}
	if err := runs.EndRun(ctx, runID, time.Now(), 0, 0); err != nil {
		contract.LogWarn("Failed to finalize failed fit run", err)
	}
}

// logReport logs the silent recoveries of a transform as warnings.
func logReport(log *logger.Logger, report schema.TransformReport) {
	for _, name := range slices.Sorted(maps.Keys(report.Imputed)) {
		log.Warn().Str("feature", name).Int("count", report.Imputed[name]).Msg("imputed missing numeric values")
	}
	for _, name := range slices.Sorted(maps.Keys(report.Unseen)) {
		log.Warn().Str("feature", name).Int("count", report.Unseen[name]).Msg("unseen categorical values encoded as zeros")
	}
}
