package iocache

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/internal/parquet"
)

// ExecuteRunExport exports fit-run history to Parquet files prefixed by outputFile.
func ExecuteRunExport(ctx context.Context, store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run store is not initialized")
	}

	status, err := store.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no fit runs found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total fit runs: %d\n", status.TotalRuns)
	fmt.Printf("Total column records: %d\n", status.TableSizes[fitRunColumnsTable])

	runs, err := store.GetAllRuns(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve fit runs: %w", err)
	}
	columns, err := store.GetAllColumns(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve fit run columns: %w", err)
	}

	runsFile := outputFile + ".fit_runs.parquet"
	if err := parquet.WriteFitRunsParquet(parquet.ConvertFitRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write fit runs: %w", err)
	}
	fmt.Printf("Exported %d fit runs to: %s\n", len(runs), runsFile)

	columnsFile := outputFile + ".fit_run_columns.parquet"
	if err := parquet.WriteFitColumnsParquet(parquet.ConvertFitColumnRecords(columns), columnsFile); err != nil {
		return fmt.Errorf("failed to write fit run columns: %w", err)
	}
	fmt.Printf("Exported %d column records to: %s\n", len(columns), columnsFile)
	return nil
}
