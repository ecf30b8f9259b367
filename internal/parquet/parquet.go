// Package parquet provides data structures and functions for exporting estateprep
// feature matrices and fit-run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/estateprep/schema"
	"github.com/parquet-go/parquet-go"
)

// FitRun represents a single fit run with metadata.
// This struct maps to the estateprep_fit_runs database table.
type FitRun struct {
	// RunID is the unique identifier for this fit run
	RunID int64 `parquet:"run_id,snappy"`

	// StateKey is the key the fitted state was stored under
	StateKey string `parquet:"state_key,dict,snappy"`

	// StartTime is when the fit began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the fit completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the fit in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	TotalRecords int32 `parquet:"total_records,snappy"`
	TotalColumns int32 `parquet:"total_columns,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// FitColumn is one output column of a fit run.
// This struct maps to the estateprep_fit_run_columns database table.
type FitColumn struct {
	RunID       int64  `parquet:"run_id,snappy"`
	ColumnIndex int32  `parquet:"column_index,snappy"`
	ColumnName  string `parquet:"column_name,snappy"`
	ColumnKind  string `parquet:"column_kind,dict,snappy"`
}

// FeatureCell is one value of a feature matrix in long format.
// Long format keeps a single fixed schema whatever the fitted vocabulary.
type FeatureCell struct {
	RecordIndex int64   `parquet:"record_index,delta,snappy"`
	ColumnIndex int32   `parquet:"column_index,snappy"`
	ColumnName  string  `parquet:"column_name,dict,snappy"`
	Value       float64 `parquet:"value,snappy"`
}

// write encodes rows to w using struct schema inference.
func write[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// writeFile creates outputPath and writes rows to it.
func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteFitRunsParquet writes a slice of FitRun structs to a Parquet file.
func WriteFitRunsParquet(data []FitRun, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteFitColumnsParquet writes a slice of FitColumn structs to a Parquet file.
func WriteFitColumnsParquet(data []FitColumn, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteFeatureMatrix writes a feature matrix to w in long format, one cell per row.
func WriteFeatureMatrix(w io.Writer, m schema.FeatureMatrix) error {
	return write(w, ConvertFeatureMatrix(m))
}

// ConvertFeatureMatrix flattens a feature matrix into cells, row by row.
func ConvertFeatureMatrix(m schema.FeatureMatrix) []FeatureCell {
	cells := make([]FeatureCell, 0, len(m.Rows)*len(m.Columns))
	for i, row := range m.Rows {
		for j, v := range row {
			cells = append(cells, FeatureCell{
				RecordIndex: int64(i),
				ColumnIndex: int32(j),
				ColumnName:  m.Columns[j],
				Value:       v,
			})
		}
	}
	return cells
}

// ConvertFitRunRecords converts schema.FitRunRecord to FitRun for Parquet export.
func ConvertFitRunRecords(records []schema.FitRunRecord) []FitRun {
	result := make([]FitRun, len(records))
	for i, record := range records {
		result[i] = FitRun{
			RunID:         record.RunID,
			StateKey:      record.StateKey,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalRecords:  record.TotalRecords,
			TotalColumns:  record.TotalColumns,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertFitColumnRecords converts schema.FitColumnRecord to FitColumn for Parquet export.
func ConvertFitColumnRecords(records []schema.FitColumnRecord) []FitColumn {
	result := make([]FitColumn, len(records))
	for i, record := range records {
		result[i] = FitColumn{
			RunID:       record.RunID,
			ColumnIndex: record.ColumnIndex,
			ColumnName:  record.ColumnName,
			ColumnKind:  record.ColumnKind,
		}
	}
	return result
}
