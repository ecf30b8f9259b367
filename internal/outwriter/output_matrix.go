package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/internal/parquet"
	"github.com/huangsam/estateprep/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteMatrixResults outputs a feature matrix, dispatching based on the output format configured.
func WriteMatrixResults(m schema.FeatureMatrix, report schema.TransformReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeMatrixJSON(w, m, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeMatrixCSV(w, m, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return errors.New("parquet output requires --output-file")
		}
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteFeatureMatrix(w, m)
		}, "Wrote Parquet"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeMatrixTable(w, m, report, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// writeMatrixTable generates and writes the human-readable table.
func writeMatrixTable(w io.Writer, m schema.FeatureMatrix, report schema.TransformReport, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)

	nameWidth := getMaxColumnWidth(cfg, len(m.Columns)+1)
	headers := []string{"#"}
	for _, c := range m.Columns {
		headers = append(headers, contract.TruncateName(c, nameWidth))
	}
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, row := range m.Rows {
		cells := []string{strconv.Itoa(i + 1)}
		for _, v := range row {
			cells = append(cells, fmtFloat(v))
		}
		data = append(data, cells)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Transformed %d records into %d columns\n", m.Len(), len(m.Columns)); err != nil {
		return err
	}
	for _, line := range reportLines(report) {
		if cfg.UseColors {
			line = contract.WarnColor.Sprint(line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Transform completed in %v. State backend: %s\n", duration, cfg.StateBackend); err != nil {
		return err
	}
	return nil
}

// reportLines describes the silent recoveries of a transform, one line per feature.
func reportLines(report schema.TransformReport) []string {
	var lines []string
	for _, name := range slices.Sorted(maps.Keys(report.Imputed)) {
		lines = append(lines, fmt.Sprintf("Imputed %d missing values of %s", report.Imputed[name], name))
	}
	for _, name := range slices.Sorted(maps.Keys(report.Unseen)) {
		lines = append(lines, fmt.Sprintf("Encoded %d unseen values of %s as all zeros", report.Unseen[name], name))
	}
	return lines
}

// writeMatrixCSV writes the matrix with its column names as header.
func writeMatrixCSV(w io.Writer, m schema.FeatureMatrix, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, m.Columns, func(cw *csv.Writer) error {
		rec := make([]string, len(m.Columns))
		for _, row := range m.Rows {
			for j, v := range row {
				rec[j] = fmtFloat(v)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeMatrixJSON writes the matrix at full precision along with its report.
func writeMatrixJSON(w io.Writer, m schema.FeatureMatrix, report schema.TransformReport) error {
	type JSONMatrix struct {
		Columns []string               `json:"columns"`
		Rows    [][]float64            `json:"rows"`
		Report  schema.TransformReport `json:"report"`
	}
	rows := m.Rows
	if rows == nil {
		rows = [][]float64{}
	}
	return writeJSON(w, JSONMatrix{Columns: m.Columns, Rows: rows, Report: report})
}
