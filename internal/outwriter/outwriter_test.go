package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/estateprep/internal/contract"
	"github.com/huangsam/estateprep/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMatrix() schema.FeatureMatrix {
	return schema.FeatureMatrix{
		Columns: []string{"No", "HouseAge", "PostCode_A1", "PostCode_B2", "Year", "Month"},
		Rows: [][]float64{
			{1, 1.224744871, 1, 0, 2013, 10},
			{2, -1.224744871, 0, 1, 2014, 1},
		},
	}
}

func sampleState() *schema.FittedState {
	return &schema.FittedState{
		Version:     schema.StateFormatVersion,
		Descriptor:  schema.Descriptor{Numeric: []string{"HouseAge"}, Categorical: []string{"PostCode"}, Date: "TransactionDate"},
		Passthrough: []string{"No"},
		Numeric:     []schema.NumericStats{{Name: "HouseAge", ImputeMean: 20, ScaleMean: 20, ScaleStd: 8.16496581, Observed: 2}},
		Categorical: []schema.Vocabulary{{Name: "PostCode", Values: []string{"A1", "B2"}}},
		Records:     2,
		FittedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCreateFormatter(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
	}{
		{"precision 2", 2, 3.14159, "3.14"},
		{"precision 0", 0, 3.14159, "3"},
		{"precision 4", 4, 3.14159, "3.1416"},
		{"negative value", 2, -42.567, "-42.57"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, createFormatter(tt.precision)(tt.value))
		})
	}
}

func TestGetMaxColumnWidth(t *testing.T) {
	assert.Equal(t, 17, getMaxColumnWidth(&contract.Config{Width: 100}, 5))
	assert.Equal(t, 8, getMaxColumnWidth(&contract.Config{Width: 40}, 20), "floor")
	assert.Equal(t, 40, getMaxColumnWidth(&contract.Config{Width: 400}, 1), "ceiling")
	assert.Equal(t, 40, getMaxColumnWidth(&contract.Config{Width: 400}, 0))
}

func TestWriteMatrixCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMatrixCSV(&buf, sampleMatrix(), createFormatter(2)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, sampleMatrix().Columns, records[0])
	assert.Equal(t, []string{"1.00", "1.22", "1.00", "0.00", "2013.00", "10.00"}, records[1])
	assert.Equal(t, []string{"2.00", "-1.22", "0.00", "1.00", "2014.00", "1.00"}, records[2])
}

func TestWriteMatrixJSON(t *testing.T) {
	var buf bytes.Buffer
	report := schema.TransformReport{Records: 2, Unseen: map[string]int{"PostCode": 1}}
	require.NoError(t, writeMatrixJSON(&buf, sampleMatrix(), report))

	var got struct {
		Columns []string               `json:"columns"`
		Rows    [][]float64            `json:"rows"`
		Report  schema.TransformReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleMatrix().Columns, got.Columns)
	assert.Equal(t, sampleMatrix().Rows, got.Rows, "JSON keeps full precision")
	assert.Equal(t, report, got.Report)

	buf.Reset()
	require.NoError(t, writeMatrixJSON(&buf, schema.FeatureMatrix{Columns: []string{"Year", "Month"}}, schema.TransformReport{}))
	assert.Contains(t, buf.String(), `"rows": []`)
}

func TestWriteMatrixTable(t *testing.T) {
	cfg := &contract.Config{Width: 120, StateBackend: schema.SQLiteBackend}
	report := schema.TransformReport{
		Records: 2,
		Imputed: map[string]int{"HouseAge": 3},
		Unseen:  map[string]int{"PostCode": 1},
	}

	var buf bytes.Buffer
	require.NoError(t, writeMatrixTable(&buf, sampleMatrix(), report, cfg, createFormatter(3), 42*time.Millisecond))

	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "HOUSEAGE")
	assert.Contains(t, out, "1.225")
	assert.Contains(t, out, "Transformed 2 records into 6 columns")
	assert.Contains(t, out, "Imputed 3 missing values of HouseAge")
	assert.Contains(t, out, "Encoded 1 unseen values of PostCode as all zeros")
	assert.Contains(t, out, "State backend: sqlite")
}

func TestReportLines(t *testing.T) {
	assert.Empty(t, reportLines(schema.TransformReport{Records: 5}))

	lines := reportLines(schema.TransformReport{
		Imputed: map[string]int{"b": 1, "a": 2},
		Unseen:  map[string]int{"c": 4},
	})
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "of a"), "sorted by feature")
	assert.True(t, strings.HasSuffix(lines[1], "of b"))
	assert.Contains(t, lines[2], "4 unseen values of c")
}

func TestWriteMatrixResultsToFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		output schema.OutputMode
		file   string
	}{
		{schema.CSVOut, "out.csv"},
		{schema.JSONOut, "out.json"},
		{schema.ParquetOut, "out.parquet"},
		{schema.TextOut, "out.txt"},
	}
	for _, tt := range tests {
		t.Run(string(tt.output), func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			cfg := &contract.Config{Output: tt.output, OutputFile: path, Precision: 4, Width: 120}
			require.NoError(t, NewOutWriter().WriteMatrix(sampleMatrix(), schema.TransformReport{Records: 2}, cfg, time.Second))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		})
	}

	err := WriteMatrixResults(sampleMatrix(), schema.TransformReport{}, &contract.Config{Output: schema.ParquetOut}, 0)
	assert.ErrorContains(t, err, "--output-file")
}

func TestWriteStateResults(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "state.json")
		require.NoError(t, WriteStateResults("default", sampleState(), &contract.Config{Output: schema.JSONOut, OutputFile: path}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var got struct {
			Key     string              `json:"key"`
			Columns []schema.Column     `json:"columns"`
			State   *schema.FittedState `json:"state"`
		}
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "default", got.Key)
		assert.Len(t, got.Columns, 6)
		assert.Equal(t, sampleState(), got.State)
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStateCSV(&buf, sampleState()))
		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 7)
		assert.Equal(t, []string{"index", "column", "kind"}, records[0])
		assert.Equal(t, []string{"0", "No", "passthrough"}, records[1])
		assert.Equal(t, []string{"3", "PostCode_B2", "categorical"}, records[4])
		assert.Equal(t, []string{"5", "Month", "date"}, records[6])
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStateTable(&buf, "default", sampleState(), &contract.Config{Width: 120}, createFormatter(2)))
		out := buf.String()
		assert.Contains(t, out, `Fitted state "default"`)
		assert.Contains(t, out, "on 2 records, 6 output columns")
		assert.Contains(t, out, "Passthrough: No")
		assert.Contains(t, out, "8.16")
		assert.Contains(t, out, "A1, B2")
	})

	t.Run("errors", func(t *testing.T) {
		assert.Error(t, WriteStateResults("default", nil, &contract.Config{}))
		assert.Error(t, WriteStateResults("default", sampleState(), &contract.Config{Output: schema.ParquetOut, OutputFile: filepath.Join(dir, "x")}))
	})
}

func TestPreviewValues(t *testing.T) {
	assert.Equal(t, "a, b", previewValues([]string{"a", "b"}))
	values := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	assert.Equal(t, "a, b, c, d, e, f, g, h, ... (+2)", previewValues(values))
}
