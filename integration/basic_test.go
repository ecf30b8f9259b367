//go:build basic

package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFitTransformWithSQLite runs the whole CLI lifecycle against throwaway SQLite files.
func TestFitTransformWithSQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ESTATEPREP_STATE_DB_CONNECT", filepath.Join(dir, "state.db"))
	t.Setenv("ESTATEPREP_RUN_DB_CONNECT", filepath.Join(dir, "runs.db"))
	training := writeTrainingFile(t)

	_, err := runCommand(t, "fit", training)
	require.NoError(t, err)

	// Fitting twice under one key is refused
	_, err = runCommand(t, "fit", training)
	assert.Error(t, err)

	_, err = runCommand(t, "fit", training, "--overwrite")
	require.NoError(t, err)

	features := filepath.Join(dir, "features.csv")
	_, err = runCommand(t, "transform", training, "--output", "csv", "--output-file", features)
	require.NoError(t, err)

	data, err := os.ReadFile(features)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "No,HouseAge,DistanceToStation,NumberOfPubs,PostCode_5213,PostCode_5222,Year,Month", lines[0])

	out, err := runCommand(t, "describe", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"PostCode_5213"`)

	out, err = runCommand(t, "runs", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "2")

	_, err = runCommand(t, "runs", "export", "--output-file", filepath.Join(dir, "history"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "history.fit_runs.parquet"))
	assert.FileExists(t, filepath.Join(dir, "history.fit_run_columns.parquet"))

	_, err = runCommand(t, "state", "clear")
	require.NoError(t, err)
	_, err = runCommand(t, "transform", training)
	assert.Error(t, err, "transform needs a fitted state")
}
