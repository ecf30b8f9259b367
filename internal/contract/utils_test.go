package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestDBFilePaths(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	statePath := GetStateDBFilePath()
	assert.Contains(t, statePath, ".estateprep_state.db")
	assert.True(t, strings.HasPrefix(statePath, homeDir), "path %s should start with home dir %s", statePath, homeDir)

	runPath := GetRunDBFilePath()
	assert.Contains(t, runPath, ".estateprep_runs.db")
	assert.NotEqual(t, statePath, runPath)
}

func TestTruncateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"short enough", "HouseAge", 20, "HouseAge"},
		{"truncated", "PostCode_ABCDEFGHIJ", 10, "PostCod..."},
		{"too narrow to truncate", "PostCode", 3, "PostCode"},
		{"multibyte runes", "Ortsteil_Köpenick", 12, "Ortsteil_..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateName(tt.input, tt.maxWidth))
		})
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}
