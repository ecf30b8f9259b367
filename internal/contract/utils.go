package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/estateprep/internal/logger"
)

// Color variables for console output.
var (
	HeaderColor  = color.New(color.FgCyan, color.Bold) // HeaderColor marks section titles.
	WarnColor    = color.New(color.FgYellow)           // WarnColor marks recoveries such as unseen categories.
	NumericColor = color.New(color.FgGreen)            // NumericColor marks numeric columns.
	DateColor    = color.New(color.FgMagenta)          // DateColor marks Year and Month.
)

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	logger.Get().Error().Err(err).Msg(msg)
	os.Exit(1)
}

// LogWarn logs a warning message.
func LogWarn(msg string, err error) {
	logger.Get().Warn().Err(err).Msg(msg)
}

// GetStateDBFilePath returns the path to the SQLite DB file for fitted-state storage.
func GetStateDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".estateprep_state.db"
	}
	return filepath.Join(homeDir, ".estateprep_state.db")
}

// GetRunDBFilePath returns the path to the SQLite DB file for fit-run storage.
func GetRunDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".estateprep_runs.db"
	}
	return filepath.Join(homeDir, ".estateprep_runs.db")
}

// TruncateName truncates a column name to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the "..." and at least one character.
func TruncateName(name string, maxWidth int) string {
	runes := []rune(name)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return name
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
