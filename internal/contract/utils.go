package contract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/sca/schema"
	"github.com/lmittmann/tint"
)

// Color variables for console output.
var (
	PassedColor        = color.New(color.FgGreen, color.Bold) // PassedColor marks checks that passed.
	FailedColor        = color.New(color.FgRed, color.Bold)   // FailedColor marks checks that failed.
	NotApplicableColor = color.New(color.FgYellow)            // NotApplicableColor marks checks that could not be evaluated.
)

// GetColorResult returns a colored check result for console output (table).
func GetColorResult(result string) string {
	switch schema.CheckResult(result) {
	case schema.PassedResult:
		return PassedColor.Sprint(result)
	case schema.FailedResult:
		return FailedColor.Sprint(result)
	case schema.NotApplicableResult:
		return NotApplicableColor.Sprint(result)
	default:
		return result
	}
}

// InitLogger installs a tint handler on w as the default slog logger.
func InitLogger(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  level <= slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}),
	))
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	if coded, ok := schema.AsError(err); ok {
		slog.Error(msg, "code", coded.Code, "error", err)
	} else {
		slog.Error(msg, "error", err)
	}
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	slog.Warn(msg, "error", err)
}

// GetAgentDBDir returns the default directory holding one SQLite database per agent.
func GetAgentDBDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".sca", "agents")
	}
	return filepath.Join(homeDir, ".sca", "agents")
}

// TruncateText shortens text to maxWidth runes with an ellipsis suffix.
// Newlines are flattened so that table cells stay on one line.
func TruncateText(text string, maxWidth int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
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
