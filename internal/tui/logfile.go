package tui

import (
	"os"
	"path/filepath"
)

// GetLogFilePath returns the path to the log file.
// If GITFLOW_LOG_FILE is set, uses that path.
// Otherwise, uses ~/.gitflow/logs/gitflow.log
func GetLogFilePath() string {
	if customPath := os.Getenv("GITFLOW_LOG_FILE"); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "gitflow.log"
	}
	return filepath.Join(homeDir, ".gitflow", "logs", "gitflow.log")
}
