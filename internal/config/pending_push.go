package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PendingPush records the final push of a finish that failed after local
// branches were already deleted, so it can be replayed by git flow repair.
type PendingPush struct {
	Operation string    `json:"operation"`
	Remote    string    `json:"remote"`
	Refspecs  []string  `json:"refspecs"`
	Atomic    bool      `json:"atomic"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func pendingPushPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", "gitflow_pending_push.json")
}

// GetPendingPush reads the pending push state, returning nil when there is none
func GetPendingPush(repoRoot string) (*PendingPush, error) {
	data, err := os.ReadFile(pendingPushPath(repoRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending push state: %w", err)
	}

	var state PendingPush
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse pending push state: %w", err)
	}
	return &state, nil
}

// PersistPendingPush writes the pending push state to disk
func PersistPendingPush(repoRoot string, state *PendingPush) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pending push state: %w", err)
	}
	return os.WriteFile(pendingPushPath(repoRoot), data, 0600)
}

// ClearPendingPush removes the pending push state file
func ClearPendingPush(repoRoot string) error {
	err := os.Remove(pendingPushPath(repoRoot))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear pending push state: %w", err)
	}
	return nil
}
