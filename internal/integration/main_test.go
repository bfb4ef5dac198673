// Package integration drives the git-flow binary against real repositories.
package integration

import (
	"testing"

	"gitflow.dev/gitflow/internal/testhelper"
)

// flowBinary returns the path to the git-flow binary, building it on first use.
func flowBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration tests build the binary")
	}
	path, err := testhelper.Binary()
	if err != nil {
		t.Fatalf("failed to build git-flow binary: %v", err)
	}
	return path
}
