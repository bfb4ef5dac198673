// Package testhelper builds the git-flow binary once for the tests that
// drive it as a subprocess.
package testhelper

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

var (
	binaryPath string
	binaryOnce sync.Once
	binaryErr  error
)

// Binary returns the path of a git-flow binary built from the current
// module. The first call builds it; later calls reuse the result.
func Binary() (string, error) {
	binaryOnce.Do(func() {
		binaryPath, binaryErr = build()
	})
	return binaryPath, binaryErr
}

func build() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	root := moduleRoot(wd)
	if root == "" {
		return "", fmt.Errorf("no go.mod above %s", wd)
	}

	dir, err := os.MkdirTemp("", "git-flow-test-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	out := filepath.Join(dir, "git-flow")

	cmd := exec.Command("go", "build", "-o", out, "./cmd/git-flow")
	cmd.Dir = root
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("failed to build git-flow: %s: %w", output, err)
	}
	return out, nil
}

// moduleRoot returns the closest directory above dir holding a go.mod
func moduleRoot(dir string) string {
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
