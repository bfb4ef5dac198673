package integration

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"gitflow.dev/gitflow/testhelpers"
)

// =============================================================================
// Test Shell - integration tests read like terminal sessions
// =============================================================================

// TestShell wraps a scene and runs git-flow commands against it.
type TestShell struct {
	t          *testing.T
	scene      *testhelpers.Scene
	binaryPath string
	env        []string
	stories    *trackerStub
	lastOutput string
	lastCode   int
}

// NewTestShell creates a shell around a repository holding master and develop.
func NewTestShell(t *testing.T, binaryPath string) *TestShell {
	t.Helper()
	return newShell(t, binaryPath, testhelpers.FlowSceneSetup)
}

// NewTestShellWithOrigin is NewTestShell plus a bare origin holding both
// integration branches.
func NewTestShellWithOrigin(t *testing.T, binaryPath string) *TestShell {
	t.Helper()
	return newShell(t, binaryPath, testhelpers.FlowSceneWithOriginSetup)
}

func newShell(t *testing.T, binaryPath string, setup testhelpers.SceneSetup) *TestShell {
	scene := testhelpers.NewScene(t, setup)
	sh := &TestShell{t: t, scene: scene, binaryPath: binaryPath}
	sh.stories = sh.tracker()
	sh.env = append(sh.env, sh.stories.env()...)
	return sh
}

// Scene returns the underlying scene.
func (s *TestShell) Scene() *testhelpers.Scene {
	return s.scene
}

// =============================================================================
// Command Execution
// =============================================================================

func (s *TestShell) exec(name string, args string) {
	s.t.Helper()
	cmd := exec.Command(name, splitArgs(args)...)
	cmd.Dir = s.scene.Dir
	cmd.Env = append(append(os.Environ(), testhelpers.GitEnv()...), s.env...)
	output, err := cmd.CombinedOutput()
	s.lastOutput = string(output)
	s.lastCode = 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		s.lastCode = exitErr.ExitCode()
		return
	}
	require.NoError(s.t, err, "$ %s %s", name, args)
}

// Run executes a git-flow command (e.g., "hotfix start 1.0.1") and requires success
func (s *TestShell) Run(args string) *TestShell {
	s.t.Helper()
	s.exec(s.binaryPath, args)
	require.Zero(s.t, s.lastCode, "$ git-flow %s\n%s", args, s.lastOutput)
	return s
}

// RunExpectExit executes a git-flow command and requires the given exit code
func (s *TestShell) RunExpectExit(code int, args string) *TestShell {
	s.t.Helper()
	s.exec(s.binaryPath, args)
	require.Equal(s.t, code, s.lastCode, "$ git-flow %s\n%s", args, s.lastOutput)
	return s
}

// Git executes a raw git command
func (s *TestShell) Git(args string) *TestShell {
	s.t.Helper()
	s.exec("git", args)
	require.Zero(s.t, s.lastCode, "$ git %s\n%s", args, s.lastOutput)
	return s
}

// Commit creates a file change and commits it with message
func (s *TestShell) Commit(filename, message string) *TestShell {
	s.t.Helper()
	require.NoError(s.t, s.scene.Repo.CreateChangeAndCommit(message, filename))
	return s
}

// =============================================================================
// Output Inspection
// =============================================================================

// Output returns the last command's output
func (s *TestShell) Output() string {
	return s.lastOutput
}

// OutputContains asserts the last output contains the given string
func (s *TestShell) OutputContains(substr string) *TestShell {
	s.t.Helper()
	require.Contains(s.t, s.lastOutput, substr)
	return s
}

// =============================================================================
// Assertions
// =============================================================================

// OnBranch asserts we're on the expected branch
func (s *TestShell) OnBranch(expected string) *TestShell {
	s.t.Helper()
	branch, err := s.scene.Repo.CurrentBranchName()
	require.NoError(s.t, err)
	require.Equal(s.t, expected, branch)
	return s
}

// HasRef asserts a local ref exists
func (s *TestShell) HasRef(ref string) *TestShell {
	s.t.Helper()
	require.True(s.t, s.scene.Repo.RefExists(ref), "missing %s", ref)
	return s
}

// NoRef asserts a local ref does not exist
func (s *TestShell) NoRef(ref string) *TestShell {
	s.t.Helper()
	require.False(s.t, s.scene.Repo.RefExists(ref), "unexpected %s", ref)
	return s
}

// OriginHasRef asserts the bare origin holds ref
func (s *TestShell) OriginHasRef(ref string, want bool) *TestShell {
	s.t.Helper()
	require.NotEmpty(s.t, s.scene.OriginPath, "scene has no origin")
	require.Equal(s.t, want, testhelpers.RemoteRefExists(s.scene.OriginPath, ref), ref)
	return s
}

// BranchContains asserts the history of branch has a commit with subject
func (s *TestShell) BranchContains(branch, subject string) *TestShell {
	s.t.Helper()
	log, err := s.scene.Repo.RunGitCommandAndGetOutput("log", "--format=%s", branch)
	require.NoError(s.t, err)
	require.Contains(s.t, strings.Split(log, "\n"), subject, "%s history", branch)
	return s
}

// Log prints a message documenting a test step
func (s *TestShell) Log(msg string) *TestShell {
	s.t.Log(msg)
	return s
}

// =============================================================================
// Story Tracker stub
// =============================================================================

// trackerStub serves a Story Tracker project whose iterations hold stories.
type trackerStub struct {
	mu      sync.Mutex
	server  *httptest.Server
	stories string
	updates []string
}

func (s *TestShell) tracker() *trackerStub {
	stub := &trackerStub{stories: "[]"}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodGet {
			stub.updates = append(stub.updates, r.Method+" "+r.URL.Path)
			_, _ = w.Write([]byte("{}"))
			return
		}
		if strings.HasSuffix(r.URL.Path, "/iterations") {
			_, _ = w.Write([]byte(`[{"stories":` + stub.stories + `}]`))
			return
		}
		http.NotFound(w, r)
	}))
	s.t.Cleanup(stub.server.Close)
	return stub
}

// Stories sets the JSON array of stories the Story Tracker serves
func (s *TestShell) Stories(stories string) *TestShell {
	s.stories.mu.Lock()
	defer s.stories.mu.Unlock()
	s.stories.stories = stories
	return s
}

// TrackerUpdates returns the mutating requests the Story Tracker received
func (s *TestShell) TrackerUpdates() []string {
	s.stories.mu.Lock()
	defer s.stories.mu.Unlock()
	return append([]string(nil), s.stories.updates...)
}

func (ts *trackerStub) env() []string {
	return []string{
		"GITFLOW_TRACKER_URL=" + ts.server.URL,
		"GITFLOW_TRACKER_PROJECT_ID=99",
		"GITFLOW_TRACKER_TOKEN=test-token",
	}
}

// =============================================================================
// Utility Functions
// =============================================================================

// splitArgs splits a command string into args, respecting quotes
func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, r := range s {
		switch {
		case r == '"' || r == '\'':
			switch {
			case inQuote && r == quoteChar:
				inQuote = false
			case !inQuote:
				inQuote = true
				quoteChar = r
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
