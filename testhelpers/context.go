package testhelpers

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gitflow.dev/gitflow/internal/config"
	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/internal/review"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
	"gitflow.dev/gitflow/internal/tui"
)

// NewTestContext builds a context around repo, the default configuration
// and the given fakes, and returns the buffer its Splog writes to. A nil
// reviews leaves the Review System disabled. The prompter is an empty
// ScriptedPrompter and the deployer a FakeDeployer.
func NewTestContext(t *testing.T, repo git.Facade, tr tracker.Tracker, reviews review.System) (*runtime.Context, *bytes.Buffer) {
	t.Helper()
	if fake, ok := repo.(*FakeRepo); ok && fake.Root == "" {
		fake.Root = t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(fake.Root, ".git"), 0o755))
	}

	cfg := config.Default()
	var out bytes.Buffer
	ctx := &runtime.Context{
		Context:  context.Background(),
		Repo:     repo,
		Config:   cfg,
		Tracker:  tr,
		Vocab:    tracker.NewVocabulary(cfg),
		Prompter: &ScriptedPrompter{},
		Splog:    tui.NewSplogWithWriter(&out, true),
		Deployer: &FakeDeployer{},
	}
	if reviews != nil {
		ctx.Reviews = review.NewReconciler(reviews, repo, cfg.Review.PageSize)
	}
	return ctx, &out
}
