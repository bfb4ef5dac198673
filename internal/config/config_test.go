package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitflow.dev/gitflow/internal/config"
	flowerrors "gitflow.dev/gitflow/internal/errors"
)

func newRepoRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0750))
	return root
}

func TestLoad(t *testing.T) {
	t.Run("fails when not initialized", func(t *testing.T) {
		_, err := config.Load(newRepoRoot(t))
		require.ErrorIs(t, err, flowerrors.ErrNotInitialized)
	})

	t.Run("fills defaults for missing keys", func(t *testing.T) {
		root := newRepoRoot(t)
		require.NoError(t, os.WriteFile(config.Path(root), []byte("branches:\n  master: main\n"), 0600))

		cfg, err := config.Load(root)
		require.NoError(t, err)
		require.Equal(t, "main", cfg.Branches.Master)
		require.Equal(t, "develop", cfg.Branches.Develop)
		require.Equal(t, "feature/", cfg.Prefix.Feature)
		require.Equal(t, 200, cfg.Review.PageSize)
		require.Equal(t, []string{"no review", "dupe", "wontfix", "cannot reproduce"}, cfg.Tracker.ExemptLabels)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		root := newRepoRoot(t)
		require.NoError(t, config.Save(root, config.Default()))
		t.Setenv("GITFLOW_TRACKER_TOKEN", "secret")

		cfg, err := config.Load(root)
		require.NoError(t, err)
		require.Equal(t, "secret", cfg.Tracker.Token)
	})

	t.Run("round trips through save", func(t *testing.T) {
		root := newRepoRoot(t)
		cfg := config.Default()
		cfg.Prefix.VersionTag = "v"
		cfg.Tracker.ProjectID = "1234"
		cfg.Deploy.Jobs = map[string]string{"qa": "deploy-qa"}
		require.NoError(t, config.Save(root, cfg))

		loaded, err := config.Load(root)
		require.NoError(t, err)
		require.Equal(t, "v", loaded.Prefix.VersionTag)
		require.Equal(t, "1234", loaded.Tracker.ProjectID)
		require.Equal(t, "deploy-qa", loaded.Deploy.Jobs["qa"])
		require.Equal(t, "v2.3.0", loaded.TagName("2.3.0"))
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		root := newRepoRoot(t)
		require.NoError(t, os.WriteFile(config.Path(root), []byte("branches:\n  master: same\n  develop: same\nreview:\n  provider: gerrit\n"), 0600))

		_, err := config.Load(root)
		require.Error(t, err)
		require.Contains(t, err.Error(), "must differ")
		require.Contains(t, err.Error(), "gerrit")
	})
}

func TestCheckVersion(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.CheckVersion("2.3.0"))
	for _, bad := range []string{"2.3", "v2.3.0", "2.3.0-rc1", ""} {
		require.ErrorIs(t, cfg.CheckVersion(bad), flowerrors.ErrIllegalVersion, bad)
	}
}

func TestPendingPush(t *testing.T) {
	root := newRepoRoot(t)

	state, err := config.GetPendingPush(root)
	require.NoError(t, err)
	require.Nil(t, state)

	want := &config.PendingPush{
		Operation: "release finish 2.3.0",
		Remote:    "origin",
		Refspecs:  []string{"master", "develop", ":feature/42-login"},
		Atomic:    true,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, config.PersistPendingPush(root, want))

	got, err := config.GetPendingPush(root)
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.NoError(t, config.ClearPendingPush(root))
	require.NoError(t, config.ClearPendingPush(root))
	got, err = config.GetPendingPush(root)
	require.NoError(t, err)
	require.Nil(t, got)
}
