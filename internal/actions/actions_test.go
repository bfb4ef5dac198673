package actions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitflow.dev/gitflow/internal/actions"
	"gitflow.dev/gitflow/internal/config"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/testhelpers"
)

func TestInitAction(t *testing.T) {
	t.Run("writes the configuration and creates develop", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		require.NoError(t, repo.DeleteBranch(context.Background(), "develop", true))
		repo.SetRemoteBranch("develop", "")
		ctx, out := testhelpers.NewTestContext(t, repo, testhelpers.NewFakeTracker(), nil)

		err := actions.InitAction(ctx, actions.InitOptions{FeaturePrefix: "feat/", ReviewProvider: config.ProviderNone})
		require.NoError(t, err)
		require.Equal(t, repo.Branch("master"), repo.Branch("develop"))
		require.Contains(t, out.String(), "Initialized git flow.")

		cfg, err := config.Load(repo.RepoRoot())
		require.NoError(t, err)
		require.Equal(t, "feat/", cfg.Prefix.Feature)
		require.Equal(t, config.ProviderNone, cfg.Review.Provider)
		require.Equal(t, "feat/", ctx.Config.Prefix.Feature)
	})

	t.Run("tracks develop from origin", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		remoteDevelop := repo.Commit("develop", "Remote work")
		repo.SetRemoteBranch("develop", remoteDevelop)
		require.NoError(t, repo.DeleteBranch(context.Background(), "develop", true))
		ctx, _ := testhelpers.NewTestContext(t, repo, testhelpers.NewFakeTracker(), nil)

		require.NoError(t, actions.InitAction(ctx, actions.InitOptions{}))
		require.Equal(t, remoteDevelop, repo.Branch("develop"))
	})

	t.Run("refuses to reinitialize without force", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		ctx, out := testhelpers.NewTestContext(t, repo, testhelpers.NewFakeTracker(), nil)
		require.NoError(t, actions.InitAction(ctx, actions.InitOptions{}))

		err := actions.InitAction(ctx, actions.InitOptions{Develop: "dev"})
		require.ErrorIs(t, err, flowerrors.ErrAlreadyInitialized)

		out.Reset()
		require.NoError(t, actions.InitAction(ctx, actions.InitOptions{Develop: "dev", Force: true}))
		require.Contains(t, out.String(), "Reinitialized git flow.")
		require.Equal(t, repo.Branch("master"), repo.Branch("dev"))
	})

	t.Run("rejects an inconsistent configuration", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		ctx, _ := testhelpers.NewTestContext(t, repo, testhelpers.NewFakeTracker(), nil)

		err := actions.InitAction(ctx, actions.InitOptions{FeaturePrefix: "release/"})
		require.Error(t, err)
		require.False(t, config.IsInitialized(repo.RepoRoot()))
	})

	t.Run("requires master", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		ctx, _ := testhelpers.NewTestContext(t, repo, testhelpers.NewFakeTracker(), nil)

		require.ErrorIs(t, actions.InitAction(ctx, actions.InitOptions{Master: "main"}), flowerrors.ErrNoSuchBranch)
	})
}

func TestRepairAction(t *testing.T) {
	pending := func(t *testing.T, repo *testhelpers.FakeRepo, refspecs ...string) {
		t.Helper()
		require.NoError(t, config.PersistPendingPush(repo.RepoRoot(), &config.PendingPush{
			Operation: "release finish 2.3.0",
			Remote:    "origin",
			Refspecs:  refspecs,
			Atomic:    true,
			CreatedAt: time.Now(),
		}))
	}

	t.Run("replays the pending push", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		ctx, out := testhelpers.NewTestContext(t, repo, testhelpers.NewFakeTracker(), nil)
		tip := repo.Commit("develop", "Merge release")
		repo.SetRemoteBranch("release/2.3.0", tip)
		pending(t, repo, "develop", ":release/2.3.0")

		require.NoError(t, actions.RepairAction(ctx))
		require.Equal(t, tip, repo.RemoteBranch("develop"))
		require.Empty(t, repo.RemoteBranch("release/2.3.0"))
		require.Contains(t, out.String(), "Completed release finish 2.3.0.")

		state, err := config.GetPendingPush(repo.RepoRoot())
		require.NoError(t, err)
		require.Nil(t, state)
	})

	t.Run("keeps the state when the push fails again", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		ctx, _ := testhelpers.NewTestContext(t, repo, testhelpers.NewFakeTracker(), nil)
		pending(t, repo, "develop")
		repo.Failures["Push"] = errors.New("remote rejected")

		require.ErrorIs(t, actions.RepairAction(ctx), flowerrors.ErrPushIncomplete)
		state, err := config.GetPendingPush(repo.RepoRoot())
		require.NoError(t, err)
		require.Equal(t, []string{"develop"}, state.Refspecs)
	})

	t.Run("does nothing without pending state", func(t *testing.T) {
		ctx, out := testhelpers.NewTestContext(t, testhelpers.NewFakeRepo(), testhelpers.NewFakeTracker(), nil)

		require.NoError(t, actions.RepairAction(ctx))
		require.Contains(t, out.String(), "Nothing to repair.")
	})
}

func TestStatusAction(t *testing.T) {
	t.Run("shows branches and pending repairs", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		repo.SetBranch("feature/42/login", repo.Branch("develop"))
		repo.SetBranch("release/2.3.0", repo.Branch("develop"))
		require.NoError(t, repo.Checkout(context.Background(), "feature/42/login"))
		ctx, out := testhelpers.NewTestContext(t, repo, testhelpers.NewFakeTracker(), nil)
		require.NoError(t, config.PersistPendingPush(repo.RepoRoot(), &config.PendingPush{
			Operation: "hotfix finish 1.0.1",
			Remote:    "origin",
			Refspecs:  []string{"master"},
		}))

		require.NoError(t, actions.StatusAction(ctx))
		require.Contains(t, out.String(), "  feature: 42/login")
		require.Contains(t, out.String(), "  release: 2.3.0")
		require.Contains(t, out.String(), "  hotfix: none")
		require.Contains(t, out.String(), "On feature 42/login.")
		require.Contains(t, out.String(), "hotfix finish 1.0.1 did not finish pushing to origin: master")
	})
}
