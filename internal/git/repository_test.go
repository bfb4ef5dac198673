package git_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/testhelpers"
)

func TestRepoReads(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves branches tags and remote branches", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneWithOriginSetup)
		require.NoError(t, scene.Repo.RunGitCommand("tag", "-a", "-m", "v1", "1.0.0"))
		repo := scene.Open(t)

		master, err := scene.Repo.GetRevision("master")
		require.NoError(t, err)

		for _, name := range []string{"master", "refs/heads/master", "origin/master", "1.0.0", master} {
			sha, err := repo.ResolveRef(ctx, name)
			require.NoError(t, err, name)
			require.Equal(t, master, sha, name)
		}

		require.False(t, repo.RefExists(ctx, "nope"))
		exists, err := repo.TagExists(ctx, "1.0.0")
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("lists local and remote branches", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneWithOriginSetup)
		require.NoError(t, scene.Repo.RunGitCommand("branch", "feature/1-a"))
		repo := scene.Open(t)

		local, err := repo.LocalBranches(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"develop", "feature/1-a", "master"}, local)

		remote, err := repo.RemoteBranches(ctx, "origin")
		require.NoError(t, err)
		require.Equal(t, []string{"develop", "master"}, remote)

		has, err := repo.HasRemote(ctx, "origin")
		require.NoError(t, err)
		require.True(t, has)
		has, err = repo.HasRemote(ctx, "upstream")
		require.NoError(t, err)
		require.False(t, has)
	})

	t.Run("walks first parents only", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneSetup)
		r := scene.Repo
		require.NoError(t, r.CheckoutBranch("develop"))
		require.NoError(t, r.CreateChangeAndCommit("d1", "d1"))
		require.NoError(t, r.CreateAndCheckoutBranch("feature/1"))
		require.NoError(t, r.CreateChangeAndCommit("f1", "f1"))
		require.NoError(t, r.CheckoutBranch("develop"))
		require.NoError(t, r.RunGitCommand("merge", "--no-ff", "-m", "merge f1", "feature/1"))

		repo := scene.Open(t)
		history, err := repo.FirstParentHistory(ctx, "develop", 0)
		require.NoError(t, err)
		require.Len(t, history, 3)

		featureTip, err := r.GetRevision("feature/1")
		require.NoError(t, err)
		require.NotContains(t, history, featureTip)

		limited, err := repo.FirstParentHistory(ctx, "develop", 2)
		require.NoError(t, err)
		require.Equal(t, history[:2], limited)

		isAncestor, err := repo.IsAncestor(ctx, "feature/1", "develop")
		require.NoError(t, err)
		require.True(t, isAncestor)
		isAncestor, err = repo.IsAncestor(ctx, "develop", "feature/1")
		require.NoError(t, err)
		require.False(t, isAncestor)
	})

	t.Run("ignores untracked files when checking cleanliness", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneSetup)
		repo := scene.Open(t)
		require.NoError(t, os.WriteFile(filepath.Join(scene.Dir, "scratch"), []byte("x"), 0600))

		clean, err := repo.IsClean(ctx)
		require.NoError(t, err)
		require.True(t, clean)

		require.NoError(t, os.WriteFile(filepath.Join(scene.Dir, "init_test.txt"), []byte("changed"), 0600))
		clean, err = repo.IsClean(ctx)
		require.NoError(t, err)
		require.False(t, clean)
	})
}

func TestRepoMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("creates refs atomically", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneSetup)
		repo := scene.Open(t)
		sha, err := scene.Repo.GetRevision("develop")
		require.NoError(t, err)

		err = repo.CreateRefs(ctx, []git.RefUpdate{
			{Name: "feature/7-x", SHA: sha},
			{Name: "base_feature/7-x", SHA: sha},
		})
		require.NoError(t, err)
		require.True(t, scene.Repo.RefExists("refs/heads/feature/7-x"))
		require.True(t, scene.Repo.RefExists("refs/heads/base_feature/7-x"))

		// base_feature/8 is new but feature/7-x exists, so nothing is created.
		err = repo.CreateRefs(ctx, []git.RefUpdate{
			{Name: "base_feature/8", SHA: sha},
			{Name: "feature/7-x", SHA: sha},
		})
		require.Error(t, err)
		require.False(t, scene.Repo.RefExists("refs/heads/base_feature/8"))
	})

	t.Run("aborts a conflicting merge", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneSetup)
		r := scene.Repo
		require.NoError(t, r.CreateAndCheckoutBranch("release/1.0.0"))
		require.NoError(t, r.CreateChangeAndCommit("release", "init"))
		require.NoError(t, r.CheckoutBranch("develop"))
		require.NoError(t, r.CreateChangeAndCommit("develop", "init"))
		before, err := r.GetRevision("develop")
		require.NoError(t, err)

		repo := scene.Open(t)
		err = repo.Merge(ctx, "release/1.0.0", git.MergeOptions{NoFastForward: true})
		require.ErrorIs(t, err, flowerrors.ErrMergeConflict)

		after, err := r.GetRevision("develop")
		require.NoError(t, err)
		require.Equal(t, before, after)
		clean, err := repo.IsClean(ctx)
		require.NoError(t, err)
		require.True(t, clean)
	})

	t.Run("merges without fast-forward", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneSetup)
		r := scene.Repo
		require.NoError(t, r.CreateAndCheckoutBranch("release/1.0.0"))
		require.NoError(t, r.CreateChangeAndCommit("release", "rel"))
		require.NoError(t, r.CheckoutBranch("develop"))

		repo := scene.Open(t)
		require.NoError(t, repo.Merge(ctx, "release/1.0.0", git.MergeOptions{NoFastForward: true, Message: "Merge release"}))

		releaseTip, err := r.GetRevision("release/1.0.0")
		require.NoError(t, err)
		developTip, err := repo.ResolveRef(ctx, "develop")
		require.NoError(t, err)
		require.NotEqual(t, releaseTip, developTip)
		parent, err := r.GetRevision("develop^2")
		require.NoError(t, err)
		require.Equal(t, releaseTip, parent)
	})

	t.Run("creates and deletes annotated tags", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneSetup)
		repo := scene.Open(t)

		require.NoError(t, repo.CreateTag(ctx, git.TagOptions{Name: "2.3.0", Target: "develop", Message: "Release 2.3.0"}))
		kind, err := scene.Repo.RunGitCommandAndGetOutput("cat-file", "-t", "2.3.0")
		require.NoError(t, err)
		require.Equal(t, "tag", kind)

		require.NoError(t, repo.DeleteTag(ctx, "2.3.0"))
		exists, err := repo.TagExists(ctx, "2.3.0")
		require.NoError(t, err)
		require.False(t, exists)
	})

	t.Run("resets checked out and other branches", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneSetup)
		r := scene.Repo
		original, err := r.GetRevision("master")
		require.NoError(t, err)
		require.NoError(t, r.CreateChangeAndCommit("m2", "m2"))
		require.NoError(t, r.CheckoutBranch("develop"))
		require.NoError(t, r.CreateChangeAndCommit("d2", "d2"))
		developBefore, err := r.GetRevision("develop~1")
		require.NoError(t, err)

		repo := scene.Open(t)
		require.NoError(t, repo.ResetBranch(ctx, "master", original))
		require.NoError(t, repo.ResetBranch(ctx, "develop", developBefore))

		sha, err := r.GetRevision("master")
		require.NoError(t, err)
		require.Equal(t, original, sha)
		sha, err = r.GetRevision("develop")
		require.NoError(t, err)
		require.Equal(t, developBefore, sha)
		_, err = os.Stat(filepath.Join(scene.Dir, "d2_test.txt"))
		require.True(t, os.IsNotExist(err))
	})

	t.Run("pushes updates and deletions in one call", func(t *testing.T) {
		scene := testhelpers.NewScene(t, testhelpers.FlowSceneWithOriginSetup)
		r := scene.Repo
		require.NoError(t, r.RunGitCommand("push", "--quiet", "origin", "master:refs/heads/feature/42-x"))
		require.NoError(t, r.CheckoutBranch("develop"))
		require.NoError(t, r.CreateChangeAndCommit("d2", "d2"))

		repo := scene.Open(t)
		err := repo.Push(ctx, "origin", []string{"develop", ":feature/42-x"}, git.PushOptions{Atomic: true})
		require.NoError(t, err)

		local, err := r.GetRevision("develop")
		require.NoError(t, err)
		remote, err := testhelpers.RemoteRevision(scene.OriginPath, "refs/heads/develop")
		require.NoError(t, err)
		require.Equal(t, local, remote)
		require.False(t, testhelpers.RemoteRefExists(scene.OriginPath, "refs/heads/feature/42-x"))
	})
}
