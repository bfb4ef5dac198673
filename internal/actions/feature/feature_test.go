package feature_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitflow.dev/gitflow/internal/actions/feature"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/tracker"
	"gitflow.dev/gitflow/testhelpers"
)

func story(id int64, kind tracker.Kind, state tracker.State, name string, labels ...string) *tracker.Item {
	return &tracker.Item{
		ID:     id,
		Kind:   kind,
		State:  state,
		Name:   name,
		URL:    "https://tracker.example.com/story/show/" + name,
		Labels: labels,
	}
}

func TestStartAction(t *testing.T) {
	t.Run("prompts for the story and slug", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		tr := testhelpers.NewFakeTracker(
			story(41, tracker.KindFeature, tracker.StateAccepted, "Done already"),
			story(42, tracker.KindFeature, tracker.StateUnstarted, "Add *login* page"),
			story(43, tracker.KindBug, tracker.StateUnstarted, "Crash on save"),
		)
		ctx, _ := testhelpers.NewTestContext(t, repo, tr, nil)
		prompter := &testhelpers.ScriptedPrompter{Selections: []string{"#42 Add login page"}, Inputs: []string{""}}
		ctx.Prompter = prompter

		ref, err := feature.StartAction(ctx, feature.StartOptions{})
		require.NoError(t, err)
		require.Equal(t, "feature/42/login", ref.FullName)
		require.Equal(t, repo.Branch("develop"), repo.Branch("base_feature/42/login"))
		require.Equal(t, tracker.StateStarted, tr.Get(42).State)
		require.Len(t, prompter.Asked, 2)
	})

	t.Run("uses the given story and slug", func(t *testing.T) {
		repo := testhelpers.NewFakeRepo()
		tr := testhelpers.NewFakeTracker(story(42, tracker.KindFeature, tracker.StateStarted, "Login"))
		ctx, _ := testhelpers.NewTestContext(t, repo, tr, nil)

		ref, err := feature.StartAction(ctx, feature.StartOptions{StoryID: 42, Slug: "login-page", Dash: true})
		require.NoError(t, err)
		require.Equal(t, "feature/42-login-page", ref.FullName)
		require.Empty(t, tr.Updates)
	})

	t.Run("rejects a slug with a slash", func(t *testing.T) {
		tr := testhelpers.NewFakeTracker(story(42, tracker.KindFeature, tracker.StateStarted, "Login"))
		ctx, _ := testhelpers.NewTestContext(t, testhelpers.NewFakeRepo(), tr, nil)

		_, err := feature.StartAction(ctx, feature.StartOptions{StoryID: 42, Slug: "a/b"})
		require.ErrorIs(t, err, flowerrors.ErrIllegalBranchName)
	})

	t.Run("fails when nothing can be started", func(t *testing.T) {
		tr := testhelpers.NewFakeTracker(story(41, tracker.KindFeature, tracker.StateFinished, "Done"))
		ctx, _ := testhelpers.NewTestContext(t, testhelpers.NewFakeRepo(), tr, nil)

		_, err := feature.StartAction(ctx, feature.StartOptions{})
		require.ErrorIs(t, err, flowerrors.ErrNoSuchItem)
	})
}

type finishWorld struct {
	repo    *testhelpers.FakeRepo
	tracker *testhelpers.FakeTracker
	reviews *testhelpers.FakeReviewSystem
	base    string
	tip     string
}

func newFinishWorld(t *testing.T, labels ...string) (*finishWorld, feature.FinishOptions) {
	t.Helper()
	repo := testhelpers.NewFakeRepo()
	base := repo.Branch("develop")
	repo.SetBranch("feature/42/login", base)
	repo.SetBranch("base_feature/42/login", base)
	tip := repo.Commit("feature/42/login", "Add login form")
	repo.SetBranch("release/2.3.0", base)
	return &finishWorld{
		repo:    repo,
		tracker: testhelpers.NewFakeTracker(story(42, tracker.KindFeature, tracker.StateStarted, "Login page", labels...)),
		reviews: testhelpers.NewFakeReviewSystem(),
		base:    base,
		tip:     tip,
	}, feature.FinishOptions{Name: "42", Push: true}
}

func TestFinishAction(t *testing.T) {
	t.Run("posts the review, merges and finishes the story", func(t *testing.T) {
		w, opts := newFinishWorld(t)
		ctx, _ := testhelpers.NewTestContext(t, w.repo, w.tracker, w.reviews)

		require.NoError(t, feature.FinishAction(ctx, opts))

		require.Len(t, w.reviews.Drafts, 1)
		draft := w.reviews.Drafts[0]
		require.Equal(t, "feature/42/login", draft.Branch)
		require.Equal(t, "develop", draft.Base)
		require.Equal(t, w.base, draft.From)
		require.Equal(t, w.tip, draft.To)
		require.Equal(t, "Login page", draft.Summary)
		require.Contains(t, draft.Description, "Story being reviewed: https://tracker.example.com/story/show/Login page")

		require.Equal(t, []string{w.base, w.tip}, w.repo.Parents(w.repo.Branch("develop")))
		require.Equal(t, w.repo.Branch("develop"), w.repo.RemoteBranch("develop"))
		require.NotEmpty(t, w.repo.Branch("feature/42/login"))

		require.Equal(t, []testhelpers.Comment{{ItemID: 42, Text: "Review request: https://reviews.example.com/r/1/"}}, w.tracker.Comments)
		require.Equal(t, tracker.StateFinished, w.tracker.Get(42).State)
	})

	t.Run("merges into the release of the story", func(t *testing.T) {
		w, opts := newFinishWorld(t, "release-2.3.0")
		ctx, _ := testhelpers.NewTestContext(t, w.repo, w.tracker, w.reviews)

		require.NoError(t, feature.FinishAction(ctx, opts))
		require.Equal(t, "release/2.3.0", w.reviews.Drafts[0].Base)
		require.Equal(t, []string{w.base, w.tip}, w.repo.Parents(w.repo.Branch("release/2.3.0")))
		require.Equal(t, w.base, w.repo.Branch("develop"))
	})

	t.Run("fails when the release branch is missing", func(t *testing.T) {
		w, opts := newFinishWorld(t, "release-2.4.0")
		ctx, _ := testhelpers.NewTestContext(t, w.repo, w.tracker, w.reviews)

		err := feature.FinishAction(ctx, opts)
		require.ErrorIs(t, err, flowerrors.ErrNoSuchBranch)
		require.Empty(t, w.reviews.Drafts)
	})

	t.Run("summarizes from the first commit", func(t *testing.T) {
		w, opts := newFinishWorld(t)
		w.repo.Commit("feature/42/login", "Polish login form")
		ctx, _ := testhelpers.NewTestContext(t, w.repo, w.tracker, w.reviews)
		opts.SummaryFromCommit = true

		require.NoError(t, feature.FinishAction(ctx, opts))
		require.Equal(t, "Add login form", w.reviews.Drafts[0].Summary)
	})

	t.Run("updates the pending review in place", func(t *testing.T) {
		w, opts := newFinishWorld(t)
		id := w.reviews.AddRequest("feature/42/login", "pending", false)
		ctx, _ := testhelpers.NewTestContext(t, w.repo, w.tracker, w.reviews)

		require.NoError(t, feature.FinishAction(ctx, opts))
		require.Equal(t, id, w.reviews.Drafts[0].ExistingID)
	})

	t.Run("skips the review when asked", func(t *testing.T) {
		w, opts := newFinishWorld(t)
		ctx, _ := testhelpers.NewTestContext(t, w.repo, w.tracker, w.reviews)
		opts.NoReview = true
		opts.Push = false

		require.NoError(t, feature.FinishAction(ctx, opts))
		require.Empty(t, w.reviews.Drafts)
		require.Empty(t, w.tracker.Comments)
		require.Empty(t, w.repo.Pushes)
		require.Equal(t, tracker.StateFinished, w.tracker.Get(42).State)
	})

	t.Run("works without a review system", func(t *testing.T) {
		w, opts := newFinishWorld(t)
		ctx, _ := testhelpers.NewTestContext(t, w.repo, w.tracker, nil)

		require.NoError(t, feature.FinishAction(ctx, opts))
		require.Equal(t, tracker.StateFinished, w.tracker.Get(42).State)
	})

	t.Run("refuses a dirty tree", func(t *testing.T) {
		w, opts := newFinishWorld(t)
		w.repo.Dirty = true
		ctx, _ := testhelpers.NewTestContext(t, w.repo, w.tracker, w.reviews)

		require.ErrorIs(t, feature.FinishAction(ctx, opts), flowerrors.ErrWorkdirDirty)
	})
}
