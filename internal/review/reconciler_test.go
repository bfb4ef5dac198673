package review_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/review"
	"gitflow.dev/gitflow/testhelpers"
)

func TestFindForPrefix(t *testing.T) {
	ctx := context.Background()

	t.Run("finds the single pending request", func(t *testing.T) {
		rs := testhelpers.NewFakeReviewSystem()
		id := rs.AddRequest("feature/42/login", review.StatusPending, false)
		rs.AddRequest("feature/420/other", review.StatusPending, false)
		r := review.NewReconciler(rs, testhelpers.NewFakeRepo(), 200)

		req, err := r.FindForPrefix(ctx, "feature/42")
		require.NoError(t, err)
		require.Equal(t, id, req.ID)
	})

	t.Run("never picks among ambiguous requests", func(t *testing.T) {
		rs := testhelpers.NewFakeReviewSystem()
		rs.AddRequest("feature/42-login", review.StatusPending, true)
		rs.AddRequest("feature/42/signup", review.StatusPending, true)
		r := review.NewReconciler(rs, testhelpers.NewFakeRepo(), 200)

		_, err := r.FindForPrefix(ctx, "feature/42")
		require.ErrorIs(t, err, flowerrors.ErrMultipleReviewRequests)
		var multi *flowerrors.MultipleReviewRequestsError
		require.ErrorAs(t, err, &multi)
		require.ElementsMatch(t, []string{"feature/42-login", "feature/42/signup"}, multi.Branches)
	})

	t.Run("falls back to submitted requests", func(t *testing.T) {
		rs := testhelpers.NewFakeReviewSystem()
		id := rs.AddRequest("feature/42/login", review.StatusSubmitted, true)
		r := review.NewReconciler(rs, testhelpers.NewFakeRepo(), 200)

		req, err := r.FindForPrefix(ctx, "feature/42")
		require.NoError(t, err)
		require.Equal(t, id, req.ID)
		require.Equal(t, review.StatusSubmitted, req.Status)
	})

	t.Run("reports missing requests", func(t *testing.T) {
		rs := testhelpers.NewFakeReviewSystem()
		rs.AddRequest("feature/42/login", review.StatusDiscarded, false)
		r := review.NewReconciler(rs, testhelpers.NewFakeRepo(), 200)

		_, err := r.FindForPrefix(ctx, "feature/42")
		require.ErrorIs(t, err, flowerrors.ErrNoSuchBranch)
	})

	t.Run("refuses to answer from a full page", func(t *testing.T) {
		rs := testhelpers.NewFakeReviewSystem()
		for i := 0; i < 3; i++ {
			rs.AddRequest("feature/1", review.StatusPending, false)
		}
		r := review.NewReconciler(rs, testhelpers.NewFakeRepo(), 3)

		_, err := r.FindForPrefix(ctx, "feature/42")
		require.ErrorIs(t, err, flowerrors.ErrTooManyResults)
	})

	t.Run("searches a full page of submitted requests", func(t *testing.T) {
		rs := testhelpers.NewFakeReviewSystem()
		for i := 0; i < 200; i++ {
			rs.AddRequest(fmt.Sprintf("feature/%d/old", 1000+i), review.StatusSubmitted, true)
		}
		r := review.NewReconciler(rs, testhelpers.NewFakeRepo(), 200)

		_, err := r.FindForPrefix(ctx, "feature/99")
		require.ErrorIs(t, err, flowerrors.ErrNoSuchBranch)
		require.NotErrorIs(t, err, flowerrors.ErrTooManyResults)

		id := rs.AddRequest("feature/1001/old", review.StatusPending, false)
		req, err := r.FindForPrefix(ctx, "feature/1001")
		require.NoError(t, err)
		require.Equal(t, id, req.ID)
	})
}

func TestBranchReview(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves once", func(t *testing.T) {
		rs := testhelpers.NewFakeReviewSystem()
		id := rs.AddRequest("feature/42/login", review.StatusPending, true)
		r := review.NewReconciler(rs, testhelpers.NewFakeRepo(), 200)

		br := r.ForBranch("feature/42")
		_, ok := br.Request()
		require.False(t, ok)

		req, err := br.Resolve(ctx)
		require.NoError(t, err)
		require.Equal(t, id, req.ID)

		rs.AddRequest("feature/42/other", review.StatusPending, true)
		again, err := br.Resolve(ctx)
		require.NoError(t, err)
		require.Same(t, req, again)

		accepted, err := br.Accepted(ctx)
		require.NoError(t, err)
		require.True(t, accepted)
		require.NoError(t, br.Submit(ctx))
		require.Equal(t, review.StatusSubmitted, rs.Get(id).Status)
	})

	t.Run("refuses to submit before resolving", func(t *testing.T) {
		r := review.NewReconciler(testhelpers.NewFakeReviewSystem(), testhelpers.NewFakeRepo(), 200)
		require.Error(t, r.ForBranch("feature/1").Submit(ctx))
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a ship-it", func(t *testing.T) {
		rs := testhelpers.NewFakeReviewSystem()
		id := rs.AddRequest("feature/42", review.StatusPending, false)
		r := review.NewReconciler(rs, testhelpers.NewFakeRepo(), 200)

		require.ErrorIs(t, r.Submit(ctx, id), flowerrors.ErrReviewNotAccepted)
		require.Empty(t, rs.Closed)

		rs.ShipIt(id)
		require.NoError(t, r.Submit(ctx, id))
		require.Equal(t, []int64{id}, rs.Closed)
	})

	t.Run("is a no-op for submitted requests", func(t *testing.T) {
		rs := testhelpers.NewFakeReviewSystem()
		id := rs.AddRequest("feature/42", review.StatusSubmitted, false)
		r := review.NewReconciler(rs, testhelpers.NewFakeRepo(), 200)

		require.NoError(t, r.Submit(ctx, id))
		require.Empty(t, rs.Closed)
	})
}

func TestPost(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testhelpers.FakeRepo, string, string) {
		t.Helper()
		repo := testhelpers.NewFakeRepo()
		base := repo.Branch("develop")
		repo.SetBranch("feature/42/login", base)
		repo.Commit("feature/42/login", "Add login form")
		tip := repo.Commit("feature/42/login", "Validate password")
		return repo, base, tip
	}

	t.Run("creates a new request", func(t *testing.T) {
		repo, base, tip := setup(t)
		rs := testhelpers.NewFakeReviewSystem()
		r := review.NewReconciler(rs, repo, 200)

		req, err := r.Post(ctx, review.PostOptions{
			Branch:   "feature/42/login",
			Base:     "develop",
			Range:    review.Range{From: base, To: tip},
			Summary:  "Login",
			StoryURL: "https://tracker/story/42",
		})
		require.NoError(t, err)
		require.Equal(t, "Login", req.Summary)
		require.Contains(t, req.Description, "> Story being reviewed: https://tracker/story/42")
		require.Contains(t, req.Description, "COMMIT LOG\nValidate password\nAdd login form")
		require.Len(t, rs.Drafts, 1)
		require.Contains(t, rs.Drafts[0].Diff, "+Add login form")
		require.Zero(t, rs.Drafts[0].ExistingID)
	})

	t.Run("updates an existing request in place", func(t *testing.T) {
		repo, base, tip := setup(t)
		rs := testhelpers.NewFakeReviewSystem()
		r := review.NewReconciler(rs, repo, 200)

		first, err := r.Post(ctx, review.PostOptions{
			Branch: "feature/42/login", Range: review.Range{From: base, To: tip}, Summary: "Login",
		})
		require.NoError(t, err)
		stored := rs.Get(first.ID)
		stored.Summary = "Operator summary"
		stored.Description = "Please look at the validation.\n" + stored.Description[strings.Index(stored.Description, "\nCOMMIT LOG\n"):]

		tip = repo.Commit("feature/42/login", "Fix typo")
		second, err := r.Post(ctx, review.PostOptions{
			Branch: "feature/42/login", Range: review.Range{From: base, To: tip}, Summary: "Login",
			ReuseExisting: true,
		})
		require.NoError(t, err)
		require.Equal(t, first.ID, second.ID)
		require.Equal(t, "Operator summary", second.Summary)
		require.True(t, strings.HasPrefix(second.Description, "Please look at the validation.\n"))
		require.Contains(t, second.Description, "Fix typo")
	})

	t.Run("chains a new request to the previous one", func(t *testing.T) {
		repo, base, tip := setup(t)
		rs := testhelpers.NewFakeReviewSystem()
		previous := rs.AddRequest("feature/42/login", review.StatusSubmitted, true)
		r := review.NewReconciler(rs, repo, 200)

		req, err := r.Post(ctx, review.PostOptions{
			Branch: "feature/42/login", Range: review.Range{From: base, To: tip}, ReuseExisting: true,
		})
		require.NoError(t, err)
		require.NotEqual(t, previous, req.ID)
		require.Equal(t, previous, rs.Drafts[0].DependsOn)
	})

	t.Run("refuses an empty range", func(t *testing.T) {
		repo, _, tip := setup(t)
		r := review.NewReconciler(testhelpers.NewFakeReviewSystem(), repo, 200)

		_, err := r.Post(ctx, review.PostOptions{Branch: "feature/42/login", Range: review.Range{From: tip, To: tip}})
		require.ErrorIs(t, err, flowerrors.ErrEmptyHistory)
	})
}

func TestReplaceCommitLog(t *testing.T) {
	t.Run("keeps operator text", func(t *testing.T) {
		desc := review.BuildDescription("https://tracker/1", "old log")
		desc = "Notes\n" + desc
		updated := review.ReplaceCommitLog(desc, "new log")
		require.Equal(t, "Notes\n> Story being reviewed: https://tracker/1\n\nCOMMIT LOG\nnew log", updated)
	})

	t.Run("appends a block when none exists", func(t *testing.T) {
		require.Equal(t, "Hand written\n\nCOMMIT LOG\nlog", review.ReplaceCommitLog("Hand written\n\n", "log"))
	})
}
