package review_test

import (
	"context"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/require"

	"gitflow.dev/gitflow/internal/review"
	"gitflow.dev/gitflow/testhelpers"
)

func TestGitHubSystem(t *testing.T) {
	ctx := context.Background()

	newSystem := func(t *testing.T, cfg *testhelpers.MockGitHubServerConfig) *review.GitHubSystem {
		client, owner, repo := testhelpers.NewMockGitHubClient(t, cfg)
		return review.NewGitHubSystemWithClient(client, owner, repo)
	}

	t.Run("maps pull request states", func(t *testing.T) {
		cfg := testhelpers.NewMockGitHubServerConfig()
		cfg.AddPR(&github.PullRequest{Number: github.Int(1), State: github.String("open"),
			Head: &github.PullRequestBranch{Ref: github.String("feature/42/login")}})
		cfg.AddPR(&github.PullRequest{Number: github.Int(2), State: github.String("closed"), Merged: github.Bool(true),
			Head: &github.PullRequestBranch{Ref: github.String("feature/41/signup")}})
		cfg.AddPR(&github.PullRequest{Number: github.Int(3), State: github.String("closed"),
			Head: &github.PullRequestBranch{Ref: github.String("feature/40/old")}})
		g := newSystem(t, cfg)

		pending, err := g.ListRequests(ctx, review.Filter{Status: review.StatusPending, MaxResults: 200})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, "feature/42/login", pending[0].Branch)

		submitted, err := g.ListRequests(ctx, review.Filter{Status: review.StatusSubmitted, MaxResults: 200})
		require.NoError(t, err)
		require.Len(t, submitted, 1)
		require.Equal(t, int64(2), submitted[0].ID)
	})

	t.Run("opens and edits pull requests", func(t *testing.T) {
		cfg := testhelpers.NewMockGitHubServerConfig()
		g := newSystem(t, cfg)

		req, err := g.CreateOrUpdate(ctx, review.Draft{
			Branch: "feature/42/login", Base: "develop", Summary: "Login", Description: "body", DependsOn: 7,
		})
		require.NoError(t, err)
		require.Equal(t, int64(1), req.ID)
		require.Equal(t, review.StatusPending, req.Status)
		require.Equal(t, "Depends on #7\n\nbody", req.Description)

		updated, err := g.CreateOrUpdate(ctx, review.Draft{
			Branch: "feature/42/login", Summary: "Login v2", Description: "body2", ExistingID: req.ID,
		})
		require.NoError(t, err)
		require.Equal(t, "Login v2", updated.Summary)
	})

	t.Run("reads approvals", func(t *testing.T) {
		cfg := testhelpers.NewMockGitHubServerConfig()
		cfg.AddPR(&github.PullRequest{Number: github.Int(1), State: github.String("open")})
		cfg.Reviews[1] = []*github.PullRequestReview{
			{State: github.String("COMMENTED"), User: &github.User{Login: github.String("bob")}},
			{State: github.String("APPROVED"), User: &github.User{Login: github.String("alice")}},
		}
		g := newSystem(t, cfg)

		ds, err := g.Dispositions(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, []review.Disposition{{Reviewer: "bob"}, {Reviewer: "alice", ShipIt: true}}, ds)
	})

	t.Run("comments on submit and closes on discard", func(t *testing.T) {
		cfg := testhelpers.NewMockGitHubServerConfig()
		cfg.AddPR(&github.PullRequest{Number: github.Int(1), State: github.String("open")})
		g := newSystem(t, cfg)

		require.NoError(t, g.Close(ctx, 1, review.StatusSubmitted))
		require.Len(t, cfg.Comments[1], 1)

		require.NoError(t, g.Close(ctx, 1, review.StatusDiscarded))
		req, err := g.GetRequest(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, review.StatusDiscarded, req.Status)
	})
}
