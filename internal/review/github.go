package review

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// GitHubSystem is a System backed by GitHub pull requests. Open pull
// requests are pending, merged ones submitted and closed ones discarded.
type GitHubSystem struct {
	client *github.Client
	owner  string
	repo   string
}

var _ System = (*GitHubSystem)(nil)

// NewGitHubSystem creates a GitHub adapter authenticated with token. A
// non-empty baseURL points it at a GitHub Enterprise API.
func NewGitHubSystem(ctx context.Context, token, owner, repo, baseURL string) (*GitHubSystem, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("failed to parse GitHub base URL %s: %w", baseURL, err)
		}
		client.BaseURL = u
		client.UploadURL = u
	}
	return NewGitHubSystemWithClient(client, owner, repo), nil
}

// NewGitHubSystemWithClient wraps an existing client
func NewGitHubSystemWithClient(client *github.Client, owner, repo string) *GitHubSystem {
	return &GitHubSystem{client: client, owner: owner, repo: repo}
}

func pullStatus(pr *github.PullRequest) Status {
	switch {
	case pr.GetState() == "open":
		return StatusPending
	case pr.GetMerged() || pr.MergedAt != nil:
		return StatusSubmitted
	default:
		return StatusDiscarded
	}
}

func pullToRequest(pr *github.PullRequest) *Request {
	return &Request{
		ID:          int64(pr.GetNumber()),
		Branch:      pr.GetHead().GetRef(),
		Status:      pullStatus(pr),
		Summary:     pr.GetTitle(),
		Description: pr.GetBody(),
		URL:         pr.GetHTMLURL(),
	}
}

// ListRequests lists pull requests in the state matching filter
func (g *GitHubSystem) ListRequests(ctx context.Context, filter Filter) ([]*Request, error) {
	state := "all"
	switch filter.Status {
	case StatusPending:
		state = "open"
	case StatusSubmitted, StatusDiscarded:
		state = "closed"
	}
	perPage := filter.MaxResults
	if perPage <= 0 || perPage > 100 {
		perPage = 100
	}

	opts := &github.PullRequestListOptions{
		State:       state,
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var out []*Request
	for {
		prs, resp, err := g.client.PullRequests.List(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list pull requests: %w", err)
		}
		for _, pr := range prs {
			req := pullToRequest(pr)
			if filter.Status == "" || req.Status == filter.Status {
				out = append(out, req)
			}
		}
		if resp.NextPage == 0 || (filter.MaxResults > 0 && len(out) >= filter.MaxResults) {
			break
		}
		opts.Page = resp.NextPage
	}
	if filter.MaxResults > 0 && len(out) > filter.MaxResults {
		out = out[:filter.MaxResults]
	}
	return out, nil
}

// GetRequest fetches one pull request
func (g *GitHubSystem) GetRequest(ctx context.Context, id int64) (*Request, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, g.owner, g.repo, int(id))
	if err != nil {
		return nil, fmt.Errorf("get pull request #%d: %w", id, err)
	}
	return pullToRequest(pr), nil
}

// CreateOrUpdate opens a pull request from the branch into its base, or
// edits the title and body of an existing one
func (g *GitHubSystem) CreateOrUpdate(ctx context.Context, draft Draft) (*Request, error) {
	body := draft.Description
	if draft.DependsOn != 0 {
		body = fmt.Sprintf("Depends on #%d\n\n%s", draft.DependsOn, body)
	}

	if draft.ExistingID != 0 {
		pr, _, err := g.client.PullRequests.Edit(ctx, g.owner, g.repo, int(draft.ExistingID), &github.PullRequest{
			Title: github.String(draft.Summary),
			Body:  github.String(body),
		})
		if err != nil {
			return nil, fmt.Errorf("update pull request #%d: %w", draft.ExistingID, err)
		}
		return pullToRequest(pr), nil
	}

	if draft.Base == "" {
		return nil, errors.New("a base branch is required to open a pull request")
	}
	pr, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.String(draft.Summary),
		Head:  github.String(draft.Branch),
		Base:  github.String(draft.Base),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("create pull request for %s: %w", draft.Branch, err)
	}
	return pullToRequest(pr), nil
}

// Dispositions maps pull request reviews; APPROVED counts as a ship-it
func (g *GitHubSystem) Dispositions(ctx context.Context, id int64) ([]Disposition, error) {
	reviews, _, err := g.client.PullRequests.ListReviews(ctx, g.owner, g.repo, int(id), &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("list reviews of pull request #%d: %w", id, err)
	}
	out := make([]Disposition, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, Disposition{
			Reviewer: r.GetUser().GetLogin(),
			ShipIt:   r.GetState() == "APPROVED",
		})
	}
	return out, nil
}

// Close discards a pull request by closing it. Submitting only leaves a
// comment: GitHub marks the pull request merged once the integration branch
// containing it is pushed.
func (g *GitHubSystem) Close(ctx context.Context, id int64, status Status) error {
	switch status {
	case StatusDiscarded:
		_, _, err := g.client.PullRequests.Edit(ctx, g.owner, g.repo, int(id), &github.PullRequest{
			State: github.String("closed"),
		})
		if err != nil {
			return fmt.Errorf("close pull request #%d: %w", id, err)
		}
		return nil
	case StatusSubmitted:
		_, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, int(id), &github.IssueComment{
			Body: github.String("Merged by git flow finish."),
		})
		if err != nil {
			return fmt.Errorf("comment on pull request #%d: %w", id, err)
		}
		return nil
	default:
		return fmt.Errorf("cannot close pull request #%d as %q", id, status)
	}
}
