package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/git"
)

// DefaultPageSize is the number of requests fetched by one query
const DefaultPageSize = 200

// Reconciler maps branch names to review requests and posts, updates and
// submits requests on their behalf
type Reconciler struct {
	system   System
	repo     git.Facade
	pageSize int
}

// NewReconciler creates a reconciler. repo is used to render diffs and
// commit logs when posting.
func NewReconciler(system System, repo git.Facade, pageSize int) *Reconciler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Reconciler{system: system, repo: repo, pageSize: pageSize}
}

// FindForPrefix returns the single review request whose branch starts with
// prefix. Pending requests are searched first, then submitted ones. Only a
// full pending page is TooManyResults; submitted requests accumulate, so a
// full submitted page is searched as-is.
func (r *Reconciler) FindForPrefix(ctx context.Context, prefix string) (*Request, error) {
	for _, status := range []Status{StatusPending, StatusSubmitted} {
		matches, err := r.matching(ctx, prefix, status)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			branches := make([]string, 0, len(matches))
			for _, m := range matches {
				branches = append(branches, m.Branch)
			}
			return nil, &flowerrors.MultipleReviewRequestsError{Prefix: prefix, Branches: branches}
		}
	}
	return nil, &flowerrors.BranchError{
		Sentinel: flowerrors.ErrNoSuchBranch,
		Branch:   prefix,
		Detail:   "no review request found",
	}
}

func (r *Reconciler) matching(ctx context.Context, prefix string, status Status) ([]*Request, error) {
	requests, err := r.system.ListRequests(ctx, Filter{Status: status, MaxResults: r.pageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s review requests: %w", status, err)
	}
	if status == StatusPending && len(requests) >= r.pageSize {
		return nil, fmt.Errorf("%w: %d %s requests returned, the page limit", flowerrors.ErrTooManyResults, len(requests), status)
	}

	var out []*Request
	for _, req := range requests {
		if req.Status == StatusDiscarded {
			continue
		}
		if git.HasBranchPrefix(req.Branch, prefix) {
			out = append(out, req)
		}
	}
	return out, nil
}

// Range is a revision range under review
type Range struct {
	From string
	To   string
}

// PostOptions describes a review to post for a branch
type PostOptions struct {
	Branch   string
	Base     string
	Range    Range
	Summary  string
	StoryURL string
	// ReuseExisting updates a pending request for the branch in place
	ReuseExisting bool
}

// Post creates or updates the review request of a branch. An updated request
// keeps its summary and the operator's part of the description; only the
// generated commit log is replaced. A new request depends on the previous one
// for the same branch.
func (r *Reconciler) Post(ctx context.Context, opts PostOptions) (*Request, error) {
	diff, err := r.repo.Diff(ctx, opts.Range.From, opts.Range.To)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s..%s: %w", opts.Range.From, opts.Range.To, err)
	}
	if strings.TrimSpace(diff) == "" {
		return nil, fmt.Errorf("%w: nothing to review between %s and %s", flowerrors.ErrEmptyHistory, opts.Range.From, opts.Range.To)
	}
	commitLog, err := r.repo.Log(ctx, opts.Range.From, opts.Range.To, CommitLogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to render commit log: %w", err)
	}

	draft := Draft{
		Branch:      opts.Branch,
		Base:        opts.Base,
		From:        opts.Range.From,
		To:          opts.Range.To,
		Diff:        diff,
		Summary:     opts.Summary,
		Description: BuildDescription(opts.StoryURL, commitLog),
	}

	existing, err := r.FindForPrefix(ctx, opts.Branch)
	switch {
	case errors.Is(err, flowerrors.ErrNoSuchBranch):
	case err != nil:
		return nil, err
	case existing.Status == StatusPending && opts.ReuseExisting:
		draft.ExistingID = existing.ID
		if existing.Summary != "" {
			draft.Summary = existing.Summary
		}
		draft.Description = ReplaceCommitLog(existing.Description, commitLog)
	default:
		draft.DependsOn = existing.ID
	}

	req, err := r.system.CreateOrUpdate(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to post review for %s: %w", opts.Branch, err)
	}
	return req, nil
}

// Accepted reports whether a request may be submitted: it was submitted
// already, or at least one reviewer gave it a ship-it
func (r *Reconciler) Accepted(ctx context.Context, req *Request) (bool, error) {
	switch req.Status {
	case StatusSubmitted:
		return true, nil
	case StatusDiscarded:
		return false, nil
	}
	dispositions, err := r.system.Dispositions(ctx, req.ID)
	if err != nil {
		return false, fmt.Errorf("failed to list reviews of request %d: %w", req.ID, err)
	}
	for _, d := range dispositions {
		if d.ShipIt {
			return true, nil
		}
	}
	return false, nil
}

// Submit closes a request as submitted. It is a no-op for a request that is
// already submitted and fails with ErrReviewNotAccepted without a ship-it.
func (r *Reconciler) Submit(ctx context.Context, id int64) error {
	req, err := r.system.GetRequest(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch review request %d: %w", id, err)
	}
	if req.Status == StatusSubmitted {
		return nil
	}
	accepted, err := r.Accepted(ctx, req)
	if err != nil {
		return err
	}
	if !accepted {
		return fmt.Errorf("%w: review %d (%s)", flowerrors.ErrReviewNotAccepted, id, req.URL)
	}
	if err := r.system.Close(ctx, id, StatusSubmitted); err != nil {
		return fmt.Errorf("failed to submit review %d: %w", id, err)
	}
	return nil
}

// Discard closes a request as discarded
func (r *Reconciler) Discard(ctx context.Context, id int64) error {
	return r.system.Close(ctx, id, StatusDiscarded)
}
