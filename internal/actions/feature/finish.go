package feature

import (
	"fmt"
	"strings"

	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/internal/review"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
	"gitflow.dev/gitflow/internal/tui"
)

// FinishOptions contains options for the feature finish command
type FinishOptions struct {
	// Name is a short name or unique prefix; empty means the current branch
	Name string
	// NoReview skips posting the review request
	NoReview bool
	// SummaryFromCommit uses the first commit subject as review summary
	SummaryFromCommit bool
	// Push publishes the upstream after the merge
	Push bool
}

// FinishAction posts the review of a feature, merges it into its upstream
// and marks its story finished. The upstream is the release branch of the
// story's release label, or develop.
func FinishAction(ctx *runtime.Context, opts FinishOptions) error {
	clean, err := ctx.Repo.IsClean(ctx.Context)
	if err != nil {
		return err
	}
	if !clean {
		return flowerrors.ErrWorkdirDirty
	}

	mgr := ctx.Branches(engine.KindFeature)
	ref, err := mgr.ResolveByPrefix(ctx.Context, opts.Name, false)
	if err != nil {
		return err
	}
	id, err := tracker.ItemIDFromBranch(ref.FullName)
	if err != nil {
		return err
	}
	item, err := ctx.Tracker.Item(ctx.Context, id)
	if err != nil {
		return err
	}
	upstream, err := upstreamOf(ctx, item)
	if err != nil {
		return err
	}

	from, err := mgr.Ancestor(ctx.Context, ref, upstream)
	if err != nil {
		return err
	}
	to, err := ctx.Repo.ResolveRef(ctx.Context, "refs/heads/"+ref.FullName)
	if err != nil {
		return err
	}

	var req *review.Request
	if ctx.Reviews != nil && !opts.NoReview {
		summary := item.Name
		if opts.SummaryFromCommit {
			if summary, err = firstSubject(ctx, from, to); err != nil {
				return err
			}
		}
		req, err = ctx.Reviews.Post(ctx.Context, review.PostOptions{
			Branch:        ref.FullName,
			Base:          upstream,
			Range:         review.Range{From: from, To: to},
			Summary:       summary,
			StoryURL:      item.URL,
			ReuseExisting: true,
		})
		if err != nil {
			return err
		}
		ctx.Splog.Info("Review posted: %s", req.URL)
	}

	if err := ctx.Repo.Checkout(ctx.Context, upstream); err != nil {
		return err
	}
	if err := ctx.Repo.Merge(ctx.Context, ref.FullName, git.MergeOptions{NoFastForward: true}); err != nil {
		return err
	}
	ctx.Splog.Info("Merged %s into %s.", tui.ColorBranchName(ref.FullName, false), tui.ColorBranchName(upstream, true))

	if opts.Push {
		if err := ctx.Repo.Push(ctx.Context, ctx.Config.Origin, []string{upstream}, git.PushOptions{}); err != nil {
			return err
		}
	}

	if req != nil {
		if err := ctx.Tracker.AddComment(ctx.Context, item.ID, "Review request: "+req.URL); err != nil {
			return err
		}
	}
	if tracker.CanTransition(item.State, tracker.StateFinished) {
		if _, err := ctx.Tracker.Update(ctx.Context, item.ID, tracker.Delta{State: tracker.StateFinished}); err != nil {
			return err
		}
	}
	return nil
}

// upstreamOf is the release branch of the item's release, or develop
func upstreamOf(ctx *runtime.Context, item *tracker.Item) (string, error) {
	version, ok := ctx.Vocab.ReleaseOf(item)
	if !ok {
		return ctx.Config.Branches.Develop, nil
	}
	release := ctx.Branches(engine.KindRelease).Ref(version).FullName
	if !ctx.Repo.RefExists(ctx.Context, "refs/heads/"+release) {
		return "", &flowerrors.BranchError{
			Sentinel: flowerrors.ErrNoSuchBranch,
			Branch:   release,
			Detail:   fmt.Sprintf("#%d is labeled %s", item.ID, ctx.Vocab.ReleaseLabel(version)),
		}
	}
	return release, nil
}

// firstSubject returns the subject of the oldest commit in from..to
func firstSubject(ctx *runtime.Context, from, to string) (string, error) {
	log, err := ctx.Repo.Log(ctx.Context, from, to, "%s")
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimSpace(log), "\n")
	return lines[len(lines)-1], nil
}
