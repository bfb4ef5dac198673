package release

import (
	"fmt"

	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
	"gitflow.dev/gitflow/internal/tui"
)

// AppendOptions contains options for the release append command
type AppendOptions struct {
	Version string
	Push    bool
}

// AppendAction merges develop into the release branch and assigns the
// features finished since the release started
func AppendAction(ctx *runtime.Context, opts AppendOptions) (err error) {
	if err := ctx.Vocab.CheckVersion(opts.Version); err != nil {
		return err
	}
	clean, err := ctx.Repo.IsClean(ctx.Context)
	if err != nil {
		return err
	}
	if !clean {
		return flowerrors.ErrWorkdirDirty
	}
	ref := ctx.Branches(engine.KindRelease).Ref(opts.Version)
	if !ctx.Repo.RefExists(ctx.Context, "refs/heads/"+ref.FullName) {
		return flowerrors.NewNoSuchBranchError(ref.FullName)
	}

	original, err := ctx.Repo.CurrentBranch(ctx.Context)
	if err != nil {
		return err
	}
	defer func() {
		if original == "" {
			return
		}
		if cerr := ctx.Repo.Checkout(ctx.Context, original); cerr != nil && err == nil {
			err = fmt.Errorf("failed to return to %s: %w", original, cerr)
		}
	}()

	develop := ctx.Config.Branches.Develop
	if err := ctx.Repo.Checkout(ctx.Context, ref.FullName); err != nil {
		return err
	}
	if err := ctx.Repo.Merge(ctx.Context, develop, git.MergeOptions{NoFastForward: true}); err != nil {
		return err
	}
	ctx.Splog.Info("Merged %s into %s.", develop, tui.ColorBranchName(ref.FullName, true))
	if opts.Push {
		if err := ctx.Repo.Push(ctx.Context, ctx.Config.Origin, []string{ref.FullName}, git.PushOptions{}); err != nil {
			return err
		}
	}

	items, err := ctx.Tracker.CurrentAndBacklog(ctx.Context)
	if err != nil {
		return fmt.Errorf("failed to list work items: %w", err)
	}
	return assign(ctx, opts.Version, tracker.Unassigned(ctx.Vocab, items))
}
