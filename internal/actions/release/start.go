// Package release implements the release subcommands that prepare a release
// before it is finished: start, append, stage and list-stories.
package release

import (
	"errors"
	"fmt"

	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
	"gitflow.dev/gitflow/internal/tui"
)

// StartOptions contains options for the release start command
type StartOptions struct {
	Version string
	// Yes skips the confirmation
	Yes   bool
	Fetch bool
}

// StartAction creates the release branch from develop and assigns the
// finished features waiting for a release to it
func StartAction(ctx *runtime.Context, opts StartOptions) error {
	if err := ctx.Vocab.CheckVersion(opts.Version); err != nil {
		return err
	}
	items, err := ctx.Tracker.CurrentAndBacklog(ctx.Context)
	if err != nil {
		return fmt.Errorf("failed to list work items: %w", err)
	}
	waiting := tracker.Unassigned(ctx.Vocab, items)
	printWaiting(ctx, waiting)

	if !opts.Yes {
		ok, err := ctx.Prompter.Confirm(fmt.Sprintf("Start release %s with %d features?", opts.Version, len(waiting)), true)
		if err != nil {
			return err
		}
		if !ok {
			return tui.ErrCanceled
		}
	}

	mgr := ctx.Branches(engine.KindRelease)
	ref, err := mgr.Create(ctx.Context, engine.CreateOptions{Name: opts.Version, Fetch: opts.Fetch})
	var branchErr *flowerrors.BranchError
	switch {
	case err == nil:
		ctx.Splog.Info("Switched to a new branch %s.", tui.ColorBranchName(ref.FullName, true))
	case errors.As(err, &branchErr) && branchErr.Branch == mgr.Ref(opts.Version).FullName:
		ctx.Splog.Info("%s already exists, assigning features only.", tui.ColorBranchName(branchErr.Branch, false))
	default:
		return err
	}

	return assign(ctx, opts.Version, waiting)
}

func printWaiting(ctx *runtime.Context, items []*tracker.Item) {
	if len(items) == 0 {
		ctx.Splog.Info("No finished features are waiting for a release.")
		return
	}
	ctx.Splog.Info("Finished features waiting for a release:")
	for _, item := range items {
		ctx.Splog.Info("  #%d %s", item.ID, tui.RenderStoryName(item.Name))
	}
}

// assign labels every item with the release label of version
func assign(ctx *runtime.Context, version string, items []*tracker.Item) error {
	for _, item := range items {
		if _, err := tracker.AssignToRelease(ctx.Context, ctx.Tracker, ctx.Vocab, item, version); err != nil {
			return fmt.Errorf("failed to assign #%d to %s: %w", item.ID, version, err)
		}
		ctx.Splog.Info("Assigned #%d to release %s.", item.ID, version)
	}
	return nil
}
