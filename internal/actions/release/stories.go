package release

import (
	"fmt"

	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
	"gitflow.dev/gitflow/internal/tui"
)

// ListStoriesOptions contains options for the release list-stories command
type ListStoriesOptions struct {
	// Version limits the listing to one release
	Version string
}

// ListStoriesAction prints the items of one release, or of every release
// with at least one assigned feature
func ListStoriesAction(ctx *runtime.Context, opts ListStoriesOptions) error {
	items, err := ctx.Tracker.CurrentAndBacklog(ctx.Context)
	if err != nil {
		return fmt.Errorf("failed to list work items: %w", err)
	}

	if opts.Version != "" {
		release, err := tracker.ReleaseFromSnapshot(ctx.Vocab, opts.Version, items)
		if err != nil {
			return err
		}
		if release.IsEmpty() {
			ctx.Splog.Info("No stories are assigned to release %s.", opts.Version)
			return nil
		}
		printRelease(ctx, release)
		return nil
	}

	releases := tracker.AllReleases(ctx.Vocab, items)
	if len(releases) == 0 {
		ctx.Splog.Info("No stories are assigned to a release.")
		return nil
	}
	for i, release := range releases {
		if i > 0 {
			ctx.Splog.Newline()
		}
		printRelease(ctx, release)
	}
	return nil
}

func printRelease(ctx *runtime.Context, release *tracker.Release) {
	ctx.Splog.Info("%s (%s)", tui.Bold("Release "+release.Version), release.Label())
	for _, item := range release.Items() {
		ctx.Splog.Info("  #%d [%s] %s", item.ID, item.State, tui.RenderStoryName(item.Name))
	}
}
