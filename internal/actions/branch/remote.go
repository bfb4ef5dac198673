package branch

import (
	"gitflow.dev/gitflow/internal/engine"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tui"
)

// RemoteOptions names the branch a publish, track or pull works on
type RemoteOptions struct {
	Kind engine.Kind
	// Name is a short name or unique prefix; empty means the current branch
	Name string
}

// PublishAction pushes a branch and its base marker to origin
func PublishAction(ctx *runtime.Context, opts RemoteOptions) error {
	mgr := ctx.Branches(opts.Kind)
	ref, err := mgr.ResolveByPrefix(ctx.Context, opts.Name, false)
	if err != nil {
		return err
	}
	if _, err := mgr.Publish(ctx.Context, ref); err != nil {
		return err
	}
	ctx.Splog.Info("Published %s to %s.", tui.ColorBranchName(ref.FullName, false), ctx.Config.Origin)
	return nil
}

// TrackAction creates a local branch for one that only exists on origin
func TrackAction(ctx *runtime.Context, opts RemoteOptions) error {
	mgr := ctx.Branches(opts.Kind)
	ref, err := mgr.ResolveByPrefix(ctx.Context, opts.Name, true)
	if err != nil {
		return err
	}
	if _, err := mgr.Track(ctx.Context, ref.ShortName); err != nil {
		return err
	}
	ctx.Splog.Info("Tracking %s from %s.", tui.ColorBranchName(ref.FullName, true), ctx.Config.Origin)
	return nil
}

// PullAction brings a branch up to date with origin, tracking it first when
// it only exists there
func PullAction(ctx *runtime.Context, opts RemoteOptions) error {
	mgr := ctx.Branches(opts.Kind)
	if err := ctx.Repo.Fetch(ctx.Context, ctx.Config.Origin); err != nil {
		return err
	}
	ref, err := mgr.ResolveByPrefix(ctx.Context, opts.Name, true)
	if err != nil {
		return err
	}
	if _, err := mgr.Pull(ctx.Context, ref); err != nil {
		return err
	}
	ctx.Splog.Info("Pulled %s from %s.", tui.ColorBranchName(ref.FullName, true), ctx.Config.Origin)
	return nil
}
