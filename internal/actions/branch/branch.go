// Package branch implements the subcommands every branch kind shares: list,
// start, publish, track, pull, checkout, diff and rebase.
package branch

import (
	"fmt"

	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tui"
)

// ListOptions contains options for the list command
type ListOptions struct {
	Kind engine.Kind
	// Verbose shows each tip and how the branch relates to its base
	Verbose bool
	// Remote includes branches that only exist on origin
	Remote bool
}

// ListAction prints the branches of one kind, marking the checked out one
func ListAction(ctx *runtime.Context, opts ListOptions) error {
	mgr := ctx.Branches(opts.Kind)
	refs, err := mgr.List(ctx.Context, opts.Remote)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		ctx.Splog.Info("No %s branches exist.", opts.Kind)
		ctx.Splog.Tip("start one with: git flow %s start <name>", opts.Kind)
		return nil
	}

	current, _ := ctx.Repo.CurrentBranch(ctx.Context)
	for _, ref := range refs {
		marker := "  "
		if ref.FullName == current {
			marker = "* "
		}
		line := marker + tui.ColorBranchName(ref.ShortName, ref.FullName == current)
		if ref.IsRemote {
			line += " " + tui.ColorDim("(remote)")
		} else if opts.Verbose {
			line += " " + describe(ctx, mgr, ref)
		}
		ctx.Splog.Info("%s", line)
	}
	return nil
}

// describe renders the short tip and whether ref contains its base
func describe(ctx *runtime.Context, mgr *engine.BranchTypeManager, ref engine.BranchRef) string {
	tip, err := ctx.Repo.ResolveRef(ctx.Context, "refs/heads/"+ref.FullName)
	if err != nil {
		return ""
	}
	base := mgr.Upstream()
	containsBase, err1 := ctx.Repo.IsAncestor(ctx.Context, base, ref.FullName)
	merged, err2 := ctx.Repo.IsAncestor(ctx.Context, ref.FullName, base)
	var state string
	switch {
	case err1 != nil || err2 != nil:
	case containsBase && merged:
		state = "(no commits yet)"
	case merged:
		state = "(merged into " + base + ")"
	case containsBase:
		state = "(based on latest " + base + ")"
	default:
		state = "(may be rebased on " + base + ")"
	}
	return tui.ColorDim(tip[:7] + " " + state)
}

// StartOptions contains options for the start command
type StartOptions struct {
	Kind engine.Kind
	Name string
	Base string
	// Fetch updates origin before checking the base
	Fetch bool
}

// StartAction creates and checks out a new branch. Release, hotfix and
// support names must be versions.
func StartAction(ctx *runtime.Context, opts StartOptions) (engine.BranchRef, error) {
	if opts.Name == "" {
		return engine.BranchRef{}, fmt.Errorf("%w: a %s name is required", flowerrors.ErrIllegalBranchName, opts.Kind)
	}
	if opts.Kind != engine.KindFeature {
		if err := ctx.Config.CheckVersion(opts.Name); err != nil {
			return engine.BranchRef{}, err
		}
	}

	ref, err := ctx.Branches(opts.Kind).Create(ctx.Context, engine.CreateOptions{
		Name:  opts.Name,
		Base:  opts.Base,
		Fetch: opts.Fetch,
	})
	if err != nil {
		return engine.BranchRef{}, err
	}
	ctx.Splog.Info("Switched to a new branch %s.", tui.ColorBranchName(ref.FullName, true))
	return ref, nil
}
