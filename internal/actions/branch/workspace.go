package branch

import (
	"fmt"

	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tui"
)

// CheckoutOptions contains options for the checkout command
type CheckoutOptions struct {
	Kind engine.Kind
	// Name is a short name or unique prefix
	Name string
}

// CheckoutAction switches to the branch of the kind matching Name
func CheckoutAction(ctx *runtime.Context, opts CheckoutOptions) error {
	if opts.Name == "" {
		return fmt.Errorf("%w: name the %s branch to check out", flowerrors.ErrIllegalBranchName, opts.Kind)
	}
	ref, err := ctx.Branches(opts.Kind).ResolveByPrefix(ctx.Context, opts.Name, false)
	if err != nil {
		return err
	}
	current, _ := ctx.Repo.CurrentBranch(ctx.Context)
	if current == ref.FullName {
		ctx.Splog.Info("Already on %s.", tui.ColorBranchName(ref.FullName, true))
		return nil
	}
	if err := ctx.Repo.Checkout(ctx.Context, ref.FullName); err != nil {
		return err
	}
	ctx.Splog.Info("Checked out %s.", tui.ColorBranchName(ref.FullName, true))
	return nil
}

// DiffOptions contains options for the diff command
type DiffOptions struct {
	Kind engine.Kind
	Name string
	// Upstream defaults to the branch the kind is started from
	Upstream string
}

// DiffAction prints what the branch changed since it left its upstream
func DiffAction(ctx *runtime.Context, opts DiffOptions) error {
	mgr := ctx.Branches(opts.Kind)
	ref, err := mgr.ResolveByPrefix(ctx.Context, opts.Name, false)
	if err != nil {
		return err
	}
	diff, err := mgr.Diff(ctx.Context, ref, opts.Upstream)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(ctx.Splog.Writer(), diff)
	return err
}

// RebaseOptions contains options for the rebase command
type RebaseOptions struct {
	Kind        engine.Kind
	Name        string
	Upstream    string
	Interactive bool
}

// RebaseAction moves the branch onto the tip of its upstream
func RebaseAction(ctx *runtime.Context, opts RebaseOptions) error {
	clean, err := ctx.Repo.IsClean(ctx.Context)
	if err != nil {
		return err
	}
	if !clean {
		return flowerrors.ErrWorkdirDirty
	}

	mgr := ctx.Branches(opts.Kind)
	ref, err := mgr.ResolveByPrefix(ctx.Context, opts.Name, false)
	if err != nil {
		return err
	}
	if err := mgr.Rebase(ctx.Context, ref, opts.Upstream, opts.Interactive); err != nil {
		return err
	}
	upstream := opts.Upstream
	if upstream == "" {
		upstream = mgr.Upstream()
	}
	ctx.Splog.Info("Rebased %s onto %s.", tui.ColorBranchName(ref.FullName, true), upstream)
	return nil
}
