package actions

import (
	"strings"

	"gitflow.dev/gitflow/internal/config"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/internal/runtime"
)

// RepairAction replays the final push of a finish that could not reach the
// remote, then forgets it
func RepairAction(ctx *runtime.Context) error {
	root := ctx.Repo.RepoRoot()
	pending, err := config.GetPendingPush(root)
	if err != nil {
		return err
	}
	if pending == nil {
		ctx.Splog.Info("Nothing to repair.")
		return nil
	}

	ctx.Splog.Step("Pushing %s to %s", strings.Join(pending.Refspecs, " "), pending.Remote)
	err = ctx.Repo.Push(ctx.Context, pending.Remote, pending.Refspecs, git.PushOptions{Atomic: pending.Atomic})
	if err != nil {
		ctx.Splog.StepFail(err)
		return &flowerrors.PushIncompleteError{Remote: pending.Remote, Refspecs: pending.Refspecs, Err: err}
	}
	ctx.Splog.StepDone()

	if err := config.ClearPendingPush(root); err != nil {
		return err
	}
	ctx.Splog.Info("Completed %s.", pending.Operation)
	return nil
}
