package release

import (
	"fmt"

	"gitflow.dev/gitflow/internal/actions/deploy"
	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/gate"
	"gitflow.dev/gitflow/internal/jenkins"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
)

// StageOptions contains options for the release stage command
type StageOptions struct {
	Version              string
	IgnoreMissingReviews bool
	SkipDeployment       bool
}

// StageAction checks that the release may go to the client, delivers its
// finished items and deploys the release branch to the client environment
func StageAction(ctx *runtime.Context, opts StageOptions) error {
	ref := ctx.Branches(engine.KindRelease).Ref(opts.Version)
	release, err := tracker.HydrateRelease(ctx.Context, ctx.Tracker, ctx.Vocab, opts.Version)
	if err != nil {
		return err
	}
	if !ctx.Repo.RefExists(ctx.Context, "refs/heads/"+ref.FullName) {
		return flowerrors.NewNoSuchBranchError(ref.FullName)
	}

	report, err := ctx.Gate().Check(ctx.Context, release, gate.Options{
		Mode:                 gate.ModeStage,
		IgnoreMissingReviews: opts.IgnoreMissingReviews,
	})
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		ctx.Splog.Warn("#%d: %s", w.ItemID, w.Reason)
	}

	for _, item := range report.Checked {
		if item.State != tracker.StateFinished {
			continue
		}
		if _, err := ctx.Tracker.Update(ctx.Context, item.ID, tracker.Delta{State: tracker.StateDelivered}); err != nil {
			return fmt.Errorf("failed to deliver #%d: %w", item.ID, err)
		}
		ctx.Splog.Info("Delivered #%d.", item.ID)
	}

	if opts.SkipDeployment {
		return nil
	}
	_, err = deploy.Action(ctx, deploy.Options{
		Target:  deploy.TargetRelease,
		Version: opts.Version,
		Env:     jenkins.EnvClient,
		NoCheck: true,
	})
	return err
}
