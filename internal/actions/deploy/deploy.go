// Package deploy triggers the deploy job that publishes an integration or
// release branch to one of the deployment environments.
package deploy

import (
	"fmt"
	"os"

	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/gate"
	"gitflow.dev/gitflow/internal/jenkins"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
)

// Targets name what is deployed
const (
	TargetDevelop = "develop"
	TargetRelease = "release"
	TargetMaster  = "master"
)

// Options contains options for the deploy command
type Options struct {
	Target string
	// Version and Env are only used for release targets
	Version string
	Env     string
	// NoCheck skips the release gate before a client deploy
	NoCheck              bool
	IgnoreMissingReviews bool
	// Cause overrides the build cause shown in Jenkins
	Cause string
}

// Action triggers the job of the environment the target deploys to and
// returns the URL of the queued build
func Action(ctx *runtime.Context, opts Options) (string, error) {
	branch, env, err := resolve(ctx, opts)
	if err != nil {
		return "", err
	}
	if !ctx.Repo.RefExists(ctx.Context, "refs/heads/"+branch) {
		return "", flowerrors.NewNoSuchBranchError(branch)
	}

	if env == jenkins.EnvClient && !opts.NoCheck {
		release, err := tracker.HydrateRelease(ctx.Context, ctx.Tracker, ctx.Vocab, opts.Version)
		if err != nil {
			return "", err
		}
		if _, err := ctx.Gate().Check(ctx.Context, release, gate.Options{
			Mode:                 gate.ModeFinish,
			IgnoreMissingReviews: opts.IgnoreMissingReviews,
		}); err != nil {
			return "", err
		}
	}

	if ctx.Deployer == nil {
		return "", fmt.Errorf("%w: deploy is not configured", flowerrors.ErrNoSuchDeployJob)
	}
	cause := opts.Cause
	if cause == "" {
		cause = defaultCause(branch)
	}
	build, err := ctx.Deployer.Trigger(ctx.Context, env, cause)
	if err != nil {
		return "", err
	}
	ctx.Splog.Info("Deploying %s to %s: %s", branch, env, build)
	return build, nil
}

// resolve maps the target to the branch deployed and its environment
func resolve(ctx *runtime.Context, opts Options) (string, string, error) {
	switch opts.Target {
	case TargetDevelop:
		return ctx.Config.Branches.Develop, jenkins.EnvDevelop, nil
	case TargetMaster:
		return ctx.Config.Branches.Master, jenkins.EnvProduction, nil
	case TargetRelease:
		if err := ctx.Vocab.CheckVersion(opts.Version); err != nil {
			return "", "", err
		}
		if opts.Env != jenkins.EnvQA && opts.Env != jenkins.EnvClient {
			return "", "", fmt.Errorf("%w: a release deploys to %s or %s, not %q",
				flowerrors.ErrIllegalDeploy, jenkins.EnvQA, jenkins.EnvClient, opts.Env)
		}
		return ctx.Branches(engine.KindRelease).Ref(opts.Version).FullName, opts.Env, nil
	}
	return "", "", fmt.Errorf("%w: unknown target %q", flowerrors.ErrIllegalDeploy, opts.Target)
}

func defaultCause(branch string) string {
	user := os.Getenv("USER")
	if user == "" {
		user = "git flow"
	}
	return fmt.Sprintf("%s deployed by %s", branch, user)
}
