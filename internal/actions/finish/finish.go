// Package finish merges a release or hotfix branch into both integration
// branches, tags it, closes its reviews, delivers its work items and removes
// the branches that shipped. A failure between the first merge and the
// delivery of the work items rolls the repository back.
package finish

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitflow.dev/gitflow/internal/config"
	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/telemetry"
	"gitflow.dev/gitflow/internal/tracker"
)

// Step names one state of the finish
type Step string

// Finish steps, in order
const (
	StepPrecheck            Step = "precheck"
	StepMerge               Step = "merge"
	StepTag                 Step = "tag"
	StepCloseReviews        Step = "close_reviews"
	StepDeliverItems        Step = "deliver_items"
	StepCheckoutIntegration Step = "checkout_integration"
	StepDeleteLocal         Step = "delete_local"
	StepDeleteRemoteAndPush Step = "delete_remote_and_push"
)

// Options contains options for the finish command
type Options struct {
	// Kind is KindRelease or KindHotfix
	Kind    engine.Kind
	Version string
	// Fetch updates origin first and requires the integration branches to
	// be up to date with it
	Fetch bool
	// Push publishes the result and deletes the remote branches
	Push bool
	// Keep leaves the release or hotfix branch in place
	Keep                 bool
	IgnoreMissingReviews bool
	NoTag                bool
	// Message is the tag message
	Message    string
	Sign       bool
	SigningKey string
}

type finisher struct {
	ctx  *runtime.Context
	opts Options
	root trace.Span
	plan *Plan
	tx   *Transaction
}

// Action finishes a release or hotfix branch
func Action(ctx *runtime.Context, opts Options) (err error) {
	if opts.Kind != engine.KindRelease && opts.Kind != engine.KindHotfix {
		return fmt.Errorf("cannot finish %s branches", opts.Kind)
	}

	spanCtx, root := telemetry.Start(ctx.Context, "finish",
		attribute.String("finish.kind", string(opts.Kind)),
		attribute.String("finish.version", opts.Version))
	defer func() { telemetry.End(root, err) }()

	rc := *ctx
	rc.Context = spanCtx
	f := &finisher{ctx: &rc, opts: opts, root: root}
	return f.run()
}

func (f *finisher) run() error {
	if err := f.step(StepPrecheck, "checking %s %s", f.opts.Kind, f.opts.Version); err != nil {
		return err
	}

	cfg := f.ctx.Config
	tx, err := snapshot(f.ctx.Context, f.ctx.Repo, cfg.Branches.Master, cfg.Branches.Develop)
	if err != nil {
		return err
	}
	f.tx = tx

	if err := f.step(StepMerge, "merging %s into %s and %s", f.plan.Branch.FullName, f.plan.Merges[0].Target, f.plan.Merges[1].Target); err != nil {
		return f.rollback(err)
	}
	if f.plan.Tag != "" {
		if err := f.step(StepTag, "tagging %s", f.plan.Tag); err != nil {
			return f.rollback(err)
		}
	}
	if len(f.plan.Report.Reviews) > 0 {
		if err := f.step(StepCloseReviews, "submitting %d review(s)", len(f.plan.Report.Reviews)); err != nil {
			return f.rollback(err)
		}
	}
	if err := f.step(StepDeliverItems, "delivering work items"); err != nil {
		return f.rollback(err)
	}
	if err := f.step(StepCheckoutIntegration, "checking out %s", cfg.Branches.Develop); err != nil {
		return f.rollback(err)
	}

	// Past this point nothing is rolled back
	if len(f.plan.DeleteLocal) > 0 {
		if err := f.step(StepDeleteLocal, "deleting %d local branch(es)", len(f.plan.DeleteLocal)); err != nil {
			return err
		}
	}
	if f.opts.Push {
		if err := f.step(StepDeleteRemoteAndPush, "pushing to %s", cfg.Origin); err != nil {
			return err
		}
	} else {
		f.ctx.Splog.Tip("publish with: git push --atomic %s %s", cfg.Origin, strings.Join(f.plan.pushRefspecs(f.ctx), " "))
	}

	f.ctx.Splog.Info("Finished %s %s", f.opts.Kind, f.opts.Version)
	return nil
}

// step runs one state inside its own span and progress line
func (f *finisher) step(step Step, format string, args ...any) (err error) {
	spanCtx, span := telemetry.Start(f.ctx.Context, "finish."+string(step))
	defer func() { telemetry.End(span, err) }()

	rc := *f.ctx
	rc.Context = spanCtx

	f.ctx.Splog.Step(format, args...)
	switch step {
	case StepPrecheck:
		err = f.precheck(&rc)
	case StepMerge:
		err = f.merge(&rc)
	case StepTag:
		err = f.tag(&rc)
	case StepCloseReviews:
		err = f.closeReviews(&rc)
	case StepDeliverItems:
		err = f.deliverItems(&rc)
	case StepCheckoutIntegration:
		err = rc.Repo.Checkout(rc.Context, rc.Config.Branches.Develop)
	case StepDeleteLocal:
		err = f.deleteLocal(&rc)
	case StepDeleteRemoteAndPush:
		err = f.push(&rc)
	}
	if err != nil {
		f.ctx.Splog.StepFail(err)
		return err
	}
	f.ctx.Splog.StepDone()
	return nil
}

func (f *finisher) rollback(cause error) error {
	f.ctx.Splog.Warn("rolling back %s %s", f.opts.Kind, f.opts.Version)
	err := f.tx.Rollback(f.ctx.Context)
	f.root.SetAttributes(
		attribute.Bool("finish.rolled_back", true),
		attribute.Bool("finish.rollback_complete", err == nil))
	if err != nil {
		return fmt.Errorf("%w; rollback incomplete: %w", cause, err)
	}
	return cause
}

func (f *finisher) precheck(rc *runtime.Context) error {
	if err := rc.Config.CheckVersion(f.opts.Version); err != nil {
		return err
	}
	clean, err := rc.Repo.IsClean(rc.Context)
	if err != nil {
		return err
	}
	if !clean {
		return flowerrors.ErrWorkdirDirty
	}
	if pending, err := config.GetPendingPush(rc.Repo.RepoRoot()); err == nil && pending != nil {
		rc.Splog.Warn("an earlier %s did not push; run git flow repair", pending.Operation)
	}

	if f.opts.Fetch {
		if err := rc.Repo.Fetch(rc.Context, rc.Config.Origin); err != nil {
			return err
		}
		for _, branch := range []string{rc.Config.Branches.Master, rc.Config.Branches.Develop} {
			if err := checkUpToDate(rc, branch); err != nil {
				return err
			}
		}
	}

	plan, err := buildPlan(rc, f.opts)
	if err != nil {
		return err
	}
	for _, w := range plan.Report.Warnings {
		rc.Splog.Warn("#%d %s", w.ItemID, w.Reason)
	}
	f.plan = plan
	return nil
}

// checkUpToDate fails when branch is missing commits its origin copy has
func checkUpToDate(rc *runtime.Context, branch string) error {
	remote := "refs/remotes/" + rc.Config.Origin + "/" + branch
	if !rc.Repo.RefExists(rc.Context, remote) {
		return nil
	}
	ok, err := rc.Repo.IsAncestor(rc.Context, remote, "refs/heads/"+branch)
	if err != nil {
		return err
	}
	if !ok {
		return &flowerrors.BranchError{Sentinel: flowerrors.ErrBranchNotUpToDate, Branch: branch, Detail: "pull " + rc.Config.Origin + " first"}
	}
	return nil
}

func (f *finisher) merge(rc *runtime.Context) error {
	for _, m := range f.plan.Merges {
		if err := rc.Repo.Checkout(rc.Context, m.Target); err != nil {
			return err
		}
		if err := rc.Repo.Merge(rc.Context, m.Source, git.MergeOptions{NoFastForward: true}); err != nil {
			return err
		}
		rc.Splog.Debug("merged %s into %s", m.Source, m.Target)
	}
	return nil
}

func (f *finisher) tag(rc *runtime.Context) error {
	target, err := rc.Repo.ResolveRef(rc.Context, "refs/heads/"+f.plan.TagBranch)
	if err != nil {
		return err
	}
	message := f.opts.Message
	if message == "" {
		message = fmt.Sprintf("%s %s", f.opts.Kind, f.opts.Version)
	}
	if err := rc.Repo.CreateTag(rc.Context, git.TagOptions{
		Name:       f.plan.Tag,
		Target:     target,
		Message:    message,
		Sign:       f.opts.Sign,
		SigningKey: f.opts.SigningKey,
	}); err != nil {
		return err
	}
	f.tx.Tagged(f.plan.Tag)
	return nil
}

func (f *finisher) closeReviews(rc *runtime.Context) error {
	for _, req := range f.plan.Report.Reviews {
		if err := rc.Reviews.Submit(rc.Context, req.ID); err != nil {
			return err
		}
	}
	return nil
}

func (f *finisher) deliverItems(rc *runtime.Context) error {
	comment := "Released in " + f.opts.Version
	for _, item := range f.plan.Report.Checked {
		if !tracker.CanTransition(item.State, tracker.StateDelivered) {
			continue
		}
		if _, err := rc.Tracker.Update(rc.Context, item.ID, tracker.Delta{State: tracker.StateDelivered}); err != nil {
			return fmt.Errorf("failed to deliver #%d: %w", item.ID, err)
		}
		f.tx.Delivered(rc.Tracker, item.ID, item.State)
		if err := rc.Tracker.AddComment(rc.Context, item.ID, comment); err != nil {
			return fmt.Errorf("failed to comment on #%d: %w", item.ID, err)
		}
	}
	return nil
}

// deleteLocal removes what it can; a branch left behind is only reported
func (f *finisher) deleteLocal(rc *runtime.Context) error {
	var failed []string
	for _, name := range f.plan.DeleteLocal {
		if err := rc.Repo.DeleteBranch(rc.Context, name, true); err != nil {
			rc.Splog.Debug("delete %s: %v", name, err)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		rc.Splog.Warn("could not delete %s", strings.Join(failed, ", "))
	}
	return nil
}

func (f *finisher) push(rc *runtime.Context) error {
	refspecs := f.plan.pushRefspecs(rc)
	err := rc.Repo.Push(rc.Context, rc.Config.Origin, refspecs, git.PushOptions{Atomic: true})
	if err == nil {
		return nil
	}

	pending := &config.PendingPush{
		Operation: fmt.Sprintf("%s finish %s", f.opts.Kind, f.opts.Version),
		Remote:    rc.Config.Origin,
		Refspecs:  refspecs,
		Atomic:    true,
		Error:     err.Error(),
		CreatedAt: time.Now(),
	}
	if perr := config.PersistPendingPush(rc.Repo.RepoRoot(), pending); perr != nil {
		err = errors.Join(err, perr)
	}
	return &flowerrors.PushIncompleteError{Remote: rc.Config.Origin, Refspecs: refspecs, Err: err}
}
