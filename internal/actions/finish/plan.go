package finish

import (
	"fmt"
	"slices"
	"strconv"

	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/gate"
	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
)

// Merge is one merge of the plan
type Merge struct {
	Source string
	Target string
}

// Plan is everything a finish will do, computed before any mutation
type Plan struct {
	Version string
	Branch  engine.BranchRef
	Merges  []Merge
	// Tag is empty with --notag
	Tag string
	// TagBranch is the integration branch whose new tip is tagged
	TagBranch string
	// DeleteLocal and DeleteRemote list branch names, markers included
	DeleteLocal  []string
	DeleteRemote []string
	Report       *gate.Report
}

// mergePlan orders the merges of a release or hotfix branch
func mergePlan(ctx *runtime.Context, kind engine.Kind, branch string) ([]Merge, string) {
	master, develop := ctx.Config.Branches.Master, ctx.Config.Branches.Develop
	if kind == engine.KindHotfix {
		return []Merge{{Source: branch, Target: master}, {Source: branch, Target: develop}}, master
	}
	return []Merge{{Source: branch, Target: develop}, {Source: branch, Target: master}}, develop
}

// branchesToDelete collects the feature branches of every item in the
// release, their base markers, and the finished branch unless keep is set.
func branchesToDelete(ctx *runtime.Context, release *tracker.Release, ref engine.BranchRef, keep bool) (local, remote []string, err error) {
	localBranches, err := ctx.Repo.LocalBranches(ctx.Context)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list local branches: %w", err)
	}
	remoteBranches, err := ctx.Repo.RemoteBranches(ctx.Context, ctx.Config.Origin)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list %s branches: %w", ctx.Config.Origin, err)
	}

	features := ctx.Branches(engine.KindFeature)
	collect := func(names []string) []string {
		var out []string
		for _, item := range release.Items() {
			prefix := features.Prefix() + strconv.FormatInt(item.ID, 10)
			for _, name := range names {
				if !git.HasBranchPrefix(name, prefix) {
					continue
				}
				out = append(out, name)
				marker := features.Ref(name[len(features.Prefix()):]).MarkerName()
				if slices.Contains(names, marker) {
					out = append(out, marker)
				}
			}
		}
		if !keep && slices.Contains(names, ref.FullName) {
			out = append(out, ref.FullName)
		}
		slices.Sort(out)
		return slices.Compact(out)
	}
	return collect(localBranches), collect(remoteBranches), nil
}

// buildPlan runs the gate and computes the plan. It performs no mutation.
func buildPlan(ctx *runtime.Context, opts Options) (*Plan, error) {
	mgr := ctx.Branches(opts.Kind)
	ref := mgr.Ref(opts.Version)
	if !ctx.Repo.RefExists(ctx.Context, "refs/heads/"+ref.FullName) {
		return nil, flowerrors.NewNoSuchBranchError(ref.FullName)
	}

	release, err := tracker.HydrateRelease(ctx.Context, ctx.Tracker, ctx.Vocab, opts.Version)
	if err != nil {
		return nil, err
	}
	report, err := ctx.Gate().Check(ctx.Context, release, gate.Options{
		Mode:                 gate.ModeFinish,
		IgnoreMissingReviews: opts.IgnoreMissingReviews,
		AllowEmpty:           opts.Kind == engine.KindHotfix,
	})
	if err != nil {
		return nil, err
	}

	plan := &Plan{Version: opts.Version, Branch: ref, Report: report}
	plan.Merges, plan.TagBranch = mergePlan(ctx, opts.Kind, ref.FullName)

	if !opts.NoTag {
		plan.Tag = ctx.Config.TagName(opts.Version)
		exists, err := ctx.Repo.TagExists(ctx.Context, plan.Tag)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", flowerrors.ErrTagExists, plan.Tag)
		}
	}

	plan.DeleteLocal, plan.DeleteRemote, err = branchesToDelete(ctx, release, ref, opts.Keep)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// pushRefspecs is the single push of the integration branches, the tag and
// the remote deletions
func (p *Plan) pushRefspecs(ctx *runtime.Context) []string {
	refspecs := []string{ctx.Config.Branches.Master, ctx.Config.Branches.Develop}
	if p.Tag != "" {
		refspecs = append(refspecs, "refs/tags/"+p.Tag)
	}
	for _, name := range p.DeleteRemote {
		refspecs = append(refspecs, ":"+name)
	}
	return refspecs
}
