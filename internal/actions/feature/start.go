// Package feature implements the feature subcommands that talk to the Story
// Tracker and the Review System: start from a story, and finish into the
// release or development branch.
package feature

import (
	"fmt"

	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
	"gitflow.dev/gitflow/internal/tui"
)

// StartOptions contains options for the feature start command
type StartOptions struct {
	// StoryID selects the story; 0 prompts for one
	StoryID int64
	// Slug is the branch name part after the id; empty prompts
	Slug string
	// Dash separates id and slug with '-' instead of '/'
	Dash  bool
	Base  string
	Fetch bool
}

// StartAction creates the branch of a story and marks the story started
func StartAction(ctx *runtime.Context, opts StartOptions) (engine.BranchRef, error) {
	item, err := pickStory(ctx, opts.StoryID)
	if err != nil {
		return engine.BranchRef{}, err
	}
	if !item.IsFeature() {
		return engine.BranchRef{}, fmt.Errorf("#%d is a %s, not a feature", item.ID, item.Kind)
	}

	slug := opts.Slug
	if slug == "" {
		def := tracker.Slugify(tracker.BoldPart(item.Name), tracker.DefaultSlugLength)
		slug, err = ctx.Prompter.Input("Branch name for #"+fmt.Sprint(item.ID), def, tracker.ValidateSlug)
		if err != nil {
			return engine.BranchRef{}, err
		}
	} else if err := tracker.ValidateSlug(slug); err != nil {
		return engine.BranchRef{}, err
	}

	sep := "/"
	if opts.Dash {
		sep = "-"
	}
	ref, err := ctx.Branches(engine.KindFeature).Create(ctx.Context, engine.CreateOptions{
		Name:  fmt.Sprintf("%d%s%s", item.ID, sep, slug),
		Base:  opts.Base,
		Fetch: opts.Fetch,
	})
	if err != nil {
		return engine.BranchRef{}, err
	}
	ctx.Splog.Info("Switched to a new branch %s.", tui.ColorBranchName(ref.FullName, true))

	if tracker.CanTransition(item.State, tracker.StateStarted) {
		if _, err := ctx.Tracker.Update(ctx.Context, item.ID, tracker.Delta{State: tracker.StateStarted}); err != nil {
			return ref, fmt.Errorf("branch created, but #%d could not be started: %w", item.ID, err)
		}
	}
	return ref, nil
}

// pickStory loads the story with id, or asks the operator to choose among
// the features that can still be started
func pickStory(ctx *runtime.Context, id int64) (*tracker.Item, error) {
	if id != 0 {
		return ctx.Tracker.Item(ctx.Context, id)
	}

	items, err := ctx.Tracker.CurrentAndBacklog(ctx.Context)
	if err != nil {
		return nil, err
	}
	var candidates []*tracker.Item
	var labels []string
	for _, item := range items {
		if !item.IsFeature() || (item.State != tracker.StateUnstarted && item.State != tracker.StateStarted) {
			continue
		}
		candidates = append(candidates, item)
		labels = append(labels, fmt.Sprintf("#%d %s", item.ID, tui.RenderStoryName(item.Name)))
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no unstarted or started features in the current iteration or backlog", flowerrors.ErrNoSuchItem)
	}
	idx, err := ctx.Prompter.Select("Pick a story to work on", labels)
	if err != nil {
		return nil, err
	}
	return candidates[idx], nil
}
