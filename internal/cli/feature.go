package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"gitflow.dev/gitflow/internal/actions/feature"
	"gitflow.dev/gitflow/internal/cli/helpers"
	"gitflow.dev/gitflow/internal/engine"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/runtime"
)

// newFeatureCmd creates the feature command group
func newFeatureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feature",
		Short: "Work on feature branches, one per story",
	}

	cmd.AddCommand(newListCmd(engine.KindFeature))
	cmd.AddCommand(newFeatureStartCmd())
	cmd.AddCommand(newFeatureFinishCmd())
	cmd.AddCommand(newPublishCmd(engine.KindFeature))
	cmd.AddCommand(newPullCmd(engine.KindFeature))
	cmd.AddCommand(newTrackCmd(engine.KindFeature))
	cmd.AddCommand(newCheckoutCmd(engine.KindFeature))
	cmd.AddCommand(newDiffCmd(engine.KindFeature))
	cmd.AddCommand(newRebaseCmd(engine.KindFeature))

	return cmd
}

func newFeatureStartCmd() *cobra.Command {
	var (
		dash  bool
		base  string
		fetch bool
	)

	cmd := &cobra.Command{
		Use:   "start [story-id] [slug]",
		Short: "Start the feature branch of a story",
		Long: `Start the feature branch of a story and mark the story started.

Without a story id, pick one of the unstarted or started features of the
current iteration and backlog. Without a slug, you're asked for one, the
default built from the story name.`,
		Args:         cobra.MaximumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := feature.StartOptions{Dash: dash, Base: base, Fetch: fetch}
			if len(args) > 0 {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("%w: story id %q is not a number", flowerrors.ErrIllegalBranchName, args[0])
				}
				opts.StoryID = id
			}
			if len(args) > 1 {
				opts.Slug = args[1]
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := feature.StartAction(ctx, opts)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&dash, "dash", false, "Separate story id and slug with - instead of /")
	cmd.Flags().StringVar(&base, "base", "", "Start from this branch instead of develop")
	cmd.Flags().BoolVarP(&fetch, "fetch", "F", false, "Fetch from origin before checking the base")

	return cmd
}

func newFeatureFinishCmd() *cobra.Command {
	var (
		noReview          bool
		summaryFromCommit bool
		noPush            bool
	)

	cmd := &cobra.Command{
		Use:   "finish [name]",
		Short: "Post the review of a feature and merge it",
		Long: `Post or update the review request of a feature, merge it into the release
branch of its story (or develop when the story is not in a release), push the
result and mark the story finished.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteBranches(engine.KindFeature),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := feature.FinishOptions{
				Name:              optionalArg(args),
				NoReview:          noReview,
				SummaryFromCommit: summaryFromCommit,
				Push:              !noPush,
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return feature.FinishAction(ctx, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&noReview, "no-review", false, "Do not post a review request")
	cmd.Flags().BoolVar(&summaryFromCommit, "summary-from-commit", false, "Use the first commit subject as review summary")
	cmd.Flags().BoolVar(&noPush, "no-push", false, "Do not push the merged upstream")

	return cmd
}
