package cli

import (
	"github.com/spf13/cobra"

	"gitflow.dev/gitflow/internal/actions/release"
	"gitflow.dev/gitflow/internal/cli/helpers"
	"gitflow.dev/gitflow/internal/engine"
	"gitflow.dev/gitflow/internal/runtime"
)

// newReleaseCmd creates the release command group
func newReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Prepare, stage and finish releases",
	}

	cmd.AddCommand(newListCmd(engine.KindRelease))
	cmd.AddCommand(newReleaseStartCmd())
	cmd.AddCommand(newReleaseAppendCmd())
	cmd.AddCommand(newReleaseStageCmd())
	cmd.AddCommand(newFinishCmd(engine.KindRelease))
	cmd.AddCommand(newTrackCmd(engine.KindRelease))
	cmd.AddCommand(newPublishCmd(engine.KindRelease))
	cmd.AddCommand(newListStoriesCmd())

	return cmd
}

func newReleaseStartCmd() *cobra.Command {
	var (
		yes   bool
		fetch bool
	)

	cmd := &cobra.Command{
		Use:   "start <version>",
		Short: "Start a release from develop and assign the finished stories to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return release.StartAction(ctx, release.StartOptions{Version: args[0], Yes: yes, Fetch: fetch})
			})
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVarP(&fetch, "fetch", "F", false, "Fetch from origin before checking develop")

	return cmd
}

func newReleaseAppendCmd() *cobra.Command {
	var noPush bool

	cmd := &cobra.Command{
		Use:          "append <version>",
		Short:        "Merge develop into a release and assign the newly finished stories",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return release.AppendAction(ctx, release.AppendOptions{Version: args[0], Push: !noPush})
			})
		},
	}

	cmd.Flags().BoolVar(&noPush, "no-push", false, "Do not push the release branch")

	return cmd
}

func newReleaseStageCmd() *cobra.Command {
	var (
		ignoreMissingReviews bool
		skipDeployment       bool
	)

	cmd := &cobra.Command{
		Use:          "stage <version>",
		Short:        "Deliver the finished stories of a release and deploy it to the client",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return release.StageAction(ctx, release.StageOptions{
					Version:              args[0],
					IgnoreMissingReviews: ignoreMissingReviews,
					SkipDeployment:       skipDeployment,
				})
			})
		},
	}

	cmd.Flags().BoolVar(&ignoreMissingReviews, "ignore-missing-reviews", false, "Warn instead of failing for stories without an accepted review")
	cmd.Flags().BoolVar(&skipDeployment, "skip-deployment", false, "Do not trigger the client deploy")

	return cmd
}

func newListStoriesCmd() *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:          "list-stories",
		Short:        "List the stories assigned to releases",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return release.ListStoriesAction(ctx, release.ListStoriesOptions{Version: version})
			})
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Only list this release")

	return cmd
}

// newHotfixCmd creates the hotfix command group
func newHotfixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotfix",
		Short: "Patch production from master",
	}

	cmd.AddCommand(newListCmd(engine.KindHotfix))
	cmd.AddCommand(newStartCmd(engine.KindHotfix))
	cmd.AddCommand(newFinishCmd(engine.KindHotfix))
	cmd.AddCommand(newPublishCmd(engine.KindHotfix))

	return cmd
}

// newSupportCmd creates the support command group
func newSupportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "support",
		Short: "Maintain old versions on support branches",
	}

	cmd.AddCommand(newListCmd(engine.KindSupport))
	cmd.AddCommand(newStartCmd(engine.KindSupport))

	return cmd
}
