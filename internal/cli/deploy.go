package cli

import (
	"github.com/spf13/cobra"

	"gitflow.dev/gitflow/internal/actions/deploy"
	"gitflow.dev/gitflow/internal/cli/helpers"
	"gitflow.dev/gitflow/internal/runtime"
)

// newDeployCmd creates the deploy command group
func newDeployCmd() *cobra.Command {
	var cause string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Trigger the deploy job of an environment",
		Long: `Trigger the Jenkins job deploying a branch:

  git flow deploy develop                  develop to the develop environment
  git flow deploy release <version> qa     a release to QA
  git flow deploy release <version> client a release to the client, once accepted
  git flow deploy master                   master to production`,
	}
	cmd.PersistentFlags().StringVar(&cause, "cause", "", "Build cause shown in Jenkins")

	run := func(cmd *cobra.Command, opts deploy.Options) error {
		opts.Cause = cause
		return helpers.Run(cmd, func(ctx *runtime.Context) error {
			_, err := deploy.Action(ctx, opts)
			return err
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "develop",
		Short:        "Deploy develop",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, deploy.Options{Target: deploy.TargetDevelop})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:          "master",
		Short:        "Deploy master to production",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, deploy.Options{Target: deploy.TargetMaster})
		},
	})

	var (
		noCheck              bool
		ignoreMissingReviews bool
	)
	releaseCmd := &cobra.Command{
		Use:          "release <version> <qa|client>",
		Short:        "Deploy a release to QA or the client",
		Args:         cobra.ExactArgs(2),
		ValidArgs:    []string{"qa", "client"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, deploy.Options{
				Target:               deploy.TargetRelease,
				Version:              args[0],
				Env:                  args[1],
				NoCheck:              noCheck,
				IgnoreMissingReviews: ignoreMissingReviews,
			})
		},
	}
	releaseCmd.Flags().BoolVar(&noCheck, "no-check", false, "Deploy to the client without checking the release")
	releaseCmd.Flags().BoolVar(&ignoreMissingReviews, "ignore-missing-reviews", false, "Warn instead of failing for stories without an accepted review")
	cmd.AddCommand(releaseCmd)

	return cmd
}
