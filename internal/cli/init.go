package cli

import (
	"github.com/spf13/cobra"

	"gitflow.dev/gitflow/internal/actions"
	"gitflow.dev/gitflow/internal/cli/helpers"
	"gitflow.dev/gitflow/internal/config"
	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/internal/runtime"
)

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var opts actions.InitOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up git flow in the current repository",
		Long: `Write the git flow configuration of the repository and create develop from
master when it does not exist. Settings not given as flags keep their
default; secrets are read from GITFLOW_* environment variables.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := git.OpenRepo(".")
			if err != nil {
				return err
			}
			splog := helpers.NewSplog(cmd)
			defer func() { _ = splog.Close() }()

			ctx := runtime.NewContext(cmd.Context(), repo, config.Default())
			ctx.Splog = splog
			return actions.InitAction(ctx, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "Overwrite an existing configuration")
	cmd.Flags().StringVar(&opts.Master, "master", "", "Branch of production releases (default master)")
	cmd.Flags().StringVar(&opts.Develop, "develop", "", "Branch of next release development (default develop)")
	cmd.Flags().StringVar(&opts.FeaturePrefix, "feature-prefix", "", "Feature branch prefix (default feature/)")
	cmd.Flags().StringVar(&opts.ReleasePrefix, "release-prefix", "", "Release branch prefix (default release/)")
	cmd.Flags().StringVar(&opts.HotfixPrefix, "hotfix-prefix", "", "Hotfix branch prefix (default hotfix/)")
	cmd.Flags().StringVar(&opts.SupportPrefix, "support-prefix", "", "Support branch prefix (default support/)")
	cmd.Flags().StringVar(&opts.VersionTagPrefix, "versiontag-prefix", "", "Prefix of version tags")
	cmd.Flags().StringVar(&opts.Origin, "origin", "", "Remote to fetch from and push to (default origin)")
	cmd.Flags().StringVar(&opts.TrackerProjectID, "tracker-project", "", "Story tracker project id")
	cmd.Flags().StringVar(&opts.ReviewProvider, "review-provider", "", "Review system: reviewboard, github or none")
	cmd.Flags().StringVar(&opts.ReviewURL, "review-url", "", "Review Board server URL")
	cmd.Flags().StringVar(&opts.DeployURL, "deploy-url", "", "Jenkins server URL")

	return cmd
}
