// Package cli defines the git-flow command tree.
package cli

import (
	"github.com/spf13/cobra"

	"gitflow.dev/gitflow/internal/cli/helpers"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "git-flow",
		Short: "git-flow drives feature, release and hotfix branches through their lifecycle",
		Long: `git-flow drives feature, release and hotfix branches through their lifecycle,
keeping the story tracker and the review system in step with the repository.

Install it on your PATH to run it as "git flow".`,
		SilenceErrors: true,
		Version:       version,
	}
	rootCmd.PersistentFlags().Bool(helpers.DebugFlag, false, "Print debug output")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newFeatureCmd())
	rootCmd.AddCommand(newReleaseCmd())
	rootCmd.AddCommand(newHotfixCmd())
	rootCmd.AddCommand(newSupportCmd())
	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRepairCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}
