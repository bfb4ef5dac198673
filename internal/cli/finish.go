package cli

import (
	"github.com/spf13/cobra"

	"gitflow.dev/gitflow/internal/actions/finish"
	"gitflow.dev/gitflow/internal/cli/helpers"
	"gitflow.dev/gitflow/internal/engine"
	"gitflow.dev/gitflow/internal/runtime"
)

// newFinishCmd creates the finish subcommand of releases and hotfixes
func newFinishCmd(kind engine.Kind) *cobra.Command {
	var (
		noFetch              bool
		noPush               bool
		keep                 bool
		ignoreMissingReviews bool
		noTag                bool
		message              string
		sign                 bool
		signingKey           string
	)

	cmd := &cobra.Command{
		Use:   "finish <version>",
		Short: "Merge a " + string(kind) + " into master and develop, tag it and clean up",
		Long: `Finish a ` + string(kind) + `: check that every story of the version is accepted and
reviewed, merge the branch into both integration branches, tag the result,
submit the reviews, deliver the stories and delete the merged branches.

A failure before the branches are deleted restores master, develop and the
tag to their state before the command ran.`,
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteBranches(kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := finish.Options{
				Kind:                 kind,
				Version:              args[0],
				Fetch:                !noFetch,
				Push:                 !noPush,
				Keep:                 keep,
				IgnoreMissingReviews: ignoreMissingReviews,
				NoTag:                noTag,
				Message:              message,
				Sign:                 sign || signingKey != "",
				SigningKey:           signingKey,
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return finish.Action(ctx, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "Do not fetch from origin before finishing")
	cmd.Flags().BoolVar(&noPush, "no-push", false, "Do not push the result or delete remote branches")
	cmd.Flags().BoolVarP(&keep, "keep", "k", false, "Keep the "+string(kind)+" branch")
	cmd.Flags().BoolVar(&ignoreMissingReviews, "ignore-missing-reviews", false, "Warn instead of failing for stories without an accepted review")
	cmd.Flags().BoolVarP(&noTag, "notag", "n", false, "Do not tag the version")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Tag message")
	cmd.Flags().BoolVarP(&sign, "sign", "s", false, "Sign the tag")
	cmd.Flags().StringVarP(&signingKey, "signingkey", "u", "", "Sign the tag with this key")

	return cmd
}
