package cli

import (
	"github.com/spf13/cobra"

	"gitflow.dev/gitflow/internal/actions/branch"
	"gitflow.dev/gitflow/internal/cli/helpers"
	"gitflow.dev/gitflow/internal/engine"
	"gitflow.dev/gitflow/internal/runtime"
)

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// newListCmd creates the list subcommand of a branch kind
func newListCmd(kind engine.Kind) *cobra.Command {
	var (
		verbose bool
		remote  bool
	)

	cmd := &cobra.Command{
		Use:          "list",
		Aliases:      []string{"ls"},
		Short:        "List " + string(kind) + " branches",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return branch.ListAction(ctx, branch.ListOptions{Kind: kind, Verbose: verbose, Remote: remote})
			})
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the tip of each branch and how it relates to its base")
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "Include branches that only exist on origin")

	return cmd
}

// newStartCmd creates the plain start subcommand of a branch kind
func newStartCmd(kind engine.Kind) *cobra.Command {
	var fetch bool

	use := "start <name> [base]"
	if kind.Singleton() {
		use = "start <version> [base]"
	}
	cmd := &cobra.Command{
		Use:          use,
		Short:        "Start a new " + string(kind) + " branch",
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := branch.StartOptions{Kind: kind, Name: args[0], Fetch: fetch}
			if len(args) > 1 {
				opts.Base = args[1]
			}
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				_, err := branch.StartAction(ctx, opts)
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&fetch, "fetch", "F", false, "Fetch from origin before checking the base")

	return cmd
}

// newPublishCmd creates the publish subcommand of a branch kind
func newPublishCmd(kind engine.Kind) *cobra.Command {
	return &cobra.Command{
		Use:               "publish [name]",
		Short:             "Push a " + string(kind) + " branch to origin",
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteBranches(kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return branch.PublishAction(ctx, branch.RemoteOptions{Kind: kind, Name: optionalArg(args)})
			})
		},
	}
}

// newTrackCmd creates the track subcommand of a branch kind
func newTrackCmd(kind engine.Kind) *cobra.Command {
	return &cobra.Command{
		Use:          "track <name>",
		Short:        "Create a local branch tracking a " + string(kind) + " branch on origin",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return branch.TrackAction(ctx, branch.RemoteOptions{Kind: kind, Name: args[0]})
			})
		},
	}
}

// newPullCmd creates the pull subcommand of a branch kind
func newPullCmd(kind engine.Kind) *cobra.Command {
	return &cobra.Command{
		Use:               "pull [name]",
		Short:             "Pull a " + string(kind) + " branch from origin",
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteBranches(kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return branch.PullAction(ctx, branch.RemoteOptions{Kind: kind, Name: optionalArg(args)})
			})
		},
	}
}

// newCheckoutCmd creates the checkout subcommand of a branch kind
func newCheckoutCmd(kind engine.Kind) *cobra.Command {
	return &cobra.Command{
		Use:               "checkout <name>",
		Aliases:           []string{"co"},
		Short:             "Check out a " + string(kind) + " branch by name or unique prefix",
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteBranches(kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return branch.CheckoutAction(ctx, branch.CheckoutOptions{Kind: kind, Name: args[0]})
			})
		},
	}
}

// newDiffCmd creates the diff subcommand of a branch kind
func newDiffCmd(kind engine.Kind) *cobra.Command {
	var upstream string

	cmd := &cobra.Command{
		Use:               "diff [name]",
		Short:             "Show the changes of a " + string(kind) + " branch since it left its base",
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteBranches(kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return branch.DiffAction(ctx, branch.DiffOptions{Kind: kind, Name: optionalArg(args), Upstream: upstream})
			})
		},
	}

	cmd.Flags().StringVar(&upstream, "upstream", "", "Compare against this branch instead of the default base")

	return cmd
}

// newRebaseCmd creates the rebase subcommand of a branch kind
func newRebaseCmd(kind engine.Kind) *cobra.Command {
	var (
		upstream    string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:               "rebase [name]",
		Short:             "Rebase a " + string(kind) + " branch onto the tip of its base",
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		ValidArgsFunction: helpers.CompleteBranches(kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return helpers.Run(cmd, func(ctx *runtime.Context) error {
				return branch.RebaseAction(ctx, branch.RebaseOptions{
					Kind:        kind,
					Name:        optionalArg(args),
					Upstream:    upstream,
					Interactive: interactive,
				})
			})
		},
	}

	cmd.Flags().StringVar(&upstream, "upstream", "", "Rebase onto this branch instead of the default base")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run an interactive rebase")

	return cmd
}
