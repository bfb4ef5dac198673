package helpers

import (
	"context"

	"github.com/spf13/cobra"

	"gitflow.dev/gitflow/internal/config"
	"gitflow.dev/gitflow/internal/engine"
	"gitflow.dev/gitflow/internal/git"
)

// CompleteBranches returns a cobra.ValidArgsFunction completing the short
// names of the local branches of kind
func CompleteBranches(kind engine.Kind) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		repo, err := git.OpenRepo(".")
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		cfg, err := config.Load(repo.RepoRoot())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		refs, err := engine.NewBranchTypeManager(repo, cfg, kind).List(ctx, false)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		names := make([]string, 0, len(refs))
		for _, ref := range refs {
			names = append(names, ref.ShortName)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}
