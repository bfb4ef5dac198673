package actions

import (
	"strings"

	"gitflow.dev/gitflow/internal/config"
	"gitflow.dev/gitflow/internal/engine"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tui"
)

// StatusAction prints the integration branches, the open branches of each
// kind, the checked out branch and any push waiting for git flow repair
func StatusAction(ctx *runtime.Context) error {
	splog := ctx.Splog

	splog.Info("Integration branches:")
	for _, name := range []string{ctx.Config.Branches.Master, ctx.Config.Branches.Develop} {
		sha, err := ctx.Repo.ResolveRef(ctx.Context, "refs/heads/"+name)
		if err != nil {
			splog.Warn("  %s is missing", name)
			continue
		}
		splog.Info("  %s %s", tui.ColorBranchName(name, false), tui.ColorDim(short(sha)))
	}
	splog.Newline()

	splog.Info("Open branches:")
	for _, kind := range engine.Kinds {
		refs, err := ctx.Branches(kind).List(ctx.Context, false)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(refs))
		for _, ref := range refs {
			names = append(names, ref.ShortName)
		}
		if len(names) == 0 {
			names = append(names, tui.ColorDim("none"))
		}
		splog.Info("  %s: %s", kind, strings.Join(names, ", "))
	}
	splog.Newline()

	current, err := ctx.Repo.CurrentBranch(ctx.Context)
	switch {
	case err != nil || current == "":
		splog.Info("Not on a branch.")
	default:
		if kind, name, ok := engine.KindOf(ctx.Config, current); ok {
			splog.Info("On %s %s.", kind, tui.ColorBranchName(name, true))
		} else {
			splog.Info("On %s.", tui.ColorBranchName(current, true))
		}
	}

	pending, err := config.GetPendingPush(ctx.Repo.RepoRoot())
	if err != nil {
		return err
	}
	if pending != nil {
		splog.Newline()
		splog.Warn("%s did not finish pushing to %s: %s", pending.Operation, pending.Remote, strings.Join(pending.Refspecs, " "))
		splog.Tip("run 'git flow repair' to push again")
	}
	return nil
}

func short(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
