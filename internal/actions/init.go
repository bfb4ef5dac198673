package actions

import (
	"fmt"

	"gitflow.dev/gitflow/internal/config"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/runtime"
	"gitflow.dev/gitflow/internal/tracker"
	"gitflow.dev/gitflow/internal/tui"
)

// InitOptions contains options for the init command. Empty fields keep
// their default.
type InitOptions struct {
	// Force rewrites an existing configuration
	Force bool

	Master           string
	Develop          string
	FeaturePrefix    string
	ReleasePrefix    string
	HotfixPrefix     string
	SupportPrefix    string
	VersionTagPrefix string
	Origin           string

	TrackerProjectID string
	ReviewProvider   string
	ReviewURL        string
	DeployURL        string
}

// apply overlays the non-empty options onto cfg
func (o InitOptions) apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Branches.Master, o.Master)
	set(&cfg.Branches.Develop, o.Develop)
	set(&cfg.Prefix.Feature, o.FeaturePrefix)
	set(&cfg.Prefix.Release, o.ReleasePrefix)
	set(&cfg.Prefix.Hotfix, o.HotfixPrefix)
	set(&cfg.Prefix.Support, o.SupportPrefix)
	set(&cfg.Prefix.VersionTag, o.VersionTagPrefix)
	set(&cfg.Origin, o.Origin)
	set(&cfg.Tracker.ProjectID, o.TrackerProjectID)
	set(&cfg.Review.Provider, o.ReviewProvider)
	set(&cfg.Review.URL, o.ReviewURL)
	set(&cfg.Deploy.URL, o.DeployURL)
}

// InitAction writes the repository configuration and makes sure both
// integration branches exist. develop is tracked from origin when it exists
// there, and created from master otherwise.
func InitAction(ctx *runtime.Context, opts InitOptions) error {
	root := ctx.Repo.RepoRoot()
	wasInitialized := config.IsInitialized(root)
	if wasInitialized && !opts.Force {
		return fmt.Errorf("%w: use --force to overwrite %s", flowerrors.ErrAlreadyInitialized, config.Path(root))
	}

	cfg := config.Default()
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	master, develop := cfg.Branches.Master, cfg.Branches.Develop
	if !ctx.Repo.RefExists(ctx.Context, "refs/heads/"+master) {
		return &flowerrors.BranchError{
			Sentinel: flowerrors.ErrNoSuchBranch,
			Branch:   master,
			Detail:   "commit something first or pass --master",
		}
	}
	if !ctx.Repo.RefExists(ctx.Context, "refs/heads/"+develop) {
		if ctx.Repo.RefExists(ctx.Context, "refs/remotes/"+cfg.Origin+"/"+develop) {
			if err := ctx.Repo.TrackBranch(ctx.Context, develop, cfg.Origin); err != nil {
				return err
			}
		} else if err := ctx.Repo.CreateBranch(ctx.Context, develop, master); err != nil {
			return err
		}
		ctx.Splog.Info("Created %s.", tui.ColorBranchName(develop, false))
	}

	if err := config.Save(root, cfg); err != nil {
		return err
	}
	ctx.Config = cfg
	ctx.Vocab = tracker.NewVocabulary(cfg)

	if wasInitialized {
		ctx.Splog.Info("Reinitialized git flow.")
	} else {
		ctx.Splog.Info("Initialized git flow.")
	}
	ctx.Splog.Info("Production releases: %s", tui.ColorBranchName(master, false))
	ctx.Splog.Info("Next release development: %s", tui.ColorBranchName(develop, false))
	if cfg.Tracker.Token == "" {
		ctx.Splog.Tip("set GITFLOW_TRACKER_TOKEN to talk to the story tracker")
	}
	return nil
}
