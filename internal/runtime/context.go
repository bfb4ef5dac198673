package runtime

import (
	"context"
	"fmt"

	"gitflow.dev/gitflow/internal/config"
	"gitflow.dev/gitflow/internal/engine"
	"gitflow.dev/gitflow/internal/gate"
	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/internal/jenkins"
	"gitflow.dev/gitflow/internal/review"
	"gitflow.dev/gitflow/internal/tracker"
	"gitflow.dev/gitflow/internal/tui"
)

// Context provides access to the repository and collaborators for actions
type Context struct {
	// Context is the standard context passed to blocking calls
	Context context.Context
	Repo    git.Facade
	Config  *config.Config
	Tracker tracker.Tracker
	// Reviews is nil when the review provider is "none"
	Reviews  *review.Reconciler
	Vocab    tracker.Vocabulary
	Prompter tui.Prompter
	Splog    *tui.Splog
	Deployer jenkins.Deployer
}

// Options controls how New builds a Context
type Options struct {
	// Path is any directory inside the repository
	Path     string
	Splog    *tui.Splog
	Prompter tui.Prompter
}

// New opens the repository, loads its configuration and builds the
// collaborator clients. It fails with ErrNotInitialized before git flow init.
func New(ctx context.Context, opts Options) (*Context, error) {
	repo, err := git.OpenRepo(opts.Path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(repo.RepoRoot())
	if err != nil {
		return nil, err
	}

	system, err := NewReviewSystem(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := NewContext(ctx, repo, cfg)
	c.Tracker = tracker.NewPivotalClient(cfg.Tracker.URL, cfg.Tracker.Token, cfg.Tracker.ProjectID)
	if system != nil {
		c.Reviews = review.NewReconciler(system, repo, cfg.Review.PageSize)
	}
	c.Deployer = jenkins.NewClient(cfg.Deploy)
	if opts.Splog != nil {
		c.Splog = opts.Splog
	}
	if opts.Prompter != nil {
		c.Prompter = opts.Prompter
	}
	return c, nil
}

// NewContext creates a context around repo and cfg with terminal output and
// prompts; collaborators are left for the caller to set
func NewContext(ctx context.Context, repo git.Facade, cfg *config.Config) *Context {
	return &Context{
		Context:  ctx,
		Repo:     repo,
		Config:   cfg,
		Vocab:    tracker.NewVocabulary(cfg),
		Prompter: tui.NewSurveyPrompter(),
		Splog:    tui.NewSplog(),
	}
}

// NewReviewSystem builds the Review System client for cfg.Review.Provider.
// It returns nil for the "none" provider.
func NewReviewSystem(ctx context.Context, cfg *config.Config) (review.System, error) {
	rc := cfg.Review
	switch rc.Provider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderGitHub:
		return review.NewGitHubSystem(ctx, rc.Token, rc.GitHub.Owner, rc.GitHub.Repo, rc.GitHub.BaseURL)
	case config.ProviderReviewBoard, "":
		return review.NewReviewBoardClient(rc.URL, rc.Username, rc.Token, rc.Repository), nil
	default:
		return nil, fmt.Errorf("unknown review provider %q", rc.Provider)
	}
}

// Branches returns the manager of one branch kind
func (c *Context) Branches(kind engine.Kind) *engine.BranchTypeManager {
	return engine.NewBranchTypeManager(c.Repo, c.Config, kind)
}

// Gate returns the release gate for this repository
func (c *Context) Gate() *gate.Gate {
	return gate.New(c.Vocab, c.Reviews, c.Config.Prefix.Feature)
}
