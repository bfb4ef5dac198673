package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	flowerrors "gitflow.dev/gitflow/internal/errors"
)

// FileName is the config file name inside the git directory
const FileName = "gitflow.yaml"

// DefaultVersionPattern accepts N.N.N
const DefaultVersionPattern = `^[0-9]+([.][0-9]+){2}$`

// Review System providers
const (
	ProviderReviewBoard = "reviewboard"
	ProviderGitHub      = "github"
	ProviderNone        = "none"
)

// Config represents the complete git-flow configuration of a repository
type Config struct {
	Branches       BranchesConfig `mapstructure:"branches" yaml:"branches"`
	Prefix         PrefixConfig   `mapstructure:"prefix" yaml:"prefix"`
	Origin         string         `mapstructure:"origin" yaml:"origin"`
	VersionPattern string         `mapstructure:"version_pattern" yaml:"version_pattern"`
	Ancestor       AncestorConfig `mapstructure:"ancestor" yaml:"ancestor"`
	Tracker        TrackerConfig  `mapstructure:"tracker" yaml:"tracker"`
	Review         ReviewConfig   `mapstructure:"review" yaml:"review"`
	Deploy         DeployConfig   `mapstructure:"deploy" yaml:"deploy"`
}

// BranchesConfig names the two long-lived integration branches
type BranchesConfig struct {
	Master  string `mapstructure:"master" yaml:"master"`
	Develop string `mapstructure:"develop" yaml:"develop"`
}

// PrefixConfig holds the name prefix of every branch kind
type PrefixConfig struct {
	Feature    string `mapstructure:"feature" yaml:"feature"`
	Release    string `mapstructure:"release" yaml:"release"`
	Hotfix     string `mapstructure:"hotfix" yaml:"hotfix"`
	Support    string `mapstructure:"support" yaml:"support"`
	VersionTag string `mapstructure:"versiontag" yaml:"versiontag"`
}

// AncestorConfig tunes markerless ancestor resolution
type AncestorConfig struct {
	// MaxHistory bounds the first-parent window compared; 0 compares everything
	MaxHistory int `mapstructure:"max_history" yaml:"max_history"`
}

// TrackerConfig configures the Story Tracker and its label vocabulary
type TrackerConfig struct {
	URL                  string   `mapstructure:"url" yaml:"url"`
	Token                string   `mapstructure:"token" yaml:"token,omitempty"`
	ProjectID            string   `mapstructure:"project_id" yaml:"project_id"`
	QALabel              string   `mapstructure:"qa_label" yaml:"qa_label"`
	NeedsEstimationLabel string   `mapstructure:"needs_estimation_label" yaml:"needs_estimation_label"`
	BlockingLabel        string   `mapstructure:"blocking_label" yaml:"blocking_label"`
	ExemptLabels         []string `mapstructure:"exempt_labels" yaml:"exempt_labels"`
	ReleaseLabelPrefix   string   `mapstructure:"release_label_prefix" yaml:"release_label_prefix"`
}

// ReviewConfig configures the Review System
type ReviewConfig struct {
	// Provider is one of "reviewboard", "github" or "none"
	Provider   string       `mapstructure:"provider" yaml:"provider"`
	URL        string       `mapstructure:"url" yaml:"url"`
	Username   string       `mapstructure:"username" yaml:"username"`
	Token      string       `mapstructure:"token" yaml:"token,omitempty"`
	Repository string       `mapstructure:"repository" yaml:"repository"`
	PageSize   int          `mapstructure:"page_size" yaml:"page_size"`
	GitHub     GitHubConfig `mapstructure:"github" yaml:"github"`
}

// GitHubConfig locates the repository for the pull request review adapter
type GitHubConfig struct {
	Owner   string `mapstructure:"owner" yaml:"owner"`
	Repo    string `mapstructure:"repo" yaml:"repo"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// DeployConfig configures the Jenkins deploy trigger
type DeployConfig struct {
	URL       string            `mapstructure:"url" yaml:"url"`
	Username  string            `mapstructure:"username" yaml:"username"`
	Token     string            `mapstructure:"token" yaml:"token,omitempty"`
	Jobs      map[string]string `mapstructure:"jobs" yaml:"jobs"`
	JobTokens map[string]string `mapstructure:"job_tokens" yaml:"job_tokens,omitempty"`
}

// Default returns the configuration used when a key is not set
func Default() *Config {
	return &Config{
		Branches: BranchesConfig{Master: "master", Develop: "develop"},
		Prefix: PrefixConfig{
			Feature: "feature/",
			Release: "release/",
			Hotfix:  "hotfix/",
			Support: "support/",
		},
		Origin:         "origin",
		VersionPattern: DefaultVersionPattern,
		Tracker: TrackerConfig{
			URL:                  "https://www.pivotaltracker.com/services/v5",
			QALabel:              "qa+",
			NeedsEstimationLabel: "needs estimation",
			BlockingLabel:        "point me",
			ExemptLabels:         []string{"no review", "dupe", "wontfix", "cannot reproduce"},
			ReleaseLabelPrefix:   "release-",
		},
		Review: ReviewConfig{
			Provider: ProviderReviewBoard,
			PageSize: 200,
		},
		Deploy: DeployConfig{
			Jobs:      map[string]string{},
			JobTokens: map[string]string{},
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("branches.master", d.Branches.Master)
	v.SetDefault("branches.develop", d.Branches.Develop)
	v.SetDefault("prefix.feature", d.Prefix.Feature)
	v.SetDefault("prefix.release", d.Prefix.Release)
	v.SetDefault("prefix.hotfix", d.Prefix.Hotfix)
	v.SetDefault("prefix.support", d.Prefix.Support)
	v.SetDefault("prefix.versiontag", d.Prefix.VersionTag)
	v.SetDefault("origin", d.Origin)
	v.SetDefault("version_pattern", d.VersionPattern)
	v.SetDefault("ancestor.max_history", d.Ancestor.MaxHistory)

	v.SetDefault("tracker.url", d.Tracker.URL)
	v.SetDefault("tracker.token", "")
	v.SetDefault("tracker.project_id", "")
	v.SetDefault("tracker.qa_label", d.Tracker.QALabel)
	v.SetDefault("tracker.needs_estimation_label", d.Tracker.NeedsEstimationLabel)
	v.SetDefault("tracker.blocking_label", d.Tracker.BlockingLabel)
	v.SetDefault("tracker.exempt_labels", d.Tracker.ExemptLabels)
	v.SetDefault("tracker.release_label_prefix", d.Tracker.ReleaseLabelPrefix)

	v.SetDefault("review.provider", d.Review.Provider)
	v.SetDefault("review.url", "")
	v.SetDefault("review.username", "")
	v.SetDefault("review.token", "")
	v.SetDefault("review.repository", "")
	v.SetDefault("review.page_size", d.Review.PageSize)
	v.SetDefault("review.github.owner", "")
	v.SetDefault("review.github.repo", "")
	v.SetDefault("review.github.base_url", "")

	v.SetDefault("deploy.url", "")
	v.SetDefault("deploy.username", "")
	v.SetDefault("deploy.token", "")
	v.SetDefault("deploy.jobs", d.Deploy.Jobs)
	v.SetDefault("deploy.job_tokens", d.Deploy.JobTokens)
}

// Path returns the config file location for a repository
func Path(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", FileName)
}

// IsInitialized reports whether git flow init has been run in the repository
func IsInitialized(repoRoot string) bool {
	_, err := os.Stat(Path(repoRoot))
	return err == nil
}

// Load reads the repository configuration, applying defaults and GITFLOW_*
// environment overrides (GITFLOW_TRACKER_TOKEN overrides tracker.token).
// It fails with ErrNotInitialized when the file does not exist.
func Load(repoRoot string) (*Config, error) {
	if !IsInitialized(repoRoot) {
		return nil, flowerrors.ErrNotInitialized
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetConfigFile(Path(repoRoot))
	v.SetEnvPrefix("GITFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", Path(repoRoot), err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", Path(repoRoot), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to the repository config file
func Save(repoRoot string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(Path(repoRoot), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", Path(repoRoot), err)
	}
	return nil
}

// Validate checks the configuration for inconsistent values
func (c *Config) Validate() error {
	var errs []error
	if c.Branches.Master == "" || c.Branches.Develop == "" {
		errs = append(errs, fmt.Errorf("branches.master and branches.develop must be set"))
	}
	if c.Branches.Master == c.Branches.Develop {
		errs = append(errs, fmt.Errorf("branches.master and branches.develop must differ, both are %q", c.Branches.Master))
	}
	prefixes := map[string]string{
		"feature": c.Prefix.Feature,
		"release": c.Prefix.Release,
		"hotfix":  c.Prefix.Hotfix,
		"support": c.Prefix.Support,
	}
	seen := map[string]string{}
	for kind, prefix := range prefixes {
		if prefix == "" {
			errs = append(errs, fmt.Errorf("prefix.%s must be set", kind))
			continue
		}
		if other, ok := seen[prefix]; ok {
			errs = append(errs, fmt.Errorf("prefix.%s and prefix.%s are both %q", kind, other, prefix))
		}
		seen[prefix] = kind
	}
	if c.Origin == "" {
		errs = append(errs, fmt.Errorf("origin must be set"))
	}
	if _, err := regexp.Compile(c.VersionPattern); err != nil {
		errs = append(errs, fmt.Errorf("version_pattern: %w", err))
	}
	switch c.Review.Provider {
	case ProviderReviewBoard, ProviderGitHub, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("review.provider must be one of %s, %s, %s, got %q",
			ProviderReviewBoard, ProviderGitHub, ProviderNone, c.Review.Provider))
	}
	if c.Review.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("review.page_size must be positive"))
	}
	if c.Ancestor.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("ancestor.max_history must not be negative"))
	}
	return errors.Join(errs...)
}

// VersionRegexp compiles the configured version pattern
func (c *Config) VersionRegexp() *regexp.Regexp {
	re, err := regexp.Compile(c.VersionPattern)
	if err != nil {
		return regexp.MustCompile(DefaultVersionPattern)
	}
	return re
}

// CheckVersion fails with ErrIllegalVersion unless version matches the pattern
func (c *Config) CheckVersion(version string) error {
	if !c.VersionRegexp().MatchString(version) {
		return fmt.Errorf("%w: %q does not match %s", flowerrors.ErrIllegalVersion, version, c.VersionPattern)
	}
	return nil
}

// TagName returns the tag a version is released under
func (c *Config) TagName(version string) string {
	return c.Prefix.VersionTag + version
}
