package engine

import (
	"fmt"
	"strings"

	"gitflow.dev/gitflow/internal/config"
)

// Kind is a git-flow branch type
type Kind string

const (
	// KindFeature branches carry one work item each
	KindFeature Kind = "feature"
	// KindRelease branches stabilize a version before it ships
	KindRelease Kind = "release"
	// KindHotfix branches patch production
	KindHotfix Kind = "hotfix"
	// KindSupport branches maintain an old version
	KindSupport Kind = "support"
)

// Kinds lists every branch kind in display order
var Kinds = []Kind{KindFeature, KindRelease, KindHotfix, KindSupport}

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown branch type %q", s)
}

// Singleton reports whether at most one unfinished branch of the kind may exist
func (k Kind) Singleton() bool {
	return k == KindRelease || k == KindHotfix
}

// Prefix returns the configured name prefix of the kind
func (k Kind) Prefix(cfg *config.Config) string {
	switch k {
	case KindFeature:
		return cfg.Prefix.Feature
	case KindRelease:
		return cfg.Prefix.Release
	case KindHotfix:
		return cfg.Prefix.Hotfix
	case KindSupport:
		return cfg.Prefix.Support
	}
	return ""
}

// DefaultBase returns the branch new branches of the kind start from
func (k Kind) DefaultBase(cfg *config.Config) string {
	if k == KindHotfix || k == KindSupport {
		return cfg.Branches.Master
	}
	return cfg.Branches.Develop
}

// BranchRef names one branch of a known kind.
// FullName is always Prefix + ShortName.
type BranchRef struct {
	Kind      Kind
	Prefix    string
	ShortName string
	FullName  string
	IsRemote  bool
}

// MarkerName returns the base marker ref kept next to the branch
func (b BranchRef) MarkerName() string {
	return MarkerName(b.Kind, b.ShortName)
}

func (b BranchRef) String() string {
	return b.FullName
}

// MarkerName returns the base marker branch for a short name
func MarkerName(kind Kind, shortName string) string {
	return "base_" + string(kind) + "/" + shortName
}

// KindOf returns the kind and short name of a full branch name
func KindOf(cfg *config.Config, branch string) (Kind, string, bool) {
	for _, k := range Kinds {
		if short, ok := strings.CutPrefix(branch, k.Prefix(cfg)); ok && short != "" {
			return k, short, true
		}
	}
	return "", "", false
}
