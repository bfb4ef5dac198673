package tracker

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"gitflow.dev/gitflow/internal/config"
	flowerrors "gitflow.dev/gitflow/internal/errors"
)

// Vocabulary is the label set the release workflow reads and writes
type Vocabulary struct {
	QA              string
	NeedsEstimation string
	Blocking        string
	Exempt          []string
	ReleasePrefix   string
	VersionPattern  *regexp.Regexp
}

// NewVocabulary builds the label vocabulary from configuration
func NewVocabulary(cfg *config.Config) Vocabulary {
	return Vocabulary{
		QA:              cfg.Tracker.QALabel,
		NeedsEstimation: cfg.Tracker.NeedsEstimationLabel,
		Blocking:        cfg.Tracker.BlockingLabel,
		Exempt:          slices.Clone(cfg.Tracker.ExemptLabels),
		ReleasePrefix:   cfg.Tracker.ReleaseLabelPrefix,
		VersionPattern:  cfg.VersionRegexp(),
	}
}

// CheckVersion fails with ErrIllegalVersion unless version is well formed
func (v Vocabulary) CheckVersion(version string) error {
	if !v.VersionPattern.MatchString(version) {
		return fmt.Errorf("%w: %q", flowerrors.ErrIllegalVersion, version)
	}
	return nil
}

// ReleaseLabel is the label assigning an item to version
func (v Vocabulary) ReleaseLabel(version string) string {
	return v.ReleasePrefix + version
}

// ReleaseOf returns the version an item is assigned to
func (v Vocabulary) ReleaseOf(item *Item) (string, bool) {
	for _, label := range item.Labels {
		version, ok := strings.CutPrefix(label, v.ReleasePrefix)
		if ok && v.VersionPattern.MatchString(version) {
			return version, true
		}
	}
	return "", false
}

// IsExempt reports whether item carries an exemption label
func (v Vocabulary) IsExempt(item *Item) bool {
	for _, label := range v.Exempt {
		if item.HasLabel(label) {
			return true
		}
	}
	return false
}
