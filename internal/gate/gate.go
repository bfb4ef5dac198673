// Package gate decides whether a release or hotfix may be staged or
// finished. It only reads the Story Tracker and the Review System.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/review"
	"gitflow.dev/gitflow/internal/tracker"
)

// Mode selects the requirement set of a check
type Mode int

const (
	// ModeStage is required before deploying to the client environment
	ModeStage Mode = iota
	// ModeFinish adds acceptance of every item to ModeStage
	ModeFinish
)

func (m Mode) String() string {
	if m == ModeFinish {
		return "finish"
	}
	return "stage"
}

// Options controls a check
type Options struct {
	Mode Mode
	// IgnoreMissingReviews downgrades a missing or unaccepted review to a
	// warning. Ambiguous reviews still fail.
	IgnoreMissingReviews bool
	// AllowEmpty lets a release without items pass
	AllowEmpty bool
}

// Report is the outcome of a passing check
type Report struct {
	Version string
	Mode    Mode
	// Checked holds the items every requirement was applied to
	Checked []*tracker.Item
	// Exempt holds the items skipped for carrying an exemption label
	Exempt []*tracker.Item
	// Reviews holds the accepted review request of each checked item
	Reviews []*review.Request
	// Warnings lists the failures downgraded by IgnoreMissingReviews
	Warnings []flowerrors.Failure
}

// Gate evaluates releases against the label vocabulary and the review state
// of their feature branches.
type Gate struct {
	vocab         tracker.Vocabulary
	reviews       *review.Reconciler
	featurePrefix string
}

// New creates a gate. A nil reconciler disables the review requirement.
func New(vocab tracker.Vocabulary, reviews *review.Reconciler, featurePrefix string) *Gate {
	return &Gate{vocab: vocab, reviews: reviews, featurePrefix: featurePrefix}
}

// Check applies the requirements of opts.Mode to every item of release. It
// fails with a PreconditionFailedError listing every failing item, or with
// the first collaborator error that prevented a decision.
func (g *Gate) Check(ctx context.Context, release *tracker.Release, opts Options) (*Report, error) {
	report := &Report{Version: release.Version, Mode: opts.Mode}
	if release.IsEmpty() {
		if opts.AllowEmpty {
			return report, nil
		}
		return nil, fmt.Errorf("%w: %s", flowerrors.ErrEmptyRelease, release.Version)
	}

	var failures []flowerrors.Failure
	fail := func(item *tracker.Item, format string, args ...any) {
		failures = append(failures, flowerrors.Failure{ItemID: item.ID, Reason: fmt.Sprintf(format, args...)})
	}

	for _, item := range release.Items() {
		if g.vocab.Blocking != "" && item.HasLabel(g.vocab.Blocking) {
			fail(item, "labeled %q", g.vocab.Blocking)
			continue
		}
		if g.vocab.IsExempt(item) {
			report.Exempt = append(report.Exempt, item)
			continue
		}
		report.Checked = append(report.Checked, item)

		if g.vocab.NeedsEstimation != "" && item.HasLabel(g.vocab.NeedsEstimation) {
			fail(item, "labeled %q", g.vocab.NeedsEstimation)
		}
		if !item.ZeroEstimate() && !item.HasLabel(g.vocab.QA) {
			fail(item, "missing the %q label", g.vocab.QA)
		}
		if opts.Mode == ModeFinish && item.State != tracker.StateAccepted {
			fail(item, "is %s, not accepted", item.State)
		}

		if g.reviews == nil {
			continue
		}
		req, failure, err := g.checkReview(ctx, item)
		switch {
		case err != nil:
			return nil, err
		case failure == nil:
			report.Reviews = append(report.Reviews, req)
		case opts.IgnoreMissingReviews && failure.Err == nil:
			report.Warnings = append(report.Warnings, *failure)
		default:
			failures = append(failures, *failure)
		}
	}

	if len(failures) > 0 {
		return nil, &flowerrors.PreconditionFailedError{Version: release.Version, Failures: failures}
	}
	return report, nil
}

// checkReview returns the accepted request of item, or the failure
// explaining why it has none. Ambiguous lookups carry their error and are
// never downgraded.
func (g *Gate) checkReview(ctx context.Context, item *tracker.Item) (*review.Request, *flowerrors.Failure, error) {
	branch := g.reviews.ForBranch(g.featurePrefix + strconv.FormatInt(item.ID, 10))
	accepted, err := branch.Accepted(ctx)
	switch {
	case errors.Is(err, flowerrors.ErrNoSuchBranch):
		return nil, &flowerrors.Failure{ItemID: item.ID, Reason: "has no review request"}, nil
	case errors.Is(err, flowerrors.ErrMultipleReviewRequests), errors.Is(err, flowerrors.ErrTooManyResults):
		return nil, &flowerrors.Failure{ItemID: item.ID, Reason: err.Error(), Err: err}, nil
	case err != nil:
		return nil, nil, err
	}
	req, _ := branch.Request()
	if !accepted {
		return nil, &flowerrors.Failure{ItemID: item.ID, Reason: fmt.Sprintf("review %d has no ship-it", req.ID)}, nil
	}
	return req, nil, nil
}
