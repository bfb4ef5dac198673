package review

import (
	"context"
	"errors"
)

// BranchReview ties a branch prefix to its review request. The request is
// looked up by the first Resolve call and remembered afterwards.
type BranchReview struct {
	Prefix     string
	reconciler *Reconciler
	resolved   bool
	request    *Request
	err        error
}

// ForBranch returns an unresolved BranchReview for prefix
func (r *Reconciler) ForBranch(prefix string) *BranchReview {
	return &BranchReview{Prefix: prefix, reconciler: r}
}

// Resolve looks the request up once; later calls return the same outcome
func (b *BranchReview) Resolve(ctx context.Context) (*Request, error) {
	if !b.resolved {
		b.request, b.err = b.reconciler.FindForPrefix(ctx, b.Prefix)
		b.resolved = true
	}
	return b.request, b.err
}

// Request returns the resolved request. It is false before Resolve succeeded.
func (b *BranchReview) Request() (*Request, bool) {
	return b.request, b.resolved && b.err == nil
}

// Accepted resolves the request and reports whether it may be submitted
func (b *BranchReview) Accepted(ctx context.Context) (bool, error) {
	req, err := b.Resolve(ctx)
	if err != nil {
		return false, err
	}
	return b.reconciler.Accepted(ctx, req)
}

// Submit submits the resolved request
func (b *BranchReview) Submit(ctx context.Context) error {
	req, ok := b.Request()
	if !ok {
		if b.resolved {
			return b.err
		}
		return errors.New("review of " + b.Prefix + " used before Resolve")
	}
	return b.reconciler.Submit(ctx, req.ID)
}
