package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gitflow.dev/gitflow/internal/review"
)

// FakeReviewSystem is an in-memory review.System
type FakeReviewSystem struct {
	mu           sync.Mutex
	requests     map[int64]*review.Request
	dispositions map[int64][]review.Disposition
	nextID       int64

	// Drafts records every CreateOrUpdate call
	Drafts []review.Draft
	// Closed records the requests closed, in order
	Closed []int64
	// CloseErr, when set, is returned by Close
	CloseErr error
	// ListErr, when set, is returned by ListRequests
	ListErr error
}

var _ review.System = (*FakeReviewSystem)(nil)

// NewFakeReviewSystem creates an empty fake
func NewFakeReviewSystem() *FakeReviewSystem {
	return &FakeReviewSystem{
		requests:     map[int64]*review.Request{},
		dispositions: map[int64][]review.Disposition{},
		nextID:       1,
	}
}

// AddRequest stores a request and returns its id
func (f *FakeReviewSystem) AddRequest(branch string, status review.Status, shipIt bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.requests[id] = &review.Request{
		ID:      id,
		Branch:  branch,
		Status:  status,
		Summary: "Review of " + branch,
		URL:     fmt.Sprintf("https://reviews.example.com/r/%d/", id),
	}
	if shipIt {
		f.dispositions[id] = []review.Disposition{{Reviewer: "alice", ShipIt: true}}
	}
	return id
}

// ShipIt records an approving review
func (f *FakeReviewSystem) ShipIt(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispositions[id] = append(f.dispositions[id], review.Disposition{Reviewer: "bob", ShipIt: true})
}

// Get returns a stored request
func (f *FakeReviewSystem) Get(id int64) *review.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[id]
}

// ListRequests returns copies of the requests with the filtered status
func (f *FakeReviewSystem) ListRequests(_ context.Context, filter review.Filter) ([]*review.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	ids := make([]int64, 0, len(f.requests))
	for id := range f.requests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*review.Request
	for _, id := range ids {
		req := f.requests[id]
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		c := *req
		out = append(out, &c)
		if filter.MaxResults > 0 && len(out) == filter.MaxResults {
			break
		}
	}
	return out, nil
}

// GetRequest returns a copy of one request
func (f *FakeReviewSystem) GetRequest(_ context.Context, id int64) (*review.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, fmt.Errorf("review request %d not found", id)
	}
	c := *req
	return &c, nil
}

// CreateOrUpdate stores the draft as a pending request
func (f *FakeReviewSystem) CreateOrUpdate(_ context.Context, draft review.Draft) (*review.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Drafts = append(f.Drafts, draft)
	id := draft.ExistingID
	if id == 0 {
		id = f.nextID
		f.nextID++
	}
	f.requests[id] = &review.Request{
		ID:          id,
		Branch:      draft.Branch,
		Status:      review.StatusPending,
		Summary:     draft.Summary,
		Description: draft.Description,
		URL:         fmt.Sprintf("https://reviews.example.com/r/%d/", id),
	}
	c := *f.requests[id]
	return &c, nil
}

// Dispositions returns the recorded reviews
func (f *FakeReviewSystem) Dispositions(_ context.Context, id int64) ([]review.Disposition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]review.Disposition(nil), f.dispositions[id]...), nil
}

// Close sets the request status
func (f *FakeReviewSystem) Close(_ context.Context, id int64, status review.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CloseErr != nil {
		return f.CloseErr
	}
	req, ok := f.requests[id]
	if !ok {
		return fmt.Errorf("review request %d not found", id)
	}
	req.Status = status
	f.Closed = append(f.Closed, id)
	return nil
}
