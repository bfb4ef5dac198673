package testhelpers

import (
	"context"
	"fmt"
	"sync"

	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/tracker"
)

// Comment is a comment recorded by FakeTracker
type Comment struct {
	ItemID int64
	Text   string
}

// FakeTracker is an in-memory tracker.Tracker
type FakeTracker struct {
	mu       sync.Mutex
	items    []*tracker.Item
	Comments []Comment
	Updates  []tracker.Delta

	// UpdateErr, when set, is returned by Update for the given item id
	UpdateErr map[int64]error
	// ListErr, when set, is returned by CurrentAndBacklog
	ListErr error
}

var _ tracker.Tracker = (*FakeTracker)(nil)

// NewFakeTracker creates a fake holding copies of items
func NewFakeTracker(items ...*tracker.Item) *FakeTracker {
	f := &FakeTracker{UpdateErr: map[int64]error{}}
	for _, item := range items {
		f.items = append(f.items, tracker.Delta{}.Apply(item))
	}
	return f
}

// CurrentAndBacklog returns copies of every item
func (f *FakeTracker) CurrentAndBacklog(context.Context) ([]*tracker.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]*tracker.Item, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, tracker.Delta{}.Apply(item))
	}
	return out, nil
}

// Item returns a copy of one item
func (f *FakeTracker) Item(_ context.Context, id int64) (*tracker.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.find(id)
	if item == nil {
		return nil, fmt.Errorf("%w: #%d", flowerrors.ErrNoSuchItem, id)
	}
	return tracker.Delta{}.Apply(item), nil
}

// Update applies delta to the stored item
func (f *FakeTracker) Update(_ context.Context, id int64, delta tracker.Delta) (*tracker.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.UpdateErr[id]; err != nil {
		return nil, err
	}
	for i, item := range f.items {
		if item.ID == id {
			f.items[i] = delta.Apply(item)
			f.Updates = append(f.Updates, delta)
			return tracker.Delta{}.Apply(f.items[i]), nil
		}
	}
	return nil, fmt.Errorf("%w: #%d", flowerrors.ErrNoSuchItem, id)
}

// AddComment records a comment
func (f *FakeTracker) AddComment(_ context.Context, id int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.find(id) == nil {
		return fmt.Errorf("%w: #%d", flowerrors.ErrNoSuchItem, id)
	}
	f.Comments = append(f.Comments, Comment{ItemID: id, Text: text})
	return nil
}

// Get returns the stored item without copying, or nil
func (f *FakeTracker) Get(id int64) *tracker.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(id)
}

func (f *FakeTracker) find(id int64) *tracker.Item {
	for _, item := range f.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}
