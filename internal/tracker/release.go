package tracker

import (
	"context"
	"fmt"
	"sort"

	flowerrors "gitflow.dev/gitflow/internal/errors"
)

// Release is the set of work items labeled with one version. It is never
// stored; it is rebuilt from the tracker or from items already fetched.
type Release struct {
	Version string
	vocab   Vocabulary
	items   []*Item
}

// HydrateRelease fetches the current and backlog items and collects those
// assigned to version
func HydrateRelease(ctx context.Context, t Tracker, vocab Vocabulary, version string) (*Release, error) {
	if err := vocab.CheckVersion(version); err != nil {
		return nil, err
	}
	items, err := t.CurrentAndBacklog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}
	return ReleaseFromSnapshot(vocab, version, items)
}

// ReleaseFromSnapshot builds a release from items already fetched. Items not
// assigned to version are ignored.
func ReleaseFromSnapshot(vocab Vocabulary, version string, items []*Item) (*Release, error) {
	if err := vocab.CheckVersion(version); err != nil {
		return nil, err
	}
	r := &Release{Version: version, vocab: vocab}
	label := vocab.ReleaseLabel(version)
	for _, item := range items {
		if item.HasLabel(label) {
			r.items = append(r.items, item)
		}
	}
	return r, nil
}

// Label is the label carried by every item of the release
func (r *Release) Label() string {
	return r.vocab.ReleaseLabel(r.Version)
}

// Items returns the items of the release in tracker order
func (r *Release) Items() []*Item {
	return r.items
}

// Features returns the feature items of the release
func (r *Release) Features() []*Item {
	var out []*Item
	for _, item := range r.items {
		if item.IsFeature() {
			out = append(out, item)
		}
	}
	return out
}

// IsEmpty reports whether no item is assigned to the release
func (r *Release) IsEmpty() bool {
	return len(r.items) == 0
}

// Unassigned returns the finished features not yet assigned to any release
func Unassigned(vocab Vocabulary, items []*Item) []*Item {
	var out []*Item
	for _, item := range items {
		if !item.IsFeature() || item.State != StateFinished {
			continue
		}
		if _, ok := vocab.ReleaseOf(item); ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// AssignToRelease labels a feature with the release label of version
func AssignToRelease(ctx context.Context, t Tracker, vocab Vocabulary, item *Item, version string) (*Item, error) {
	if err := vocab.CheckVersion(version); err != nil {
		return nil, err
	}
	if current, ok := vocab.ReleaseOf(item); ok {
		return nil, fmt.Errorf("%w: #%d is in release %s", flowerrors.ErrReleaseAlreadyAssigned, item.ID, current)
	}
	return t.Update(ctx, item.ID, Delta{AddLabels: []string{vocab.ReleaseLabel(version)}})
}

// AllReleases groups feature items by the release they are assigned to,
// ordered by version string
func AllReleases(vocab Vocabulary, items []*Item) []*Release {
	byVersion := map[string]*Release{}
	for _, item := range items {
		if !item.IsFeature() {
			continue
		}
		version, ok := vocab.ReleaseOf(item)
		if !ok {
			continue
		}
		r, ok := byVersion[version]
		if !ok {
			r = &Release{Version: version, vocab: vocab}
			byVersion[version] = r
		}
		r.items = append(r.items, item)
	}

	out := make([]*Release, 0, len(byVersion))
	for _, r := range byVersion {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}
