// Package tracker models Story Tracker work items and releases and talks to
// the Pivotal Tracker v5 API.
package tracker

import (
	"slices"
)

// Kind is the type of a work item
type Kind string

// Work item kinds
const (
	KindFeature Kind = "feature"
	KindBug     Kind = "bug"
	KindChore   Kind = "chore"
	KindRelease Kind = "release"
)

// State is the lifecycle state of a work item
type State string

// Work item states
const (
	StateUnscheduled State = "unscheduled"
	StateUnstarted   State = "unstarted"
	StateStarted     State = "started"
	StateFinished    State = "finished"
	StateDelivered   State = "delivered"
	StateAccepted    State = "accepted"
	StateRejected    State = "rejected"
)

var stateOrder = map[State]int{
	StateUnscheduled: 0,
	StateUnstarted:   0,
	StateStarted:     1,
	StateFinished:    2,
	StateDelivered:   3,
	StateAccepted:    4,
}

// CanTransition reports whether a work item may move from one state to
// another. States only move forward, rejected is reachable from any state
// before delivery, and a rejected item may be restarted. Accepted items may
// be delivered again when the release they belong to ships.
func CanTransition(from, to State) bool {
	if from == to {
		return false
	}
	switch {
	case to == StateRejected:
		return stateOrder[from] < stateOrder[StateDelivered] && from != StateRejected
	case from == StateRejected:
		return to == StateStarted
	case from == StateAccepted && to == StateDelivered:
		return true
	}
	f, okFrom := stateOrder[from]
	t, okTo := stateOrder[to]
	return okFrom && okTo && t > f
}

// Item is a work item as reported by the Story Tracker
type Item struct {
	ID     int64
	Kind   Kind
	State  State
	Name   string
	URL    string
	Labels []string
	// Estimate is nil for items that cannot be estimated (bugs and chores)
	Estimate *int
}

// HasLabel reports whether the item carries label
func (i *Item) HasLabel(label string) bool {
	return label != "" && slices.Contains(i.Labels, label)
}

// IsFeature reports whether the item is a feature
func (i *Item) IsFeature() bool {
	return i.Kind == KindFeature
}

// ZeroEstimate reports whether the item was estimated at zero points
func (i *Item) ZeroEstimate() bool {
	return i.Estimate != nil && *i.Estimate == 0
}

// Delta is a change to apply to a work item. Empty fields are left alone.
type Delta struct {
	State     State
	AddLabels []string
}

// IsEmpty reports whether applying d would change nothing
func (d Delta) IsEmpty() bool {
	return d.State == "" && len(d.AddLabels) == 0
}

// Apply returns a copy of item with d applied
func (d Delta) Apply(item *Item) *Item {
	out := *item
	out.Labels = slices.Clone(item.Labels)
	if d.State != "" {
		out.State = d.State
	}
	for _, label := range d.AddLabels {
		if !slices.Contains(out.Labels, label) {
			out.Labels = append(out.Labels, label)
		}
	}
	return &out
}
