// Package review talks to the Review System and reconciles review requests
// with the branches they were posted from.
package review

import "context"

// Status is the state of a review request
type Status string

// Review request states
const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusDiscarded Status = "discarded"
)

// Request is a review request as reported by the Review System
type Request struct {
	ID          int64
	Branch      string
	Status      Status
	Summary     string
	Description string
	URL         string
}

// Filter narrows ListRequests
type Filter struct {
	Status     Status
	MaxResults int
}

// Draft is the content posted for a branch. A zero ExistingID creates a new
// request.
type Draft struct {
	Branch string
	// Base is the branch the work is merged into
	Base string
	// From and To are the revisions of the reviewed range
	From string
	To   string
	// Diff is the full-index diff of the range
	Diff        string
	Summary     string
	Description string
	ExistingID  int64
	DependsOn   int64
}

// Disposition is one review left on a request
type Disposition struct {
	Reviewer string
	ShipIt   bool
}

// System is the Review System collaborator
type System interface {
	ListRequests(ctx context.Context, filter Filter) ([]*Request, error)
	GetRequest(ctx context.Context, id int64) (*Request, error)
	CreateOrUpdate(ctx context.Context, draft Draft) (*Request, error)
	Dispositions(ctx context.Context, id int64) ([]Disposition, error)
	// Close marks a request submitted or discarded
	Close(ctx context.Context, id int64, status Status) error
}
