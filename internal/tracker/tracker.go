package tracker

import "context"

// Tracker is the Story Tracker collaborator
type Tracker interface {
	// CurrentAndBacklog lists the items of the current and backlog iterations
	CurrentAndBacklog(ctx context.Context) ([]*Item, error)
	// Item fetches one item, failing with ErrNoSuchItem when it does not exist
	Item(ctx context.Context, id int64) (*Item, error)
	// Update applies delta and returns the updated item
	Update(ctx context.Context, id int64, delta Delta) (*Item, error)
	// AddComment posts a comment on the item
	AddComment(ctx context.Context, id int64, text string) error
}
