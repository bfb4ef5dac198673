package finish

import (
	"context"
	"errors"
	"fmt"

	"gitflow.dev/gitflow/internal/git"
	"gitflow.dev/gitflow/internal/tracker"
)

// Transaction records what a finish changed so it can be undone. It assumes
// nobody else moves the integration branches while the finish runs.
type Transaction struct {
	repo git.Facade
	// original is the branch checked out before the finish started
	original string
	// tips maps each integration branch to its sha before the first merge
	tips  map[string]string
	order []string
	tag   string

	tracker   tracker.Tracker
	delivered []delivery
}

// delivery is an item moved to delivered and the state it had before
type delivery struct {
	id    int64
	prior tracker.State
}

// snapshot records the current tips of branches and the checked out branch
func snapshot(ctx context.Context, repo git.Facade, branches ...string) (*Transaction, error) {
	original, err := repo.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{repo: repo, original: original, tips: map[string]string{}}
	for _, branch := range branches {
		sha, err := repo.ResolveRef(ctx, "refs/heads/"+branch)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot %s: %w", branch, err)
		}
		tx.tips[branch] = sha
		tx.order = append(tx.order, branch)
	}
	return tx, nil
}

// Tagged records a tag created by the finish
func (t *Transaction) Tagged(name string) {
	t.tag = name
}

// Delivered records that item id moved out of prior on tr
func (t *Transaction) Delivered(tr tracker.Tracker, id int64, prior tracker.State) {
	t.tracker = tr
	t.delivered = append(t.delivered, delivery{id: id, prior: prior})
}

// Tip returns the snapshot of branch
func (t *Transaction) Tip(branch string) string {
	return t.tips[branch]
}

// Rollback deletes the created tag, restores delivered items, resets every
// snapshotted branch and checks the original branch out again. Every step is
// attempted; failures are joined.
func (t *Transaction) Rollback(ctx context.Context) error {
	var errs []error
	if t.tag != "" {
		if err := t.repo.DeleteTag(ctx, t.tag); err != nil {
			errs = append(errs, fmt.Errorf("tag %s left behind: %w", t.tag, err))
		}
		t.tag = ""
	}

	for i := len(t.delivered) - 1; i >= 0; i-- {
		d := t.delivered[i]
		if _, err := t.tracker.Update(ctx, d.id, tracker.Delta{State: d.prior}); err != nil {
			errs = append(errs, fmt.Errorf("restore #%d to %s: %w", d.id, d.prior, err))
		}
	}
	t.delivered = nil

	for _, branch := range t.order {
		if err := t.repo.ResetBranch(ctx, branch, t.tips[branch]); err != nil {
			errs = append(errs, fmt.Errorf("reset %s to %s: %w", branch, t.tips[branch], err))
		}
	}
	if t.original != "" {
		if err := t.repo.Checkout(ctx, t.original); err != nil {
			errs = append(errs, fmt.Errorf("checkout %s: %w", t.original, err))
		}
	}
	return errors.Join(errs...)
}
