package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flowerrors "gitflow.dev/gitflow/internal/errors"
)

// Merge merges source into the checked out branch. A conflicting merge is
// aborted so the working tree is left as it was, and a MergeConflictError is
// returned.
func (r *Repo) Merge(ctx context.Context, source string, opts MergeOptions) error {
	target, _ := r.CurrentBranch(ctx)

	args := []string{"merge", "--no-edit"}
	if opts.NoFastForward {
		args = append(args, "--no-ff")
	}
	if opts.Message != "" {
		args = append(args, "-m", opts.Message)
	}
	args = append(args, source)

	_, err := r.mutate(ctx, args...)
	if err == nil {
		return nil
	}

	if r.hasConflicts(ctx, err) {
		if _, abortErr := r.runner.Run(ctx, "merge", "--abort"); abortErr != nil {
			return fmt.Errorf("%w (merge --abort also failed: %v)", &flowerrors.MergeConflictError{Source: source, Target: target}, abortErr)
		}
		return fmt.Errorf("%w: %w", &flowerrors.MergeConflictError{Source: source, Target: target}, err)
	}
	return fmt.Errorf("failed to merge %s into %s: %w", source, target, err)
}

// FastForward advances the checked out branch to source, failing if that
// would require a merge commit.
func (r *Repo) FastForward(ctx context.Context, source string) error {
	if _, err := r.mutate(ctx, "merge", "--ff-only", source); err != nil {
		return fmt.Errorf("failed to fast-forward to %s: %w", source, err)
	}
	return nil
}

func (r *Repo) hasConflicts(ctx context.Context, mergeErr error) bool {
	var gitErr *flowerrors.GitCommandError
	if errors.As(mergeErr, &gitErr) {
		if strings.Contains(gitErr.Stdout, "CONFLICT") || strings.Contains(gitErr.Stderr, "CONFLICT") {
			return true
		}
	}
	unmerged, err := r.runner.Run(ctx, "diff", "--name-only", "--diff-filter=U")
	return err == nil && unmerged != ""
}
