package git

import (
	"context"
	"fmt"
)

// CreateTag creates an annotated tag, signed when requested.
func (r *Repo) CreateTag(ctx context.Context, opts TagOptions) error {
	message := opts.Message
	if message == "" {
		message = opts.Name
	}
	args := []string{"tag", "-a", "-m", message}
	switch {
	case opts.SigningKey != "":
		args = append(args, "-u", opts.SigningKey)
	case opts.Sign:
		args = append(args, "-s")
	}
	args = append(args, opts.Name)
	if opts.Target != "" {
		args = append(args, opts.Target)
	}

	if _, err := r.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to create tag %s: %w", opts.Name, err)
	}
	return nil
}

// DeleteTag deletes a local tag
func (r *Repo) DeleteTag(ctx context.Context, name string) error {
	if _, err := r.mutate(ctx, "tag", "-d", name); err != nil {
		return fmt.Errorf("failed to delete tag %s: %w", name, err)
	}
	return nil
}

// Fetch updates remote-tracking branches and tags from remote
func (r *Repo) Fetch(ctx context.Context, remote string) error {
	if _, err := r.mutate(ctx, "fetch", "--quiet", "--tags", remote); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", remote, err)
	}
	return nil
}

// Push sends every refspec to remote in one git push. A refspec of the form
// ":name" deletes name on the remote.
func (r *Repo) Push(ctx context.Context, remote string, refspecs []string, opts PushOptions) error {
	if len(refspecs) == 0 {
		return nil
	}
	args := []string{"push", "--quiet"}
	if opts.Atomic {
		args = append(args, "--atomic")
	}
	if opts.SetUpstream {
		args = append(args, "--set-upstream")
	}
	args = append(args, remote)
	args = append(args, refspecs...)

	if _, err := r.mutate(ctx, args...); err != nil {
		return fmt.Errorf("failed to push to %s: %w", remote, err)
	}
	return nil
}
