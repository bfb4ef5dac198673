package git

import (
	"context"
	"fmt"
	"strings"
)

// mutate runs a git command that changes repository state.
func (r *Repo) mutate(ctx context.Context, args ...string) (string, error) {
	r.stale = true
	return r.runner.Run(ctx, args...)
}

// CreateRefs creates every ref in a single update-ref transaction: either all
// refs exist afterwards or none do. Creation fails if any ref already exists.
func (r *Repo) CreateRefs(ctx context.Context, updates []RefUpdate) error {
	var b strings.Builder
	b.WriteString("start\n")
	for _, u := range updates {
		name := u.Name
		if !strings.HasPrefix(name, "refs/") {
			name = "refs/heads/" + name
		}
		fmt.Fprintf(&b, "create %s %s\n", name, u.SHA)
	}
	b.WriteString("prepare\ncommit\n")

	r.stale = true
	if _, err := r.runner.RunWithInput(ctx, b.String(), "update-ref", "--stdin"); err != nil {
		return fmt.Errorf("failed to create refs: %w", err)
	}
	return nil
}

// CreateBranch creates a branch at base without checking it out
func (r *Repo) CreateBranch(ctx context.Context, name, base string) error {
	if _, err := r.mutate(ctx, "branch", "--no-track", name, base); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	return nil
}

// Checkout switches the working tree to a branch
func (r *Repo) Checkout(ctx context.Context, name string) error {
	if _, err := r.mutate(ctx, "checkout", "--quiet", name); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", name, err)
	}
	return nil
}

// TrackBranch creates a local branch following remote/name and checks it out
func (r *Repo) TrackBranch(ctx context.Context, name, remote string) error {
	if _, err := r.mutate(ctx, "checkout", "--quiet", "-b", name, "--track", remote+"/"+name); err != nil {
		return fmt.Errorf("failed to track %s/%s: %w", remote, name, err)
	}
	return nil
}

// DeleteBranch deletes a local branch. Without force git refuses to delete
// a branch that is not fully merged.
func (r *Repo) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	if _, err := r.mutate(ctx, "branch", flag, name); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}

// Rebase replays branch onto onto. When upstream is set only the commits in
// upstream..branch are replayed.
func (r *Repo) Rebase(ctx context.Context, onto, upstream, branch string, interactive bool) error {
	args := []string{"rebase"}
	if interactive {
		args = append(args, "-i")
	}
	if upstream != "" {
		args = append(args, "--onto", onto, upstream, branch)
	} else {
		args = append(args, onto, branch)
	}

	r.stale = true
	if interactive {
		return r.runner.RunInteractive(ctx, args...)
	}
	if _, err := r.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to rebase %s onto %s: %w", branch, onto, err)
	}
	return nil
}

// ResetBranch moves branch to sha. When branch is checked out it uses
// reset --keep, which refuses to discard local modifications.
func (r *Repo) ResetBranch(ctx context.Context, branch, sha string) error {
	current, _ := r.CurrentBranch(ctx)
	if current == branch {
		if _, err := r.mutate(ctx, "reset", "--keep", sha); err != nil {
			return fmt.Errorf("failed to reset %s to %s: %w", branch, sha, err)
		}
		return nil
	}
	if _, err := r.mutate(ctx, "update-ref", "-m", "git-flow: rollback", "refs/heads/"+branch, sha); err != nil {
		return fmt.Errorf("failed to reset %s to %s: %w", branch, sha, err)
	}
	return nil
}
