package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo implements Facade on top of go-git and the git binary.
type Repo struct {
	repo   *gogit.Repository
	runner *CommandRunner
	root   string
	// stale is set by every mutation; go-git caches pack indexes, so objects
	// written by the git binary are only visible after reopening.
	stale bool
}

var _ Facade = (*Repo)(nil)

// OpenRepo opens the repository containing path.
func OpenRepo(path string, env ...string) (*Repo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := openGoGit(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	root := absPath
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}

	return &Repo{
		repo:   repo,
		runner: NewCommandRunner(root, env...),
		root:   root,
	}, nil
}

func openGoGit(path string) (*gogit.Repository, error) {
	return gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

func (r *Repo) git() *gogit.Repository {
	if r.stale {
		if repo, err := openGoGit(r.root); err == nil {
			r.repo = repo
			r.stale = false
		}
	}
	return r.repo
}

// RepoRoot returns the root directory of the working tree
func (r *Repo) RepoRoot() string {
	return r.root
}

// Runner exposes the command runner for callers that need raw git access.
func (r *Repo) Runner() *CommandRunner {
	return r.runner
}

// CurrentBranch returns the checked out branch name
func (r *Repo) CurrentBranch(_ context.Context) (string, error) {
	head, err := r.git().Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("HEAD is not on a branch")
	}
	return head.Name().Short(), nil
}

// candidateRefNames lists the full ref names a short name may refer to.
// Branches are tried before tags so a release tag never shadows its branch.
func candidateRefNames(name string) []plumbing.ReferenceName {
	if strings.HasPrefix(name, "refs/") {
		return []plumbing.ReferenceName{plumbing.ReferenceName(name)}
	}
	return []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(name),
		plumbing.ReferenceName("refs/remotes/" + name),
		plumbing.NewTagReferenceName(name),
	}
}

// ResolveRef returns the commit SHA a ref or SHA points to. Annotated tags
// are peeled to their commit.
func (r *Repo) ResolveRef(_ context.Context, name string) (string, error) {
	if plumbing.IsHash(name) {
		if _, err := r.git().CommitObject(plumbing.NewHash(name)); err != nil {
			return "", fmt.Errorf("unknown commit %s: %w", name, err)
		}
		return name, nil
	}
	for _, refName := range candidateRefNames(name) {
		ref, err := r.git().Reference(refName, true)
		if err != nil {
			continue
		}
		hash := ref.Hash()
		if tag, err := r.git().TagObject(hash); err == nil {
			commit, err := tag.Commit()
			if err != nil {
				return "", fmt.Errorf("failed to peel tag %s: %w", name, err)
			}
			hash = commit.Hash
		}
		return hash.String(), nil
	}
	return "", fmt.Errorf("ref %s not found: %w", name, plumbing.ErrReferenceNotFound)
}

// RefExists reports whether name resolves to a commit.
func (r *Repo) RefExists(ctx context.Context, name string) bool {
	_, err := r.ResolveRef(ctx, name)
	return err == nil
}

// LocalBranches returns all local branch names, sorted
func (r *Repo) LocalBranches(_ context.Context) ([]string, error) {
	branches, err := r.git().Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to get branches: %w", err)
	}
	var names []string
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate branches: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// RemoteBranches returns the branch names known for remote, without the
// remote prefix, sorted.
func (r *Repo) RemoteBranches(_ context.Context, remote string) ([]string, error) {
	refs, err := r.git().References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	prefix := "refs/remotes/" + remote + "/"
	var names []string
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		full := ref.Name().String()
		if !strings.HasPrefix(full, prefix) || ref.Type() != plumbing.HashReference {
			return nil
		}
		short := strings.TrimPrefix(full, prefix)
		if short != "HEAD" {
			names = append(names, short)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// TagExists reports whether refs/tags/name exists
func (r *Repo) TagExists(_ context.Context, name string) (bool, error) {
	_, err := r.git().Reference(plumbing.NewTagReferenceName(name), false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up tag %s: %w", name, err)
	}
	return true, nil
}

// HasRemote reports whether a remote is configured
func (r *Repo) HasRemote(_ context.Context, remote string) (bool, error) {
	_, err := r.git().Remote(remote)
	if errors.Is(err, gogit.ErrRemoteNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up remote %s: %w", remote, err)
	}
	return true, nil
}

// FirstParentHistory walks the first-parent chain from ref, newest first.
// A limit of zero walks the whole chain.
func (r *Repo) FirstParentHistory(ctx context.Context, ref string, limit int) ([]string, error) {
	sha, err := r.ResolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	commit, err := r.git().CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", sha, err)
	}

	var history []string
	for commit != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		history = append(history, commit.Hash.String())
		if limit > 0 && len(history) >= limit {
			break
		}
		if commit.NumParents() == 0 {
			break
		}
		commit, err = commit.Parent(0)
		if err != nil {
			if errors.Is(err, object.ErrParentNotFound) {
				break
			}
			return nil, fmt.Errorf("failed to walk history of %s: %w", ref, err)
		}
	}
	return history, nil
}

// IsAncestor reports whether ancestor is reachable from descendant
func (r *Repo) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	ancestorSHA, err := r.ResolveRef(ctx, ancestor)
	if err != nil {
		return false, fmt.Errorf("failed to resolve ancestor ref: %w", err)
	}
	descendantSHA, err := r.ResolveRef(ctx, descendant)
	if err != nil {
		return false, fmt.Errorf("failed to resolve descendant ref: %w", err)
	}
	if ancestorSHA == descendantSHA {
		return true, nil
	}

	ancestorCommit, err := r.git().CommitObject(plumbing.NewHash(ancestorSHA))
	if err != nil {
		return false, fmt.Errorf("failed to get ancestor commit: %w", err)
	}
	descendantCommit, err := r.git().CommitObject(plumbing.NewHash(descendantSHA))
	if err != nil {
		return false, fmt.Errorf("failed to get descendant commit: %w", err)
	}
	return ancestorCommit.IsAncestor(descendantCommit)
}

// IsClean reports whether tracked files have no uncommitted changes.
// Untracked files are ignored.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	out, err := r.runner.Run(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// Diff returns the patch between two revisions
func (r *Repo) Diff(ctx context.Context, from, to string) (string, error) {
	return r.runner.RunRaw(ctx, "diff", "--full-index", from+".."+to)
}

// Log renders the commits in from..to with a git pretty format
func (r *Repo) Log(ctx context.Context, from, to, format string) (string, error) {
	return r.runner.RunRaw(ctx, "log", "--pretty="+format, from+".."+to)
}

// ConfigValue reads a git config key, returning "" when unset
func (r *Repo) ConfigValue(ctx context.Context, key string) (string, error) {
	out, err := r.runner.Run(ctx, "config", "--get", key)
	if err != nil {
		// git config exits 1 for a missing key
		return "", nil
	}
	return out, nil
}
