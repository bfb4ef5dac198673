package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gitflow.dev/gitflow/internal/config"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/git"
)

// BranchTypeManager owns the naming convention and lifecycle operations of
// one branch kind.
type BranchTypeManager struct {
	kind      Kind
	repo      git.Facade
	cfg       *config.Config
	ancestors *AncestorResolver
}

// NewBranchTypeManager creates the manager of kind
func NewBranchTypeManager(repo git.Facade, cfg *config.Config, kind Kind) *BranchTypeManager {
	return &BranchTypeManager{
		kind:      kind,
		repo:      repo,
		cfg:       cfg,
		ancestors: NewAncestorResolver(repo, cfg),
	}
}

// Kind returns the managed branch kind
func (m *BranchTypeManager) Kind() Kind {
	return m.kind
}

// Prefix returns the name prefix of the managed kind
func (m *BranchTypeManager) Prefix() string {
	return m.kind.Prefix(m.cfg)
}

// Ref builds the reference for a short name
func (m *BranchTypeManager) Ref(shortName string) BranchRef {
	return BranchRef{
		Kind:      m.kind,
		Prefix:    m.Prefix(),
		ShortName: shortName,
		FullName:  m.Prefix() + shortName,
	}
}

// Owns reports whether a full branch name belongs to the managed kind
func (m *BranchTypeManager) Owns(branch string) bool {
	short, ok := strings.CutPrefix(branch, m.Prefix())
	return ok && short != ""
}

// List returns the local branches of the kind, followed by remote-only ones
// when includeRemote is set
func (m *BranchTypeManager) List(ctx context.Context, includeRemote bool) ([]BranchRef, error) {
	local, err := m.repo.LocalBranches(ctx)
	if err != nil {
		return nil, err
	}
	var refs []BranchRef
	for _, name := range local {
		if m.Owns(name) {
			refs = append(refs, m.Ref(strings.TrimPrefix(name, m.Prefix())))
		}
	}
	if !includeRemote {
		return refs, nil
	}

	remote, err := m.repo.RemoteBranches(ctx, m.cfg.Origin)
	if err != nil {
		return nil, err
	}
	for _, name := range remote {
		if !m.Owns(name) || slices.Contains(local, name) {
			continue
		}
		ref := m.Ref(strings.TrimPrefix(name, m.Prefix()))
		ref.IsRemote = true
		refs = append(refs, ref)
	}
	return refs, nil
}

// CreateOptions controls Create
type CreateOptions struct {
	// Name is the short name, without the kind prefix
	Name string
	// Base defaults to the kind's integration branch
	Base string
	// Fetch updates the remote before checking the base
	Fetch bool
}

// Create creates and checks out a new branch. A feature branch is created
// together with its base marker in one ref transaction.
func (m *BranchTypeManager) Create(ctx context.Context, opts CreateOptions) (BranchRef, error) {
	ref := m.Ref(opts.Name)
	if err := git.ValidateBranchName(ref.FullName); err != nil {
		return BranchRef{}, err
	}

	if opts.Fetch {
		if err := m.repo.Fetch(ctx, m.cfg.Origin); err != nil {
			return BranchRef{}, err
		}
	}

	if m.kind.Singleton() {
		existing, err := m.List(ctx, false)
		if err != nil {
			return BranchRef{}, err
		}
		if len(existing) > 0 {
			return BranchRef{}, &flowerrors.BranchError{
				Sentinel: flowerrors.ErrBranchTypeExists,
				Branch:   existing[0].FullName,
				Detail:   "finish it before starting another " + string(m.kind),
			}
		}
	}

	if m.repo.RefExists(ctx, "refs/heads/"+ref.FullName) {
		return BranchRef{}, flowerrors.NewBranchExistsError(ref.FullName)
	}
	if m.repo.RefExists(ctx, m.remoteRef(ref.FullName)) {
		return BranchRef{}, &flowerrors.BranchError{
			Sentinel: flowerrors.ErrBranchExists,
			Branch:   ref.FullName,
			Detail:   "exists on " + m.cfg.Origin + ", use track",
		}
	}

	base := opts.Base
	if base == "" {
		base = m.kind.DefaultBase(m.cfg)
	}
	baseSHA, err := m.checkBase(ctx, base)
	if err != nil {
		return BranchRef{}, err
	}

	if m.kind == KindFeature {
		err = m.repo.CreateRefs(ctx, []git.RefUpdate{
			{Name: ref.FullName, SHA: baseSHA},
			{Name: ref.MarkerName(), SHA: baseSHA},
		})
	} else {
		err = m.repo.CreateBranch(ctx, ref.FullName, baseSHA)
	}
	if err != nil {
		return BranchRef{}, err
	}
	if err := m.repo.Checkout(ctx, ref.FullName); err != nil {
		return BranchRef{}, err
	}
	return ref, nil
}

// checkBase resolves base and fails when a local base branch lags behind or
// diverged from its remote counterpart
func (m *BranchTypeManager) checkBase(ctx context.Context, base string) (string, error) {
	sha, err := m.repo.ResolveRef(ctx, base)
	if err != nil {
		return "", flowerrors.NewNoSuchBranchError(base)
	}
	if !m.repo.RefExists(ctx, "refs/heads/"+base) {
		return sha, nil
	}
	remote := m.remoteRef(base)
	if !m.repo.RefExists(ctx, remote) {
		return sha, nil
	}
	upToDate, err := m.repo.IsAncestor(ctx, remote, "refs/heads/"+base)
	if err != nil {
		return "", err
	}
	if !upToDate {
		return "", &flowerrors.BranchError{
			Sentinel: flowerrors.ErrBaseNotOnBranch,
			Branch:   base,
			Detail:   fmt.Sprintf("%s/%s has commits %s does not, pull first", m.cfg.Origin, base, base),
		}
	}
	return sha, nil
}

func (m *BranchTypeManager) remoteRef(branch string) string {
	return "refs/remotes/" + m.cfg.Origin + "/" + branch
}

// ResolveByPrefix finds the single branch of the kind whose short name
// starts with partial. An exact name always wins. An empty partial means the
// checked out branch.
func (m *BranchTypeManager) ResolveByPrefix(ctx context.Context, partial string, includeRemote bool) (BranchRef, error) {
	if partial == "" {
		current, err := m.repo.CurrentBranch(ctx)
		if err != nil {
			return BranchRef{}, err
		}
		if !m.Owns(current) {
			return BranchRef{}, &flowerrors.BranchError{
				Sentinel: flowerrors.ErrNoSuchBranch,
				Branch:   current,
				Detail:   "not a " + string(m.kind) + " branch, name one explicitly",
			}
		}
		return m.Ref(strings.TrimPrefix(current, m.Prefix())), nil
	}

	partial = strings.TrimPrefix(partial, m.Prefix())
	refs, err := m.List(ctx, false)
	if err != nil {
		return BranchRef{}, err
	}
	ref, err := pickByPrefix(refs, partial, m.Prefix())
	if err == nil || !includeRemote || !errors.Is(err, flowerrors.ErrNoSuchBranch) {
		return ref, err
	}

	all, err := m.List(ctx, true)
	if err != nil {
		return BranchRef{}, err
	}
	var remoteOnly []BranchRef
	for _, r := range all {
		if r.IsRemote {
			remoteOnly = append(remoteOnly, r)
		}
	}
	return pickByPrefix(remoteOnly, partial, m.Prefix())
}

func pickByPrefix(refs []BranchRef, partial, prefix string) (BranchRef, error) {
	var matches []BranchRef
	for _, r := range refs {
		if r.ShortName == partial {
			return r, nil
		}
		if strings.HasPrefix(r.ShortName, partial) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return BranchRef{}, flowerrors.NewNoSuchBranchError(prefix + partial)
	case 1:
		return matches[0], nil
	}
	names := make([]string, 0, len(matches))
	for _, r := range matches {
		names = append(names, r.FullName)
	}
	return BranchRef{}, &flowerrors.PrefixNotUniqueError{Prefix: prefix + partial, Candidates: names}
}

// Track creates a local branch from its remote counterpart, along with the
// remote base marker of a feature
func (m *BranchTypeManager) Track(ctx context.Context, shortName string) (BranchRef, error) {
	ref := m.Ref(strings.TrimPrefix(shortName, m.Prefix()))
	if m.repo.RefExists(ctx, "refs/heads/"+ref.FullName) {
		return BranchRef{}, flowerrors.NewBranchExistsError(ref.FullName)
	}
	if !m.repo.RefExists(ctx, m.remoteRef(ref.FullName)) {
		return BranchRef{}, flowerrors.NewNoSuchBranchError(m.cfg.Origin + "/" + ref.FullName)
	}

	if m.kind == KindFeature {
		marker := ref.MarkerName()
		if !m.repo.RefExists(ctx, "refs/heads/"+marker) && m.repo.RefExists(ctx, m.remoteRef(marker)) {
			if err := m.repo.CreateBranch(ctx, marker, m.remoteRef(marker)); err != nil {
				return BranchRef{}, err
			}
		}
	}
	if err := m.repo.TrackBranch(ctx, ref.FullName, m.cfg.Origin); err != nil {
		return BranchRef{}, err
	}
	return ref, nil
}

// Publish pushes the branch, and its base marker if any, and sets up
// tracking. Publishing an already published branch pushes nothing new.
func (m *BranchTypeManager) Publish(ctx context.Context, ref BranchRef) (BranchRef, error) {
	if !m.repo.RefExists(ctx, "refs/heads/"+ref.FullName) {
		return BranchRef{}, flowerrors.NewNoSuchBranchError(ref.FullName)
	}
	refspecs := []string{ref.FullName}
	if m.kind == KindFeature && m.repo.RefExists(ctx, "refs/heads/"+ref.MarkerName()) {
		refspecs = append(refspecs, ref.MarkerName())
	}
	if err := m.repo.Push(ctx, m.cfg.Origin, refspecs, git.PushOptions{SetUpstream: true}); err != nil {
		return BranchRef{}, err
	}
	return ref, nil
}

// Delete removes the branch and its base marker. Unless force is set git
// refuses to delete a branch that is not merged into the checked out one.
func (m *BranchTypeManager) Delete(ctx context.Context, ref BranchRef, force bool) error {
	if err := m.repo.DeleteBranch(ctx, ref.FullName, force); err != nil {
		return err
	}
	if m.repo.RefExists(ctx, "refs/heads/"+ref.MarkerName()) {
		return m.repo.DeleteBranch(ctx, ref.MarkerName(), true)
	}
	return nil
}

// DeleteRemote deletes the branch and its base marker from the remote
func (m *BranchTypeManager) DeleteRemote(ctx context.Context, ref BranchRef) error {
	refspecs := []string{":" + ref.FullName}
	if m.repo.RefExists(ctx, m.remoteRef(ref.MarkerName())) {
		refspecs = append(refspecs, ":"+ref.MarkerName())
	}
	return m.repo.Push(ctx, m.cfg.Origin, refspecs, git.PushOptions{})
}

// Pull fetches the remote and fast-forwards the local branch to it, creating
// the local branch when it only exists remotely
func (m *BranchTypeManager) Pull(ctx context.Context, ref BranchRef) (BranchRef, error) {
	if err := m.repo.Fetch(ctx, m.cfg.Origin); err != nil {
		return BranchRef{}, err
	}
	if !m.repo.RefExists(ctx, "refs/heads/"+ref.FullName) {
		return m.Track(ctx, ref.ShortName)
	}
	if !m.repo.RefExists(ctx, m.remoteRef(ref.FullName)) {
		return BranchRef{}, flowerrors.NewNoSuchBranchError(m.cfg.Origin + "/" + ref.FullName)
	}
	if err := m.repo.Checkout(ctx, ref.FullName); err != nil {
		return BranchRef{}, err
	}
	if err := m.repo.FastForward(ctx, m.remoteRef(ref.FullName)); err != nil {
		return BranchRef{}, err
	}
	return ref, nil
}

// Upstream returns the branch ref is merged into on finish
func (m *BranchTypeManager) Upstream() string {
	return m.kind.DefaultBase(m.cfg)
}

// Ancestor returns the commit ref diverged from upstream
func (m *BranchTypeManager) Ancestor(ctx context.Context, ref BranchRef, upstream string) (string, error) {
	if upstream == "" {
		upstream = m.Upstream()
	}
	return m.ancestors.Resolve(ctx, ref.FullName, upstream)
}

// Diff returns the changes made on ref since it diverged from upstream
func (m *BranchTypeManager) Diff(ctx context.Context, ref BranchRef, upstream string) (string, error) {
	base, err := m.Ancestor(ctx, ref, upstream)
	if err != nil {
		return "", err
	}
	return m.repo.Diff(ctx, base, ref.FullName)
}

// Rebase replays the commits of ref onto the current tip of upstream and
// moves the base marker along
func (m *BranchTypeManager) Rebase(ctx context.Context, ref BranchRef, upstream string, interactive bool) error {
	if upstream == "" {
		upstream = m.Upstream()
	}
	base, err := m.Ancestor(ctx, ref, upstream)
	if err != nil {
		return err
	}
	onto, err := m.repo.ResolveRef(ctx, upstream)
	if err != nil {
		return flowerrors.NewNoSuchBranchError(upstream)
	}
	if err := m.repo.Rebase(ctx, onto, base, ref.FullName, interactive); err != nil {
		return err
	}
	if m.kind == KindFeature && m.repo.RefExists(ctx, "refs/heads/"+ref.MarkerName()) {
		return m.repo.ResetBranch(ctx, ref.MarkerName(), onto)
	}
	return nil
}
