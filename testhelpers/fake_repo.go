package testhelpers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/git"
)

type fakeCommit struct {
	parents []string
	message string
}

// FakeRepo is an in-memory git.Facade. Failures can be injected per
// operation name ("Merge", "CreateTag", "Push", ...) through Fail, and merge
// conflicts per source/target pair through Conflict.
type FakeRepo struct {
	mu         sync.Mutex
	commits    map[string]*fakeCommit
	branches   map[string]string
	remoteRefs map[string]string
	tags       map[string]string
	remoteTags map[string]string
	current    string
	counter    int

	Origin string
	// Root is returned by RepoRoot; state files are written below Root/.git
	Root  string
	Dirty bool
	// Failures maps an operation name to the error it returns
	Failures map[string]error
	// Conflicts holds "source->target" merges that conflict
	Conflicts map[string]bool
	// Calls records every mutation, e.g. "Merge release/1.0.0 into develop"
	Calls []string
	// Pushes records the refspecs of every successful push
	Pushes [][]string
}

var _ git.Facade = (*FakeRepo)(nil)

// NewFakeRepo creates a repository with one commit on master and develop,
// master checked out, and an origin that mirrors both
func NewFakeRepo() *FakeRepo {
	f := &FakeRepo{
		commits:    map[string]*fakeCommit{},
		branches:   map[string]string{},
		remoteRefs: map[string]string{},
		tags:       map[string]string{},
		remoteTags: map[string]string{},
		Origin:     "origin",
		Failures:   map[string]error{},
		Conflicts:  map[string]bool{},
	}
	root := f.newCommit("initial")
	f.branches["master"] = root
	f.branches["develop"] = root
	f.remoteRefs["master"] = root
	f.remoteRefs["develop"] = root
	f.current = "master"
	return f
}

func (f *FakeRepo) newCommit(message string, parents ...string) string {
	f.counter++
	sha := fmt.Sprintf("%040x", f.counter)
	f.commits[sha] = &fakeCommit{parents: parents, message: message}
	return sha
}

// Commit adds a commit on branch and returns its sha
func (f *FakeRepo) Commit(branch, message string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tip, ok := f.branches[branch]
	if !ok {
		panic("fake repo: no branch " + branch)
	}
	sha := f.newCommit(message, tip)
	f.branches[branch] = sha
	return sha
}

// SetBranch points a local branch at sha, creating it if needed
func (f *FakeRepo) SetBranch(name, sha string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches[name] = sha
}

// SetRemoteBranch points origin/name at sha; an empty sha deletes it
func (f *FakeRepo) SetRemoteBranch(name, sha string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sha == "" {
		delete(f.remoteRefs, name)
		return
	}
	f.remoteRefs[name] = sha
}

// Branch returns the tip of a local branch, or ""
func (f *FakeRepo) Branch(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branches[name]
}

// RemoteBranch returns the tip of origin/name, or ""
func (f *FakeRepo) RemoteBranch(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remoteRefs[name]
}

// Tag returns the commit a tag points at, or ""
func (f *FakeRepo) Tag(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[name]
}

// RemoteTag returns the commit a pushed tag points at, or ""
func (f *FakeRepo) RemoteTag(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remoteTags[name]
}

// Parents returns the parents of a commit
func (f *FakeRepo) Parents(sha string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.commits[sha]; ok {
		return append([]string(nil), c.parents...)
	}
	return nil
}

func (f *FakeRepo) fail(op string) error {
	if err, ok := f.Failures[op]; ok {
		return err
	}
	return nil
}

func (f *FakeRepo) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *FakeRepo) resolve(name string) (string, bool) {
	if _, ok := f.commits[name]; ok {
		return name, true
	}
	switch {
	case strings.HasPrefix(name, "refs/heads/"):
		sha, ok := f.branches[strings.TrimPrefix(name, "refs/heads/")]
		return sha, ok
	case strings.HasPrefix(name, "refs/tags/"):
		sha, ok := f.tags[strings.TrimPrefix(name, "refs/tags/")]
		return sha, ok
	case strings.HasPrefix(name, "refs/remotes/"+f.Origin+"/"):
		sha, ok := f.remoteRefs[strings.TrimPrefix(name, "refs/remotes/"+f.Origin+"/")]
		return sha, ok
	}
	if sha, ok := f.branches[name]; ok {
		return sha, true
	}
	if rest, ok := strings.CutPrefix(name, f.Origin+"/"); ok {
		if sha, ok := f.remoteRefs[rest]; ok {
			return sha, true
		}
	}
	sha, ok := f.tags[name]
	return sha, ok
}

// RepoRoot returns Root, or a fixed fake path
func (f *FakeRepo) RepoRoot() string {
	if f.Root != "" {
		return f.Root
	}
	return "/fake"
}

// CurrentBranch returns the checked out branch
func (f *FakeRepo) CurrentBranch(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

// ResolveRef resolves branches, origin branches, tags and shas
func (f *FakeRepo) ResolveRef(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sha, ok := f.resolve(name); ok {
		return sha, nil
	}
	return "", fmt.Errorf("ref %s not found", name)
}

// RefExists reports whether name resolves
func (f *FakeRepo) RefExists(_ context.Context, name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.resolve(name)
	return ok
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LocalBranches returns local branch names, sorted
func (f *FakeRepo) LocalBranches(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedKeys(f.branches), nil
}

// RemoteBranches returns origin branch names, sorted
func (f *FakeRepo) RemoteBranches(_ context.Context, remote string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if remote != f.Origin {
		return nil, nil
	}
	return sortedKeys(f.remoteRefs), nil
}

// TagExists reports whether a local tag exists
func (f *FakeRepo) TagExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tags[name]
	return ok, nil
}

// HasRemote reports whether remote is the fake origin
func (f *FakeRepo) HasRemote(_ context.Context, remote string) (bool, error) {
	return remote == f.Origin, nil
}

// FirstParentHistory walks first parents, newest first
func (f *FakeRepo) FirstParentHistory(_ context.Context, ref string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sha, ok := f.resolve(ref)
	if !ok {
		return nil, fmt.Errorf("ref %s not found", ref)
	}
	var out []string
	for sha != "" {
		out = append(out, sha)
		if limit > 0 && len(out) >= limit {
			break
		}
		parents := f.commits[sha].parents
		if len(parents) == 0 {
			break
		}
		sha = parents[0]
	}
	return out, nil
}

func (f *FakeRepo) reachable(from string) map[string]bool {
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		sha := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if sha == "" || seen[sha] {
			continue
		}
		seen[sha] = true
		stack = append(stack, f.commits[sha].parents...)
	}
	return seen
}

// IsAncestor reports whether ancestor is reachable from descendant
func (f *FakeRepo) IsAncestor(_ context.Context, ancestor, descendant string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.resolve(ancestor)
	if !ok {
		return false, fmt.Errorf("ref %s not found", ancestor)
	}
	d, ok := f.resolve(descendant)
	if !ok {
		return false, fmt.Errorf("ref %s not found", descendant)
	}
	return f.reachable(d)[a], nil
}

// IsClean reports the Dirty flag
func (f *FakeRepo) IsClean(context.Context) (bool, error) {
	return !f.Dirty, nil
}

// rangeCommits lists commits reachable from to but not from from, newest first
func (f *FakeRepo) rangeCommits(from, to string) ([]string, error) {
	fromSHA, ok := f.resolve(from)
	if !ok {
		return nil, fmt.Errorf("ref %s not found", from)
	}
	toSHA, ok := f.resolve(to)
	if !ok {
		return nil, fmt.Errorf("ref %s not found", to)
	}
	exclude := f.reachable(fromSHA)
	var out []string
	for sha := range f.reachable(toSHA) {
		if !exclude[sha] {
			out = append(out, sha)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Diff renders one line per commit in from..to
func (f *FakeRepo) Diff(_ context.Context, from, to string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	shas, err := f.rangeCommits(from, to)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, sha := range shas {
		fmt.Fprintf(&b, "+%s\n", f.commits[sha].message)
	}
	return b.String(), nil
}

// Log renders the subjects of from..to, newest first; format is ignored
func (f *FakeRepo) Log(_ context.Context, from, to, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	shas, err := f.rangeCommits(from, to)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, sha := range shas {
		lines = append(lines, f.commits[sha].message)
	}
	return strings.Join(lines, "\n"), nil
}

// ConfigValue returns ""
func (f *FakeRepo) ConfigValue(context.Context, string) (string, error) {
	return "", nil
}

// CreateRefs creates every ref or none
func (f *FakeRepo) CreateRefs(_ context.Context, updates []git.RefUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateRefs"); err != nil {
		return err
	}
	for _, u := range updates {
		name := strings.TrimPrefix(u.Name, "refs/heads/")
		if _, ok := f.branches[name]; ok {
			return flowerrors.NewBranchExistsError(name)
		}
		if _, ok := f.commits[u.SHA]; !ok {
			return fmt.Errorf("unknown commit %s", u.SHA)
		}
	}
	for _, u := range updates {
		f.branches[strings.TrimPrefix(u.Name, "refs/heads/")] = u.SHA
		f.record("CreateRef %s", u.Name)
	}
	return nil
}

// CreateBranch creates name at base
func (f *FakeRepo) CreateBranch(_ context.Context, name, base string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateBranch"); err != nil {
		return err
	}
	if _, ok := f.branches[name]; ok {
		return flowerrors.NewBranchExistsError(name)
	}
	sha, ok := f.resolve(base)
	if !ok {
		return fmt.Errorf("ref %s not found", base)
	}
	f.branches[name] = sha
	f.record("CreateBranch %s from %s", name, base)
	return nil
}

// Checkout switches the current branch
func (f *FakeRepo) Checkout(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Checkout"); err != nil {
		return err
	}
	if _, ok := f.branches[name]; !ok {
		return flowerrors.NewNoSuchBranchError(name)
	}
	f.current = name
	f.record("Checkout %s", name)
	return nil
}

// TrackBranch creates a local branch from origin/name and checks it out
func (f *FakeRepo) TrackBranch(_ context.Context, name, remote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.branches[name]; ok {
		return flowerrors.NewBranchExistsError(name)
	}
	sha, ok := f.remoteRefs[name]
	if !ok || remote != f.Origin {
		return flowerrors.NewNoSuchBranchError(remote + "/" + name)
	}
	f.branches[name] = sha
	f.current = name
	f.record("TrackBranch %s", name)
	return nil
}

// DeleteBranch removes a local branch
func (f *FakeRepo) DeleteBranch(_ context.Context, name string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteBranch"); err != nil {
		return err
	}
	sha, ok := f.branches[name]
	if !ok {
		return flowerrors.NewNoSuchBranchError(name)
	}
	if name == f.current {
		return fmt.Errorf("cannot delete the checked out branch %s", name)
	}
	if !force && !f.reachable(f.branches[f.current])[sha] {
		return fmt.Errorf("branch %s is not fully merged", name)
	}
	delete(f.branches, name)
	f.record("DeleteBranch %s", name)
	return nil
}

// Merge merges source into the current branch
func (f *FakeRepo) Merge(_ context.Context, source string, opts git.MergeOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target := f.current
	if f.Conflicts[source+"->"+target] {
		return &flowerrors.MergeConflictError{Source: source, Target: target}
	}
	if err := f.fail("Merge"); err != nil {
		return err
	}
	src, ok := f.resolve(source)
	if !ok {
		return fmt.Errorf("ref %s not found", source)
	}
	tip := f.branches[target]
	f.record("Merge %s into %s", source, target)
	switch {
	case f.reachable(tip)[src]:
		return nil
	case f.reachable(src)[tip] && !opts.NoFastForward:
		f.branches[target] = src
	default:
		msg := opts.Message
		if msg == "" {
			msg = fmt.Sprintf("Merge branch '%s' into %s", source, target)
		}
		f.branches[target] = f.newCommit(msg, tip, src)
	}
	return nil
}

// FastForward advances the current branch to source
func (f *FakeRepo) FastForward(_ context.Context, source string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FastForward"); err != nil {
		return err
	}
	src, ok := f.resolve(source)
	if !ok {
		return fmt.Errorf("ref %s not found", source)
	}
	if !f.reachable(src)[f.branches[f.current]] {
		return fmt.Errorf("cannot fast-forward %s to %s", f.current, source)
	}
	f.branches[f.current] = src
	f.record("FastForward %s to %s", f.current, source)
	return nil
}

// Rebase replays the commits of branch that are not in upstream onto onto
func (f *FakeRepo) Rebase(_ context.Context, onto, upstream, branch string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Rebase"); err != nil {
		return err
	}
	if upstream == "" {
		upstream = onto
	}
	shas, err := f.rangeCommits(upstream, branch)
	if err != nil {
		return err
	}
	base, ok := f.resolve(onto)
	if !ok {
		return fmt.Errorf("ref %s not found", onto)
	}
	sort.Strings(shas)
	for _, sha := range shas {
		base = f.newCommit(f.commits[sha].message, base)
	}
	f.branches[branch] = base
	f.current = branch
	f.record("Rebase %s onto %s", branch, onto)
	return nil
}

// CreateTag tags target, or the current branch
func (f *FakeRepo) CreateTag(_ context.Context, opts git.TagOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateTag"); err != nil {
		return err
	}
	if _, ok := f.tags[opts.Name]; ok {
		return fmt.Errorf("%w: %s", flowerrors.ErrTagExists, opts.Name)
	}
	target := opts.Target
	if target == "" {
		target = f.current
	}
	sha, ok := f.resolve(target)
	if !ok {
		return fmt.Errorf("ref %s not found", target)
	}
	f.tags[opts.Name] = sha
	f.record("CreateTag %s", opts.Name)
	return nil
}

// DeleteTag removes a local tag
func (f *FakeRepo) DeleteTag(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteTag"); err != nil {
		return err
	}
	if _, ok := f.tags[name]; !ok {
		return fmt.Errorf("tag %s not found", name)
	}
	delete(f.tags, name)
	f.record("DeleteTag %s", name)
	return nil
}

// ResetBranch points branch at sha
func (f *FakeRepo) ResetBranch(_ context.Context, branch, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ResetBranch"); err != nil {
		return err
	}
	if _, ok := f.commits[sha]; !ok {
		return fmt.Errorf("unknown commit %s", sha)
	}
	f.branches[branch] = sha
	f.record("ResetBranch %s", branch)
	return nil
}

// Fetch records the call
func (f *FakeRepo) Fetch(_ context.Context, remote string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Fetch"); err != nil {
		return err
	}
	f.record("Fetch %s", remote)
	return nil
}

// Push applies refspecs to the fake origin, all or nothing
func (f *FakeRepo) Push(_ context.Context, remote string, refspecs []string, _ git.PushOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(refspecs) == 0 {
		return nil
	}
	if err := f.fail("Push"); err != nil {
		return err
	}
	if remote != f.Origin {
		return fmt.Errorf("%w: %s", flowerrors.ErrNoSuchRemote, remote)
	}

	type update struct {
		tag    bool
		name   string
		sha    string
		delete bool
	}
	var updates []update
	for _, spec := range refspecs {
		src, dst, hasDst := strings.Cut(spec, ":")
		if !hasDst {
			dst = src
		}
		if src == "" {
			name := strings.TrimPrefix(dst, "refs/heads/")
			updates = append(updates, update{name: name, delete: true})
			continue
		}
		sha, ok := f.resolve(src)
		if !ok {
			return fmt.Errorf("src refspec %s does not match any", src)
		}
		if tag, ok := strings.CutPrefix(dst, "refs/tags/"); ok {
			updates = append(updates, update{tag: true, name: tag, sha: sha})
			continue
		}
		updates = append(updates, update{name: strings.TrimPrefix(dst, "refs/heads/"), sha: sha})
	}
	for _, u := range updates {
		switch {
		case u.tag:
			f.remoteTags[u.name] = u.sha
		case u.delete:
			delete(f.remoteRefs, u.name)
		default:
			f.remoteRefs[u.name] = u.sha
		}
	}
	f.Pushes = append(f.Pushes, append([]string(nil), refspecs...))
	f.record("Push %s", strings.Join(refspecs, " "))
	return nil
}
