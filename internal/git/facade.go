package git

import "context"

// MergeOptions controls a merge into the checked out branch.
type MergeOptions struct {
	NoFastForward bool
	Message       string
}

// TagOptions describes an annotated tag.
type TagOptions struct {
	Name       string
	Target     string
	Message    string
	Sign       bool
	SigningKey string
}

// PushOptions controls a push.
type PushOptions struct {
	// Atomic asks the remote to apply all refspecs or none.
	Atomic bool
	// SetUpstream configures tracking for pushed branches.
	SetUpstream bool
}

// RefUpdate is one entry of an atomic ref transaction.
type RefUpdate struct {
	Name string
	SHA  string
}

// Facade is the set of repository primitives git-flow relies on. Each call
// succeeds or fails as a single git command.
type Facade interface {
	RepoRoot() string

	// Reads
	CurrentBranch(ctx context.Context) (string, error)
	ResolveRef(ctx context.Context, name string) (string, error)
	RefExists(ctx context.Context, name string) bool
	LocalBranches(ctx context.Context) ([]string, error)
	RemoteBranches(ctx context.Context, remote string) ([]string, error)
	TagExists(ctx context.Context, name string) (bool, error)
	HasRemote(ctx context.Context, remote string) (bool, error)
	FirstParentHistory(ctx context.Context, ref string, limit int) ([]string, error)
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
	IsClean(ctx context.Context) (bool, error)
	Diff(ctx context.Context, from, to string) (string, error)
	Log(ctx context.Context, from, to, format string) (string, error)
	ConfigValue(ctx context.Context, key string) (string, error)

	// Mutations
	CreateRefs(ctx context.Context, updates []RefUpdate) error
	CreateBranch(ctx context.Context, name, base string) error
	Checkout(ctx context.Context, name string) error
	TrackBranch(ctx context.Context, name, remote string) error
	DeleteBranch(ctx context.Context, name string, force bool) error
	Merge(ctx context.Context, source string, opts MergeOptions) error
	FastForward(ctx context.Context, source string) error
	Rebase(ctx context.Context, onto, upstream, branch string, interactive bool) error
	CreateTag(ctx context.Context, opts TagOptions) error
	DeleteTag(ctx context.Context, name string) error
	ResetBranch(ctx context.Context, branch, sha string) error
	Fetch(ctx context.Context, remote string) error
	Push(ctx context.Context, remote string, refspecs []string, opts PushOptions) error
}
