package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"gitflow.dev/gitflow/internal/config"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/git"
)

// AncestorResolver finds the commit a topic branch diverged from its
// upstream.
type AncestorResolver struct {
	repo git.Facade
	cfg  *config.Config
}

// NewAncestorResolver creates a resolver. cfg.Ancestor.MaxHistory bounds the
// first-parent window of markerless resolution.
func NewAncestorResolver(repo git.Facade, cfg *config.Config) *AncestorResolver {
	return &AncestorResolver{repo: repo, cfg: cfg}
}

// Marker returns the sha of the base marker of topic, looking at the local
// marker first and then the remote one.
func (a *AncestorResolver) Marker(ctx context.Context, topic string) (string, bool) {
	kind, short, ok := KindOf(a.cfg, topic)
	if !ok {
		return "", false
	}
	marker := MarkerName(kind, short)
	for _, ref := range []string{"refs/heads/" + marker, "refs/remotes/" + a.cfg.Origin + "/" + marker} {
		if sha, err := a.repo.ResolveRef(ctx, ref); err == nil {
			return sha, true
		}
	}
	return "", false
}

// Resolve returns the divergence commit of topic and upstream. A base marker
// answers exactly; without one the first-parent histories are compared.
func (a *AncestorResolver) Resolve(ctx context.Context, topic, upstream string) (string, error) {
	if sha, ok := a.Marker(ctx, topic); ok {
		return sha, nil
	}
	return a.fromHistory(ctx, topic, upstream)
}

// fromHistory is best effort: it only sees the mainline of both branches
// and cannot tell a rewritten commit from a new one.
func (a *AncestorResolver) fromHistory(ctx context.Context, topic, upstream string) (string, error) {
	topicSHA, err := a.repo.ResolveRef(ctx, topic)
	if err != nil {
		return "", flowerrors.NewNoSuchBranchError(topic)
	}
	upstreamSHA, err := a.repo.ResolveRef(ctx, upstream)
	if err != nil {
		return "", flowerrors.NewNoSuchBranchError(upstream)
	}
	if topicSHA == upstreamSHA {
		return "", fmt.Errorf("%w: %s and %s", flowerrors.ErrEmptyHistory, topic, upstream)
	}

	limit := a.cfg.Ancestor.MaxHistory
	upstreamHistory, err := a.repo.FirstParentHistory(ctx, upstream, limit)
	if err != nil {
		return "", err
	}
	topicHistory, err := a.repo.FirstParentHistory(ctx, topic, limit)
	if err != nil {
		return "", err
	}

	sha, ok := divergence(upstreamHistory, topicHistory)
	if !ok {
		return "", fmt.Errorf("%w: %s has no history in common with %s", flowerrors.ErrAncestorNotFound, topic, upstream)
	}
	return sha, nil
}

// divergence diffs two newest-first histories line by line and returns the
// last commit of the first common run, which is the commit right before the
// sequences disagree.
func divergence(upstream, topic []string) (string, bool) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(historyText(upstream), historyText(topic))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var common string
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			common = d.Text
			continue
		}
		// Histories cut off by the window may disagree before they first agree
		if common != "" {
			break
		}
	}
	if common == "" {
		return "", false
	}
	common = strings.TrimSuffix(common, "\n")
	return common[strings.LastIndex(common, "\n")+1:], true
}

// historyText renders a newest-first history oldest first, one sha per line
func historyText(history []string) string {
	oldestFirst := slices.Clone(history)
	slices.Reverse(oldestFirst)
	var b strings.Builder
	for _, sha := range oldestFirst {
		b.WriteString(sha)
		b.WriteByte('\n')
	}
	return b.String()
}
