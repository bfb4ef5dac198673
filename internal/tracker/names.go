package tracker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	flowerrors "gitflow.dev/gitflow/internal/errors"
)

var (
	prefixedIDPattern = regexp.MustCompile(`^[^/]+/([0-9]+)[/-]?.*$`)
	bareIDPattern     = regexp.MustCompile(`^([0-9]+)[/-]?.*$`)
	boldPattern       = regexp.MustCompile(`^.*\*(.+)\*.*$`)
	nonSlugChars      = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators    = regexp.MustCompile(`[-\s]+`)
)

// DefaultSlugLength is the longest slug suggested for a branch name
const DefaultSlugLength = 25

// ItemIDFromBranch extracts the work item id from a branch name such as
// feature/123/login or 123-login
func ItemIDFromBranch(name string) (int64, error) {
	m := bareIDPattern.FindStringSubmatch(name)
	if m == nil {
		m = prefixedIDPattern.FindStringSubmatch(name)
	}
	if m == nil {
		return 0, fmt.Errorf("%w: no work item id in %q", flowerrors.ErrIllegalBranchName, name)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", flowerrors.ErrIllegalBranchName, name, err)
	}
	return id, nil
}

// BoldPart returns the *bold* part of an item name, or the whole name
func BoldPart(name string) string {
	if !strings.Contains(name, "*") {
		return name
	}
	return boldPattern.ReplaceAllString(name, "$1")
}

// Slugify turns an item name into a branch-safe slug of at most maxLength
// characters, cutting at the last dash when truncating
func Slugify(name string, maxLength int) string {
	value := strings.ToLower(strings.TrimSpace(nonSlugChars.ReplaceAllString(name, "")))
	value = slugSeparators.ReplaceAllString(value, "-")
	if len(value) <= maxLength {
		return value
	}
	value = value[:maxLength]
	if i := strings.LastIndex(value, "-"); i >= 0 {
		return value[:i]
	}
	return value[:len(value)-1]
}

// ValidateSlug refuses slugs containing whitespace or '/'
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: empty slug", flowerrors.ErrIllegalBranchName)
	}
	for _, r := range slug {
		if unicode.IsSpace(r) || r == '/' {
			return fmt.Errorf("%w: the slug must not contain whitespace or '/'", flowerrors.ErrIllegalBranchName)
		}
	}
	return nil
}
