package git

import (
	"fmt"
	"strings"

	flowerrors "gitflow.dev/gitflow/internal/errors"
)

// HasBranchPrefix reports whether name equals prefix or continues it at a
// name boundary, so feature/42 matches feature/42-login and feature/42/login
// but not feature/420.
func HasBranchPrefix(name, prefix string) bool {
	if prefix == "" {
		return false
	}
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return false
	}
	if rest == "" || strings.HasSuffix(prefix, "/") || strings.HasSuffix(prefix, "-") {
		return true
	}
	return rest[0] == '/' || rest[0] == '-'
}

// ValidateBranchName applies the subset of git check-ref-format rules that
// matter for names typed by an operator
func ValidateBranchName(name string) error {
	bad := func(reason string) error {
		return fmt.Errorf("%w: %q %s", flowerrors.ErrIllegalBranchName, name, reason)
	}
	switch {
	case name == "":
		return bad("is empty")
	case strings.HasPrefix(name, "-"):
		return bad("starts with '-'")
	case strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/"):
		return bad("starts or ends with '/'")
	case strings.HasSuffix(name, ".lock") || strings.HasSuffix(name, "."):
		return bad("ends with '.' or '.lock'")
	case strings.Contains(name, "..") || strings.Contains(name, "//") || strings.Contains(name, "@{"):
		return bad("contains '..', '//' or '@{'")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\", r) {
			return bad(fmt.Sprintf("contains %q", r))
		}
	}
	return nil
}
