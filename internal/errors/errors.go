// Package errors provides sentinel errors and custom error types for git-flow.
// Use errors.Is() and errors.As() to check for specific error types, and
// KindOf to decide how a failure should be handled.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can decide between abort and rollback.
type Kind int

const (
	// KindUnknown is any error this package does not classify.
	KindUnknown Kind = iota
	// KindUsage is a malformed invocation.
	KindUsage
	// KindStatus is a violated workflow precondition.
	KindStatus
	// KindObject is a missing or ambiguous branch, tag, remote or review.
	KindObject
	// KindOperations is a subprocess or network failure.
	KindOperations
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindStatus:
		return "status"
	case KindObject:
		return "object"
	case KindOperations:
		return "operations"
	default:
		return "unknown"
	}
}

// Status errors
var (
	ErrNotInitialized         = errors.New("git-flow is not initialized in this repository")
	ErrAlreadyInitialized     = errors.New("git-flow is already initialized in this repository")
	ErrWorkdirDirty           = errors.New("working directory has uncommitted changes")
	ErrMergeConflict          = errors.New("merge conflict")
	ErrReviewNotAccepted      = errors.New("review has not been accepted yet")
	ErrPreconditionFailed     = errors.New("release is not ready")
	ErrReleaseAlreadyAssigned = errors.New("work item already assigned to a release")
	ErrBranchNotUpToDate      = errors.New("branch is behind its remote counterpart")
	ErrEmptyHistory           = errors.New("branches point to the same commit")
	ErrEmptyRelease           = errors.New("no work items are assigned to the release")
	ErrPushIncomplete         = errors.New("final push did not complete")
	ErrBlocked                = errors.New("work item is blocked")
)

// Object errors
var (
	ErrNoSuchBranch           = errors.New("no such branch")
	ErrNoSuchRemote           = errors.New("no such remote")
	ErrPrefixNotUnique        = errors.New("prefix is not unique")
	ErrBranchExists           = errors.New("branch already exists")
	ErrBranchTypeExists       = errors.New("an unfinished branch of this type already exists")
	ErrBaseNotOnBranch        = errors.New("base is not up to date with its remote")
	ErrTagExists              = errors.New("tag already exists")
	ErrAncestorNotFound       = errors.New("common ancestor not found")
	ErrMultipleReviewRequests = errors.New("multiple review requests for branch")
	ErrTooManyResults         = errors.New("too many review requests")
	ErrNoSuchItem             = errors.New("no such work item")
	ErrNoSuchDeployJob        = errors.New("no deploy job configured")
)

// Usage errors
var (
	ErrIllegalVersion    = errors.New("illegal version format")
	ErrIllegalBranchName = errors.New("illegal branch name")
	ErrNotInteractive    = errors.New("input required but terminal is not interactive")
	ErrIllegalDeploy     = errors.New("branch cannot be deployed to this environment")
)

var statusErrors = []error{
	ErrNotInitialized, ErrAlreadyInitialized, ErrWorkdirDirty, ErrMergeConflict,
	ErrReviewNotAccepted, ErrPreconditionFailed, ErrReleaseAlreadyAssigned,
	ErrBranchNotUpToDate, ErrEmptyHistory, ErrEmptyRelease, ErrPushIncomplete, ErrBlocked,
}

var objectErrors = []error{
	ErrNoSuchBranch, ErrNoSuchRemote, ErrPrefixNotUnique, ErrBranchExists,
	ErrBranchTypeExists, ErrBaseNotOnBranch, ErrTagExists, ErrAncestorNotFound,
	ErrMultipleReviewRequests, ErrTooManyResults, ErrNoSuchItem, ErrNoSuchDeployJob,
}

var usageErrors = []error{ErrIllegalVersion, ErrIllegalBranchName, ErrNotInteractive, ErrIllegalDeploy}

// KindOf classifies err. Status and object matches take precedence over
// operations so a GitCommandError wrapped by a merge conflict reports as status.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, target := range usageErrors {
		if errors.Is(err, target) {
			return KindUsage
		}
	}
	for _, target := range statusErrors {
		if errors.Is(err, target) {
			return KindStatus
		}
	}
	for _, target := range objectErrors {
		if errors.Is(err, target) {
			return KindObject
		}
	}
	var gitErr *GitCommandError
	var apiErr *APIError
	if errors.As(err, &gitErr) || errors.As(err, &apiErr) {
		return KindOperations
	}
	return KindUnknown
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindStatus:
		return 1
	case KindObject:
		return 2
	case KindOperations:
		return 3
	case KindUsage:
		return 64
	default:
		return 1
	}
}

// BranchError names the branch a sentinel failure applies to.
type BranchError struct {
	Sentinel error
	Branch   string
	Detail   string
}

func (e *BranchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Sentinel, e.Branch)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Is returns true if target is the wrapped sentinel
func (e *BranchError) Is(target error) bool {
	return target == e.Sentinel
}

// NewNoSuchBranchError creates a BranchError for a missing branch
func NewNoSuchBranchError(branch string) *BranchError {
	return &BranchError{Sentinel: ErrNoSuchBranch, Branch: branch}
}

// NewBranchExistsError creates a BranchError for a branch that already exists
func NewBranchExistsError(branch string) *BranchError {
	return &BranchError{Sentinel: ErrBranchExists, Branch: branch}
}

// PrefixNotUniqueError lists the candidates an ambiguous prefix matched.
type PrefixNotUniqueError struct {
	Prefix     string
	Candidates []string
}

func (e *PrefixNotUniqueError) Error() string {
	return fmt.Sprintf("prefix %q matches multiple branches: %s", e.Prefix, strings.Join(e.Candidates, ", "))
}

// Is returns true if the target error is ErrPrefixNotUnique
func (e *PrefixNotUniqueError) Is(target error) bool {
	return target == ErrPrefixNotUnique
}

// MultipleReviewRequestsError lists the branches of the ambiguous review requests.
type MultipleReviewRequestsError struct {
	Prefix   string
	Branches []string
}

func (e *MultipleReviewRequestsError) Error() string {
	return fmt.Sprintf("multiple review requests match %s: %s", e.Prefix, strings.Join(e.Branches, ", "))
}

// Is returns true if the target error is ErrMultipleReviewRequests
func (e *MultipleReviewRequestsError) Is(target error) bool {
	return target == ErrMultipleReviewRequests
}

// MergeConflictError reports the merge that could not be completed.
type MergeConflictError struct {
	Source string
	Target string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merging %s into %s produced conflicts; the merge was aborted, resolve the conflicts on %s and retry", e.Source, e.Target, e.Source)
}

// Is returns true if the target error is ErrMergeConflict
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// Failure is one reason a work item blocks a release.
type Failure struct {
	ItemID int64
	Reason string
	// Err is the underlying error, when the failure came from one
	Err error
}

// PreconditionFailedError collects every failure found by the release gate.
type PreconditionFailedError struct {
	Version  string
	Failures []Failure
}

func (e *PreconditionFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "release %s is not ready:", e.Version)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  - #%d: %s", f.ItemID, f.Reason)
	}
	return b.String()
}

// Is returns true if the target error is ErrPreconditionFailed
func (e *PreconditionFailedError) Is(target error) bool {
	return target == ErrPreconditionFailed
}

// Unwrap returns the errors behind individual failures
func (e *PreconditionFailedError) Unwrap() []error {
	var errs []error
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// PushIncompleteError is returned when the final push fails after local
// branches were already removed.
type PushIncompleteError struct {
	Remote   string
	Refspecs []string
	Err      error
}

func (e *PushIncompleteError) Error() string {
	return fmt.Sprintf("push to %s failed after local branches were deleted; run 'git flow repair' to push %s: %v",
		e.Remote, strings.Join(e.Refspecs, " "), e.Err)
}

// Is returns true if the target error is ErrPushIncomplete
func (e *PushIncompleteError) Is(target error) bool {
	return target == ErrPushIncomplete
}

func (e *PushIncompleteError) Unwrap() error {
	return e.Err
}

// APIError is a non-success response from a Story Tracker, Review System or
// deploy server.
type APIError struct {
	Service    string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s API %s %s returned %d: %s", e.Service, e.Method, e.URL, e.StatusCode, body)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
