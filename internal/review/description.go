package review

import (
	"fmt"
	"strings"
)

// CommitLogFormat is the git log format of the generated commit log block
const CommitLogFormat = "--------------------%n" +
	"Author:    %an <%ae>%n" +
	"Committer: %cn <%ce>%n" +
	"%n" +
	"%s%n%n" +
	"%b"

const commitLogMarker = "\nCOMMIT LOG\n"

// BuildDescription renders a new review description
func BuildDescription(storyURL, commitLog string) string {
	var b strings.Builder
	if storyURL != "" {
		fmt.Fprintf(&b, "> Story being reviewed: %s\n", storyURL)
	}
	b.WriteString(commitLogMarker)
	b.WriteString(commitLog)
	return b.String()
}

// ReplaceCommitLog swaps the generated commit log block of an existing
// description, keeping whatever the operator wrote above it
func ReplaceCommitLog(existing, commitLog string) string {
	head, _, found := strings.Cut(existing, commitLogMarker)
	if !found {
		head = strings.TrimRight(existing, "\n")
		if head != "" {
			head += "\n"
		}
	}
	return head + commitLogMarker + commitLog
}
