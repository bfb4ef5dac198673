// Package engine owns the git-flow branch model.
//
// It is responsible for:
//   - Naming branches of each kind (feature, release, hotfix, support) and
//     their base markers
//   - Creating, tracking, publishing and deleting branches with the
//     existence and uniqueness checks each kind requires
//   - Resolving the commit a topic branch diverged from its upstream, exactly
//     through a base marker or by comparing first-parent histories
package engine
