// Package git is the Repository Facade used by every git-flow component.
//
// Reads (ref lookup, ref enumeration, first-parent history, ancestry) go
// through go-git. Mutations are executed with the git binary so that hooks,
// signing and credential helpers behave exactly as they do for the operator:
//   - Branch management (create, atomic multi-ref create, delete, checkout, track)
//   - Merge, tag and reset --keep
//   - Remote operations (fetch, single multi-refspec push)
//
// This package should be the only place where direct git commands are executed.
package git
