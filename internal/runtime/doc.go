// Package runtime provides the execution context for git-flow commands.
//
// A Context is built once per invocation and carries the repository, the
// configuration and the Story Tracker, Review System and deploy clients every
// action works against. Tests build one by hand around fakes.
package runtime
