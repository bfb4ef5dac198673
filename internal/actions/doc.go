// Package actions holds the repository-wide commands: init, status and repair.
//
// Branch lifecycle commands live in subpackages (branch, feature, release,
// finish, deploy). Every action takes a runtime.Context and reports through
// its Splog.
package actions
