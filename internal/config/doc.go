// Package config manages git-flow configuration and state persistence.
//
// It handles:
//   - Repository configuration in .git/gitflow.yaml (branch names, prefixes,
//     Story Tracker, Review System and deploy settings)
//   - GITFLOW_* environment overrides
//   - Pending push state left behind by an incomplete finish
package config
