// Package git keeps the documentation source directory in sync with a
// remote repository.
//
// The source checkout is treated as a mirror: Sync clones it when missing,
// otherwise fetches the configured branch and moves the worktree to the
// remote head, discarding local divergence.
package git
