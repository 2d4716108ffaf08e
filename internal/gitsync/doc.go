// Package gitsync converges local git repositories onto a declared remote
// URL, branch, and clone depth by orchestrating the external git tool. It
// never rewrites history itself; a dirty worktree always aborts before any
// network operation.
package gitsync
