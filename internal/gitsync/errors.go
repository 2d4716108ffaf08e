package gitsync

import (
	"errors"
	"fmt"
)

const (
	dirtyWorktreeMessageTemplateConstant       = "local changes detected in repository %s: commit, stash, or clean the working tree before syncing"
	missingRemoteBranchMessageTemplateConstant = "remote branch origin/%s not found in repository %s"
)

// ErrGitExecutorNotConfigured indicates construction without a git executor.
var ErrGitExecutorNotConfigured = errors.New("git executor not configured")

// ErrLoggerNotConfigured indicates construction without a logger.
var ErrLoggerNotConfigured = errors.New("logger not configured")

// DirtyWorktreeError reports uncommitted local changes in a repository that
// was about to be synchronized.
type DirtyWorktreeError struct {
	Path string
}

func (dirtyError DirtyWorktreeError) Error() string {
	return fmt.Sprintf(dirtyWorktreeMessageTemplateConstant, dirtyError.Path)
}

// MissingRemoteBranchError reports that the configured branch does not exist
// on the origin remote.
type MissingRemoteBranchError struct {
	Branch string
	Path   string
}

func (missingError MissingRemoteBranchError) Error() string {
	return fmt.Sprintf(missingRemoteBranchMessageTemplateConstant, missingError.Branch, missingError.Path)
}
