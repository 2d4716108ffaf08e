package gitsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/envrig/envrig/internal/execshell"
)

const (
	fullFetchRefspecConstant      = "+refs/heads/*:refs/remotes/origin/*"
	originRemoteNameConstant      = "origin"
	remoteFetchConfigKeyConstant  = "remote.origin.fetch"
	gitMetadataDirectoryConstant  = ".git"
	shallowMarkerFileNameConstant = "shallow"
	remoteBranchPrefixConstant    = "origin/"
)

// GitExecutor abstracts the shell executor surface the synchronizer needs.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager issues individual git operations against one local
// repository directory. It holds no state beyond its executor.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

func (manager *RepositoryManager) runGit(executionContext context.Context, workingDirectory string, arguments ...string) (execshell.ExecutionResult, error) {
	return manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: workingDirectory,
	})
}

// RepositoryExists reports whether the directory holds a git repository.
func (manager *RepositoryManager) RepositoryExists(repositoryPath string) bool {
	_, statError := os.Stat(filepath.Join(repositoryPath, gitMetadataDirectoryConstant))
	return statError == nil
}

// IsShallowRepository reports whether the repository history is shallow,
// detected through the shallow marker file which is stable across git versions.
func (manager *RepositoryManager) IsShallowRepository(repositoryPath string) bool {
	_, statError := os.Stat(filepath.Join(repositoryPath, gitMetadataDirectoryConstant, shallowMarkerFileNameConstant))
	return statError == nil
}

// CheckCleanWorktree fails with DirtyWorktreeError when the repository has
// uncommitted changes.
func (manager *RepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) error {
	statusResult, statusError := manager.runGit(executionContext, repositoryPath, "status", "--porcelain")
	if statusError != nil {
		return statusError
	}
	if len(strings.TrimSpace(statusResult.StandardOutput)) > 0 {
		return DirtyWorktreeError{Path: repositoryPath}
	}
	return nil
}

// EnsureFullFetchRefspec widens origin's fetch refspec to the wildcard so a
// repository cloned with --single-branch can fetch every remote branch.
// Idempotent: an already-wildcard refspec is left untouched.
func (manager *RepositoryManager) EnsureFullFetchRefspec(executionContext context.Context, repositoryPath string) error {
	listResult, listError := manager.runGit(executionContext, repositoryPath, "config", "--get-all", remoteFetchConfigKeyConstant)
	if listError != nil && !isCommandFailure(listError) {
		return listError
	}
	for _, configuredRefspec := range strings.Split(listResult.StandardOutput, "\n") {
		if strings.TrimSpace(configuredRefspec) == fullFetchRefspecConstant {
			return nil
		}
	}

	// A restricted refspec is replaced wholesale rather than appended to.
	if _, unsetError := manager.runGit(executionContext, repositoryPath, "config", "--unset-all", remoteFetchConfigKeyConstant); unsetError != nil && !isCommandFailure(unsetError) {
		return unsetError
	}
	_, addError := manager.runGit(executionContext, repositoryPath, "config", "--add", remoteFetchConfigKeyConstant, fullFetchRefspecConstant)
	return addError
}

// Unshallow converts a shallow repository into a full-history one. A
// repository that is already full is left untouched.
func (manager *RepositoryManager) Unshallow(executionContext context.Context, repositoryPath string) error {
	if !manager.IsShallowRepository(repositoryPath) {
		return nil
	}
	_, fetchError := manager.runGit(executionContext, repositoryPath, "fetch", "--unshallow", "--tags", originRemoteNameConstant)
	return fetchError
}

// RemoteBranchExists reports whether origin/<branch> resolves in the repository.
func (manager *RepositoryManager) RemoteBranchExists(executionContext context.Context, repositoryPath string, branchName string) bool {
	_, verifyError := manager.runGit(executionContext, repositoryPath, "rev-parse", "--verify", remoteBranchPrefixConstant+branchName)
	return verifyError == nil
}

// isCommandFailure distinguishes a command that ran and exited non-zero from
// one that never executed. Some probes (config --get-all on an absent key)
// legitimately exit non-zero.
func isCommandFailure(candidateError error) bool {
	var commandFailure execshell.CommandFailedError
	return errors.As(candidateError, &commandFailure)
}
