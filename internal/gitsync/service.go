package gitsync

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/envrig/envrig/internal/workspace"
)

const (
	shallowCloneDepthConstant = 1

	convergeStartedMessageConstant  = "Synchronizing repository"
	cloneStartedMessageConstant     = "Cloning repository"
	checkoutFallbackMessageConstant = "Remote branch not found, falling back to local checkout"

	remoteURLLogFieldConstant   = "remote_url"
	branchLogFieldConstant      = "branch"
	destinationLogFieldConstant = "destination"
	shallowLogFieldConstant     = "shallow"
)

// RepositorySynchronizer drives a local repository to the state declared by a
// RepositorySpec: cloned, on the right branch, at the right history depth.
type RepositorySynchronizer struct {
	manager *RepositoryManager
	logger  *zap.Logger
}

// NewRepositorySynchronizer constructs a RepositorySynchronizer.
func NewRepositorySynchronizer(executor GitExecutor, logger *zap.Logger) (*RepositorySynchronizer, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	repositoryManager, managerError := NewRepositoryManager(executor)
	if managerError != nil {
		return nil, managerError
	}
	return &RepositorySynchronizer{manager: repositoryManager, logger: logger}, nil
}

// Converge drives the repository at destination to its declared state. An absent
// directory is cloned; an existing one must have a clean worktree before any
// network operation runs. A shallow spec keeps the repository a shallow
// single-branch snapshot of origin/<branch>; a full spec widens the fetch
// refspec, unshallows when needed, and fast-forwards the branch.
func (synchronizer *RepositorySynchronizer) Converge(executionContext context.Context, spec workspace.RepositorySpec, destination string) error {
	synchronizer.logger.Info(convergeStartedMessageConstant,
		zap.String(remoteURLLogFieldConstant, spec.RemoteURL),
		zap.String(branchLogFieldConstant, spec.Branch),
		zap.String(destinationLogFieldConstant, destination),
		zap.Bool(shallowLogFieldConstant, spec.Shallow),
	)

	if synchronizer.manager.RepositoryExists(destination) {
		if cleanError := synchronizer.manager.CheckCleanWorktree(executionContext, destination); cleanError != nil {
			return cleanError
		}
	} else if cloneError := synchronizer.clone(executionContext, spec, destination); cloneError != nil {
		return cloneError
	}

	if spec.Shallow {
		return synchronizer.checkoutShallow(executionContext, spec, destination)
	}
	return synchronizer.checkoutFull(executionContext, spec, destination)
}

func (synchronizer *RepositorySynchronizer) clone(executionContext context.Context, spec workspace.RepositorySpec, destination string) error {
	if mkdirError := os.MkdirAll(filepath.Dir(destination), 0o755); mkdirError != nil {
		return mkdirError
	}

	cloneArguments := []string{"clone"}
	if spec.Shallow {
		cloneArguments = append(cloneArguments, "--depth", strconv.Itoa(shallowCloneDepthConstant))
	}
	cloneArguments = append(cloneArguments, "--branch", spec.Branch)
	if spec.Shallow {
		cloneArguments = append(cloneArguments, "--single-branch")
	}
	cloneArguments = append(cloneArguments, spec.RemoteURL, destination)

	synchronizer.logger.Info(cloneStartedMessageConstant,
		zap.String(remoteURLLogFieldConstant, spec.RemoteURL),
		zap.String(destinationLogFieldConstant, destination),
	)
	_, cloneError := synchronizer.manager.runGit(executionContext, "", cloneArguments...)
	return cloneError
}

// checkoutShallow pins the worktree to a deterministic snapshot of
// origin/<branch> at depth 1: narrow fetch, forced branch reset, no pull.
func (synchronizer *RepositorySynchronizer) checkoutShallow(executionContext context.Context, spec workspace.RepositorySpec, destination string) error {
	fetchArguments := []string{"fetch", "--prune", "--depth", strconv.Itoa(shallowCloneDepthConstant), originRemoteNameConstant, spec.Branch}
	if _, fetchError := synchronizer.manager.runGit(executionContext, destination, fetchArguments...); fetchError != nil {
		return fetchError
	}

	if !synchronizer.manager.RemoteBranchExists(executionContext, destination, spec.Branch) {
		return MissingRemoteBranchError{Branch: spec.Branch, Path: destination}
	}
	if _, checkoutError := synchronizer.manager.runGit(executionContext, destination, "checkout", "-B", spec.Branch, remoteBranchPrefixConstant+spec.Branch); checkoutError != nil {
		return checkoutError
	}
	if _, resetError := synchronizer.manager.runGit(executionContext, destination, "reset", "--hard", remoteBranchPrefixConstant+spec.Branch); resetError != nil {
		return resetError
	}
	return synchronizer.manager.CheckCleanWorktree(executionContext, destination)
}

// checkoutFull brings the whole remote into view (widening a previously
// restricted or shallow repository first) and fast-forwards the branch.
func (synchronizer *RepositorySynchronizer) checkoutFull(executionContext context.Context, spec workspace.RepositorySpec, destination string) error {
	if refspecError := synchronizer.manager.EnsureFullFetchRefspec(executionContext, destination); refspecError != nil {
		return refspecError
	}
	if unshallowError := synchronizer.manager.Unshallow(executionContext, destination); unshallowError != nil {
		return unshallowError
	}
	if _, fetchError := synchronizer.manager.runGit(executionContext, destination, "fetch", "--all", "--tags", "--prune"); fetchError != nil {
		return fetchError
	}

	if !synchronizer.manager.RemoteBranchExists(executionContext, destination, spec.Branch) {
		synchronizer.logger.Info(checkoutFallbackMessageConstant,
			zap.String(branchLogFieldConstant, spec.Branch),
			zap.String(destinationLogFieldConstant, destination),
		)
		_, checkoutError := synchronizer.manager.runGit(executionContext, destination, "checkout", spec.Branch)
		return checkoutError
	}

	if _, checkoutError := synchronizer.manager.runGit(executionContext, destination, "checkout", "-B", spec.Branch, remoteBranchPrefixConstant+spec.Branch); checkoutError != nil {
		return checkoutError
	}
	if cleanError := synchronizer.manager.CheckCleanWorktree(executionContext, destination); cleanError != nil {
		return cleanError
	}
	_, pullError := synchronizer.manager.runGit(executionContext, destination, "pull", "--ff-only")
	return pullError
}
