// Package provision orchestrates a full workspace run: configuration
// resolution, repository convergence, virtualenv provisioning, requirement
// lock compilation, wheelhouse population, offline install, and server
// configuration rendering. Steps run strictly in sequence and fail fast.
package provision
