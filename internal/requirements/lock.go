package requirements

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/envrig/envrig/internal/execshell"
)

const (
	lockCompileStartedMessageConstant  = "Compiling requirements lock file"
	missingLockMessageTemplateConstant = "requirements lock file not found: %s (expected output of a previous run)"

	compileInputLogFieldConstant  = "compile_input"
	compileOutputLogFieldConstant = "compile_output"
)

// ErrUVExecutorNotConfigured indicates construction without a uv executor.
var ErrUVExecutorNotConfigured = errors.New("uv executor not configured")

// ErrLoggerNotConfigured indicates construction without a logger.
var ErrLoggerNotConfigured = errors.New("logger not configured")

// MissingLockError reports a reuse run without the lock file it depends on.
type MissingLockError struct {
	Path string
}

func (missingError MissingLockError) Error() string {
	return fmt.Sprintf(missingLockMessageTemplateConstant, missingError.Path)
}

// UVExecutor abstracts the shell executor surface the compiler needs.
type UVExecutor interface {
	ExecuteUV(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CompileLockOptions names the inputs of one lock compilation.
type CompileLockOptions struct {
	VirtualenvPython     string
	WorkspaceRoot        string
	InputPath            string
	OutputPath           string
	BuildConstraintsPath string
}

// LockCompiler resolves a compile input into a pinned lock file via uv.
type LockCompiler struct {
	executor UVExecutor
	logger   *zap.Logger
}

// NewLockCompiler constructs a LockCompiler.
func NewLockCompiler(executor UVExecutor, logger *zap.Logger) (*LockCompiler, error) {
	if executor == nil {
		return nil, ErrUVExecutorNotConfigured
	}
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	return &LockCompiler{executor: executor, logger: logger}, nil
}

// CompileLock runs `uv pip compile` against the virtualenv interpreter,
// adding build constraints when the constraints file exists.
func (compiler *LockCompiler) CompileLock(executionContext context.Context, options CompileLockOptions) error {
	compileArguments := []string{
		"pip", "compile",
		"-p", options.VirtualenvPython,
		options.InputPath,
		"-o", options.OutputPath,
	}
	if fileExists(options.BuildConstraintsPath) {
		compileArguments = append(compileArguments, "--build-constraints", options.BuildConstraintsPath)
	}

	compiler.logger.Info(lockCompileStartedMessageConstant,
		zap.String(compileInputLogFieldConstant, options.InputPath),
		zap.String(compileOutputLogFieldConstant, options.OutputPath),
	)
	_, compileError := compiler.executor.ExecuteUV(executionContext, execshell.CommandDetails{
		Arguments:        compileArguments,
		WorkingDirectory: options.WorkspaceRoot,
	})
	return compileError
}

// RequireExistingLock validates that a previously compiled lock file is
// present; reuse runs install from it without recompiling.
func RequireExistingLock(lockPath string) error {
	if !fileExists(lockPath) {
		return MissingLockError{Path: lockPath}
	}
	return nil
}

func fileExists(candidatePath string) bool {
	if len(candidatePath) == 0 {
		return false
	}
	fileInformation, statError := os.Stat(candidatePath)
	return statError == nil && !fileInformation.IsDir()
}
