package venv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"

	"github.com/envrig/envrig/internal/execshell"
)

const (
	managedPythonTagTemplateConstant = "cpython-%s-%s"

	virtualenvCreateMessageConstant     = "Creating virtualenv"
	managedPythonInstallMessageConstant = "Installing managed python"
	seedPackagesMessageConstant         = "Installing seed packages into virtualenv"
	wheelhouseBuildMessageConstant      = "Building wheelhouse"
	offlineInstallMessageConstant       = "Installing requirements from wheelhouse"

	pythonVersionLogFieldConstant = "python_version"
	virtualenvLogFieldConstant    = "virtualenv_directory"
	lockPathLogFieldConstant      = "lock_path"
	wheelhouseLogFieldConstant    = "wheelhouse_directory"

	notDirectoryMessageTemplateConstant = "virtualenv path exists but is not a directory: %s"
)

// seedPackages are installed into a freshly created virtualenv so tools that
// expect a classic pip toolchain keep working.
var seedPackages = []string{"pip", "setuptools", "wheel"}

// ErrCommandExecutorNotConfigured indicates construction without an executor.
var ErrCommandExecutorNotConfigured = errors.New("command executor not configured")

// ErrLoggerNotConfigured indicates construction without a logger.
var ErrLoggerNotConfigured = errors.New("logger not configured")

// NotADirectoryError reports a virtualenv path occupied by a regular file.
type NotADirectoryError struct {
	Path string
}

func (notDirectoryError NotADirectoryError) Error() string {
	return fmt.Sprintf(notDirectoryMessageTemplateConstant, notDirectoryError.Path)
}

// CommandExecutor abstracts the shell executor surface this service needs:
// uv invocations plus the virtualenv's own interpreter for wheel builds.
type CommandExecutor interface {
	ExecuteUV(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteInterpreter(executionContext context.Context, interpreterPath string, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Service provisions and populates workspace virtualenvs.
type Service struct {
	executor CommandExecutor
	logger   *zap.Logger
}

// NewService constructs a Service.
func NewService(executor CommandExecutor, logger *zap.Logger) (*Service, error) {
	if executor == nil {
		return nil, ErrCommandExecutorNotConfigured
	}
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	return &Service{executor: executor, logger: logger}, nil
}

// EnsureOptions names the inputs of one virtualenv creation.
type EnsureOptions struct {
	WorkspaceRoot       string
	VirtualenvDirectory string
	PythonVersion       string
	ManagedPython       bool
	SkipSeedPackages    bool
}

// EnsureVirtualenv creates the virtualenv when absent: an optional managed
// interpreter install, `uv venv`, and seed packages unless the caller reuses
// an existing wheelhouse. An already-present virtualenv directory is kept.
func (service *Service) EnsureVirtualenv(executionContext context.Context, options EnsureOptions) error {
	directoryInformation, statError := os.Stat(options.VirtualenvDirectory)
	if statError == nil {
		if !directoryInformation.IsDir() {
			return NotADirectoryError{Path: options.VirtualenvDirectory}
		}
		return nil
	}

	if options.ManagedPython {
		interpreterTag := managedPythonTag(options.PythonVersion)
		service.logger.Info(managedPythonInstallMessageConstant,
			zap.String(pythonVersionLogFieldConstant, options.PythonVersion),
		)
		if _, installError := service.executor.ExecuteUV(executionContext, execshell.CommandDetails{
			Arguments:        []string{"python", "install", interpreterTag},
			WorkingDirectory: options.WorkspaceRoot,
		}); installError != nil {
			return installError
		}
	}

	createArguments := []string{"venv", "-p", options.PythonVersion, options.VirtualenvDirectory}
	if !options.ManagedPython {
		createArguments = append(createArguments, "--no-managed-python")
	}
	service.logger.Info(virtualenvCreateMessageConstant,
		zap.String(virtualenvLogFieldConstant, options.VirtualenvDirectory),
		zap.String(pythonVersionLogFieldConstant, options.PythonVersion),
	)
	if _, createError := service.executor.ExecuteUV(executionContext, execshell.CommandDetails{
		Arguments:        createArguments,
		WorkingDirectory: options.WorkspaceRoot,
	}); createError != nil {
		return createError
	}

	if options.SkipSeedPackages {
		return nil
	}
	service.logger.Info(seedPackagesMessageConstant,
		zap.String(virtualenvLogFieldConstant, options.VirtualenvDirectory),
	)
	seedArguments := append([]string{"pip", "install", "-p", virtualenvPython(options.VirtualenvDirectory)}, seedPackages...)
	_, seedError := service.executor.ExecuteUV(executionContext, execshell.CommandDetails{
		Arguments:        seedArguments,
		WorkingDirectory: options.WorkspaceRoot,
	})
	return seedError
}

// WheelhouseOptions names the inputs of one wheelhouse build.
type WheelhouseOptions struct {
	VirtualenvPython     string
	WorkspaceRoot        string
	LockPath             string
	WheelhouseDirectory  string
	BuildConstraintsPath string
	ClearPipCache        bool
}

// BuildWheelhouse populates the wheelhouse from a compiled lock file: an
// optional pip cache purge, build constraints installed first, then
// `pip wheel --no-deps` for every pinned distribution.
func (service *Service) BuildWheelhouse(executionContext context.Context, options WheelhouseOptions) error {
	if mkdirError := os.MkdirAll(options.WheelhouseDirectory, 0o755); mkdirError != nil {
		return mkdirError
	}

	if options.ClearPipCache {
		if _, purgeError := service.executor.ExecuteInterpreter(executionContext, options.VirtualenvPython, execshell.CommandDetails{
			Arguments:        []string{"-m", "pip", "cache", "purge"},
			WorkingDirectory: options.WorkspaceRoot,
		}); purgeError != nil {
			return purgeError
		}
	}

	if constraintsFileExists(options.BuildConstraintsPath) {
		if _, constraintsError := service.executor.ExecuteUV(executionContext, execshell.CommandDetails{
			Arguments:        []string{"pip", "install", "-p", options.VirtualenvPython, "-U", "-r", options.BuildConstraintsPath},
			WorkingDirectory: options.WorkspaceRoot,
		}); constraintsError != nil {
			return constraintsError
		}
	}

	service.logger.Info(wheelhouseBuildMessageConstant,
		zap.String(lockPathLogFieldConstant, options.LockPath),
		zap.String(wheelhouseLogFieldConstant, options.WheelhouseDirectory),
	)
	_, wheelError := service.executor.ExecuteInterpreter(executionContext, options.VirtualenvPython, execshell.CommandDetails{
		Arguments:        []string{"-m", "pip", "wheel", "-r", options.LockPath, "-w", options.WheelhouseDirectory, "--no-deps"},
		WorkingDirectory: options.WorkspaceRoot,
	})
	return wheelError
}

// InstallOptions names the inputs of one offline install.
type InstallOptions struct {
	VirtualenvPython    string
	WorkspaceRoot       string
	LockPath            string
	WheelhouseDirectory string
}

// InstallFromWheelhouse syncs the virtualenv to the lock file using only
// wheels already present in the wheelhouse; the index is never consulted.
func (service *Service) InstallFromWheelhouse(executionContext context.Context, options InstallOptions) error {
	service.logger.Info(offlineInstallMessageConstant,
		zap.String(lockPathLogFieldConstant, options.LockPath),
		zap.String(wheelhouseLogFieldConstant, options.WheelhouseDirectory),
	)
	_, syncError := service.executor.ExecuteUV(executionContext, execshell.CommandDetails{
		Arguments: []string{
			"pip", "sync", "-p", options.VirtualenvPython,
			"--offline", "--no-index",
			"-f", options.WheelhouseDirectory,
			options.LockPath,
		},
		WorkingDirectory: options.WorkspaceRoot,
	})
	return syncError
}

// managedPythonTag builds the uv interpreter tag for the current platform.
func managedPythonTag(pythonVersion string) string {
	architecture := runtime.GOARCH
	switch architecture {
	case "amd64":
		architecture = "x86_64"
	case "arm64":
		architecture = "aarch64"
	}
	var platformSuffix string
	switch runtime.GOOS {
	case "windows":
		platformSuffix = "windows-" + architecture + "-none"
	case "darwin":
		platformSuffix = "macos-" + architecture + "-none"
	default:
		platformSuffix = "linux-" + architecture + "-gnu"
	}
	return fmt.Sprintf(managedPythonTagTemplateConstant, pythonVersion, platformSuffix)
}

func virtualenvPython(virtualenvDirectory string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(virtualenvDirectory, "Scripts", "python.exe")
	}
	return filepath.Join(virtualenvDirectory, "bin", "python")
}

func constraintsFileExists(candidatePath string) bool {
	if len(candidatePath) == 0 {
		return false
	}
	fileInformation, statError := os.Stat(candidatePath)
	return statError == nil && !fileInformation.IsDir()
}
