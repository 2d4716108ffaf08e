package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/envrig/envrig/internal/iniconfig"
	"github.com/envrig/envrig/internal/requirements"
	"github.com/envrig/envrig/internal/venv"
	"github.com/envrig/envrig/internal/workspace"
)

const (
	requirementsFileNameConstant     = "requirements.txt"
	compileInputFileNameConstant     = "all-requirements.in.txt"
	lockFileNameConstant             = "all-requirements.lock.txt"
	buildConstraintsFileNameConstant = "build-constraints.txt"

	runStartedMessageConstant      = "Provisioning workspace"
	repoConvergedMessageConstant   = "Repository converged"
	dataDirOverrideMessageConstant = "data_dir overridden via configuration"
	configRenderedMessageConstant  = "Server configuration rendered"
	runCompletedMessageConstant    = "Workspace provisioning completed"

	missingServerRequirementsTemplateConstant = "server requirements file not found: %s"
	serverRepositoryLabelConstant             = "server"

	workspaceRootLogFieldConstant = "workspace_root"
	configPathLogFieldConstant    = "config_path"
	repositoryLogFieldConstant    = "repository"
	destinationLogFieldConstant   = "destination"
	dataDirLogFieldConstant       = "data_dir"
)

// ErrLoggerNotConfigured indicates construction without a logger.
var ErrLoggerNotConfigured = errors.New("logger not configured")

// ErrDependenciesNotConfigured indicates construction with a missing collaborator.
var ErrDependenciesNotConfigured = errors.New("provisioning dependencies not configured")

// MissingServerRequirementsError reports a synced server repository without
// the requirements file the lock compilation depends on.
type MissingServerRequirementsError struct {
	Path string
}

func (missingError MissingServerRequirementsError) Error() string {
	return fmt.Sprintf(missingServerRequirementsTemplateConstant, missingError.Path)
}

// ConfigurationResolver resolves the layered configuration entry file.
type ConfigurationResolver interface {
	Resolve(entryPath string, runtimeVariables map[string]string) (*iniconfig.Document, error)
}

// RepositoryConverger drives one repository to its declared state.
type RepositoryConverger interface {
	Converge(executionContext context.Context, spec workspace.RepositorySpec, destination string) error
}

// VirtualenvProvisioner provisions and populates the workspace virtualenv.
type VirtualenvProvisioner interface {
	EnsureVirtualenv(executionContext context.Context, options venv.EnsureOptions) error
	BuildWheelhouse(executionContext context.Context, options venv.WheelhouseOptions) error
	InstallFromWheelhouse(executionContext context.Context, options venv.InstallOptions) error
}

// LockCompiler compiles the aggregated requirements into a pinned lock file.
type LockCompiler interface {
	CompileLock(executionContext context.Context, options requirements.CompileLockOptions) error
}

// Dependencies carries the collaborators a Service needs.
type Dependencies struct {
	Logger       *zap.Logger
	Resolver     ConfigurationResolver
	Synchronizer RepositoryConverger
	Virtualenv   VirtualenvProvisioner
	LockCompiler LockCompiler
}

// Service runs the end-to-end provisioning sequence.
type Service struct {
	logger       *zap.Logger
	resolver     ConfigurationResolver
	synchronizer RepositoryConverger
	virtualenv   VirtualenvProvisioner
	lockCompiler LockCompiler
}

// NewService constructs a Service after validating its dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Resolver == nil || dependencies.Synchronizer == nil || dependencies.Virtualenv == nil || dependencies.LockCompiler == nil {
		return nil, ErrDependenciesNotConfigured
	}
	return &Service{
		logger:       dependencies.Logger,
		resolver:     dependencies.Resolver,
		synchronizer: dependencies.Synchronizer,
		virtualenv:   dependencies.Virtualenv,
		lockCompiler: dependencies.LockCompiler,
	}, nil
}

// RunOptions names the inputs of one provisioning run.
type RunOptions struct {
	ConfigPath        string
	WorkspaceRoot     string
	DestinationRoot   string
	VariablesFilePath string
	ReuseWheelhouse   bool
	KeepPipCache      bool
}

// Run executes the full sequence: resolve configuration, converge the server
// repository and every addon in declared order, ensure the virtualenv,
// aggregate and lock requirements, build the wheelhouse, install offline, and
// render the server configuration. Any failure aborts the run.
func (service *Service) Run(executionContext context.Context, options RunOptions) error {
	workspaceRoot, rootError := filepath.Abs(options.WorkspaceRoot)
	if rootError != nil {
		return rootError
	}
	configPath, configError := filepath.Abs(options.ConfigPath)
	if configError != nil {
		return configError
	}

	service.logger.Info(runStartedMessageConstant,
		zap.String(workspaceRootLogFieldConstant, workspaceRoot),
		zap.String(configPathLogFieldConstant, configPath),
	)

	layout := workspace.LayoutFromRoot(workspaceRoot)
	destinationLayout := workspace.LayoutFromRoot(resolveDestinationRoot(workspaceRoot, options.DestinationRoot))

	variableOverrides, overridesError := LoadVariableOverrides(options.VariablesFilePath)
	if overridesError != nil {
		return overridesError
	}
	entryDirectory := filepath.Dir(configPath)
	filesystemVariables := mergeVariables(runtimeVariables(entryDirectory, layout), variableOverrides)
	destinationVariables := mergeVariables(runtimeVariables(entryDirectory, destinationLayout), variableOverrides)

	// Includes always resolve against build-host paths; only value
	// interpolation differs between the two variable sets.
	document, resolveError := service.resolver.Resolve(configPath, filesystemVariables)
	if resolveError != nil {
		return resolveError
	}
	configuration, configurationError := workspace.ConfigurationFromDocument(document)
	if configurationError != nil {
		return configurationError
	}
	destinationConfiguration, destinationError := workspace.ConfigurationFromDocument(
		document.WithRuntimeVariables(destinationVariables))
	if destinationError != nil {
		return destinationError
	}

	destinationLayout = applyDataDirOverride(service.logger, destinationConfiguration, destinationLayout)

	requirementFiles, convergeError := service.convergeRepositories(executionContext, configuration, layout)
	if convergeError != nil {
		return convergeError
	}

	if ensureError := service.virtualenv.EnsureVirtualenv(executionContext, venv.EnsureOptions{
		WorkspaceRoot:       workspaceRoot,
		VirtualenvDirectory: layout.VirtualenvDirectory,
		PythonVersion:       configuration.Virtualenv.PythonVersion,
		ManagedPython:       configuration.Virtualenv.ManagedPython,
		SkipSeedPackages:    options.ReuseWheelhouse,
	}); ensureError != nil {
		return ensureError
	}

	if installError := service.provisionPackages(executionContext, configuration, layout, workspaceRoot, requirementFiles, options); installError != nil {
		return installError
	}

	if renderError := service.renderServerConfiguration(destinationConfiguration, layout, destinationLayout); renderError != nil {
		return renderError
	}

	service.logger.Info(runCompletedMessageConstant,
		zap.String(workspaceRootLogFieldConstant, workspaceRoot),
	)
	return nil
}

// convergeRepositories syncs the server repository and every addon in
// declared order, collecting the requirement files the lock step consumes.
// The server's requirements file is mandatory; addon files are optional.
func (service *Service) convergeRepositories(executionContext context.Context, configuration workspace.Configuration, layout workspace.Layout) ([]string, error) {
	if convergeError := service.synchronizer.Converge(executionContext, configuration.Server, layout.ServerDirectory); convergeError != nil {
		return nil, convergeError
	}
	service.logger.Info(repoConvergedMessageConstant,
		zap.String(repositoryLogFieldConstant, serverRepositoryLabelConstant),
		zap.String(destinationLogFieldConstant, layout.ServerDirectory),
	)

	serverRequirements := filepath.Join(layout.ServerDirectory, requirementsFileNameConstant)
	if _, statError := os.Stat(serverRequirements); statError != nil {
		return nil, MissingServerRequirementsError{Path: serverRequirements}
	}
	requirementFiles := []string{serverRequirements}

	for _, addonSpecification := range configuration.Addons {
		addonDestination := layout.AddonDirectory(addonSpecification.Name)
		if convergeError := service.synchronizer.Converge(executionContext, addonSpecification.Repository, addonDestination); convergeError != nil {
			return nil, convergeError
		}
		service.logger.Info(repoConvergedMessageConstant,
			zap.String(repositoryLogFieldConstant, addonSpecification.Name),
			zap.String(destinationLogFieldConstant, addonDestination),
		)

		addonRequirements := filepath.Join(addonDestination, requirementsFileNameConstant)
		if _, statError := os.Stat(addonRequirements); statError == nil {
			requirementFiles = append(requirementFiles, addonRequirements)
		}
	}
	return requirementFiles, nil
}

// provisionPackages compiles (or reuses) the lock file, builds the
// wheelhouse, and installs offline from it.
func (service *Service) provisionPackages(executionContext context.Context, configuration workspace.Configuration, layout workspace.Layout, workspaceRoot string, requirementFiles []string, options RunOptions) error {
	lockPath := filepath.Join(layout.WheelhouseDirectory, lockFileNameConstant)
	constraintsPath := filepath.Join(layout.WheelhouseDirectory, buildConstraintsFileNameConstant)

	if options.ReuseWheelhouse {
		if lockError := requirements.RequireExistingLock(lockPath); lockError != nil {
			return lockError
		}
		return service.virtualenv.InstallFromWheelhouse(executionContext, venv.InstallOptions{
			VirtualenvPython:    layout.VirtualenvPython(),
			WorkspaceRoot:       workspaceRoot,
			LockPath:            lockPath,
			WheelhouseDirectory: layout.WheelhouseDirectory,
		})
	}

	if mkdirError := os.MkdirAll(layout.WheelhouseDirectory, 0o755); mkdirError != nil {
		return mkdirError
	}
	if len(configuration.Virtualenv.BuildConstraints) > 0 {
		constraintsContents := strings.Join(configuration.Virtualenv.BuildConstraints, "\n") + "\n"
		if writeError := os.WriteFile(constraintsPath, []byte(constraintsContents), 0o644); writeError != nil {
			return writeError
		}
	}

	aggregatedLines, aggregateError := requirements.Aggregate(
		workspaceRoot, requirementFiles, configuration.Virtualenv.Requirements, configuration.Virtualenv.RequirementsIgnore)
	if aggregateError != nil {
		return aggregateError
	}
	compileInputPath := filepath.Join(layout.WheelhouseDirectory, compileInputFileNameConstant)
	if writeError := requirements.WriteCompileInput(compileInputPath, aggregatedLines); writeError != nil {
		return writeError
	}

	if compileError := service.lockCompiler.CompileLock(executionContext, requirements.CompileLockOptions{
		VirtualenvPython:     layout.VirtualenvPython(),
		WorkspaceRoot:        workspaceRoot,
		InputPath:            compileInputPath,
		OutputPath:           lockPath,
		BuildConstraintsPath: constraintsPath,
	}); compileError != nil {
		return compileError
	}

	if wheelhouseError := service.virtualenv.BuildWheelhouse(executionContext, venv.WheelhouseOptions{
		VirtualenvPython:     layout.VirtualenvPython(),
		WorkspaceRoot:        workspaceRoot,
		LockPath:             lockPath,
		WheelhouseDirectory:  layout.WheelhouseDirectory,
		BuildConstraintsPath: constraintsPath,
		ClearPipCache:        !options.KeepPipCache,
	}); wheelhouseError != nil {
		return wheelhouseError
	}

	return service.virtualenv.InstallFromWheelhouse(executionContext, venv.InstallOptions{
		VirtualenvPython:    layout.VirtualenvPython(),
		WorkspaceRoot:       workspaceRoot,
		LockPath:            lockPath,
		WheelhouseDirectory: layout.WheelhouseDirectory,
	})
}

// renderServerConfiguration writes the final server configuration using
// destination paths, which may describe a different deployment host.
func (service *Service) renderServerConfiguration(destinationConfiguration workspace.Configuration, layout workspace.Layout, destinationLayout workspace.Layout) error {
	if mkdirError := os.MkdirAll(layout.ConfigsDirectory, 0o755); mkdirError != nil {
		return mkdirError
	}
	renderedConfiguration := workspace.RenderServerConfiguration(destinationConfiguration, destinationLayout)
	if writeError := os.WriteFile(layout.ServerConfigurationPath, []byte(renderedConfiguration), 0o644); writeError != nil {
		return writeError
	}
	service.logger.Info(configRenderedMessageConstant,
		zap.String(configPathLogFieldConstant, layout.ServerConfigurationPath),
	)
	return nil
}

// applyDataDirOverride honors a data_dir declared in [config]; generated
// files then embed the override instead of the layout default.
func applyDataDirOverride(logger *zap.Logger, destinationConfiguration workspace.Configuration, destinationLayout workspace.Layout) workspace.Layout {
	overrideValue := strings.TrimSpace(destinationConfiguration.ServerConfig[dataDirVariableNameConstant])
	if len(overrideValue) == 0 {
		return destinationLayout
	}
	overridePath := overrideValue
	if !filepath.IsAbs(overridePath) {
		overridePath = filepath.Join(destinationLayout.Root, overridePath)
	}
	overridePath = filepath.Clean(overridePath)
	logger.Warn(dataDirOverrideMessageConstant,
		zap.String(dataDirLogFieldConstant, overridePath),
	)
	destinationLayout.DataDirectory = overridePath
	return destinationLayout
}
