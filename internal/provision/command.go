package provision

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envrig/envrig/internal/execshell"
	"github.com/envrig/envrig/internal/gitsync"
	"github.com/envrig/envrig/internal/iniconfig"
	"github.com/envrig/envrig/internal/requirements"
	"github.com/envrig/envrig/internal/venv"
)

const (
	commandUseConstant              = "sync"
	commandShortDescriptionConstant = "Provision the workspace from its configuration"
	commandLongDescriptionConstant  = "sync resolves the layered workspace configuration, converges the server and addon repositories, provisions the uv-managed virtualenv, compiles and installs the merged requirement lock, and renders the server configuration."

	configFlagNameConstant     = "config"
	configFlagUsageConstant    = "Path to the workspace configuration entry file."
	rootFlagNameConstant       = "root"
	rootFlagUsageConstant      = "Workspace root directory."
	destRootFlagNameConstant   = "dest-root"
	destRootFlagUsageConstant  = "Destination root embedded in generated files (defaults to the workspace root)."
	variablesFlagNameConstant  = "vars"
	variablesFlagUsageConstant = "Optional YAML file with extra runtime variables."
	reuseFlagNameConstant      = "reuse-wheelhouse"
	reuseFlagUsageConstant     = "Install offline from the existing lock and wheelhouse without recompiling."
	keepCacheFlagNameConstant  = "keep-pip-cache"
	keepCacheFlagUsageConstant = "Keep pip's wheel cache instead of purging it before the wheelhouse build."

	executorCreationErrorTemplateConstant = "unable to construct shell executor: %w"
	serviceCreationErrorTemplateConstant  = "unable to construct provisioning service: %w"
	syncExecutionErrorTemplateConstant    = "workspace provisioning failed: %w"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the sync Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	CommandRunner         execshell.CommandRunner
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runSync,
	}

	command.Flags().String(configFlagNameConstant, "", configFlagUsageConstant)
	command.Flags().String(rootFlagNameConstant, "", rootFlagUsageConstant)
	command.Flags().String(destRootFlagNameConstant, "", destRootFlagUsageConstant)
	command.Flags().String(variablesFlagNameConstant, "", variablesFlagUsageConstant)
	command.Flags().Bool(reuseFlagNameConstant, false, reuseFlagUsageConstant)
	command.Flags().Bool(keepCacheFlagNameConstant, false, keepCacheFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runSync(command *cobra.Command, _ []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()

	executor, executorError := execshell.NewShellExecutor(logger, builder.resolveCommandRunner())
	if executorError != nil {
		return fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}

	synchronizer, synchronizerError := gitsync.NewRepositorySynchronizer(executor, logger)
	if synchronizerError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, synchronizerError)
	}
	virtualenvService, virtualenvError := venv.NewService(executor, logger)
	if virtualenvError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, virtualenvError)
	}
	lockCompiler, compilerError := requirements.NewLockCompiler(executor, logger)
	if compilerError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, compilerError)
	}

	service, serviceError := NewService(Dependencies{
		Logger:       logger,
		Resolver:     iniconfig.NewLoader(logger),
		Synchronizer: synchronizer,
		Virtualenv:   virtualenvService,
		LockCompiler: lockCompiler,
	})
	if serviceError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, serviceError)
	}

	if runError := service.Run(command.Context(), options); runError != nil {
		return fmt.Errorf(syncExecutionErrorTemplateConstant, runError)
	}
	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (RunOptions, error) {
	configuration := builder.resolveConfiguration()
	options := RunOptions{
		ConfigPath:        configuration.ConfigPath,
		WorkspaceRoot:     configuration.WorkspaceRoot,
		DestinationRoot:   configuration.DestinationRoot,
		VariablesFilePath: configuration.VariablesFile,
		ReuseWheelhouse:   configuration.ReuseWheelhouse,
		KeepPipCache:      configuration.KeepPipCache,
	}

	if command == nil {
		return options, nil
	}
	flagSet := command.Flags()
	if flagSet.Changed(configFlagNameConstant) {
		options.ConfigPath, _ = flagSet.GetString(configFlagNameConstant)
	}
	if flagSet.Changed(rootFlagNameConstant) {
		options.WorkspaceRoot, _ = flagSet.GetString(rootFlagNameConstant)
	}
	if flagSet.Changed(destRootFlagNameConstant) {
		options.DestinationRoot, _ = flagSet.GetString(destRootFlagNameConstant)
	}
	if flagSet.Changed(variablesFlagNameConstant) {
		options.VariablesFilePath, _ = flagSet.GetString(variablesFlagNameConstant)
	}
	if flagSet.Changed(reuseFlagNameConstant) {
		options.ReuseWheelhouse, _ = flagSet.GetBool(reuseFlagNameConstant)
	}
	if flagSet.Changed(keepCacheFlagNameConstant) {
		options.KeepPipCache, _ = flagSet.GetBool(keepCacheFlagNameConstant)
	}

	if len(strings.TrimSpace(options.WorkspaceRoot)) == 0 {
		options.WorkspaceRoot = defaultWorkspaceRootConstant
	}
	if len(strings.TrimSpace(options.ConfigPath)) == 0 {
		options.ConfigPath = defaultConfigPathConstant
	}
	return options, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}

func (builder *CommandBuilder) resolveCommandRunner() execshell.CommandRunner {
	if builder.CommandRunner != nil {
		return builder.CommandRunner
	}
	return execshell.NewOSCommandRunner()
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider != nil {
		return builder.ConfigurationProvider()
	}
	return CommandConfiguration{}
}
