package execshell

import (
	"context"

	"go.uber.org/zap"
)

const (
	commandLineLogFieldConstant      = "command_line"
	workingDirectoryLogFieldConstant = "working_directory"
	exitCodeLogFieldConstant         = "exit_code"
	standardErrorLogFieldConstant    = "standard_error"
)

// ShellExecutor runs external commands through a CommandRunner while logging
// lifecycle events and translating failures into typed errors.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	formatter CommandMessageFormatter
}

// NewShellExecutor constructs a ShellExecutor from a logger and a runner.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{logger: logger, runner: runner, formatter: CommandMessageFormatter{}}, nil
}

// ExecuteGit runs the git tool with the supplied details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteUV runs the uv tool with the supplied details.
func (executor *ShellExecutor) ExecuteUV(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandUV, Details: details})
}

// ExecuteInterpreter runs an arbitrary interpreter binary, typically the
// python executable inside a managed virtualenv.
func (executor *ShellExecutor) ExecuteInterpreter(executionContext context.Context, interpreterPath string, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandName(interpreterPath), Details: details})
}

// Execute runs the supplied command and returns its result. Commands that
// complete with a non-zero exit code yield a CommandFailedError; commands
// that never execute yield a CommandExecutionError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logger.Info(
		executor.formatter.BuildStartedMessage(command),
		zap.String(commandLineLogFieldConstant, command.CommandLine()),
		zap.String(workingDirectoryLogFieldConstant, command.Details.WorkingDirectory),
	)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executionFailure := CommandExecutionError{Command: command, Cause: runError}
		executor.logger.Error(
			executor.formatter.BuildExecutionFailureMessage(command, runError),
			zap.String(commandLineLogFieldConstant, command.CommandLine()),
		)
		return ExecutionResult{}, executionFailure
	}

	if executionResult.ExitCode != 0 {
		commandFailure := CommandFailedError{Command: command, Result: executionResult}
		executor.logger.Error(
			executor.formatter.BuildFailureMessage(command, executionResult),
			zap.String(commandLineLogFieldConstant, command.CommandLine()),
			zap.Int(exitCodeLogFieldConstant, executionResult.ExitCode),
			zap.String(standardErrorLogFieldConstant, executionResult.StandardError),
		)
		return executionResult, commandFailure
	}

	executor.logger.Info(
		executor.formatter.BuildSuccessMessage(command),
		zap.String(commandLineLogFieldConstant, command.CommandLine()),
	)

	return executionResult, nil
}
