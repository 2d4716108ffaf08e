package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	gitToolNameConstant                 = "git"
	uvToolNameConstant                  = "uv"
	loggerMissingMessageConstant        = "logger not configured"
	commandRunnerMissingMessageConstant = "command runner not configured"
	commandFailureTemplateConstant      = "command failed: %s (exit code %d)%s"
	commandExecutionTemplateConstant    = "command did not execute: %s: %v"
	commandOutputSuffixTemplateConstant = "\n%s"
	commandLineJoinSeparatorConstant    = " "
)

// CommandName identifies the executable a ShellCommand targets.
type CommandName string

// Supported executable names. Interpreter commands carry the interpreter path
// as their name, so the enumeration lists only the stable tool names.
const (
	CommandGit CommandName = CommandName(gitToolNameConstant)
	CommandUV  CommandName = CommandName(uvToolNameConstant)
)

// CommandDetails describes a single tool invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines a CommandName with invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outputs of a completed command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner represents the ability to execute shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// ErrLoggerNotConfigured indicates a ShellExecutor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerMissingMessageConstant)

// ErrCommandRunnerNotConfigured indicates a ShellExecutor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerMissingMessageConstant)

// CommandFailedError reports a command that completed with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command, including the command line and captured output.
func (failure CommandFailedError) Error() string {
	return fmt.Sprintf(
		commandFailureTemplateConstant,
		failure.Command.CommandLine(),
		failure.Result.ExitCode,
		formatCapturedOutput(failure.Result),
	)
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure with the attempted command line.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionTemplateConstant, failure.Command.CommandLine(), failure.Cause)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As inspection.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// CommandLine renders the executable and its arguments as a single string.
func (command ShellCommand) CommandLine() string {
	segments := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(segments, commandLineJoinSeparatorConstant)
}

func formatCapturedOutput(result ExecutionResult) string {
	combined := strings.TrimSpace(strings.Join([]string{result.StandardOutput, result.StandardError}, "\n"))
	if len(combined) == 0 {
		return ""
	}
	return fmt.Sprintf(commandOutputSuffixTemplateConstant, combined)
}
