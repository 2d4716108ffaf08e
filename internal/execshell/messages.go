package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	standardErrorSuffixTemplateConstant     = ": %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	defaultWorkingDirectoryLabelConstant    = "current directory"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
)

const (
	gitCloneSubcommandNameConstant    = "clone"
	gitFetchSubcommandNameConstant    = "fetch"
	gitStatusSubcommandNameConstant   = "status"
	gitCheckoutSubcommandNameConstant = "checkout"
	gitResetSubcommandNameConstant    = "reset"
	gitPullSubcommandNameConstant     = "pull"
)

const (
	gitCloneStartTemplateConstant      = "Cloning %s"
	gitCloneSuccessTemplateConstant    = "Cloned %s"
	gitCloneFailureTemplateConstant    = "Failed to clone %s (exit code %d%s)"
	gitFetchStartTemplateConstant      = "Fetching in %s"
	gitFetchSuccessTemplateConstant    = "Fetched in %s"
	gitFetchFailureTemplateConstant    = "Failed to fetch in %s (exit code %d%s)"
	gitStatusStartTemplateConstant     = "Reviewing working tree status in %s"
	gitStatusSuccessTemplateConstant   = "Collected working tree status for %s"
	gitStatusFailureTemplateConstant   = "Failed to review working tree status in %s (exit code %d%s)"
	gitCheckoutStartTemplateConstant   = "Switching %s to %s"
	gitCheckoutSuccessTemplateConstant = "%s now on %s"
	gitCheckoutFailureTemplateConstant = "Failed to switch %s to %s (exit code %d%s)"
	gitResetStartTemplateConstant      = "Resetting working tree in %s"
	gitResetSuccessTemplateConstant    = "Reset working tree in %s"
	gitResetFailureTemplateConstant    = "Failed to reset working tree in %s (exit code %d%s)"
	gitPullStartTemplateConstant       = "Pulling latest changes in %s"
	gitPullSuccessTemplateConstant     = "Pulled latest changes in %s"
	gitPullFailureTemplateConstant     = "Failed to pull latest changes in %s (exit code %d%s)"
	fallbackUnknownValueLabelConstant  = "unknown"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name == CommandGit {
		return formatter.describeGitMessage(command, result, failure, stage)
	}
	return formatter.buildGenericMessage(command, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)

	switch strings.TrimSpace(command.Details.Arguments[0]) {
	case gitCloneSubcommandNameConstant:
		cloneTarget := formatter.extractCloneTarget(command.Details.Arguments)
		return formatter.renderStage(stage, failure, result,
			fmt.Sprintf(gitCloneStartTemplateConstant, cloneTarget),
			fmt.Sprintf(gitCloneSuccessTemplateConstant, cloneTarget),
			gitCloneFailureTemplateConstant, cloneTarget)
	case gitFetchSubcommandNameConstant:
		return formatter.renderStage(stage, failure, result,
			fmt.Sprintf(gitFetchStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitFetchSuccessTemplateConstant, workingDirectory),
			gitFetchFailureTemplateConstant, workingDirectory)
	case gitStatusSubcommandNameConstant:
		return formatter.renderStage(stage, failure, result,
			fmt.Sprintf(gitStatusStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitStatusSuccessTemplateConstant, workingDirectory),
			gitStatusFailureTemplateConstant, workingDirectory)
	case gitCheckoutSubcommandNameConstant:
		branchLabel := formatter.extractLastNonFlagArgument(command.Details.Arguments[1:])
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitCheckoutStartTemplateConstant, workingDirectory, branchLabel)
		case messageStageSuccess:
			return fmt.Sprintf(gitCheckoutSuccessTemplateConstant, workingDirectory, branchLabel)
		case messageStageFailure:
			return fmt.Sprintf(gitCheckoutFailureTemplateConstant, workingDirectory, branchLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return formatter.buildGenericMessage(command, result, failure, stage)
		}
	case gitResetSubcommandNameConstant:
		return formatter.renderStage(stage, failure, result,
			fmt.Sprintf(gitResetStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitResetSuccessTemplateConstant, workingDirectory),
			gitResetFailureTemplateConstant, workingDirectory)
	case gitPullSubcommandNameConstant:
		return formatter.renderStage(stage, failure, result,
			fmt.Sprintf(gitPullStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitPullSuccessTemplateConstant, workingDirectory),
			gitPullFailureTemplateConstant, workingDirectory)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) renderStage(stage messageStage, failure error, result ExecutionResult, startMessage string, successMessage string, failureTemplate string, subject string) string {
	switch stage {
	case messageStageStart:
		return startMessage
	case messageStageSuccess:
		return successMessage
	case messageStageFailure:
		return fmt.Sprintf(failureTemplate, subject, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, subject, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := command.CommandLine()
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return commandLabel
	}
	return commandLabel + fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

// extractCloneTarget locates the repository URL in a clone invocation, the
// first non-flag argument that is not the destination path (the last one).
func (formatter CommandMessageFormatter) extractCloneTarget(arguments []string) string {
	nonFlagArguments := []string{}
	skipNext := false
	for _, argument := range arguments[1:] {
		trimmed := strings.TrimSpace(argument)
		if skipNext {
			skipNext = false
			continue
		}
		if trimmed == "--depth" || trimmed == "--branch" {
			skipNext = true
			continue
		}
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, "-") {
			continue
		}
		nonFlagArguments = append(nonFlagArguments, trimmed)
	}
	if len(nonFlagArguments) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return nonFlagArguments[0]
}

func (formatter CommandMessageFormatter) extractLastNonFlagArgument(arguments []string) string {
	for index := len(arguments) - 1; index >= 0; index-- {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, "-") {
			continue
		}
		return trimmed
	}
	return fallbackUnknownValueLabelConstant
}
