package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandMessageFormatterGitSubcommands(testInstance *testing.T) {
	formatter := CommandMessageFormatter{}

	testCases := []struct {
		name            string
		command         ShellCommand
		expectedStart   string
		expectedSuccess string
	}{
		{
			name: "clone",
			command: ShellCommand{
				Name:    CommandGit,
				Details: CommandDetails{Arguments: []string{"clone", "--depth", "1", "--branch", "17.0", "--single-branch", "https://example.com/server.git", "/workspace/server"}},
			},
			expectedStart:   "Cloning https://example.com/server.git",
			expectedSuccess: "Cloned https://example.com/server.git",
		},
		{
			name: "fetch",
			command: ShellCommand{
				Name:    CommandGit,
				Details: CommandDetails{Arguments: []string{"fetch", "--all", "--tags", "--prune"}, WorkingDirectory: "/workspace/server"},
			},
			expectedStart:   "Fetching in /workspace/server",
			expectedSuccess: "Fetched in /workspace/server",
		},
		{
			name: "checkout",
			command: ShellCommand{
				Name:    CommandGit,
				Details: CommandDetails{Arguments: []string{"checkout", "-B", "17.0", "origin/17.0"}, WorkingDirectory: "/workspace/server"},
			},
			expectedStart:   "Switching /workspace/server to origin/17.0",
			expectedSuccess: "/workspace/server now on origin/17.0",
		},
		{
			name: "status",
			command: ShellCommand{
				Name:    CommandGit,
				Details: CommandDetails{Arguments: []string{"status", "--porcelain"}, WorkingDirectory: "/workspace/addons/web"},
			},
			expectedStart:   "Reviewing working tree status in /workspace/addons/web",
			expectedSuccess: "Collected working tree status for /workspace/addons/web",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedStart, formatter.BuildStartedMessage(testCase.command))
			require.Equal(testInstance, testCase.expectedSuccess, formatter.BuildSuccessMessage(testCase.command))
		})
	}
}

func TestCommandMessageFormatterGenericAndFailures(testInstance *testing.T) {
	formatter := CommandMessageFormatter{}

	uvCommand := ShellCommand{
		Name:    CommandUV,
		Details: CommandDetails{Arguments: []string{"pip", "compile", "in.txt"}, WorkingDirectory: "/workspace"},
	}

	require.Equal(testInstance, "Running uv pip compile in.txt (in /workspace)", formatter.BuildStartedMessage(uvCommand))
	require.Equal(testInstance, "Completed uv pip compile in.txt (in /workspace)", formatter.BuildSuccessMessage(uvCommand))

	failureMessage := formatter.BuildFailureMessage(uvCommand, ExecutionResult{ExitCode: 2, StandardError: "no solution"})
	require.Contains(testInstance, failureMessage, "exit code 2")
	require.Contains(testInstance, failureMessage, "no solution")

	executionFailureMessage := formatter.BuildExecutionFailureMessage(uvCommand, errors.New("binary missing"))
	require.Contains(testInstance, executionFailureMessage, "binary missing")
}
