package tests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/envrig/envrig/internal/execshell"
	"github.com/envrig/envrig/internal/provision"
)

const integrationConfigurationContents = `[virtualenv]
python_version = 3.11

[server]
repo = https://example.com/server.git
branch = 17.0

[addons.web]
repo = https://example.com/web.git
branch = 17.0

[config]
db_host = localhost
`

// scriptedCommandRunner answers every external command without touching the
// network. Clone invocations materialize the repository on disk so the
// provisioning flow can find the requirement files it expects.
type scriptedCommandRunner struct {
	commandLines []string
}

func (runner *scriptedCommandRunner) Run(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.commandLines = append(runner.commandLines, command.CommandLine())

	arguments := command.Details.Arguments
	if command.Name == execshell.CommandGit && len(arguments) > 0 {
		switch arguments[0] {
		case "clone":
			destination := arguments[len(arguments)-1]
			if mkdirError := os.MkdirAll(filepath.Join(destination, ".git"), 0o755); mkdirError != nil {
				return execshell.ExecutionResult{}, mkdirError
			}
			requirementsPath := filepath.Join(destination, "requirements.txt")
			if writeError := os.WriteFile(requirementsPath, []byte("requests\n"), 0o644); writeError != nil {
				return execshell.ExecutionResult{}, writeError
			}
		case "config":
			return execshell.ExecutionResult{StandardOutput: "+refs/heads/*:refs/remotes/origin/*\n"}, nil
		}
	}

	return execshell.ExecutionResult{}, nil
}

func (runner *scriptedCommandRunner) commandLineContaining(fragment string) bool {
	for _, commandLine := range runner.commandLines {
		if strings.Contains(commandLine, fragment) {
			return true
		}
	}
	return false
}

func TestSyncCommandProvisionsWorkspaceEndToEnd(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	configurationPath := filepath.Join(workspaceRoot, "project.ini")
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(integrationConfigurationContents), 0o644))

	runner := &scriptedCommandRunner{}
	builder := provision.CommandBuilder{CommandRunner: runner}
	syncCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	syncCommand.SetArgs([]string{
		"--config", configurationPath,
		"--root", workspaceRoot,
	})
	require.NoError(testInstance, syncCommand.Execute())

	require.True(testInstance, runner.commandLineContaining("git clone --branch 17.0 https://example.com/server.git"))
	require.True(testInstance, runner.commandLineContaining("git clone --branch 17.0 https://example.com/web.git"))
	require.True(testInstance, runner.commandLineContaining("uv venv -p 3.11"))
	require.True(testInstance, runner.commandLineContaining("uv pip compile -p"))
	require.True(testInstance, runner.commandLineContaining("uv pip sync"))

	renderedConfigurationPath := filepath.Join(workspaceRoot, "configs", "server.conf")
	renderedConfiguration, readError := os.ReadFile(renderedConfigurationPath)
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(renderedConfiguration), "[options]")
	require.Contains(testInstance, string(renderedConfiguration), "db_host = localhost")
	require.Contains(testInstance, string(renderedConfiguration), filepath.Join(workspaceRoot, "addons", "web"))
}

func TestSyncCommandRejectsPositionalArguments(testInstance *testing.T) {
	builder := provision.CommandBuilder{CommandRunner: &scriptedCommandRunner{}}
	syncCommand, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	syncCommand.SetArgs([]string{"unexpected"})
	require.Error(testInstance, syncCommand.Execute())
}
