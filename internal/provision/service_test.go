package provision_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/envrig/envrig/internal/iniconfig"
	"github.com/envrig/envrig/internal/provision"
	"github.com/envrig/envrig/internal/requirements"
	"github.com/envrig/envrig/internal/venv"
	"github.com/envrig/envrig/internal/workspace"
)

const projectConfigurationContents = `[virtualenv]
python_version = 3.11
build_constraints =
	setuptools<70
requirements =
	click-odoo

[server]
repo = https://example.com/server.git
branch = 17.0
shallow_clone = yes

[addons.web]
repo = https://example.com/web.git
branch = 17.0

[config]
admin_passwd = secret
db_host = localhost
`

type callJournal struct {
	entries []string
}

func (journal *callJournal) record(entry string) {
	journal.entries = append(journal.entries, entry)
}

type scriptedSynchronizer struct {
	journal      *callJournal
	onConverge   func(specification workspace.RepositorySpec, destination string) error
	destinations []string
}

func (synchronizer *scriptedSynchronizer) Converge(_ context.Context, specification workspace.RepositorySpec, destination string) error {
	synchronizer.journal.record("converge " + filepath.Base(destination))
	synchronizer.destinations = append(synchronizer.destinations, destination)
	if synchronizer.onConverge != nil {
		return synchronizer.onConverge(specification, destination)
	}
	return nil
}

type recordingVirtualenv struct {
	journal           *callJournal
	ensureOptions     venv.EnsureOptions
	wheelhouseOptions venv.WheelhouseOptions
	installOptions    venv.InstallOptions
}

func (provisioner *recordingVirtualenv) EnsureVirtualenv(_ context.Context, options venv.EnsureOptions) error {
	provisioner.journal.record("ensure-virtualenv")
	provisioner.ensureOptions = options
	return nil
}

func (provisioner *recordingVirtualenv) BuildWheelhouse(_ context.Context, options venv.WheelhouseOptions) error {
	provisioner.journal.record("build-wheelhouse")
	provisioner.wheelhouseOptions = options
	return nil
}

func (provisioner *recordingVirtualenv) InstallFromWheelhouse(_ context.Context, options venv.InstallOptions) error {
	provisioner.journal.record("install-offline")
	provisioner.installOptions = options
	return nil
}

type recordingLockCompiler struct {
	journal *callJournal
	options requirements.CompileLockOptions
}

func (compiler *recordingLockCompiler) CompileLock(_ context.Context, options requirements.CompileLockOptions) error {
	compiler.journal.record("compile-lock")
	compiler.options = options
	return nil
}

func populateRepository(specification workspace.RepositorySpec, destination string) error {
	if mkdirError := os.MkdirAll(destination, 0o755); mkdirError != nil {
		return mkdirError
	}
	return os.WriteFile(filepath.Join(destination, "requirements.txt"), []byte("requests\n"), 0o644)
}

func writeProjectConfiguration(testInstance *testing.T, workspaceRoot string, contents string) string {
	testInstance.Helper()
	configurationPath := filepath.Join(workspaceRoot, "project.ini")
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(contents), 0o644))
	return configurationPath
}

func newProvisionService(testInstance *testing.T, synchronizer provision.RepositoryConverger, virtualenvProvisioner provision.VirtualenvProvisioner, lockCompiler provision.LockCompiler) *provision.Service {
	testInstance.Helper()
	service, constructionError := provision.NewService(provision.Dependencies{
		Logger:       zap.NewNop(),
		Resolver:     iniconfig.NewLoader(zap.NewNop()),
		Synchronizer: synchronizer,
		Virtualenv:   virtualenvProvisioner,
		LockCompiler: lockCompiler,
	})
	require.NoError(testInstance, constructionError)
	return service
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	journal := &callJournal{}
	completeDependencies := provision.Dependencies{
		Logger:       zap.NewNop(),
		Resolver:     iniconfig.NewLoader(zap.NewNop()),
		Synchronizer: &scriptedSynchronizer{journal: journal},
		Virtualenv:   &recordingVirtualenv{journal: journal},
		LockCompiler: &recordingLockCompiler{journal: journal},
	}

	withoutLogger := completeDependencies
	withoutLogger.Logger = nil
	_, loggerError := provision.NewService(withoutLogger)
	require.ErrorIs(testInstance, loggerError, provision.ErrLoggerNotConfigured)

	withoutSynchronizer := completeDependencies
	withoutSynchronizer.Synchronizer = nil
	_, synchronizerError := provision.NewService(withoutSynchronizer)
	require.ErrorIs(testInstance, synchronizerError, provision.ErrDependenciesNotConfigured)

	_, constructionError := provision.NewService(completeDependencies)
	require.NoError(testInstance, constructionError)
}

func TestRunExecutesFullProvisioningSequence(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	configurationPath := writeProjectConfiguration(testInstance, workspaceRoot, projectConfigurationContents)
	layout := workspace.LayoutFromRoot(workspaceRoot)

	journal := &callJournal{}
	synchronizer := &scriptedSynchronizer{journal: journal, onConverge: populateRepository}
	virtualenvProvisioner := &recordingVirtualenv{journal: journal}
	lockCompiler := &recordingLockCompiler{journal: journal}
	service := newProvisionService(testInstance, synchronizer, virtualenvProvisioner, lockCompiler)

	runError := service.Run(context.Background(), provision.RunOptions{
		ConfigPath:    configurationPath,
		WorkspaceRoot: workspaceRoot,
	})
	require.NoError(testInstance, runError)

	require.Equal(testInstance, []string{
		"converge server",
		"converge web",
		"ensure-virtualenv",
		"compile-lock",
		"build-wheelhouse",
		"install-offline",
	}, journal.entries)
	require.Equal(testInstance, []string{
		layout.ServerDirectory,
		layout.AddonDirectory("web"),
	}, synchronizer.destinations)

	require.Equal(testInstance, "3.11", virtualenvProvisioner.ensureOptions.PythonVersion)
	require.True(testInstance, virtualenvProvisioner.ensureOptions.ManagedPython)
	require.False(testInstance, virtualenvProvisioner.ensureOptions.SkipSeedPackages)
	require.Equal(testInstance, layout.VirtualenvDirectory, virtualenvProvisioner.ensureOptions.VirtualenvDirectory)

	expectedLockPath := filepath.Join(layout.WheelhouseDirectory, "all-requirements.lock.txt")
	expectedConstraintsPath := filepath.Join(layout.WheelhouseDirectory, "build-constraints.txt")
	require.Equal(testInstance, layout.VirtualenvPython(), lockCompiler.options.VirtualenvPython)
	require.Equal(testInstance, filepath.Join(layout.WheelhouseDirectory, "all-requirements.in.txt"), lockCompiler.options.InputPath)
	require.Equal(testInstance, expectedLockPath, lockCompiler.options.OutputPath)
	require.Equal(testInstance, expectedConstraintsPath, lockCompiler.options.BuildConstraintsPath)

	require.True(testInstance, virtualenvProvisioner.wheelhouseOptions.ClearPipCache)
	require.Equal(testInstance, expectedLockPath, virtualenvProvisioner.wheelhouseOptions.LockPath)
	require.Equal(testInstance, expectedLockPath, virtualenvProvisioner.installOptions.LockPath)
	require.Equal(testInstance, layout.WheelhouseDirectory, virtualenvProvisioner.installOptions.WheelhouseDirectory)

	constraintsContents, constraintsError := os.ReadFile(expectedConstraintsPath)
	require.NoError(testInstance, constraintsError)
	require.Equal(testInstance, "setuptools<70\n", string(constraintsContents))

	compileInputContents, compileInputError := os.ReadFile(lockCompiler.options.InputPath)
	require.NoError(testInstance, compileInputError)
	require.Contains(testInstance, string(compileInputContents), "requests")
	require.Contains(testInstance, string(compileInputContents), "pip")
	require.Contains(testInstance, string(compileInputContents), "click-odoo")
	require.Contains(testInstance, string(compileInputContents), "# --- from server/requirements.txt ---")
	require.Contains(testInstance, string(compileInputContents), "# --- from "+filepath.Join("addons", "web", "requirements.txt")+" ---")

	renderedConfiguration, renderedError := os.ReadFile(layout.ServerConfigurationPath)
	require.NoError(testInstance, renderedError)
	require.Contains(testInstance, string(renderedConfiguration), "[options]")
	require.Contains(testInstance, string(renderedConfiguration), "admin_passwd = secret")
	require.Contains(testInstance, string(renderedConfiguration), "db_host = localhost")
	require.Contains(testInstance, string(renderedConfiguration), "data_dir = "+layout.DataDirectory)
	require.Contains(testInstance, string(renderedConfiguration), layout.AddonDirectory("web"))
}

func TestRunFailsWhenServerRequirementsMissing(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	configurationPath := writeProjectConfiguration(testInstance, workspaceRoot, projectConfigurationContents)
	layout := workspace.LayoutFromRoot(workspaceRoot)

	journal := &callJournal{}
	synchronizer := &scriptedSynchronizer{journal: journal, onConverge: func(_ workspace.RepositorySpec, destination string) error {
		return os.MkdirAll(destination, 0o755)
	}}
	virtualenvProvisioner := &recordingVirtualenv{journal: journal}
	lockCompiler := &recordingLockCompiler{journal: journal}
	service := newProvisionService(testInstance, synchronizer, virtualenvProvisioner, lockCompiler)

	runError := service.Run(context.Background(), provision.RunOptions{
		ConfigPath:    configurationPath,
		WorkspaceRoot: workspaceRoot,
	})

	var missingRequirementsError provision.MissingServerRequirementsError
	require.ErrorAs(testInstance, runError, &missingRequirementsError)
	require.Equal(testInstance, filepath.Join(layout.ServerDirectory, "requirements.txt"), missingRequirementsError.Path)
	require.Equal(testInstance, []string{"converge server"}, journal.entries)
}

func TestRunStopsOnAddonConvergeFailure(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	configurationPath := writeProjectConfiguration(testInstance, workspaceRoot, projectConfigurationContents)

	convergeFailure := errors.New("remote unreachable")
	journal := &callJournal{}
	synchronizer := &scriptedSynchronizer{journal: journal, onConverge: func(specification workspace.RepositorySpec, destination string) error {
		if filepath.Base(destination) == "web" {
			return convergeFailure
		}
		return populateRepository(specification, destination)
	}}
	virtualenvProvisioner := &recordingVirtualenv{journal: journal}
	lockCompiler := &recordingLockCompiler{journal: journal}
	service := newProvisionService(testInstance, synchronizer, virtualenvProvisioner, lockCompiler)

	runError := service.Run(context.Background(), provision.RunOptions{
		ConfigPath:    configurationPath,
		WorkspaceRoot: workspaceRoot,
	})

	require.ErrorIs(testInstance, runError, convergeFailure)
	require.Equal(testInstance, []string{"converge server", "converge web"}, journal.entries)
}

func TestRunReuseWheelhouseInstallsFromExistingLock(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	configurationPath := writeProjectConfiguration(testInstance, workspaceRoot, projectConfigurationContents)
	layout := workspace.LayoutFromRoot(workspaceRoot)

	lockPath := filepath.Join(layout.WheelhouseDirectory, "all-requirements.lock.txt")
	require.NoError(testInstance, os.MkdirAll(layout.WheelhouseDirectory, 0o755))
	require.NoError(testInstance, os.WriteFile(lockPath, []byte("requests==2.32.0\n"), 0o644))

	journal := &callJournal{}
	synchronizer := &scriptedSynchronizer{journal: journal, onConverge: populateRepository}
	virtualenvProvisioner := &recordingVirtualenv{journal: journal}
	lockCompiler := &recordingLockCompiler{journal: journal}
	service := newProvisionService(testInstance, synchronizer, virtualenvProvisioner, lockCompiler)

	runError := service.Run(context.Background(), provision.RunOptions{
		ConfigPath:      configurationPath,
		WorkspaceRoot:   workspaceRoot,
		ReuseWheelhouse: true,
	})
	require.NoError(testInstance, runError)

	require.Equal(testInstance, []string{
		"converge server",
		"converge web",
		"ensure-virtualenv",
		"install-offline",
	}, journal.entries)
	require.True(testInstance, virtualenvProvisioner.ensureOptions.SkipSeedPackages)
	require.Equal(testInstance, lockPath, virtualenvProvisioner.installOptions.LockPath)
}

func TestRunReuseWheelhouseRequiresExistingLock(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	configurationPath := writeProjectConfiguration(testInstance, workspaceRoot, projectConfigurationContents)

	journal := &callJournal{}
	synchronizer := &scriptedSynchronizer{journal: journal, onConverge: populateRepository}
	service := newProvisionService(testInstance, synchronizer, &recordingVirtualenv{journal: journal}, &recordingLockCompiler{journal: journal})

	runError := service.Run(context.Background(), provision.RunOptions{
		ConfigPath:      configurationPath,
		WorkspaceRoot:   workspaceRoot,
		ReuseWheelhouse: true,
	})

	var missingLockError requirements.MissingLockError
	require.ErrorAs(testInstance, runError, &missingLockError)
}

func TestRunRendersDestinationPathsAndDataDirOverride(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	configurationContents := projectConfigurationContents +
		"data_dir = project-data\n" +
		"filestore_path = ${root_dir}/filestore\n"
	configurationPath := writeProjectConfiguration(testInstance, workspaceRoot, configurationContents)
	layout := workspace.LayoutFromRoot(workspaceRoot)

	journal := &callJournal{}
	synchronizer := &scriptedSynchronizer{journal: journal, onConverge: populateRepository}
	service := newProvisionService(testInstance, synchronizer, &recordingVirtualenv{journal: journal}, &recordingLockCompiler{journal: journal})

	runError := service.Run(context.Background(), provision.RunOptions{
		ConfigPath:      configurationPath,
		WorkspaceRoot:   workspaceRoot,
		DestinationRoot: "/opt/deploy",
	})
	require.NoError(testInstance, runError)

	renderedConfiguration, renderedError := os.ReadFile(layout.ServerConfigurationPath)
	require.NoError(testInstance, renderedError)
	require.Contains(testInstance, string(renderedConfiguration), "data_dir = /opt/deploy/project-data")
	require.Contains(testInstance, string(renderedConfiguration), "filestore_path = /opt/deploy/filestore")
	require.Contains(testInstance, string(renderedConfiguration), filepath.Join("/opt/deploy", "addons", "web"))
	require.NotContains(testInstance, string(renderedConfiguration), workspaceRoot)
}
