package iniconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/envrig/envrig/internal/iniconfig"
)

func writeConfigurationFile(testInstance *testing.T, directory string, fileName string, contents string) string {
	testInstance.Helper()
	filePath := filepath.Join(directory, fileName)
	require.NoError(testInstance, os.WriteFile(filePath, []byte(contents), 0o644))
	return filePath
}

func TestLoaderResolveMergesIncludesBeforeDeclaringFile(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	writeConfigurationFile(testInstance, temporaryDirectory, "base.ini", "[service]\nhost = base-host\nport = 8069\n")
	entryPath := writeConfigurationFile(testInstance, temporaryDirectory, "entry.ini",
		"[include]\nfiles =\n\tbase.ini\n\n[service]\nhost = entry-host\n")

	document, resolveError := iniconfig.NewLoader(zap.NewNop()).Resolve(entryPath, nil)
	require.NoError(testInstance, resolveError)

	hostValue, hostError := document.Get("service", "host")
	require.NoError(testInstance, hostError)
	require.Equal(testInstance, "entry-host", hostValue)

	portValue, portError := document.Get("service", "port")
	require.NoError(testInstance, portError)
	require.Equal(testInstance, "8069", portValue)
}

func TestLoaderResolveSkipsMissingOptionalInclude(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	entryPath := writeConfigurationFile(testInstance, temporaryDirectory, "entry.ini",
		"[include]\nfiles =\n\t?absent.ini\n\n[service]\nhost = entry-host\n")

	document, resolveError := iniconfig.NewLoader(zap.NewNop()).Resolve(entryPath, nil)
	require.NoError(testInstance, resolveError)
	require.Len(testInstance, document.LoadedFiles(), 1)
}

func TestLoaderResolveFailsOnMissingRequiredInclude(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	entryPath := writeConfigurationFile(testInstance, temporaryDirectory, "entry.ini",
		"[include]\nfiles =\n\tabsent.ini\n")

	_, resolveError := iniconfig.NewLoader(zap.NewNop()).Resolve(entryPath, nil)
	require.Error(testInstance, resolveError)
	var missingError iniconfig.MissingIncludeError
	require.ErrorAs(testInstance, resolveError, &missingError)
	require.Equal(testInstance, filepath.Join(temporaryDirectory, "absent.ini"), missingError.IncludedPath)
	require.Equal(testInstance, entryPath, missingError.DeclaringPath)
}

func TestLoaderResolveReportsFullCycleChain(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	entryPath := writeConfigurationFile(testInstance, temporaryDirectory, "first.ini",
		"[include]\nfiles = second.ini\n")
	writeConfigurationFile(testInstance, temporaryDirectory, "second.ini",
		"[include]\nfiles = third.ini\n")
	writeConfigurationFile(testInstance, temporaryDirectory, "third.ini",
		"[include]\nfiles = first.ini\n")

	_, resolveError := iniconfig.NewLoader(zap.NewNop()).Resolve(entryPath, nil)
	require.Error(testInstance, resolveError)
	var cycleError iniconfig.IncludeCycleError
	require.ErrorAs(testInstance, resolveError, &cycleError)
	require.Equal(testInstance, []string{
		entryPath,
		filepath.Join(temporaryDirectory, "second.ini"),
		filepath.Join(temporaryDirectory, "third.ini"),
		entryPath,
	}, cycleError.Chain)
}

func TestLoaderResolveLoadsDiamondIncludeOnce(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	writeConfigurationFile(testInstance, temporaryDirectory, "shared.ini", "[shared]\nvalue = from-shared\n")
	writeConfigurationFile(testInstance, temporaryDirectory, "left.ini", "[include]\nfiles = shared.ini\n")
	writeConfigurationFile(testInstance, temporaryDirectory, "right.ini", "[include]\nfiles = shared.ini\n")
	entryPath := writeConfigurationFile(testInstance, temporaryDirectory, "entry.ini",
		"[include]\nfiles =\n\tleft.ini\n\tright.ini\n")

	document, resolveError := iniconfig.NewLoader(zap.NewNop()).Resolve(entryPath, nil)
	require.NoError(testInstance, resolveError)

	sharedCount := 0
	for _, loadedFile := range document.LoadedFiles() {
		if filepath.Base(loadedFile) == "shared.ini" {
			sharedCount++
		}
	}
	require.Equal(testInstance, 1, sharedCount)
	require.Len(testInstance, document.LoadedFiles(), 4)
}

func TestLoaderResolveResolvesIncludesRelativeToDeclaringFile(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	nestedDirectory := filepath.Join(temporaryDirectory, "nested")
	require.NoError(testInstance, os.MkdirAll(nestedDirectory, 0o755))
	writeConfigurationFile(testInstance, nestedDirectory, "sibling.ini", "[service]\nhost = sibling-host\n")
	writeConfigurationFile(testInstance, nestedDirectory, "middle.ini", "[include]\nfiles = sibling.ini\n")
	entryPath := writeConfigurationFile(testInstance, temporaryDirectory, "entry.ini",
		"[include]\nfiles = nested/middle.ini\n")

	document, resolveError := iniconfig.NewLoader(zap.NewNop()).Resolve(entryPath, nil)
	require.NoError(testInstance, resolveError)

	hostValue, hostError := document.Get("service", "host")
	require.NoError(testInstance, hostError)
	require.Equal(testInstance, "sibling-host", hostValue)
}

func TestLoaderResolveSubstitutesRuntimeVariablesInIncludeTokens(testInstance *testing.T) {
	temporaryDirectory := testInstance.TempDir()
	overlayDirectory := filepath.Join(temporaryDirectory, "overlays")
	require.NoError(testInstance, os.MkdirAll(overlayDirectory, 0o755))
	writeConfigurationFile(testInstance, overlayDirectory, "production.ini", "[service]\nhost = production-host\n")
	entryPath := writeConfigurationFile(testInstance, temporaryDirectory, "entry.ini",
		"[include]\nfiles = overlays/${environment_name}.ini\n")

	document, resolveError := iniconfig.NewLoader(zap.NewNop()).
		Resolve(entryPath, map[string]string{"environment_name": "production"})
	require.NoError(testInstance, resolveError)

	hostValue, hostError := document.Get("service", "host")
	require.NoError(testInstance, hostError)
	require.Equal(testInstance, "production-host", hostValue)
}

func TestLoaderResolveFailsOnMissingEntryFile(testInstance *testing.T) {
	missingPath := filepath.Join(testInstance.TempDir(), "absent.ini")

	_, resolveError := iniconfig.NewLoader(zap.NewNop()).Resolve(missingPath, nil)
	require.Error(testInstance, resolveError)
	var missingError iniconfig.MissingEntryFileError
	require.ErrorAs(testInstance, resolveError, &missingError)
	require.Equal(testInstance, missingPath, missingError.Path)
}
