package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/envrig/envrig/internal/workspace"
)

const (
	iniDirVariableNameConstant     = "ini_dir"
	rootDirVariableNameConstant    = "root_dir"
	serverDirVariableNameConstant  = "server_dir"
	addonsDirVariableNameConstant  = "addons_dir"
	configsDirVariableNameConstant = "configs_dir"
	configPathVariableNameConstant = "config_path"
	dataDirVariableNameConstant    = "data_dir"
	wheelhouseVariableNameConstant = "wheelhouse_dir"
	venvPythonVariableNameConstant = "venv_python"

	variablesFileErrorTemplateConstant = "failed to load variables file %s: %w"
)

// runtimeVariables builds the variable set available to configuration
// placeholders and include tokens for one layout. The entry file's directory
// is exposed so include trees stay relocatable.
func runtimeVariables(entryDirectory string, layout workspace.Layout) map[string]string {
	return map[string]string{
		iniDirVariableNameConstant:     entryDirectory,
		rootDirVariableNameConstant:    layout.Root,
		serverDirVariableNameConstant:  layout.ServerDirectory,
		addonsDirVariableNameConstant:  layout.AddonsRoot,
		configsDirVariableNameConstant: layout.ConfigsDirectory,
		configPathVariableNameConstant: layout.ServerConfigurationPath,
		dataDirVariableNameConstant:    layout.DataDirectory,
		wheelhouseVariableNameConstant: layout.WheelhouseDirectory,
		venvPythonVariableNameConstant: layout.VirtualenvPython(),
	}
}

// LoadVariableOverrides reads a YAML mapping of additional runtime variables.
// An empty path yields no overrides.
func LoadVariableOverrides(variablesFilePath string) (map[string]string, error) {
	if len(variablesFilePath) == 0 {
		return nil, nil
	}
	fileContents, readError := os.ReadFile(variablesFilePath)
	if readError != nil {
		return nil, fmt.Errorf(variablesFileErrorTemplateConstant, variablesFilePath, readError)
	}
	overrides := map[string]string{}
	if unmarshalError := yaml.Unmarshal(fileContents, &overrides); unmarshalError != nil {
		return nil, fmt.Errorf(variablesFileErrorTemplateConstant, variablesFilePath, unmarshalError)
	}
	return overrides, nil
}

// mergeVariables overlays overrides onto computed variables, overrides winning.
func mergeVariables(computedVariables map[string]string, overrides map[string]string) map[string]string {
	mergedVariables := map[string]string{}
	for variableName, variableValue := range computedVariables {
		mergedVariables[variableName] = variableValue
	}
	for variableName, variableValue := range overrides {
		mergedVariables[variableName] = variableValue
	}
	return mergedVariables
}

// resolveDestinationRoot interprets an optional destination override, used
// when generated files must embed paths for a different deployment host.
// Relative overrides resolve against the workspace root for stability.
func resolveDestinationRoot(workspaceRoot string, destinationOverride string) string {
	if len(destinationOverride) == 0 {
		return workspaceRoot
	}
	if filepath.IsAbs(destinationOverride) {
		return filepath.Clean(destinationOverride)
	}
	return filepath.Join(workspaceRoot, destinationOverride)
}
