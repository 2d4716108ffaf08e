package workspace

import (
	"path/filepath"
)

const (
	serverDirectoryNameConstant     = "server"
	addonsDirectoryNameConstant     = "addons"
	configsDirectoryNameConstant    = "configs"
	dataDirectoryNameConstant       = "data"
	wheelhouseDirectoryNameConstant = "wheelhouse"
	virtualenvDirectoryNameConstant = "venv"
	serverConfigurationFileConstant = "server.conf"
)

// Layout fixes every derived path under a workspace root. All synchronizers
// and renderers consume paths from here rather than recomputing them.
type Layout struct {
	Root                    string
	ServerDirectory         string
	AddonsRoot              string
	ConfigsDirectory        string
	ServerConfigurationPath string
	DataDirectory           string
	WheelhouseDirectory     string
	VirtualenvDirectory     string
}

// LayoutFromRoot derives the workspace layout for a root directory.
func LayoutFromRoot(rootDirectory string) Layout {
	configsDirectory := filepath.Join(rootDirectory, configsDirectoryNameConstant)
	return Layout{
		Root:                    rootDirectory,
		ServerDirectory:         filepath.Join(rootDirectory, serverDirectoryNameConstant),
		AddonsRoot:              filepath.Join(rootDirectory, addonsDirectoryNameConstant),
		ConfigsDirectory:        configsDirectory,
		ServerConfigurationPath: filepath.Join(configsDirectory, serverConfigurationFileConstant),
		DataDirectory:           filepath.Join(rootDirectory, dataDirectoryNameConstant),
		WheelhouseDirectory:     filepath.Join(rootDirectory, wheelhouseDirectoryNameConstant),
		VirtualenvDirectory:     filepath.Join(rootDirectory, virtualenvDirectoryNameConstant),
	}
}

// AddonDirectory returns the destination directory for a named addon repository.
func (layout Layout) AddonDirectory(addonName string) string {
	return filepath.Join(layout.AddonsRoot, addonName)
}

// VirtualenvPython returns the interpreter path inside the workspace virtualenv.
func (layout Layout) VirtualenvPython() string {
	return filepath.Join(layout.VirtualenvDirectory, "bin", "python")
}

// builtinServerAddonDirectories lists the addon directories shipped inside
// the server repository itself, whether flat or nested package layout.
func (layout Layout) builtinServerAddonDirectories() []string {
	return []string{
		filepath.Join(layout.ServerDirectory, addonsDirectoryNameConstant),
		filepath.Join(layout.ServerDirectory, serverDirectoryNameConstant, addonsDirectoryNameConstant),
	}
}
