package provision

// CommandConfiguration captures the persisted settings of the sync command.
type CommandConfiguration struct {
	ConfigPath      string `mapstructure:"config_path"`
	WorkspaceRoot   string `mapstructure:"workspace_root"`
	DestinationRoot string `mapstructure:"destination_root"`
	VariablesFile   string `mapstructure:"variables_file"`
	ReuseWheelhouse bool   `mapstructure:"reuse_wheelhouse"`
	KeepPipCache    bool   `mapstructure:"keep_pip_cache"`
}

const (
	configPathConfigurationKeyConstant      = "config_path"
	workspaceRootConfigurationKeyConstant   = "workspace_root"
	destinationRootConfigurationKeyConstant = "destination_root"
	variablesFileConfigurationKeyConstant   = "variables_file"
	reuseWheelhouseConfigurationKeyConstant = "reuse_wheelhouse"
	keepPipCacheConfigurationKeyConstant    = "keep_pip_cache"

	defaultConfigPathConstant    = "project.ini"
	defaultWorkspaceRootConstant = "."
)

// DefaultConfigurationValues exposes the sync defaults for the configuration loader.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + "." + configPathConfigurationKeyConstant:      defaultConfigPathConstant,
		configurationKeyPrefix + "." + workspaceRootConfigurationKeyConstant:   defaultWorkspaceRootConstant,
		configurationKeyPrefix + "." + destinationRootConfigurationKeyConstant: "",
		configurationKeyPrefix + "." + variablesFileConfigurationKeyConstant:   "",
		configurationKeyPrefix + "." + reuseWheelhouseConfigurationKeyConstant: false,
		configurationKeyPrefix + "." + keepPipCacheConfigurationKeyConstant:    false,
	}
}
