package workspace

import (
	"strings"

	"github.com/envrig/envrig/internal/iniconfig"
)

const (
	virtualenvSectionNameConstant      = "virtualenv"
	serverSectionNameConstant          = "server"
	configSectionNameConstant          = "config"
	addonSectionPrefixConstant         = "addons."
	pythonVersionOptionNameConstant    = "python_version"
	buildConstraintsOptionNameConstant = "build_constraints"
	requirementsOptionNameConstant     = "requirements"
	requirementsIgnoreOptionConstant   = "requirements_ignore"
	managedPythonOptionNameConstant    = "managed_python"
	repositoryOptionNameConstant       = "repo"
	branchOptionNameConstant           = "branch"
	shallowCloneOptionNameConstant     = "shallow_clone"
)

// RepositorySpec describes one git repository to converge: where it lives,
// which branch to track, and whether to keep it as a shallow single-branch
// clone.
type RepositorySpec struct {
	RemoteURL string
	Branch    string
	Shallow   bool
}

// AddonSpec pairs a repository spec with the addon name derived from its
// configuration section. Order follows section declaration order.
type AddonSpec struct {
	Name       string
	Repository RepositorySpec
}

// VirtualenvConfiguration holds the interpreter and requirement settings for
// the workspace virtualenv.
type VirtualenvConfiguration struct {
	PythonVersion      string
	BuildConstraints   []string
	Requirements       []string
	RequirementsIgnore []string
	ManagedPython      bool
}

// Configuration is the fully typed project model: virtualenv settings, the
// server repository, the declared addon repositories, and the raw server
// configuration key/value table from the [config] section.
type Configuration struct {
	Virtualenv   VirtualenvConfiguration
	Server       RepositorySpec
	Addons       []AddonSpec
	ServerConfig map[string]string
	ConfigOrder  []string
}

// ConfigurationFromDocument extracts and validates the typed project model
// from a resolved configuration document.
func ConfigurationFromDocument(document *iniconfig.Document) (Configuration, error) {
	virtualenvConfiguration, virtualenvError := virtualenvFromDocument(document)
	if virtualenvError != nil {
		return Configuration{}, virtualenvError
	}

	serverRepository, serverError := repositorySpecFromSection(document, serverSectionNameConstant)
	if serverError != nil {
		return Configuration{}, serverError
	}

	addonSpecifications, addonError := addonsFromDocument(document)
	if addonError != nil {
		return Configuration{}, addonError
	}

	if !document.HasSection(configSectionNameConstant) {
		return Configuration{}, iniconfig.MissingSectionError{Section: configSectionNameConstant}
	}
	serverConfigValues := map[string]string{}
	configOrder := document.OptionNames(configSectionNameConstant)
	for _, optionName := range configOrder {
		optionValue, optionError := document.Get(configSectionNameConstant, optionName)
		if optionError != nil {
			return Configuration{}, optionError
		}
		serverConfigValues[optionName] = optionValue
	}

	return Configuration{
		Virtualenv:   virtualenvConfiguration,
		Server:       serverRepository,
		Addons:       addonSpecifications,
		ServerConfig: serverConfigValues,
		ConfigOrder:  configOrder,
	}, nil
}

func virtualenvFromDocument(document *iniconfig.Document) (VirtualenvConfiguration, error) {
	pythonVersion, versionError := document.Get(virtualenvSectionNameConstant, pythonVersionOptionNameConstant)
	if versionError != nil {
		return VirtualenvConfiguration{}, versionError
	}
	pythonVersion = strings.TrimSpace(pythonVersion)
	if len(pythonVersion) == 0 {
		return VirtualenvConfiguration{}, iniconfig.MissingOptionError{
			Section: virtualenvSectionNameConstant,
			Option:  pythonVersionOptionNameConstant,
		}
	}

	buildConstraints, constraintsError := document.GetList(virtualenvSectionNameConstant, buildConstraintsOptionNameConstant)
	if constraintsError != nil {
		return VirtualenvConfiguration{}, constraintsError
	}
	requirementSpecifiers, requirementsError := document.GetList(virtualenvSectionNameConstant, requirementsOptionNameConstant)
	if requirementsError != nil {
		return VirtualenvConfiguration{}, requirementsError
	}
	ignoredRequirementNames, ignoreError := document.GetList(virtualenvSectionNameConstant, requirementsIgnoreOptionConstant)
	if ignoreError != nil {
		return VirtualenvConfiguration{}, ignoreError
	}
	managedPython, managedError := document.GetBool(virtualenvSectionNameConstant, managedPythonOptionNameConstant, true)
	if managedError != nil {
		return VirtualenvConfiguration{}, managedError
	}

	return VirtualenvConfiguration{
		PythonVersion:      pythonVersion,
		BuildConstraints:   buildConstraints,
		Requirements:       requirementSpecifiers,
		RequirementsIgnore: ignoredRequirementNames,
		ManagedPython:      managedPython,
	}, nil
}

func repositorySpecFromSection(document *iniconfig.Document, sectionName string) (RepositorySpec, error) {
	remoteURL, remoteError := document.Get(sectionName, repositoryOptionNameConstant)
	if remoteError != nil {
		return RepositorySpec{}, remoteError
	}
	branchName, branchError := document.Get(sectionName, branchOptionNameConstant)
	if branchError != nil {
		return RepositorySpec{}, branchError
	}
	shallowClone, shallowError := document.GetBool(sectionName, shallowCloneOptionNameConstant, false)
	if shallowError != nil {
		return RepositorySpec{}, shallowError
	}
	return RepositorySpec{RemoteURL: remoteURL, Branch: branchName, Shallow: shallowClone}, nil
}

func addonsFromDocument(document *iniconfig.Document) ([]AddonSpec, error) {
	addonSpecifications := []AddonSpec{}
	for _, sectionName := range document.SectionNames() {
		if !strings.HasPrefix(sectionName, addonSectionPrefixConstant) {
			continue
		}
		addonName := sectionName[len(addonSectionPrefixConstant):]
		addonRepository, addonError := repositorySpecFromSection(document, sectionName)
		if addonError != nil {
			return nil, addonError
		}
		addonSpecifications = append(addonSpecifications, AddonSpec{Name: addonName, Repository: addonRepository})
	}
	return addonSpecifications, nil
}
