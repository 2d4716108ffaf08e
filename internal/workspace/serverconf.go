package workspace

import (
	"path/filepath"
	"strings"

	"github.com/envrig/envrig/internal/iniconfig"
)

const (
	optionsSectionHeaderConstant = "[options]"
	addonsPathOptionNameConstant = "addons_path"
	dataDirOptionNameConstant    = "data_dir"
)

// RenderServerConfiguration produces the server configuration file contents:
// an [options] group carrying every [config] key, with addons_path computed
// from the built-in server addon directories, the synced addon repositories,
// and any user-supplied extra entries (appended, de-duplicated, order kept),
// and data_dir always taken from the layout.
func RenderServerConfiguration(configuration Configuration, layout Layout) string {
	renderedLines := []string{optionsSectionHeaderConstant}
	for _, optionName := range configuration.ConfigOrder {
		if optionName == addonsPathOptionNameConstant || optionName == dataDirOptionNameConstant {
			continue
		}
		renderedLines = append(renderedLines, optionName+" = "+configuration.ServerConfig[optionName])
	}
	renderedLines = append(renderedLines, addonsPathOptionNameConstant+" = "+mergedAddonsPath(configuration, layout))
	renderedLines = append(renderedLines, dataDirOptionNameConstant+" = "+layout.DataDirectory)
	return strings.Join(renderedLines, "\n") + "\n"
}

// mergedAddonsPath joins built-in, synced, and user-declared addon
// directories into one comma-separated list without duplicates.
func mergedAddonsPath(configuration Configuration, layout Layout) string {
	candidatePaths := layout.builtinServerAddonDirectories()
	for _, addonSpecification := range configuration.Addons {
		candidatePaths = append(candidatePaths, layout.AddonDirectory(addonSpecification.Name))
	}
	for _, userEntry := range iniconfig.SplitListValue(configuration.ServerConfig[addonsPathOptionNameConstant]) {
		userPath := userEntry
		if !filepath.IsAbs(userPath) {
			userPath = filepath.Join(layout.Root, userPath)
		}
		candidatePaths = append(candidatePaths, filepath.Clean(userPath))
	}

	mergedPaths := []string{}
	seenPaths := map[string]bool{}
	for _, candidatePath := range candidatePaths {
		if seenPaths[candidatePath] {
			continue
		}
		seenPaths[candidatePath] = true
		mergedPaths = append(mergedPaths, candidatePath)
	}
	return strings.Join(mergedPaths, ",")
}
