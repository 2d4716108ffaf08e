package iniconfig

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	includeSectionNameConstant  = "include"
	includeOptionNameConstant   = "files"
	includeOptionalMarkerPrefix = "?"
	homeDirectoryPrefixConstant = "~"
)

// includeToken is one declared include path before filesystem resolution.
type includeToken struct {
	RawPath  string
	Optional bool
}

// parseIncludeToken strips the optional marker from a declared include path.
func parseIncludeToken(rawToken string) includeToken {
	trimmedToken := strings.TrimSpace(rawToken)
	if strings.HasPrefix(trimmedToken, includeOptionalMarkerPrefix) {
		return includeToken{RawPath: strings.TrimSpace(trimmedToken[len(includeOptionalMarkerPrefix):]), Optional: true}
	}
	return includeToken{RawPath: trimmedToken}
}

// expandIncludeToken substitutes ${name} runtime variables and then process
// environment variables inside an include path. Section:option references are
// never evaluated here; include resolution happens before value interpolation.
func expandIncludeToken(rawPath string, runtimeVariables map[string]string) string {
	expandedPath := rawPath
	for variableName, variableValue := range runtimeVariables {
		expandedPath = strings.ReplaceAll(expandedPath, "${"+variableName+"}", variableValue)
	}
	return os.ExpandEnv(expandedPath)
}

// resolveIncludePath produces the absolute path for an include token,
// interpreting relative paths against the declaring file's directory.
func resolveIncludePath(token includeToken, declaringDirectory string, runtimeVariables map[string]string) (string, error) {
	expandedPath := expandIncludeToken(token.RawPath, runtimeVariables)
	if strings.HasPrefix(expandedPath, homeDirectoryPrefixConstant+string(os.PathSeparator)) || expandedPath == homeDirectoryPrefixConstant {
		homeDirectory, homeError := os.UserHomeDir()
		if homeError != nil {
			return "", homeError
		}
		expandedPath = filepath.Join(homeDirectory, strings.TrimPrefix(expandedPath, homeDirectoryPrefixConstant))
	}
	if !filepath.IsAbs(expandedPath) {
		expandedPath = filepath.Join(declaringDirectory, expandedPath)
	}
	return filepath.Clean(expandedPath), nil
}
