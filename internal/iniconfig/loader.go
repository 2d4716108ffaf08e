package iniconfig

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	ini "gopkg.in/ini.v1"
)

const (
	configurationResolvedMessageConstant    = "Resolved layered configuration"
	optionalIncludeSkippedMessageConstant   = "Optional include not found, skipping"
	entryFileLogFieldNameConstant           = "entry_file"
	includePathLogFieldNameConstant         = "include_path"
	loadedFilesLogFieldNameConstant         = "loaded_files"
	mergedConfigurationLogFieldNameConstant = "merged_configuration"
)

// Loader resolves an entry configuration file together with its transitive
// include tree into a single merged Document.
type Loader struct {
	logger *zap.Logger
}

// NewLoader builds a Loader. A nil logger disables the audit log.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Resolve loads the entry file and every include reachable from it, merging
// included files before the files that declare them so that declaring files
// win. Runtime variables are substituted inside include tokens before
// filesystem resolution and afterwards seed the document's default scope for
// value interpolation. The merged, credential-masked configuration is written
// to the audit log.
func (loader *Loader) Resolve(entryPath string, runtimeVariables map[string]string) (*Document, error) {
	absoluteEntryPath, absoluteError := filepath.Abs(entryPath)
	if absoluteError != nil {
		return nil, absoluteError
	}
	entryInformation, statError := os.Stat(absoluteEntryPath)
	if statError != nil {
		return nil, MissingEntryFileError{Path: absoluteEntryPath}
	}
	if entryInformation.IsDir() {
		return nil, NotAFileError{Path: absoluteEntryPath}
	}

	document := newDocument()
	for variableName, variableValue := range runtimeVariables {
		document.runtimeVariables[variableName] = variableValue
	}

	resolution := &includeResolution{
		loader:           loader,
		document:         document,
		runtimeVariables: runtimeVariables,
		loadedPaths:      map[string]bool{},
	}
	if loadError := resolution.loadFile(absoluteEntryPath, "", false); loadError != nil {
		return nil, loadError
	}

	auditRendering, auditError := RenderForAudit(document)
	if auditError != nil {
		return nil, auditError
	}
	loader.logger.Info(configurationResolvedMessageConstant,
		zap.String(entryFileLogFieldNameConstant, absoluteEntryPath),
		zap.Strings(loadedFilesLogFieldNameConstant, document.loadedFiles),
		zap.String(mergedConfigurationLogFieldNameConstant, auditRendering),
	)
	return document, nil
}

// includeResolution carries the traversal state for one Resolve call. The
// in-progress stack detects cycles; the loaded set makes diamond-shaped
// include graphs load each file exactly once.
type includeResolution struct {
	loader           *Loader
	document         *Document
	runtimeVariables map[string]string
	inProgressStack  []string
	loadedPaths      map[string]bool
}

func (resolution *includeResolution) loadFile(absolutePath string, declaringPath string, optional bool) error {
	if resolution.loadedPaths[absolutePath] {
		return nil
	}
	for _, stackedPath := range resolution.inProgressStack {
		if stackedPath == absolutePath {
			return IncludeCycleError{Chain: append(append([]string{}, resolution.inProgressStack...), absolutePath)}
		}
	}

	pathInformation, statError := os.Stat(absolutePath)
	if statError != nil {
		if optional {
			resolution.loader.logger.Info(optionalIncludeSkippedMessageConstant,
				zap.String(includePathLogFieldNameConstant, absolutePath))
			return nil
		}
		return MissingIncludeError{IncludedPath: absolutePath, DeclaringPath: declaringPath}
	}
	if pathInformation.IsDir() {
		return NotAFileError{Path: absolutePath}
	}

	parsedFile, parseError := ini.LoadSources(ini.LoadOptions{AllowPythonMultilineValues: true}, absolutePath)
	if parseError != nil {
		return parseError
	}

	resolution.inProgressStack = append(resolution.inProgressStack, absolutePath)
	declaringDirectory := filepath.Dir(absolutePath)
	for _, declaredToken := range declaredIncludeTokens(parsedFile) {
		includedPath, resolveError := resolveIncludePath(declaredToken, declaringDirectory, resolution.runtimeVariables)
		if resolveError != nil {
			return resolveError
		}
		if loadError := resolution.loadFile(includedPath, absolutePath, declaredToken.Optional); loadError != nil {
			return loadError
		}
	}
	resolution.inProgressStack = resolution.inProgressStack[:len(resolution.inProgressStack)-1]

	mergeParsedFile(resolution.document, parsedFile)
	resolution.loadedPaths[absolutePath] = true
	resolution.document.loadedFiles = append(resolution.document.loadedFiles, absolutePath)
	return nil
}

// declaredIncludeTokens reads the reserved [include] files list from one parsed file.
func declaredIncludeTokens(parsedFile *ini.File) []includeToken {
	includeSection, sectionError := parsedFile.GetSection(includeSectionNameConstant)
	if sectionError != nil || !includeSection.HasKey(includeOptionNameConstant) {
		return nil
	}
	tokens := []includeToken{}
	for _, rawToken := range SplitListValue(includeSection.Key(includeOptionNameConstant).Value()) {
		tokens = append(tokens, parseIncludeToken(rawToken))
	}
	return tokens
}

// mergeParsedFile folds one parsed file into the document, later files
// overwriting earlier ones. Option names are lowercased so lookups and
// interpolation references are case-insensitive on the option axis.
func mergeParsedFile(document *Document, parsedFile *ini.File) {
	for _, parsedSection := range parsedFile.Sections() {
		if parsedSection.Name() == ini.DefaultSection {
			for _, parsedKey := range parsedSection.Keys() {
				document.defaultValues[strings.ToLower(parsedKey.Name())] = parsedKey.Value()
			}
			continue
		}
		if parsedSection.Name() == includeSectionNameConstant {
			continue
		}
		for _, parsedKey := range parsedSection.Keys() {
			document.setOption(parsedSection.Name(), strings.ToLower(parsedKey.Name()), parsedKey.Value())
		}
	}
}
