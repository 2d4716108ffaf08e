package requirements

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	generatedHeaderLineConstant          = "# This file is generated by envrig (DO NOT EDIT)."
	generatedSourceLineConstant          = "# Source: server and addon repository requirements, plus configured extras and envrig defaults."
	baseBlockLabelConstant               = "# --- base requirements (from configuration + envrig defaults) ---"
	sourceBlockLabelTemplateConstant     = "# --- from %s ---"
	beginIncludeMarkerTemplateConstant   = "# envrig: begin include %s"
	endIncludeMarkerTemplateConstant     = "# envrig: end include %s"
	skippedIncludeMarkerTemplateConstant = "# envrig: skipped recursive include %s"
	ignoredLineMarkerTemplateConstant    = "# envrig: skipped (ignored package '%s'): %s"
	commentPrefixConstant                = "#"
)

// DefaultBaseSpecifiers are always part of the compile input regardless of
// what the configuration declares.
var DefaultBaseSpecifiers = []string{"pip", "setuptools", "wheel", "click-odoo-contrib"}

// Aggregate builds the full compile-input line set: a generated header, the
// base specifiers (built-in defaults followed by configured extras), then
// each source file's filtered content in the supplied order. Missing source
// files are skipped silently; the result is byte-deterministic for identical
// inputs.
func Aggregate(workspaceRoot string, sourceFiles []string, extraSpecifiers []string, ignoredNames []string) ([]string, error) {
	ignoredSet := map[string]bool{}
	for _, ignoredName := range ignoredNames {
		if trimmedName := strings.TrimSpace(ignoredName); len(trimmedName) > 0 {
			ignoredSet[CanonicalizeProjectName(trimmedName)] = true
		}
	}

	aggregatedLines := []string{generatedHeaderLineConstant, generatedSourceLineConstant, ""}

	aggregatedLines = append(aggregatedLines, baseBlockLabelConstant)
	aggregatedLines = append(aggregatedLines, DefaultBaseSpecifiers...)
	aggregatedLines = append(aggregatedLines, extraSpecifiers...)
	aggregatedLines = append(aggregatedLines, "")

	for _, sourceFile := range sourceFiles {
		absoluteSource, absoluteError := filepath.Abs(sourceFile)
		if absoluteError != nil {
			return nil, absoluteError
		}
		if _, statError := os.Stat(absoluteSource); statError != nil {
			continue
		}

		aggregatedLines = append(aggregatedLines, fmt.Sprintf(sourceBlockLabelTemplateConstant, sourceLabel(workspaceRoot, absoluteSource)))
		visitedFiles := map[string]bool{absoluteSource: true}
		filteredLines, filterError := filterRequirementsFile(absoluteSource, ignoredSet, visitedFiles)
		if filterError != nil {
			return nil, filterError
		}
		aggregatedLines = append(aggregatedLines, filteredLines...)
		aggregatedLines = append(aggregatedLines, "")
	}

	return aggregatedLines, nil
}

// WriteCompileInput renders aggregated lines to the compile-input file with a
// single trailing newline.
func WriteCompileInput(inputPath string, aggregatedLines []string) error {
	if mkdirError := os.MkdirAll(filepath.Dir(inputPath), 0o755); mkdirError != nil {
		return mkdirError
	}
	contents := strings.TrimRight(strings.Join(aggregatedLines, "\n"), "\n") + "\n"
	return os.WriteFile(inputPath, []byte(contents), 0o644)
}

func sourceLabel(workspaceRoot string, absoluteSource string) string {
	relativeLabel, relativeError := filepath.Rel(workspaceRoot, absoluteSource)
	if relativeError != nil || strings.HasPrefix(relativeLabel, "..") {
		return absoluteSource
	}
	return filepath.ToSlash(relativeLabel)
}

// filterRequirementsFile returns the file's lines with ignored distributions
// replaced by traceable skip comments and nested -r directives inlined. The
// visited set is threaded explicitly through the recursion so a file already
// seen in the current chain is marked instead of reprocessed.
func filterRequirementsFile(requirementsPath string, ignoredSet map[string]bool, visitedFiles map[string]bool) ([]string, error) {
	fileContents, readError := os.ReadFile(requirementsPath)
	if readError != nil {
		return nil, fmt.Errorf("failed to read requirements file %s: %w", requirementsPath, readError)
	}

	filteredLines := []string{}
	for _, rawLine := range strings.Split(strings.TrimRight(string(fileContents), "\n"), "\n") {
		strippedLine := strings.TrimSpace(rawLine)
		if len(strippedLine) == 0 || strings.HasPrefix(strippedLine, commentPrefixConstant) {
			filteredLines = append(filteredLines, rawLine)
			continue
		}

		withoutComment := stripInlineComment(rawLine)

		if includeReference, isInclude := referenceDirectiveTarget(withoutComment); isInclude {
			includePath := includeReference
			if !filepath.IsAbs(includePath) {
				includePath = filepath.Join(filepath.Dir(requirementsPath), includePath)
			}
			includePath = filepath.Clean(includePath)

			filteredLines = append(filteredLines, fmt.Sprintf(beginIncludeMarkerTemplateConstant, includeReference))
			if visitedFiles[includePath] {
				filteredLines = append(filteredLines, fmt.Sprintf(skippedIncludeMarkerTemplateConstant, includeReference))
			} else {
				visitedFiles[includePath] = true
				nestedLines, nestedError := filterRequirementsFile(includePath, ignoredSet, visitedFiles)
				if nestedError != nil {
					return nil, nestedError
				}
				filteredLines = append(filteredLines, nestedLines...)
			}
			filteredLines = append(filteredLines, fmt.Sprintf(endIncludeMarkerTemplateConstant, includeReference))
			continue
		}

		specifier := strings.TrimSpace(withoutComment)
		if editableTarget, isEditable := editableDirectiveTarget(specifier); isEditable {
			specifier = editableTarget
		}

		projectName := ExtractProjectName(specifier)
		if len(projectName) > 0 && ignoredSet[projectName] {
			filteredLines = append(filteredLines, fmt.Sprintf(ignoredLineMarkerTemplateConstant, projectName, rawLine))
			continue
		}

		filteredLines = append(filteredLines, rawLine)
	}

	return filteredLines, nil
}

// referenceDirectiveTarget matches -r / --requirement directives.
func referenceDirectiveTarget(line string) (string, bool) {
	trimmedLine := strings.TrimSpace(line)
	for _, directivePrefix := range []string{"-r ", "--requirement "} {
		if strings.HasPrefix(trimmedLine, directivePrefix) {
			return strings.TrimSpace(trimmedLine[len(directivePrefix):]), true
		}
	}
	return "", false
}

// editableDirectiveTarget matches -e / --editable directives; only the name
// extraction sees the stripped specifier, the original line is what survives.
func editableDirectiveTarget(specifier string) (string, bool) {
	for _, directivePrefix := range []string{"-e ", "--editable "} {
		if strings.HasPrefix(specifier, directivePrefix) {
			return strings.TrimSpace(specifier[len(directivePrefix):]), true
		}
	}
	return "", false
}
