package requirements

import (
	"regexp"
	"strings"
)

var (
	nameSeparatorRunsPattern  = regexp.MustCompile(`[-_.]+`)
	eggFragmentPattern        = regexp.MustCompile(`[#&]egg=([^&]+)`)
	leadingProjectNamePattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)`)
	inlineCommentPattern      = regexp.MustCompile(`\s+#`)
)

// CanonicalizeProjectName normalizes a Python distribution name the way the
// packaging ecosystem does: lowercase, runs of dots, dashes, and underscores
// collapsed to a single dash.
func CanonicalizeProjectName(projectName string) string {
	return nameSeparatorRunsPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(projectName)), "-")
}

// stripInlineComment removes a trailing comment introduced by whitespace
// followed by '#', keeping fragment markers such as #egg= intact.
func stripInlineComment(line string) string {
	if location := inlineCommentPattern.FindStringIndex(line); location != nil {
		return strings.TrimRight(line[:location[0]], " \t")
	}
	return strings.TrimRight(line, " \t")
}

// ExtractProjectName pulls the canonical distribution name out of one
// requirement specifier. Precedence: an egg= fragment on VCS/URL specifiers,
// the left side of a "name @ url" direct reference, then the leading project
// name of a standard specifier. Returns "" when no name can be determined.
func ExtractProjectName(specifier string) string {
	trimmedSpecifier := strings.TrimSpace(specifier)
	if len(trimmedSpecifier) == 0 {
		return ""
	}

	if strings.Contains(trimmedSpecifier, "egg=") {
		if match := eggFragmentPattern.FindStringSubmatch(trimmedSpecifier); match != nil {
			return CanonicalizeProjectName(match[1])
		}
	}

	if separatorIndex := strings.Index(trimmedSpecifier, "@"); separatorIndex >= 0 {
		leftSide := strings.TrimSpace(trimmedSpecifier[:separatorIndex])
		rightSide := strings.TrimSpace(trimmedSpecifier[separatorIndex+1:])
		if len(leftSide) > 0 && len(rightSide) > 0 {
			return CanonicalizeProjectName(leftSide)
		}
	}

	if match := leadingProjectNamePattern.FindStringSubmatch(trimmedSpecifier); match != nil {
		return CanonicalizeProjectName(match[1])
	}
	return ""
}
