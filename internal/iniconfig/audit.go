package iniconfig

import (
	"strings"
)

const (
	maskedValueConstant = "******"
)

// sensitiveOptionFragments marks options whose resolved values must never
// reach the audit log verbatim. Matching is a case-insensitive substring test
// on the option name.
var sensitiveOptionFragments = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey", "private_key",
}

// RenderForAudit produces a fully interpolated textual rendering of the
// merged configuration with credential-bearing values replaced by a mask.
// Comments are not preserved; only explicitly declared options appear.
func RenderForAudit(document *Document) (string, error) {
	var rendering strings.Builder
	for _, sectionName := range document.SectionNames() {
		rendering.WriteString("[" + sectionName + "]\n")
		for _, optionName := range document.OptionNames(sectionName) {
			resolvedValue, resolveError := document.Get(sectionName, optionName)
			if resolveError != nil {
				return "", resolveError
			}
			if isSensitiveOption(optionName) {
				resolvedValue = maskedValueConstant
			}
			rendering.WriteString(optionName + " = " + renderMultilineValue(resolvedValue) + "\n")
		}
		rendering.WriteString("\n")
	}
	return rendering.String(), nil
}

func isSensitiveOption(optionName string) bool {
	loweredName := strings.ToLower(optionName)
	for _, sensitiveFragment := range sensitiveOptionFragments {
		if strings.Contains(loweredName, sensitiveFragment) {
			return true
		}
	}
	return false
}

// renderMultilineValue indents continuation lines the way INI writers do so
// the rendering stays parseable.
func renderMultilineValue(value string) string {
	return strings.ReplaceAll(value, "\n", "\n\t")
}
