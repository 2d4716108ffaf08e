package iniconfig

import (
	"regexp"
	"strings"
)

const (
	interpolationDepthLimitConstant     = 10
	interpolationReferenceSeparator     = ":"
	interpolationEscapedDollarConstant  = "$$"
	interpolationLiteralDollarConstant  = "$"
	interpolationEscapePlaceholderToken = "\x00envrig-dollar\x00"
)

var interpolationPlaceholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolate expands ${option} and ${section:option} placeholders in a raw
// value. Expansion is lazy and recursive with a fixed depth limit; "$$"
// renders a literal dollar sign.
func (document *Document) interpolate(sectionName string, optionName string, rawValue string, depth int) (string, error) {
	if depth > interpolationDepthLimitConstant {
		return "", InterpolationError{Section: sectionName, Option: optionName, Reference: rawValue}
	}
	escapedValue := strings.ReplaceAll(rawValue, interpolationEscapedDollarConstant, interpolationEscapePlaceholderToken)
	var expansionError error
	expandedValue := interpolationPlaceholderPattern.ReplaceAllStringFunc(escapedValue, func(placeholder string) string {
		if expansionError != nil {
			return placeholder
		}
		referenceText := placeholder[2 : len(placeholder)-1]
		referencedSection, referencedOption := parseReference(sectionName, referenceText)
		referencedRaw, referenceExists := document.lookupRaw(referencedSection, referencedOption)
		if !referenceExists {
			expansionError = InterpolationError{Section: sectionName, Option: optionName, Reference: referenceText}
			return placeholder
		}
		referencedValue, referencedError := document.interpolate(referencedSection, referencedOption, referencedRaw, depth+1)
		if referencedError != nil {
			expansionError = referencedError
			return placeholder
		}
		return referencedValue
	})
	if expansionError != nil {
		return "", expansionError
	}
	return strings.ReplaceAll(expandedValue, interpolationEscapePlaceholderToken, interpolationLiteralDollarConstant), nil
}

// parseReference splits "section:option" references; bare names resolve
// within the section currently being expanded.
func parseReference(currentSection string, referenceText string) (string, string) {
	if separatorIndex := strings.Index(referenceText, interpolationReferenceSeparator); separatorIndex >= 0 {
		return referenceText[:separatorIndex], referenceText[separatorIndex+1:]
	}
	return currentSection, referenceText
}
