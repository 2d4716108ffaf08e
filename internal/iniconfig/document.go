package iniconfig

import (
	"strings"
)

const (
	listCommaSeparatorConstant = ","
)

var booleanTokenMapping = map[string]bool{
	"1": true, "yes": true, "true": true, "on": true,
	"0": false, "no": false, "false": false, "off": false,
}

// Document is the merged configuration produced by resolving an entry file
// and its transitive include tree. Section and option order reflect first
// appearance across the merge; later files overwrite values in place.
type Document struct {
	sectionOrder     []string
	sections         map[string]map[string]string
	optionOrder      map[string][]string
	defaultValues    map[string]string
	runtimeVariables map[string]string
	loadedFiles      []string
}

func newDocument() *Document {
	return &Document{
		sections:         map[string]map[string]string{},
		optionOrder:      map[string][]string{},
		defaultValues:    map[string]string{},
		runtimeVariables: map[string]string{},
	}
}

// WithRuntimeVariables returns a copy of the document whose default scope
// holds the supplied variables, leaving the receiver untouched. The merged
// file contents are shared; only placeholder resolution differs.
func (document *Document) WithRuntimeVariables(runtimeVariables map[string]string) *Document {
	duplicated := &Document{
		sectionOrder:     document.sectionOrder,
		sections:         document.sections,
		optionOrder:      document.optionOrder,
		defaultValues:    document.defaultValues,
		loadedFiles:      document.loadedFiles,
		runtimeVariables: map[string]string{},
	}
	for variableName, variableValue := range runtimeVariables {
		duplicated.runtimeVariables[variableName] = variableValue
	}
	return duplicated
}

// LoadedFiles lists every configuration file merged into the document, in load order.
func (document *Document) LoadedFiles() []string {
	return append([]string{}, document.loadedFiles...)
}

// SectionNames lists sections in first-appearance order.
func (document *Document) SectionNames() []string {
	return append([]string{}, document.sectionOrder...)
}

// HasSection reports whether the named section exists.
func (document *Document) HasSection(sectionName string) bool {
	_, sectionExists := document.sections[sectionName]
	return sectionExists
}

// HasOption reports whether the named option exists in the given section.
func (document *Document) HasOption(sectionName string, optionName string) bool {
	sectionOptions, sectionExists := document.sections[sectionName]
	if !sectionExists {
		return false
	}
	_, optionExists := sectionOptions[optionName]
	return optionExists
}

// OptionNames lists a section's explicitly declared options in first-appearance order.
func (document *Document) OptionNames(sectionName string) []string {
	return append([]string{}, document.optionOrder[sectionName]...)
}

// Get returns the interpolated value of an option, failing when the section
// or option is missing or a placeholder cannot be resolved.
func (document *Document) Get(sectionName string, optionName string) (string, error) {
	if !document.HasSection(sectionName) {
		return "", MissingSectionError{Section: sectionName}
	}
	rawValue, optionExists := document.lookupRaw(sectionName, optionName)
	if !optionExists {
		return "", MissingOptionError{Section: sectionName, Option: optionName}
	}
	return document.interpolate(sectionName, optionName, rawValue, 0)
}

// GetOrDefault returns the interpolated option value, or the fallback when
// the section or option does not exist. Interpolation failures still error.
func (document *Document) GetOrDefault(sectionName string, optionName string, fallbackValue string) (string, error) {
	if !document.HasOption(sectionName, optionName) {
		return fallbackValue, nil
	}
	return document.Get(sectionName, optionName)
}

// GetBool parses an option as a boolean, returning the fallback when absent.
// Unrecognized tokens produce an InvalidBooleanError.
func (document *Document) GetBool(sectionName string, optionName string, fallbackValue bool) (bool, error) {
	if !document.HasOption(sectionName, optionName) {
		return fallbackValue, nil
	}
	resolvedValue, resolveError := document.Get(sectionName, optionName)
	if resolveError != nil {
		return false, resolveError
	}
	booleanValue, tokenRecognized := booleanTokenMapping[strings.ToLower(strings.TrimSpace(resolvedValue))]
	if !tokenRecognized {
		return false, InvalidBooleanError{Section: sectionName, Option: optionName, Value: resolvedValue}
	}
	return booleanValue, nil
}

// GetList parses an option as a list of tokens separated by newlines and/or
// commas. An absent option or blank value yields an empty list.
func (document *Document) GetList(sectionName string, optionName string) ([]string, error) {
	if !document.HasOption(sectionName, optionName) {
		return nil, nil
	}
	resolvedValue, resolveError := document.Get(sectionName, optionName)
	if resolveError != nil {
		return nil, resolveError
	}
	return SplitListValue(resolvedValue), nil
}

// SplitListValue splits a multi-line and/or comma-separated value into tokens.
func SplitListValue(value string) []string {
	tokens := []string{}
	for _, line := range strings.Split(value, "\n") {
		for _, chunk := range strings.Split(line, listCommaSeparatorConstant) {
			trimmedChunk := strings.TrimSpace(chunk)
			if len(trimmedChunk) > 0 {
				tokens = append(tokens, trimmedChunk)
			}
		}
	}
	return tokens
}

// lookupRaw fetches the uninterpolated value for an option, falling back to
// the runtime variable scope the way INI default sections behave.
func (document *Document) lookupRaw(sectionName string, optionName string) (string, bool) {
	if sectionOptions, sectionExists := document.sections[sectionName]; sectionExists {
		if rawValue, optionExists := sectionOptions[optionName]; optionExists {
			return rawValue, true
		}
	}
	if variableValue, variableExists := document.runtimeVariables[optionName]; variableExists {
		return variableValue, true
	}
	defaultValue, defaultExists := document.defaultValues[optionName]
	return defaultValue, defaultExists
}

// setOption records a value, appending ordering metadata on first appearance.
func (document *Document) setOption(sectionName string, optionName string, value string) {
	sectionOptions, sectionExists := document.sections[sectionName]
	if !sectionExists {
		sectionOptions = map[string]string{}
		document.sections[sectionName] = sectionOptions
		document.sectionOrder = append(document.sectionOrder, sectionName)
	}
	if _, optionExists := sectionOptions[optionName]; !optionExists {
		document.optionOrder[sectionName] = append(document.optionOrder[sectionName], optionName)
	}
	sectionOptions[optionName] = value
}
