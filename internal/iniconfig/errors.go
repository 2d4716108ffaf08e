package iniconfig

import (
	"fmt"
	"strings"
)

const (
	includeCycleTemplateConstant         = "configuration include cycle detected: %s"
	includeCycleChainSeparatorConstant   = " -> "
	missingIncludeTemplateConstant       = "included configuration not found: %s (declared in %s)"
	missingEntryFileTemplateConstant     = "configuration file not found: %s"
	missingSectionTemplateConstant       = "missing configuration section: [%s]"
	missingOptionTemplateConstant        = "missing option %q in section [%s]"
	invalidBooleanTemplateConstant       = "invalid value %q for option %q in section [%s] (expected a boolean like true/false)"
	interpolationFailureTemplateConstant = "cannot resolve placeholder %q referenced by option %q in section [%s]"
	notAFileTemplateConstant             = "included configuration path is not a file: %s"
)

// IncludeCycleError reports a back-edge in the include graph. Chain holds the
// full path sequence from the resolution root to the repeated file.
type IncludeCycleError struct {
	Chain []string
}

// Error renders the complete cycle chain.
func (cycleError IncludeCycleError) Error() string {
	return fmt.Sprintf(includeCycleTemplateConstant, strings.Join(cycleError.Chain, includeCycleChainSeparatorConstant))
}

// MissingIncludeError reports a non-optional include whose path does not exist.
type MissingIncludeError struct {
	IncludedPath  string
	DeclaringPath string
}

// Error names the missing include and the file that declared it.
func (missingError MissingIncludeError) Error() string {
	return fmt.Sprintf(missingIncludeTemplateConstant, missingError.IncludedPath, missingError.DeclaringPath)
}

// MissingEntryFileError reports a nonexistent entry configuration file.
type MissingEntryFileError struct {
	Path string
}

// Error names the missing entry file.
func (missingError MissingEntryFileError) Error() string {
	return fmt.Sprintf(missingEntryFileTemplateConstant, missingError.Path)
}

// NotAFileError reports an include path that exists but is not a regular file.
type NotAFileError struct {
	Path string
}

// Error names the offending path.
func (notAFileError NotAFileError) Error() string {
	return fmt.Sprintf(notAFileTemplateConstant, notAFileError.Path)
}

// MissingSectionError reports a required section absent from the merged document.
type MissingSectionError struct {
	Section string
}

// Error names the missing section.
func (missingError MissingSectionError) Error() string {
	return fmt.Sprintf(missingSectionTemplateConstant, missingError.Section)
}

// MissingOptionError reports a required option absent from a section.
type MissingOptionError struct {
	Section string
	Option  string
}

// Error names the missing option and its section.
func (missingError MissingOptionError) Error() string {
	return fmt.Sprintf(missingOptionTemplateConstant, missingError.Option, missingError.Section)
}

// InvalidBooleanError reports an unrecognized boolean token.
type InvalidBooleanError struct {
	Section string
	Option  string
	Value   string
}

// Error names the offending value and its location.
func (invalidError InvalidBooleanError) Error() string {
	return fmt.Sprintf(invalidBooleanTemplateConstant, invalidError.Value, invalidError.Option, invalidError.Section)
}

// InterpolationError reports a placeholder that could not be resolved.
type InterpolationError struct {
	Section   string
	Option    string
	Reference string
}

// Error names the unresolvable placeholder and the option that references it.
func (interpolationError InterpolationError) Error() string {
	return fmt.Sprintf(interpolationFailureTemplateConstant, interpolationError.Reference, interpolationError.Option, interpolationError.Section)
}
