package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/linkage"
	"valuesgen-cli/internal/version"
)

// Error types for different categories of failures
var (
	ErrConfigurationInvalid = errors.New("configuration error")
	ErrVersionInvalid       = errors.New("version error")
	ErrTemplateFailed       = errors.New("template error")
	ErrLinkageFailed        = errors.New("linkage error")
	ErrModuleFailed         = errors.New("module error")
	ErrMergeFailed          = errors.New("merge error")
	ErrOutputFailed         = errors.New("output error")
	ErrValidationFailed     = errors.New("validation error")
)

// GeneratorError represents a structured error with actionable guidance
type GeneratorError struct {
	Type     error
	Message  string
	Guidance string
	Cause    error
}

func (e *GeneratorError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s\n\nSuggestion: %s", e.Type, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *GeneratorError) Unwrap() error {
	return e.Cause
}

// Is matches the error category as well as the wrapped cause
func (e *GeneratorError) Is(target error) bool {
	return e.Type == target
}

// Error constructors with actionable guidance

func NewConfigurationError(message string, cause error) *GeneratorError {
	guidance := "Check your configuration file syntax. " +
		"Use 'valuesgen --config /path/to/config.toml' to specify a different config file."

	if strings.Contains(message, "permission") {
		guidance = "Check file permissions for your configuration directory. " +
			"Ensure you have read/write access to ~/.config/valuesgen/"
	} else if strings.Contains(message, "not found") || strings.Contains(message, "does not exist") {
		guidance = "The configuration file doesn't exist. Run 'valuesgen config init' " +
			"or specify a different path with --config flag."
	}

	return &GeneratorError{
		Type:     ErrConfigurationInvalid,
		Message:  message,
		Guidance: guidance,
		Cause:    cause,
	}
}

func NewVersionError(v string, cause error) *GeneratorError {
	message := fmt.Sprintf("chart version %q cannot be used", v)
	guidance := "Run 'valuesgen versions' to list the supported chart lines."

	if errors.Is(cause, version.ErrInvalidVersionFormat) {
		guidance = "Versions are written MAJOR.MINOR.PATCH with an optional -PRERELEASE " +
			"suffix, for example 3.5.6 or 3.7.0-beta.1."
	}

	return &GeneratorError{
		Type:     ErrVersionInvalid,
		Message:  message,
		Guidance: guidance,
		Cause:    cause,
	}
}

func NewTemplateError(v string, cause error) *GeneratorError {
	message := fmt.Sprintf("failed to load values template for chart %s", v)
	guidance := "Check the repository URL and your network connection, " +
		"or pass a local values.yaml with --local."

	if cause != nil && strings.Contains(cause.Error(), "no version") {
		guidance = fmt.Sprintf("Chart version %s is not published in the repository. "+
			"Run 'valuesgen versions --remote' to see what is available.", v)
	}

	return &GeneratorError{
		Type:     ErrTemplateFailed,
		Message:  message,
		Guidance: guidance,
		Cause:    cause,
	}
}

func NewLinkageError(module string, cause error) *GeneratorError {
	message := fmt.Sprintf("configuration rules did not settle in module %s", module)
	guidance := "Two or more derivation rules keep rewriting each other. " +
		"Run with --debug to see the propagation chain."

	return &GeneratorError{
		Type:     ErrLinkageFailed,
		Message:  message,
		Guidance: guidance,
		Cause:    cause,
	}
}

func NewModuleError(module string, cause error) *GeneratorError {
	message := fmt.Sprintf("module %s failed", module)
	guidance := "Run with --debug for details."

	if errors.Is(cause, interfaces.ErrAnswerMissing) {
		guidance = "A required question has no answer. Add it to an --answers file " +
			"or run interactively."
	} else if cause != nil && strings.Contains(cause.Error(), "type mismatch") {
		guidance = "An answer does not match the type of the chart default. " +
			"Check the values in your --answers file."
	}

	return &GeneratorError{
		Type:     ErrModuleFailed,
		Message:  message,
		Guidance: guidance,
		Cause:    cause,
	}
}

func NewMergeError(cause error) *GeneratorError {
	return &GeneratorError{
		Type:     ErrMergeFailed,
		Message:  "failed to write answers into the values template",
		Guidance: "The template could not be edited without losing formatting. Check that it is a YAML mapping.",
		Cause:    cause,
	}
}

func NewOutputError(target string, cause error) *GeneratorError {
	message := fmt.Sprintf("failed to output to target '%s'", target)
	guidance := "Check that the output target is valid and accessible."

	if target == TargetClipboard {
		guidance = "Clipboard access failed. Ensure you're running in a graphical environment " +
			"or try using --target stdout instead."
	} else if strings.HasPrefix(target, "file:") {
		filePath := strings.TrimPrefix(target, "file:")
		guidance = fmt.Sprintf("Failed to write to file '%s'. Check that the directory exists "+
			"and you have write permissions.", filePath)
	}

	return &GeneratorError{
		Type:     ErrOutputFailed,
		Message:  message,
		Guidance: guidance,
		Cause:    cause,
	}
}

func NewValidationError(field string, value interface{}, reason string) *GeneratorError {
	message := fmt.Sprintf("validation failed for %s: %v (%s)", field, value, reason)
	guidance := "Check the input value and ensure it meets the required format."

	switch field {
	case "chart_version":
		guidance = "A chart version is required in non-interactive mode. " +
			"Pass --chart-version or remove --yes to pick one from a list."
	case "target":
		guidance = "Target must be 'file', 'stdout' or 'clipboard'. Example: --target stdout"
	case "answers":
		guidance = "Answers files are YAML mappings keyed by question, for example " +
			"'global.useTLS: true'. Check the file paths and syntax."
	case "remote":
		guidance = "Drop --local to list the versions published in the chart repository."
	case "flags":
		guidance = "Use either --interactive or --yes, and do not combine --local with --force-download."
	}

	return &GeneratorError{
		Type:     ErrValidationFailed,
		Message:  message,
		Guidance: guidance,
		Cause:    nil,
	}
}

// classify turns a module failure into the matching structured error
func classify(module string, err error) error {
	if errors.Is(err, linkage.ErrLinkageCycleDetected) {
		return NewLinkageError(module, err)
	}
	return NewModuleError(module, err)
}

// Recovery strategies

// RecoverFromError attempts to recover from common errors with fallback strategies
func RecoverFromError(err error) error {
	if err == nil {
		return nil
	}

	var genErr *GeneratorError
	if !errors.As(err, &genErr) {
		// Wrap unknown errors
		return &GeneratorError{
			Type:     errors.New("unknown error"),
			Message:  err.Error(),
			Guidance: "An unexpected error occurred. Please check your inputs and try again.",
			Cause:    err,
		}
	}

	switch genErr.Type {
	case ErrConfigurationInvalid:
		return recoverFromConfigError(genErr)
	case ErrTemplateFailed:
		return recoverFromTemplateError(genErr)
	case ErrOutputFailed:
		return recoverFromOutputError(genErr)
	default:
		return genErr
	}
}

func recoverFromConfigError(err *GeneratorError) error {
	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		return err
	}

	configDir := filepath.Join(homeDir, ".config", "valuesgen")
	if _, statErr := os.Stat(configDir); os.IsNotExist(statErr) {
		if mkdirErr := os.MkdirAll(configDir, 0755); mkdirErr != nil {
			err.Guidance += fmt.Sprintf("\n\nAttempted to create config directory '%s' but failed: %v",
				configDir, mkdirErr)
			return err
		}
		err.Guidance += fmt.Sprintf("\n\nCreated config directory '%s'. Run 'valuesgen config init' to write defaults there.",
			configDir)
	}

	return err
}

func recoverFromTemplateError(err *GeneratorError) error {
	if !strings.Contains(err.Guidance, "--force-download") {
		err.Guidance += "\n\nIf a cached copy looks damaged, retry with --force-download."
	}
	return err
}

func recoverFromOutputError(err *GeneratorError) error {
	if strings.Contains(err.Message, TargetClipboard) {
		err.Guidance += "\n\nTry using --target stdout as a fallback."
	}
	return err
}

// IsRecoverableError checks if an error can be recovered from
func IsRecoverableError(err error) bool {
	var genErr *GeneratorError
	if !errors.As(err, &genErr) {
		return false
	}

	switch genErr.Type {
	case ErrTemplateFailed:
		return true // can retry with --local or --force-download
	case ErrOutputFailed:
		return strings.Contains(genErr.Message, TargetClipboard)
	default:
		return false
	}
}
