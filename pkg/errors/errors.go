// Package errors defines the error categories shared by the loader, the engine
// and the command line. Each category wraps its cause so errors.Is and
// errors.As see through it.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ParseError reports a recipe or run-list that could not be read or decoded.
// Line is zero when the decoder gave no position.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	return &ParseError{Path: path, Line: line, Message: messageOf(err), Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	location := e.Path
	if e.Line > 0 {
		location = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	return fmt.Sprintf("parse error: %s: %s", location, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError reports a declaration rejected before anything is applied.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError reports a resource that failed to converge.
type ExecutionError struct {
	ResourceID string
	Err        error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(resourceID string, err error) error {
	return &ExecutionError{ResourceID: resourceID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.ResourceID == "" {
		return fmt.Sprintf("execution error: %v", e.Err)
	}
	return fmt.Sprintf("execution error on resource %s: %v", e.ResourceID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// GuardError reports a guard predicate that could not be evaluated.
type GuardError struct {
	ResourceID string
	Guard      string
	Err        error
}

// NewGuardError constructs a GuardError.
func NewGuardError(resourceID, guard string, err error) error {
	return &GuardError{ResourceID: resourceID, Guard: guard, Err: err}
}

func (e *GuardError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("guard error on resource %s (%s): %v", e.ResourceID, e.Guard, e.Err)
}

func (e *GuardError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError reports a provider that could not be registered or looked up.
type PluginError struct {
	Plugin  string
	Message string
	Err     error
}

// NewPluginError constructs a PluginError for the given resource kind.
func NewPluginError(plugin string, err error) error {
	return &PluginError{Plugin: plugin, Message: messageOf(err), Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Plugin == "" {
		return "plugin error: " + e.Message
	}
	return fmt.Sprintf("plugin error [%s]: %s", e.Plugin, e.Message)
}

func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsConfig reports whether err stems from a recipe that failed to parse or
// validate.
func IsConfig(err error) bool {
	var parseErr *ParseError
	var validationErr *ValidationError
	return stderrors.As(err, &parseErr) || stderrors.As(err, &validationErr)
}

func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
