package plugin

import (
	"errors"
	"fmt"
)

// ErrPluginNotFound is returned when no provider is registered for a resource type.
type ErrPluginNotFound struct {
	Name string
}

func (e ErrPluginNotFound) Error() string {
	return fmt.Sprintf("no provider registered for resource type '%s'", e.Name)
}

// ErrIncompatibleAPI is returned when a provider targets another engine API.
type ErrIncompatibleAPI struct {
	Plugin     string
	APIVersion string
	Required   string
}

func (e ErrIncompatibleAPI) Error() string {
	return fmt.Sprintf("provider '%s' targets API %s but the engine requires %s", e.Plugin, e.APIVersion, e.Required)
}

// PluginError is implemented by every error a provider returns about a resource.
type PluginError interface {
	error
	ResourceID() string
	Unwrap() error
}

// resourceFault carries the resource identifier and cause shared by provider errors.
type resourceFault struct {
	ID  string
	Err error
}

func (f resourceFault) describe(kind string) string {
	if f.Err == nil {
		return kind + " error in resource " + f.ID
	}
	return kind + " error in resource " + f.ID + ": " + f.Err.Error()
}

// ResourceID returns the identifier of the failing resource.
func (f resourceFault) ResourceID() string { return f.ID }

// Unwrap returns the underlying error.
func (f resourceFault) Unwrap() error { return f.Err }

// ValidationError marks a declaration the provider cannot act on. It aborts
// verification and maps to the configuration exit code.
type ValidationError struct{ resourceFault }

// NewValidationError creates a new ValidationError.
func NewValidationError(resourceID string, err error) *ValidationError {
	return &ValidationError{resourceFault{ID: resourceID, Err: err}}
}

func (e *ValidationError) Error() string { return e.describe("validation") }

// Is matches any ValidationError.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ExecutionError represents a failed mutation: a command exiting non-zero, a
// failed write, a clone that did not complete.
type ExecutionError struct{ resourceFault }

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(resourceID string, err error) *ExecutionError {
	return &ExecutionError{resourceFault{ID: resourceID, Err: err}}
}

func (e *ExecutionError) Error() string { return e.describe("execution") }

// Is matches any ExecutionError.
func (e *ExecutionError) Is(target error) bool {
	_, ok := target.(*ExecutionError)
	return ok
}

// StateError reports that current state could not be read.
type StateError struct{ resourceFault }

// NewStateError creates a new StateError.
func NewStateError(resourceID string, err error) *StateError {
	return &StateError{resourceFault{ID: resourceID, Err: err}}
}

func (e *StateError) Error() string { return e.describe("state") }

// Is matches any StateError.
func (e *StateError) Is(target error) bool {
	_, ok := target.(*StateError)
	return ok
}

// AsPluginError extracts a PluginError from err's chain.
func AsPluginError(err error) (PluginError, bool) {
	var pluginErr PluginError
	if errors.As(err, &pluginErr) {
		return pluginErr, true
	}
	return nil, false
}
