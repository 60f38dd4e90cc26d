package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("recipe.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "recipe.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "recipe.yaml:12")
}

func TestParseErrorWithoutLine(t *testing.T) {
	t.Parallel()

	err := NewParseError("runlist.toml", 0, stdErrors.New("empty"))
	require.Equal(t, "parse error: runlist.toml: empty", err.Error())
}

func TestValidationErrorCarriesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("resources[1].to_artifact", "references unknown resource", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "resources[1].to_artifact", validationErr.Field)
	require.Contains(t, validationErr.Message, "references unknown resource")
	require.Contains(t, err.Error(), "resources[1].to_artifact")
}

func TestExecutionErrorIncludesResourceContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("exit status 1")
	err := NewExecutionError("unzip_h2", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "unzip_h2", executionErr.ResourceID)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "unzip_h2")
}

func TestGuardErrorNamesGuard(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("permission denied")
	err := NewGuardError("run_h2", "process_running org.h2.tools.Server", underlying)

	var guardErr *GuardError
	require.ErrorAs(t, err, &guardErr)
	require.Equal(t, "run_h2", guardErr.ResourceID)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "process_running")
}

func TestPluginErrorIncludesPluginName(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("not supported")
	err := NewPluginError("service", underlying)

	var pluginErr *PluginError
	require.ErrorAs(t, err, &pluginErr)
	require.Equal(t, "service", pluginErr.Plugin)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestNilReceiversRenderEmpty(t *testing.T) {
	t.Parallel()

	var parseErr *ParseError
	var execErr *ExecutionError
	require.Empty(t, parseErr.Error())
	require.Nil(t, execErr.Unwrap())
}

func TestIsConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "parse", err: NewParseError("a.yaml", 1, stdErrors.New("bad")), want: true},
		{name: "wrapped validation", err: fmt.Errorf("load: %w", NewValidationError("name", "required", nil)), want: true},
		{name: "execution", err: NewExecutionError("x", stdErrors.New("boom"))},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, IsConfig(tt.err))
		})
	}
}
