// Package validation runs a recipe's post-apply checks.
package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/system"
	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

// Checker evaluates validations against the injected host.
type Checker struct {
	Host *system.Host
}

// RunRecipes executes the validations of every recipe in order.
func (c *Checker) RunRecipes(ctx context.Context, recipes []*config.Recipe) ([]ValidationResult, error) {
	var (
		all    []ValidationResult
		failed []string
	)
	for _, recipe := range recipes {
		results, err := c.Run(ctx, recipe.Name, recipe.Validations)
		all = append(all, results...)
		if err != nil {
			failed = append(failed, err.Error())
		}
	}
	if len(failed) > 0 {
		return all, fmt.Errorf("%s", strings.Join(failed, "; "))
	}
	return all, nil
}

// Run executes the provided validations and returns their results.
func (c *Checker) Run(ctx context.Context, recipe string, validations []config.Validation) ([]ValidationResult, error) {
	results := make([]ValidationResult, 0, len(validations))
	var failedMessages []string

	for _, val := range validations {
		result := ValidationResult{Recipe: recipe, Validation: val}

		var err error
		switch val.Type {
		case "command_exists":
			if val.CommandExists == nil {
				err = convergeerrors.NewValidationError("validation.command_exists", "configuration missing", nil)
			} else {
				err = CheckCommandExists(ctx, c.Host.Runner, val.CommandExists.Command)
			}
		case "file_exists":
			if val.FileExists == nil {
				err = convergeerrors.NewValidationError("validation.file_exists", "configuration missing", nil)
			} else {
				err = CheckFileExists(c.Host.State, val.FileExists.Path)
			}
		case "path_contains":
			if val.PathContains == nil {
				err = convergeerrors.NewValidationError("validation.path_contains", "configuration missing", nil)
			} else {
				err = CheckPathContains(val.PathContains.File, val.PathContains.Text)
			}
		default:
			err = convergeerrors.NewValidationError("validation.type", fmt.Sprintf("unknown validation type %q", val.Type), nil)
		}

		if err != nil {
			result.Passed = false
			result.Message = err.Error()
			result.Error = err
			failedMessages = append(failedMessages, err.Error())
		} else {
			result.Passed = true
			result.Message = "passed"
		}

		results = append(results, result)
	}

	if len(failedMessages) > 0 {
		return results, fmt.Errorf("validations failed for %s: %s", recipe, strings.Join(failedMessages, "; "))
	}
	return results, nil
}
