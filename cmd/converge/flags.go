package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/engine"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

// Exit codes shared by every command.
const (
	exitOK          = 0
	exitChanges     = 1
	exitConfigError = 2
	exitRuntime     = 3
)

// exitError carries a specific process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCodeFor maps configuration problems to 2 and everything else to 1.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	if isConfigError(err) {
		return exitConfigError
	}
	return exitChanges
}

func isConfigError(err error) bool {
	var pluginValidationErr *plugin.ValidationError
	return convergeerrors.IsConfig(err) || errors.As(err, &pluginValidationErr)
}

type sourceOptions struct {
	Recipes []string
	RunList string
}

func validateSources(opts sourceOptions) error {
	if strings.TrimSpace(opts.RunList) == "" && len(opts.Recipes) == 0 {
		return convergeerrors.NewValidationError("recipes", "pass recipe files or --runlist", nil)
	}
	if opts.RunList != "" && len(opts.Recipes) > 0 {
		return convergeerrors.NewValidationError("recipes", "recipe arguments and --runlist are mutually exclusive", nil)
	}

	paths := opts.Recipes
	if opts.RunList != "" {
		paths = []string{opts.RunList}
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve path %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return convergeerrors.NewParseError(p, 0, fmt.Errorf("file does not exist: %w", err))
		}
		if info.IsDir() {
			return convergeerrors.NewParseError(p, 0, fmt.Errorf("%s is a directory", abs))
		}
	}
	return nil
}

// loadPlan parses and validates every recipe of the run.
func loadPlan(opts sourceOptions) (*engine.Plan, error) {
	if err := validateSources(opts); err != nil {
		return nil, err
	}

	if opts.RunList != "" {
		_, recipes, err := config.LoadRunList(opts.RunList)
		if err != nil {
			return nil, err
		}
		return engine.NewPlan(recipes...), nil
	}

	recipes, err := config.LoadRecipes(opts.Recipes)
	if err != nil {
		return nil, err
	}
	return engine.NewPlan(recipes...), nil
}
