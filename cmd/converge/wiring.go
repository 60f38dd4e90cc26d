package main

import (
	"io"

	"github.com/alexisbeaulieu97/converge/internal/engine"
	"github.com/alexisbeaulieu97/converge/internal/logger"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins"
	"github.com/alexisbeaulieu97/converge/internal/secrets"
	"github.com/alexisbeaulieu97/converge/internal/system"
)

// newHost builds the live host; tests swap it for fakes.
var newHost = func(output io.Writer) *system.Host {
	return system.NewHost(system.Options{Output: output})
}

type logOptions struct {
	Command string
	Verbose bool
	JSON    bool
	Quiet   bool
	Writer  io.Writer
}

func newLogger(opts logOptions) (*logger.Logger, error) {
	return logger.New(logger.Options{
		Level:         logger.LevelFor(opts.Verbose, opts.Quiet),
		HumanReadable: !opts.JSON,
		Writer:        opts.Writer,
		Fields:        map[string]any{"command": opts.Command},
	})
}

// secretsRegion returns the first region declared by a recipe of plan.
func secretsRegion(plan *engine.Plan) string {
	for _, recipe := range plan.Recipes {
		if recipe.Settings.SecretsRegion != "" {
			return recipe.Settings.SecretsRegion
		}
	}
	return ""
}

func newRegistry(host *system.Host, plan *engine.Plan) (*plugin.Registry, error) {
	resolver := secrets.NewResolver(secrets.Options{Region: secretsRegion(plan)})
	return plugins.Builtin(host, resolver, plugins.Options{})
}

func anyVerbose(plan *engine.Plan) bool {
	for _, recipe := range plan.Recipes {
		if recipe.Settings.Verbose {
			return true
		}
	}
	return false
}
