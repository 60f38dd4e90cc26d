package shellplugin

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins/pluginutil"
	"github.com/alexisbeaulieu97/converge/internal/system"
)

type shellPlugin struct {
	host *system.Host
}

// New creates a script provider.
func New(host *system.Host) plugin.Plugin {
	return &shellPlugin{host: host}
}

var _ plugin.Plugin = (*shellPlugin)(nil)

func (p *shellPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "shell",
		Type:        config.TypeShell,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Runs scripts through an interpreter with working directory and environment control.",
	}
}

func (p *shellPlugin) Schema() any {
	return config.ShellResource{}
}

// Evaluate treats an existing creates path as proof the script already ran.
// Without creates the script runs on every apply and its state is unknown.
func (p *shellPlugin) Evaluate(_ context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Shell
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("shell configuration missing"))
	}

	if cfg.Creates == "" {
		return pluginutil.NeedsAction(res.ID, model.StatusUnknown,
			fmt.Sprintf("%s script will run", cfg.InterpreterOrDefault()), "", nil), nil
	}

	exists, err := p.exists(cfg.Creates)
	if err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}
	if exists {
		return pluginutil.Satisfied(res.ID, fmt.Sprintf("%s already exists", cfg.Creates), nil), nil
	}
	return pluginutil.NeedsAction(res.ID, model.StatusMissing,
		fmt.Sprintf("%s missing, script will run", cfg.Creates), "", nil), nil
}

func (p *shellPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	if evalResult == nil {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	cfg := res.Shell
	cmd := system.Command{
		Name: cfg.InterpreterOrDefault(),
		Args: []string{"-c", cfg.Code},
		Dir:  cfg.Cwd,
		Env:  cfg.Env,
	}
	if _, err := p.host.Runner.Run(ctx, cmd); err != nil {
		return pluginutil.Failed(res, fmt.Errorf("script failed: %w", err))
	}

	if cfg.Creates != "" {
		exists, err := p.exists(cfg.Creates)
		if err != nil {
			return pluginutil.Failed(res, err)
		}
		if !exists {
			return pluginutil.Failed(res, fmt.Errorf("script succeeded but %s was not created", cfg.Creates))
		}
	}
	return pluginutil.Converged(res, "script executed"), nil
}

func (p *shellPlugin) exists(path string) (bool, error) {
	file, err := p.host.State.FileExists(path)
	if err != nil || file {
		return file, err
	}
	return p.host.State.DirectoryExists(path)
}
