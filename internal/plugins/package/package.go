package packageplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins/pluginutil"
	"github.com/alexisbeaulieu97/converge/internal/system"
)

type packagePlugin struct {
	host *system.Host
}

// New creates a package provider backed by apt.
func New(host *system.Host) plugin.Plugin {
	return &packagePlugin{host: host}
}

var _ plugin.Plugin = (*packagePlugin)(nil)

func (p *packagePlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "package",
		Type:        config.TypePackage,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Installs and removes system packages using apt.",
	}
}

func (p *packagePlugin) Schema() any {
	return config.PackageResource{}
}

type packageEvaluationData struct {
	Installed []string
	Missing   []string
}

func (p *packagePlugin) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	if res.Package == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("package configuration missing"))
	}
	if err := ctx.Err(); err != nil {
		return nil, plugin.NewStateError(res.ID, fmt.Errorf("context cancelled: %w", err))
	}

	data := &packageEvaluationData{}
	for _, name := range res.Package.Packages {
		installed, err := p.installed(ctx, name)
		if err != nil {
			return nil, plugin.NewStateError(res.ID, fmt.Errorf("query package %s: %w", name, err))
		}
		if installed {
			data.Installed = append(data.Installed, name)
		} else {
			data.Missing = append(data.Missing, name)
		}
	}

	if res.Action == "remove" {
		if len(data.Installed) == 0 {
			return pluginutil.Satisfied(res.ID, fmt.Sprintf("packages absent: %s", strings.Join(res.Package.Packages, ", ")), data), nil
		}
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
			fmt.Sprintf("packages still installed: %s", strings.Join(data.Installed, ", ")),
			fmt.Sprintf("Would remove: %s", strings.Join(data.Installed, ", ")), data), nil
	}

	if len(data.Missing) == 0 {
		return pluginutil.Satisfied(res.ID, fmt.Sprintf("all packages installed: %s", strings.Join(res.Package.Packages, ", ")), data), nil
	}
	return pluginutil.NeedsAction(res.ID, model.StatusMissing,
		fmt.Sprintf("packages not installed: %s", strings.Join(data.Missing, ", ")),
		fmt.Sprintf("Would install: %s", strings.Join(data.Missing, ", ")), data), nil
}

func (p *packagePlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	data, ok := pluginutil.EvalData[*packageEvaluationData](evalResult)
	if !ok {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
		data, _ = pluginutil.EvalData[*packageEvaluationData](fresh)
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	env := map[string]string{"DEBIAN_FRONTEND": "noninteractive"}

	if res.Action == "remove" {
		args := append([]string{"remove", "-y"}, data.Installed...)
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "apt-get", Args: args, Env: env}); err != nil {
			return pluginutil.Failed(res, fmt.Errorf("remove packages: %w", err))
		}
		return pluginutil.Converged(res, fmt.Sprintf("removed packages: %s", strings.Join(data.Installed, ", "))), nil
	}

	if res.Package.Update {
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "apt-get", Args: []string{"update"}, Env: env}); err != nil {
			return pluginutil.Failed(res, fmt.Errorf("refresh package index: %w", err))
		}
	}

	args := append([]string{"install", "-y"}, data.Missing...)
	if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "apt-get", Args: args, Env: env}); err != nil {
		return pluginutil.Failed(res, fmt.Errorf("install packages: %w", err))
	}
	return pluginutil.Converged(res, fmt.Sprintf("installed packages: %s", strings.Join(data.Missing, ", "))), nil
}

// installed asks dpkg for the package status. A non-zero exit means dpkg does
// not know the package.
func (p *packagePlugin) installed(ctx context.Context, name string) (bool, error) {
	out, err := p.host.Runner.Run(ctx, system.Command{
		Name: "dpkg-query",
		Args: []string{"-W", "-f=${Status}", name},
	})
	if err != nil {
		if _, isExit := system.ExitCode(err); isExit {
			return false, nil
		}
		return false, err
	}
	return strings.HasSuffix(strings.TrimSpace(out.Stdout), "install ok installed"), nil
}
