package serviceplugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins/pluginutil"
	"github.com/alexisbeaulieu97/converge/internal/system"
	"github.com/alexisbeaulieu97/converge/pkg/diff"
)

// DefaultUnitDir is where managed unit files are written.
const DefaultUnitDir = "/etc/systemd/system"

type servicePlugin struct {
	host    *system.Host
	unitDir string
}

// Option customises the provider.
type Option func(*servicePlugin)

// WithUnitDir overrides DefaultUnitDir.
func WithUnitDir(dir string) Option {
	return func(p *servicePlugin) { p.unitDir = dir }
}

// New creates a systemd service provider.
func New(host *system.Host, opts ...Option) plugin.Plugin {
	p := &servicePlugin{host: host, unitDir: DefaultUnitDir}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ plugin.Plugin = (*servicePlugin)(nil)

func (p *servicePlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "service",
		Type:        config.TypeService,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages systemd units and their enabled and running state.",
	}
}

func (p *servicePlugin) Schema() any {
	return config.ServiceResource{}
}

type serviceEvaluationData struct {
	UnitPath  string
	WriteUnit bool
	Ops       []string
}

func (p *servicePlugin) unitPath(name string) string {
	if !strings.Contains(name, ".") {
		name += ".service"
	}
	return filepath.Join(p.unitDir, name)
}

func (p *servicePlugin) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Service
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("service configuration missing"))
	}

	data := &serviceEvaluationData{UnitPath: p.unitPath(cfg.ServiceName)}
	var preview string
	unitMissing := false

	if cfg.Unit != "" {
		current, err := os.ReadFile(data.UnitPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			unitMissing = true
			data.WriteUnit = true
			preview = diff.GenerateUnifiedDiff(nil, []byte(cfg.Unit), "/dev/null", data.UnitPath)
		case err != nil:
			return nil, plugin.NewStateError(res.ID, fmt.Errorf("read unit %s: %w", data.UnitPath, err))
		case string(current) != cfg.Unit:
			data.WriteUnit = true
			preview = diff.GenerateUnifiedDiff(current, []byte(cfg.Unit), data.UnitPath+" (current)", data.UnitPath+" (desired)")
		}
	}

	enabled, err := p.query(ctx, "is-enabled", cfg.ServiceName)
	if err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}
	active, err := p.query(ctx, "is-active", cfg.ServiceName)
	if err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}

	if data.WriteUnit {
		data.Ops = append(data.Ops, "daemon-reload")
	}
	if cfg.HasAction("enable") && !enabled {
		data.Ops = append(data.Ops, "enable")
	}
	if cfg.HasAction("disable") && enabled {
		data.Ops = append(data.Ops, "disable")
	}
	if cfg.HasAction("start") && !active {
		data.Ops = append(data.Ops, "start")
	}
	if cfg.HasAction("stop") && active {
		data.Ops = append(data.Ops, "stop")
	}
	drifted := len(data.Ops) > 0

	// restart and reload run every time the resource is reached.
	restart := cfg.HasAction("restart") || (data.WriteUnit && active && !cfg.HasAction("stop"))
	if restart {
		data.Ops = append(data.Ops, "restart")
	}
	if cfg.HasAction("reload") && !restart {
		data.Ops = append(data.Ops, "reload")
	}

	state := model.StatusSatisfied
	switch {
	case unitMissing:
		state = model.StatusMissing
	case drifted:
		state = model.StatusDrifted
	}

	status := fmt.Sprintf("service %s (enabled=%t, active=%t)", cfg.ServiceName, enabled, active)
	if len(data.Ops) == 0 {
		return pluginutil.Satisfied(res.ID, status+" is up to date", data), nil
	}
	result := pluginutil.NeedsAction(res.ID, state, fmt.Sprintf("%s needs: %s", status, strings.Join(data.Ops, ", ")), preview, data)
	return result, nil
}

func (p *servicePlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.Service
	data, ok := pluginutil.EvalData[*serviceEvaluationData](evalResult)
	if !ok {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
		data, _ = pluginutil.EvalData[*serviceEvaluationData](fresh)
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	if data.WriteUnit {
		if err := os.MkdirAll(filepath.Dir(data.UnitPath), 0o755); err != nil {
			return pluginutil.Failed(res, fmt.Errorf("create unit directory: %w", err))
		}
		if err := os.WriteFile(data.UnitPath, []byte(cfg.Unit), 0o644); err != nil {
			return pluginutil.Failed(res, fmt.Errorf("write unit %s: %w", data.UnitPath, err))
		}
	}

	for _, op := range data.Ops {
		args := []string{op}
		if op != "daemon-reload" {
			args = append(args, cfg.ServiceName)
		}
		if _, err := pluginutil.Run(ctx, p.host.Runner, system.Command{Name: "systemctl", Args: args}); err != nil {
			return pluginutil.Failed(res, err)
		}
	}

	return pluginutil.Converged(res, fmt.Sprintf("service %s: %s", cfg.ServiceName, strings.Join(data.Ops, ", "))), nil
}

// query runs systemctl is-enabled or is-active. Both exit non-zero for the
// negative answer, including for units systemd does not know yet.
func (p *servicePlugin) query(ctx context.Context, verb, name string) (bool, error) {
	out, err := p.host.Runner.Run(ctx, system.Command{Name: "systemctl", Args: []string{verb, name}})
	if err != nil {
		if _, isExit := system.ExitCode(err); isExit {
			return false, nil
		}
		return false, fmt.Errorf("systemctl %s %s: %w", verb, name, err)
	}
	if verb == "is-enabled" {
		state := strings.TrimSpace(out.Stdout)
		return state == "enabled" || state == "enabled-runtime" || state == "alias", nil
	}
	return true, nil
}
