package symlinkplugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins/pluginutil"
	"github.com/alexisbeaulieu97/converge/internal/system"
)

type symlinkPlugin struct {
	host *system.Host
}

// New creates a symlink provider.
func New(host *system.Host) plugin.Plugin {
	return &symlinkPlugin{host: host}
}

var _ plugin.Plugin = (*symlinkPlugin)(nil)

func (p *symlinkPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "symlink",
		Type:        config.TypeSymlink,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Points symbolic links at fixed paths or discovered artifacts.",
	}
}

func (p *symlinkPlugin) Schema() any {
	return config.SymlinkResource{}
}

type symlinkEvaluationData struct {
	// Conflict is set when something other than a symlink occupies the path.
	Conflict bool
	Current  string
}

func (p *symlinkPlugin) Evaluate(_ context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Symlink
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("symlink configuration missing"))
	}

	info, err := os.Lstat(cfg.Path)
	missing := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missing {
		return nil, plugin.NewStateError(res.ID, fmt.Errorf("stat %s: %w", cfg.Path, err))
	}

	data := &symlinkEvaluationData{}
	if !missing {
		if info.Mode()&os.ModeSymlink == 0 {
			data.Conflict = true
		} else if data.Current, err = os.Readlink(cfg.Path); err != nil {
			return nil, plugin.NewStateError(res.ID, fmt.Errorf("readlink %s: %w", cfg.Path, err))
		}
	}

	if res.Action == "delete" {
		if missing {
			return pluginutil.Satisfied(res.ID, fmt.Sprintf("%s absent", cfg.Path), nil), nil
		}
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted, fmt.Sprintf("%s will be removed", cfg.Path), "", data), nil
	}

	if cfg.To == "" {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("symlink %s has no target", cfg.Path))
	}

	switch {
	case missing:
		return pluginutil.NeedsAction(res.ID, model.StatusMissing,
			fmt.Sprintf("%s -> %s will be created", cfg.Path, cfg.To), "", data), nil
	case data.Conflict:
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
			fmt.Sprintf("%s exists and is not a symlink", cfg.Path), "", data), nil
	case data.Current != cfg.To:
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
			fmt.Sprintf("%s points to %s, want %s", cfg.Path, data.Current, cfg.To),
			fmt.Sprintf("-%s -> %s\n+%s -> %s\n", cfg.Path, data.Current, cfg.Path, cfg.To), data), nil
	}
	return pluginutil.Satisfied(res.ID, fmt.Sprintf("%s -> %s", cfg.Path, cfg.To), data), nil
}

func (p *symlinkPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.Symlink
	data, ok := pluginutil.EvalData[*symlinkEvaluationData](evalResult)
	if !ok {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
		data, _ = pluginutil.EvalData[*symlinkEvaluationData](fresh)
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	if data.Conflict && !cfg.Force {
		return pluginutil.Failed(res, fmt.Errorf("%s exists and is not a symlink (set force to replace it)", cfg.Path))
	}

	if res.Action == "delete" {
		if err := os.RemoveAll(cfg.Path); err != nil {
			return pluginutil.Failed(res, fmt.Errorf("remove %s: %w", cfg.Path, err))
		}
		return pluginutil.Converged(res, fmt.Sprintf("removed %s", cfg.Path)), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return pluginutil.Failed(res, fmt.Errorf("create parent of %s: %w", cfg.Path, err))
	}
	if data.Conflict {
		if err := os.RemoveAll(cfg.Path); err != nil {
			return pluginutil.Failed(res, fmt.Errorf("remove %s: %w", cfg.Path, err))
		}
	}
	if err := replaceLink(cfg.To, cfg.Path); err != nil {
		return pluginutil.Failed(res, err)
	}
	return pluginutil.Converged(res, fmt.Sprintf("linked %s -> %s", cfg.Path, cfg.To)), nil
}

// replaceLink swaps path to point at target through a rename so readers never
// observe a missing link.
func replaceLink(target, path string) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".converge-tmp")
	if err := os.Remove(tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear %s: %w", tmp, err)
	}
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("symlink %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
