package directoryplugin

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
)

const defaultDirMode os.FileMode = 0o755

type directoryPlugin struct {
	host *system.Host
}

// New creates a directory provider.
func New(host *system.Host) plugin.Plugin {
	return &directoryPlugin{host: host}
}

var _ plugin.Plugin = (*directoryPlugin)(nil)

func (p *directoryPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "directory",
		Type:        config.TypeDirectory,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Creates and removes directories with mode and ownership.",
	}
}

func (p *directoryPlugin) Schema() any {
	return config.DirectoryResource{}
}

type directoryEvaluationData struct {
	Exists   bool
	Mode     os.FileMode
	UID      int
	GID      int
	Resolved bool
}

func (p *directoryPlugin) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Directory
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("directory configuration missing"))
	}
	if err := ctx.Err(); err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}

	info, err := os.Stat(cfg.Path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, plugin.NewStateError(res.ID, fmt.Errorf("stat %s: %w", cfg.Path, err))
	}
	if exists && !info.IsDir() {
		return nil, plugin.NewStateError(res.ID, fmt.Errorf("%s exists and is not a directory", cfg.Path))
	}

	if res.Action == "delete" {
		if !exists {
			return pluginutil.Satisfied(res.ID, fmt.Sprintf("%s is absent", cfg.Path), &directoryEvaluationData{}), nil
		}
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted, fmt.Sprintf("%s exists", cfg.Path),
			fmt.Sprintf("Would remove: %s", cfg.Path), &directoryEvaluationData{Exists: true}), nil
	}

	mode, modeSet, err := pluginutil.DesiredMode(cfg.Mode, defaultDirMode)
	if err != nil {
		return nil, plugin.NewValidationError(res.ID, err)
	}
	uid, gid, resolved, err := pluginutil.Ownership(p.host.State, cfg.Owner, cfg.Group)
	if err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}
	data := &directoryEvaluationData{Exists: exists, Mode: mode, UID: uid, GID: gid, Resolved: resolved}

	if !exists {
		return pluginutil.NeedsAction(res.ID, model.StatusMissing, fmt.Sprintf("%s does not exist", cfg.Path),
			fmt.Sprintf("Would create: %s", cfg.Path), data), nil
	}

	var drift []string
	if modeSet && info.Mode().Perm() != mode {
		drift = append(drift, fmt.Sprintf("mode %04o (want %04o)", info.Mode().Perm(), mode))
	}
	if !resolved {
		drift = append(drift, "ownership")
	} else if owned, err := ownedTree(cfg.Path, info, uid, gid, cfg.Recursive); err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	} else if !owned {
		drift = append(drift, "ownership")
	}

	if len(drift) == 0 {
		return pluginutil.Satisfied(res.ID, fmt.Sprintf("%s is up to date", cfg.Path), data), nil
	}
	return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
		fmt.Sprintf("%s differs: %s", cfg.Path, strings.Join(drift, ", ")), "", data), nil
}

func (p *directoryPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.Directory
	data, ok := pluginutil.EvalData[*directoryEvaluationData](evalResult)
	if !ok {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
		data, _ = pluginutil.EvalData[*directoryEvaluationData](fresh)
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	if res.Action == "delete" {
		remove := os.Remove
		if cfg.Recursive {
			remove = os.RemoveAll
		}
		if err := remove(cfg.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return pluginutil.Failed(res, fmt.Errorf("remove %s: %w", cfg.Path, err))
		}
		return pluginutil.Converged(res, fmt.Sprintf("removed %s", cfg.Path)), nil
	}

	if !data.Resolved {
		return pluginutil.Failed(res, fmt.Errorf("owner %q or group %q does not exist", cfg.Owner, cfg.Group))
	}

	if err := os.MkdirAll(cfg.Path, data.Mode); err != nil {
		return pluginutil.Failed(res, fmt.Errorf("create %s: %w", cfg.Path, err))
	}
	// MkdirAll is subject to the umask and leaves existing directories alone.
	if err := os.Chmod(cfg.Path, data.Mode); err != nil {
		return pluginutil.Failed(res, fmt.Errorf("chmod %s: %w", cfg.Path, err))
	}

	if data.UID >= 0 || data.GID >= 0 {
		if err := chownTree(cfg.Path, data.UID, data.GID, cfg.Recursive); err != nil {
			return pluginutil.Failed(res, err)
		}
	}

	verb := "updated"
	if !data.Exists {
		verb = "created"
	}
	return pluginutil.Converged(res, fmt.Sprintf("%s %s", verb, cfg.Path)), nil
}

func ownedTree(root string, info os.FileInfo, uid, gid int, recursive bool) (bool, error) {
	if uid < 0 && gid < 0 {
		return true, nil
	}
	if !pluginutil.OwnedBy(info, uid, gid) {
		return false, nil
	}
	if !recursive {
		return true, nil
	}

	owned := true
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		entryInfo, err := d.Info()
		if err != nil {
			return err
		}
		if !pluginutil.OwnedBy(entryInfo, uid, gid) {
			owned = false
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("walk %s: %w", root, err)
	}
	return owned, nil
}

func chownTree(root string, uid, gid int, recursive bool) error {
	if !recursive {
		if err := os.Chown(root, uid, gid); err != nil {
			return fmt.Errorf("chown %s: %w", root, err)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := os.Lchown(path, uid, gid); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
		return nil
	})
}
