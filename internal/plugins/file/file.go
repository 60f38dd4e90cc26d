package fileplugin

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins/pluginutil"
	"github.com/alexisbeaulieu97/converge/internal/system"
	"github.com/alexisbeaulieu97/converge/pkg/diff"
)

const defaultFileMode os.FileMode = 0o644

type filePlugin struct {
	host *system.Host
}

// New creates a file provider.
func New(host *system.Host) plugin.Plugin {
	return &filePlugin{host: host}
}

var _ plugin.Plugin = (*filePlugin)(nil)

func (p *filePlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "file",
		Type:        config.TypeFile,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Manages file content, mode and ownership.",
	}
}

func (p *filePlugin) Schema() any {
	return config.FileResource{}
}

type fileEvaluationData struct {
	Exists bool
	// Target is the path written and chmodded: the declared path, or what it
	// resolves to when it is a symlink.
	Target         string
	Desired        []byte
	ContentDrift   bool
	DesiredMode    os.FileMode
	ModeDrift      bool
	UID            int
	GID            int
	OwnerDrift     bool
	OwnersResolved bool
}

func (p *filePlugin) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.File
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("file configuration missing"))
	}
	if err := ctx.Err(); err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}

	// Stat follows symlinks so mode and owner are those of the managed target.
	info, err := os.Stat(cfg.Path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, plugin.NewStateError(res.ID, fmt.Errorf("stat %s: %w", cfg.Path, err))
	}
	target := cfg.Path
	if exists {
		resolved, err := filepath.EvalSymlinks(cfg.Path)
		if err != nil {
			return nil, plugin.NewStateError(res.ID, fmt.Errorf("resolve %s: %w", cfg.Path, err))
		}
		target = resolved
	}
	if exists && info.IsDir() {
		return nil, plugin.NewStateError(res.ID, fmt.Errorf("%s is a directory", cfg.Path))
	}

	if res.Action == "delete" {
		if _, err := os.Lstat(cfg.Path); errors.Is(err, fs.ErrNotExist) {
			return pluginutil.Satisfied(res.ID, fmt.Sprintf("%s is absent", cfg.Path), &fileEvaluationData{}), nil
		}
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted, fmt.Sprintf("%s exists", cfg.Path),
			fmt.Sprintf("Would delete: %s", cfg.Path), &fileEvaluationData{Exists: true}), nil
	}

	data := &fileEvaluationData{Exists: exists, Target: target}

	if cfg.ManagesContent() {
		desired, err := desiredContent(cfg)
		if err != nil {
			return nil, plugin.NewValidationError(res.ID, err)
		}
		data.Desired = desired
	}

	fallback := defaultFileMode
	if exists {
		fallback = info.Mode().Perm()
	}
	mode, modeSet, err := pluginutil.DesiredMode(cfg.Mode, fallback)
	if err != nil {
		return nil, plugin.NewValidationError(res.ID, err)
	}
	data.DesiredMode = mode

	uid, gid, resolved, err := pluginutil.Ownership(p.host.State, cfg.Owner, cfg.Group)
	if err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}
	data.UID, data.GID, data.OwnersResolved = uid, gid, resolved

	if !exists {
		if !cfg.ManagesContent() {
			return pluginutil.NeedsAction(res.ID, model.StatusMissing,
				fmt.Sprintf("%s does not exist and declares no content", cfg.Path), "", data), nil
		}
		preview := diff.GenerateUnifiedDiff(nil, data.Desired, "/dev/null", cfg.Path)
		return pluginutil.NeedsAction(res.ID, model.StatusMissing, fmt.Sprintf("%s does not exist", cfg.Path), preview, data), nil
	}

	var preview string
	var drift []string
	if cfg.ManagesContent() {
		current, err := os.ReadFile(target)
		if err != nil {
			return nil, plugin.NewStateError(res.ID, fmt.Errorf("read %s: %w", cfg.Path, err))
		}
		if sha256.Sum256(current) != sha256.Sum256(data.Desired) {
			data.ContentDrift = true
			drift = append(drift, "content")
			preview = diff.GenerateUnifiedDiff(current, data.Desired, cfg.Path+" (current)", cfg.Path+" (desired)")
		}
	}
	if modeSet && info.Mode().Perm() != mode {
		data.ModeDrift = true
		drift = append(drift, fmt.Sprintf("mode %04o (want %04o)", info.Mode().Perm(), mode))
	}
	if !resolved || !pluginutil.OwnedBy(info, uid, gid) {
		data.OwnerDrift = true
		drift = append(drift, "ownership")
	}

	if len(drift) == 0 {
		return pluginutil.Satisfied(res.ID, fmt.Sprintf("%s is up to date", cfg.Path), data), nil
	}
	return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
		fmt.Sprintf("%s differs: %s", cfg.Path, strings.Join(drift, ", ")), preview, data), nil
}

func (p *filePlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.File
	data, ok := pluginutil.EvalData[*fileEvaluationData](evalResult)
	if !ok {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
		data, _ = pluginutil.EvalData[*fileEvaluationData](fresh)
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	if res.Action == "delete" {
		if err := os.Remove(cfg.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return pluginutil.Failed(res, fmt.Errorf("delete %s: %w", cfg.Path, err))
		}
		return pluginutil.Converged(res, fmt.Sprintf("deleted %s", cfg.Path)), nil
	}

	if !data.Exists && !cfg.ManagesContent() {
		return pluginutil.Failed(res, fmt.Errorf("%s does not exist and no content or source is declared", cfg.Path))
	}
	if !data.OwnersResolved {
		return pluginutil.Failed(res, fmt.Errorf("owner %q or group %q does not exist", cfg.Owner, cfg.Group))
	}

	var changes []string
	if !data.Exists || data.ContentDrift {
		if err := writeAtomic(data.Target, data.Desired, data.DesiredMode); err != nil {
			return pluginutil.Failed(res, err)
		}
		changes = append(changes, "content")
	}

	// Mode is enforced even when the content was already correct.
	if err := os.Chmod(data.Target, data.DesiredMode); err != nil {
		return pluginutil.Failed(res, fmt.Errorf("chmod %s: %w", cfg.Path, err))
	}
	if data.ModeDrift {
		changes = append(changes, fmt.Sprintf("mode %04o", data.DesiredMode))
	}

	if data.UID >= 0 || data.GID >= 0 {
		if err := os.Chown(data.Target, data.UID, data.GID); err != nil {
			return pluginutil.Failed(res, fmt.Errorf("chown %s: %w", cfg.Path, err))
		}
		if data.OwnerDrift {
			changes = append(changes, "ownership")
		}
	}

	return pluginutil.Converged(res, fmt.Sprintf("updated %s (%s)", cfg.Path, strings.Join(changes, ", "))), nil
}

func desiredContent(cfg *config.FileResource) ([]byte, error) {
	var raw []byte
	name := cfg.Path
	if cfg.Content != nil {
		raw = []byte(*cfg.Content)
	} else {
		data, err := os.ReadFile(cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("read source %s: %w", cfg.Source, err)
		}
		raw = data
		name = cfg.Source
	}

	if len(cfg.Vars) == 0 {
		return raw, nil
	}

	tmpl, err := template.New(filepath.Base(name)).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg.Vars); err != nil {
		return nil, fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// writeAtomic replaces path through a sibling temp file so readers never see a
// partial write.
func writeAtomic(path string, content []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".converge-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
