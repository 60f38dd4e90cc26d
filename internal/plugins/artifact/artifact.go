package artifactplugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins/pluginutil"
	"github.com/alexisbeaulieu97/converge/internal/system"
)

type artifactPlugin struct {
	host *system.Host
}

// New creates a build artifact discovery provider.
func New(host *system.Host) plugin.Plugin {
	return &artifactPlugin{host: host}
}

var _ plugin.Plugin = (*artifactPlugin)(nil)

func (p *artifactPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "artifact",
		Type:        config.TypeArtifact,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Discovers build outputs by glob and publishes the selected path.",
	}
}

func (p *artifactPlugin) Schema() any {
	return config.ArtifactResource{}
}

// Evaluate never changes the host. A match is satisfied and carries the
// selected path; no match is missing and fails on Apply.
func (p *artifactPlugin) Evaluate(_ context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	cfg := res.Artifact
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("artifact configuration missing"))
	}

	selected, err := Select(cfg.Pattern, cfg.SelectOrDefault())
	if err != nil {
		return nil, plugin.NewStateError(res.ID, err)
	}
	if selected == "" {
		return pluginutil.NeedsAction(res.ID, model.StatusMissing,
			fmt.Sprintf("no file matches %s", cfg.Pattern), "", nil), nil
	}

	result := pluginutil.Satisfied(res.ID, fmt.Sprintf("discovered %s", selected), nil)
	result.Artifact = selected
	return result, nil
}

func (p *artifactPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	if evalResult == nil {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
	}
	if evalResult.RequiresAction {
		return pluginutil.Failed(res, fmt.Errorf("no artifact found: %s", evalResult.Message))
	}
	return &model.ResourceResult{
		ResourceID: res.ID,
		Type:       res.Type,
		Status:     model.StatusUpToDate,
		Message:    evalResult.Message,
		Artifact:   evalResult.Artifact,
	}, nil
}

// Select expands pattern and picks one regular file. "newest" prefers the
// latest modification time, breaking ties by the lexically greatest path.
// "first" returns the lexically smallest path. The result is absolute so it can
// serve as a symlink target from any directory. An empty result means no match.
func Select(pattern, strategy string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	type candidate struct {
		path  string
		mtime int64
	}
	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("stat %s: %w", m, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, candidate{path: m, mtime: info.ModTime().UnixNano()})
	}
	if len(candidates) == 0 {
		return "", nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].path < candidates[j].path
	})
	best := candidates[0]
	if strategy != "first" {
		for _, c := range candidates[1:] {
			if c.mtime >= best.mtime {
				best = c
			}
		}
	}

	abs, err := filepath.Abs(best.path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", best.path, err)
	}
	return abs, nil
}
