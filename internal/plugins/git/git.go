package gitplugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/plugins/pluginutil"
	"github.com/alexisbeaulieu97/converge/internal/system"
)

type gitPlugin struct {
	host *system.Host
}

// New creates a git working copy provider.
func New(host *system.Host) plugin.Plugin {
	return &gitPlugin{host: host}
}

var _ plugin.Plugin = (*gitPlugin)(nil)

func (p *gitPlugin) PluginMetadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        "git",
		Type:        config.TypeGit,
		Version:     "1.0.0",
		APIVersion:  "1.x",
		Description: "Keeps a git working copy cloned from the declared remote and branch.",
	}
}

func (p *gitPlugin) Schema() any {
	return config.GitResource{}
}

type gitEvaluationData struct {
	DirExists    bool
	CloneOptions *git.CloneOptions
}

func (p *gitPlugin) Evaluate(ctx context.Context, res *config.Resource) (*model.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := res.Git
	if cfg == nil {
		return nil, plugin.NewValidationError(res.ID, fmt.Errorf("git configuration missing"))
	}

	dirExists := true
	if _, err := os.Stat(cfg.Destination); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, plugin.NewStateError(res.ID, fmt.Errorf("cannot access destination: %w", err))
		}
		dirExists = false
	}

	opts := &git.CloneOptions{URL: cfg.URL, Depth: cfg.Depth}
	if cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(cfg.Branch)
		opts.SingleBranch = true
	}
	data := &gitEvaluationData{DirExists: dirExists, CloneOptions: opts}

	if !dirExists {
		return pluginutil.NeedsAction(res.ID, model.StatusMissing,
			fmt.Sprintf("%s does not exist", cfg.Destination),
			fmt.Sprintf("Would clone: %s", cfg.URL), data), nil
	}

	repo, err := git.PlainOpen(cfg.Destination)
	if err != nil {
		return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
			fmt.Sprintf("%s exists but is not a git repository", cfg.Destination),
			fmt.Sprintf("Would remove directory and clone: %s", cfg.URL), data), nil
	}

	if remote, err := repo.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		if actual := remote.Config().URLs[0]; actual != cfg.URL {
			return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
				fmt.Sprintf("remote URL is %s (expected %s)", actual, cfg.URL),
				fmt.Sprintf("Would reclone with URL: %s", cfg.URL), data), nil
		}
	}

	if cfg.Branch != "" {
		current := ""
		if head, err := repo.Head(); err == nil {
			current = head.Name().Short()
		}
		if current != cfg.Branch {
			return pluginutil.NeedsAction(res.ID, model.StatusDrifted,
				fmt.Sprintf("current branch is %s (expected %s)", current, cfg.Branch),
				fmt.Sprintf("Would reclone branch: %s", cfg.Branch), data), nil
		}
	}

	return pluginutil.Satisfied(res.ID, fmt.Sprintf("git repository exists at %s", cfg.Destination), data), nil
}

func (p *gitPlugin) Apply(ctx context.Context, evalResult *model.EvaluationResult, res *config.Resource) (*model.ResourceResult, error) {
	cfg := res.Git
	data, ok := pluginutil.EvalData[*gitEvaluationData](evalResult)
	if !ok {
		fresh, err := p.Evaluate(ctx, res)
		if err != nil {
			return nil, err
		}
		evalResult = fresh
		data, _ = pluginutil.EvalData[*gitEvaluationData](fresh)
	}
	if !evalResult.RequiresAction {
		return &model.ResourceResult{ResourceID: res.ID, Type: res.Type, Status: model.StatusUpToDate, Message: evalResult.Message}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Destination), 0o755); err != nil {
		return pluginutil.Failed(res, fmt.Errorf("create destination parent: %w", err))
	}
	if data.DirExists {
		if err := os.RemoveAll(cfg.Destination); err != nil {
			return pluginutil.Failed(res, fmt.Errorf("remove existing directory: %w", err))
		}
	}

	if _, err := git.PlainCloneContext(ctx, cfg.Destination, false, data.CloneOptions); err != nil {
		return pluginutil.Failed(res, fmt.Errorf("clone %s: %w", cfg.URL, err))
	}
	return pluginutil.Converged(res, fmt.Sprintf("cloned %s", cfg.URL)), nil
}
