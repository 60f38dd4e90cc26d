package gitplugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	pluginpkg "github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/system/systemtest"
)

func newPlugin() pluginpkg.Plugin {
	return New(systemtest.Host(systemtest.NewState(), systemtest.NewRunner(nil)))
}

func gitResource(url, dest, branch string) *config.Resource {
	return &config.Resource{
		ID:      "app_source",
		Type:    config.TypeGit,
		Action:  "sync",
		Enabled: true,
		Git:     &config.GitResource{URL: url, Destination: dest, Branch: branch},
	}
}

func TestGitPlugin_ClonesThenUpToDate(t *testing.T) {
	t.Parallel()

	source := initGitRepo(t)
	dest := filepath.Join(t.TempDir(), "src", "app")
	p := newPlugin()
	res := gitResource(source, dest, "")

	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)

	result, err := p.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, model.StatusConverged, result.Status)

	contents, err := os.ReadFile(filepath.Join(dest, "README.md"))
	require.NoError(t, err)
	require.Equal(t, "hello repo", string(contents))

	eval, err = p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)
	result, err = p.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, model.StatusUpToDate, result.Status)
}

func TestGitPlugin_ReplacesNonRepository(t *testing.T) {
	t.Parallel()

	source := initGitRepo(t)
	dest := filepath.Join(t.TempDir(), "app")
	require.NoError(t, os.MkdirAll(dest, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "stale.txt"), []byte("x"), 0o644))

	p := newPlugin()
	res := gitResource(source, dest, "")

	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, model.StatusDrifted, eval.CurrentState)

	_, err = p.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "stale.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestGitPlugin_BranchDrift(t *testing.T) {
	t.Parallel()

	source := initGitRepo(t)
	repo, err := git.PlainOpen(source)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("release"), head.Hash())))

	dest := filepath.Join(t.TempDir(), "app")
	p := newPlugin()

	_, err = p.Apply(context.Background(), nil, gitResource(source, dest, ""))
	require.NoError(t, err)

	res := gitResource(source, dest, "release")
	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, model.StatusDrifted, eval.CurrentState)
	require.Contains(t, eval.Message, "expected release")

	_, err = p.Apply(context.Background(), eval, res)
	require.NoError(t, err)

	eval, err = p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)
}

func TestGitPlugin_CloneFailure(t *testing.T) {
	t.Parallel()

	res := gitResource(filepath.Join(t.TempDir(), "missing.git"), filepath.Join(t.TempDir(), "app"), "")
	result, err := newPlugin().Apply(context.Background(), nil, res)
	require.ErrorIs(t, err, &pluginpkg.ExecutionError{})
	require.Equal(t, model.StatusFailed, result.Status)
}

func initGitRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello repo"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Converge",
			Email: "converge@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir
}
