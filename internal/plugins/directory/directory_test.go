package directoryplugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	pluginpkg "github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/system"
	"github.com/alexisbeaulieu97/converge/internal/system/systemtest"
)

func newPlugin() (pluginpkg.Plugin, *systemtest.State) {
	state := systemtest.NewState()
	return New(systemtest.Host(state, systemtest.NewRunner(nil))), state
}

func dirResource(action string, cfg config.DirectoryResource) *config.Resource {
	return &config.Resource{ID: "app_dir", Type: config.TypeDirectory, Action: action, Enabled: true, Directory: &cfg}
}

func TestDirectoryPlugin_CreateIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "opt", "app")
	p, _ := newPlugin()
	res := dirResource("create", config.DirectoryResource{Path: path, Mode: "0750"})
	ctx := context.Background()

	eval, err := p.Evaluate(ctx, res)
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)

	result, err := p.Apply(ctx, eval, res)
	require.NoError(t, err)
	require.Equal(t, model.StatusConverged, result.Status)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0o750), info.Mode().Perm())

	eval, err = p.Evaluate(ctx, res)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)
}

func TestDirectoryPlugin_ModeDrift(t *testing.T) {
	t.Parallel()

	path := t.TempDir()
	require.NoError(t, os.Chmod(path, 0o700))

	p, _ := newPlugin()
	res := dirResource("create", config.DirectoryResource{Path: path, Mode: "0755"})

	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, model.StatusDrifted, eval.CurrentState)
	require.Contains(t, eval.Message, "mode 0700")

	_, err = p.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestDirectoryPlugin_RecursiveOwnership(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "logs", "app.log"), nil, 0o644))

	p, state := newPlugin()
	state.Users["app"] = &system.Account{Name: "app", UID: os.Getuid()}
	res := dirResource("create", config.DirectoryResource{Path: root, Owner: "app", Recursive: true})

	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)

	state.Users["app"] = &system.Account{Name: "app", UID: os.Getuid() + 1}
	eval, err = p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.True(t, eval.RequiresAction)
	require.Contains(t, eval.Message, "ownership")
}

func TestDirectoryPlugin_Delete(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "old")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested"), 0o755))

	p, _ := newPlugin()
	ctx := context.Background()

	shallow := dirResource("delete", config.DirectoryResource{Path: root})
	eval, err := p.Evaluate(ctx, shallow)
	require.NoError(t, err)
	_, err = p.Apply(ctx, eval, shallow)
	require.Error(t, err, "non-recursive delete of a non-empty directory fails")

	recursive := dirResource("delete", config.DirectoryResource{Path: root, Recursive: true})
	eval, err = p.Evaluate(ctx, recursive)
	require.NoError(t, err)
	result, err := p.Apply(ctx, eval, recursive)
	require.NoError(t, err)
	require.Equal(t, model.StatusConverged, result.Status)

	eval, err = p.Evaluate(ctx, recursive)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)
}

func TestDirectoryPlugin_FileInTheWay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	p, _ := newPlugin()
	_, err := p.Evaluate(context.Background(), dirResource("create", config.DirectoryResource{Path: path}))
	require.ErrorIs(t, err, &pluginpkg.StateError{})
}
