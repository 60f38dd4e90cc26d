package symlinkplugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/model"
	pluginpkg "github.com/alexisbeaulieu97/converge/internal/plugin"
	"github.com/alexisbeaulieu97/converge/internal/system/systemtest"
)

func newPlugin() pluginpkg.Plugin {
	return New(systemtest.Host(systemtest.NewState(), systemtest.NewRunner(nil)))
}

func linkResource(action string, cfg config.SymlinkResource) *config.Resource {
	return &config.Resource{ID: "app_link", Type: config.TypeSymlink, Action: action, Enabled: true, Symlink: &cfg}
}

func TestSymlinkPlugin_CreateAndRetarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	v1 := filepath.Join(dir, "app-1.0.jar")
	v2 := filepath.Join(dir, "app-1.1.jar")
	link := filepath.Join(dir, "current", "app.jar")
	p := newPlugin()

	res := linkResource("create", config.SymlinkResource{Path: link, To: v1})
	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, model.StatusMissing, eval.CurrentState)
	result, err := p.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, model.StatusConverged, result.Status)

	target, err := os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, v1, target)

	eval, err = p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)

	res.Symlink.To = v2
	eval, err = p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, model.StatusDrifted, eval.CurrentState)
	require.Contains(t, eval.Diff, "+"+link+" -> "+v2)
	_, err = p.Apply(context.Background(), eval, res)
	require.NoError(t, err)

	target, err = os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, v2, target)
}

func TestSymlinkPlugin_ConflictRequiresForce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	link := filepath.Join(dir, "app.jar")
	require.NoError(t, os.WriteFile(link, []byte("regular"), 0o644))
	p := newPlugin()

	res := linkResource("create", config.SymlinkResource{Path: link, To: "/opt/app/app.jar"})
	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	_, err = p.Apply(context.Background(), eval, res)
	require.ErrorIs(t, err, &pluginpkg.ExecutionError{})
	require.Contains(t, err.Error(), "set force")

	res.Symlink.Force = true
	eval, err = p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	_, err = p.Apply(context.Background(), eval, res)
	require.NoError(t, err)

	target, err := os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, "/opt/app/app.jar", target)
}

func TestSymlinkPlugin_Delete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	link := filepath.Join(dir, "app.jar")
	require.NoError(t, os.Symlink("/opt/app/app.jar", link))
	p := newPlugin()

	res := linkResource("delete", config.SymlinkResource{Path: link})
	eval, err := p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	_, err = p.Apply(context.Background(), eval, res)
	require.NoError(t, err)

	_, err = os.Lstat(link)
	require.True(t, os.IsNotExist(err))

	eval, err = p.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)
}

func TestSymlinkPlugin_UnresolvedTarget(t *testing.T) {
	t.Parallel()

	res := linkResource("create", config.SymlinkResource{Path: filepath.Join(t.TempDir(), "app.jar"), ToArtifact: "app_jar"})
	_, err := newPlugin().Evaluate(context.Background(), res)
	require.ErrorIs(t, err, &pluginpkg.ValidationError{})
}
