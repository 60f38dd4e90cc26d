package plugins

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/converge/internal/config"
	"github.com/alexisbeaulieu97/converge/internal/system/systemtest"
)

func TestBuiltin_RegistersEveryKind(t *testing.T) {
	t.Parallel()

	registry, err := Builtin(systemtest.Host(systemtest.NewState(), systemtest.NewRunner(nil)), nil, Options{})
	require.NoError(t, err)

	require.Equal(t, []string{
		config.TypeArtifact, config.TypeCron, config.TypeDirectory, config.TypeFile,
		config.TypeGit, config.TypeGroup, config.TypePackage, config.TypeService,
		config.TypeShell, config.TypeSymlink, config.TypeUser,
	}, registry.Kinds())
}
