package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/converge/internal/system"
	"github.com/alexisbeaulieu97/converge/internal/system/systemtest"
)

// useFakeHost swaps the live host for in-memory fakes and forces the
// non-interactive renderer.
func useFakeHost(t *testing.T, state *systemtest.State) *systemtest.Runner {
	t.Helper()

	runner := systemtest.NewRunner(func(cmd system.Command) (system.Result, error) {
		return system.Result{}, nil
	})
	originalHost := newHost
	originalTerminal := isTerminal
	t.Cleanup(func() {
		newHost = originalHost
		isTerminal = originalTerminal
	})
	newHost = func(io.Writer) *system.Host { return systemtest.Host(state, runner) }
	isTerminal = func() bool { return false }
	return runner
}

func writeRecipe(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

// healthcheckRecipe declares a directory and an executable script inside root.
func healthcheckRecipe(root string) string {
	return fmt.Sprintf(`version: "1.0.0"
name: healthcheck
resources:
  - id: opt_dir
    type: directory
    path: %[1]s/opt
  - id: healthcheck_script
    type: file
    path: %[1]s/opt/healthcheck.sh
    mode: "0755"
    content: |
      #!/bin/sh
      exit 0
validations:
  - type: file_exists
    path: %[1]s/opt/healthcheck.sh
`, root)
}
