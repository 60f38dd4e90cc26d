package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseRecipe(t *testing.T) {
	t.Parallel()

	validYAML := `version: "1.0"
name: healthcheck
resources:
  - id: healthcheck_script
    type: file
    path: /opt/healthcheck.sh
    mode: "0755"
    content: |
      #!/bin/bash
      curl -fsS http://localhost:8080/health
  - id: healthcheck_cron
    type: cron
    minute: "*/2"
    command: /opt/healthcheck.sh
`

	invalidYAML := `version: [1, 0]
name: broken
resources:
  - id: missing_type
`

	missingResources := `version: "1.0"
name: empty
`

	badVersion := `version: "beta"
name: bad
resources:
  - id: step
    type: shell
    code: "true"
`

	cases := []struct {
		name     string
		contents string
		assert   func(t *testing.T, recipe *Recipe, err error)
	}{
		{
			name:     "valid recipe is parsed with defaults",
			contents: validYAML,
			assert: func(t *testing.T, recipe *Recipe, err error) {
				require.NoError(t, err)
				require.Equal(t, "healthcheck", recipe.Name)
				require.Len(t, recipe.Resources, 2)

				file := recipe.Resources[0]
				require.True(t, file.Enabled)
				require.Equal(t, "create", file.Action)
				require.NotNil(t, file.File)
				require.Equal(t, "0755", file.File.Mode)
				require.Contains(t, *file.File.Content, "curl -fsS")

				cron := recipe.Resources[1]
				require.NotNil(t, cron.Cron)
				require.Equal(t, "healthcheck_cron", cron.Cron.CronName)
				require.Equal(t, "root", cron.Cron.User)
				require.Equal(t, "*/2 * * * *", cron.Cron.Schedule())
			},
		},
		{
			name:     "invalid yaml returns parse error",
			contents: invalidYAML,
			assert: func(t *testing.T, recipe *Recipe, err error) {
				require.Nil(t, recipe)
				var parseErr *convergeerrors.ParseError
				require.ErrorAs(t, err, &parseErr)
				require.Contains(t, parseErr.Message, "cannot unmarshal")
			},
		},
		{
			name:     "missing resources returns validation error",
			contents: missingResources,
			assert: func(t *testing.T, recipe *Recipe, err error) {
				var validationErr *convergeerrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Contains(t, validationErr.Field, "resources")
			},
		},
		{
			name:     "non semver version is rejected",
			contents: badVersion,
			assert: func(t *testing.T, recipe *Recipe, err error) {
				var validationErr *convergeerrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Contains(t, validationErr.Message, "semver")
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, t.TempDir(), "recipe.yaml", tc.contents)
			recipe, err := ParseRecipe(path)
			tc.assert(t, recipe, err)
		})
	}
}

func TestParseRecipeRendersVariables(t *testing.T) {
	t.Parallel()

	contents := `version: "1.0"
name: spring_app
variables:
  app_dir: /opt/app
resources:
  - id: app_dir
    type: directory
    path: "{{ .app_dir }}"
  - id: app_link
    type: symlink
    path: "{{ .app_dir }}/app.jar"
    to: "{{ .app_dir }}/build/app-1.0.jar"
`
	path := writeFile(t, t.TempDir(), "app.yaml", contents)

	recipe, err := ParseRecipe(path)
	require.NoError(t, err)
	require.Equal(t, "/opt/app", recipe.Resources[0].Directory.Path)
	require.Equal(t, "/opt/app/app.jar", recipe.Resources[1].Symlink.Path)
	require.Equal(t, path, recipe.Path)
}

func TestParseRecipeResolvesRelativePaths(t *testing.T) {
	t.Parallel()

	contents := `version: "1.0"
name: spring_app
resources:
  - id: app_jar
    type: artifact
    pattern: build/libs/*.jar
  - id: app_link
    type: symlink
    path: deploy/app.jar
    to_artifact: app_jar
  - id: absolute_link
    type: symlink
    path: /opt/app/app.jar
    to: ../build/app.jar
`
	dir := t.TempDir()
	path := writeFile(t, dir, "app.yaml", contents)

	recipe, err := ParseRecipe(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "build", "libs", "*.jar"), recipe.Resources[0].Artifact.Pattern)
	require.Equal(t, filepath.Join(dir, "deploy", "app.jar"), recipe.Resources[1].Symlink.Path)
	require.Equal(t, "/opt/app/app.jar", recipe.Resources[2].Symlink.Path)
	require.Equal(t, "../build/app.jar", recipe.Resources[2].Symlink.To, "link targets stay relative to the link")
}

func TestParseRecipeMissingVariable(t *testing.T) {
	t.Parallel()

	contents := `version: "1.0"
name: broken
variables:
  known: x
resources:
  - id: dir
    type: directory
    path: "{{ .unknown }}"
`
	path := writeFile(t, t.TempDir(), "broken.yaml", contents)

	_, err := ParseRecipe(path)
	var parseErr *convergeerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Contains(t, parseErr.Message, "unknown")
}

func TestParseRecipeTOML(t *testing.T) {
	t.Parallel()

	contents := `version = "1.0"
name = "pam"

[variables]
limits = "/etc/security/limits.conf"

[[resources]]
id = "pam_packages"
type = "package"
packages = ["libpam-modules", "libpam-pwquality"]

[[resources]]
id = "limits"
type = "file"
path = "{{ .limits }}"
mode = "0644"
content = "* soft nofile 65536\n"

[[resources.not_if]]
file_exists = "/etc/security/limits.d/converge.conf"
`
	path := writeFile(t, t.TempDir(), "pam.toml", contents)

	recipe, err := ParseRecipe(path)
	require.NoError(t, err)
	require.Equal(t, "pam", recipe.Name)
	require.Equal(t, []string{"libpam-modules", "libpam-pwquality"}, recipe.Resources[0].Package.Packages)
	require.Equal(t, "install", recipe.Resources[0].Action)
	require.Equal(t, "/etc/security/limits.conf", recipe.Resources[1].File.Path)
	require.Len(t, recipe.Resources[1].NotIf, 1)
	require.Equal(t, "file_exists", recipe.Resources[1].NotIf[0].Kind())
}

func TestParseRecipeTOMLSyntaxErrorCarriesLine(t *testing.T) {
	t.Parallel()

	contents := "version = \"1.0\"\nname = \"x\"\nresources = [\n"
	path := writeFile(t, t.TempDir(), "bad.toml", contents)

	_, err := ParseRecipe(path)
	var parseErr *convergeerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Greater(t, parseErr.Line, 0)
}

func TestParseRecipeMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseRecipe(filepath.Join(t.TempDir(), "absent.yaml"))
	var parseErr *convergeerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestExtractLine(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, extractLine(nil))
	require.Equal(t, 7, extractLine(&convergeerrors.ParseError{Message: "yaml: line 7: did not find expected key"}))
	require.Equal(t, 0, extractLine(&convergeerrors.ParseError{Message: "no line information"}))
}
