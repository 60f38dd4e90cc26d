package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseRecipe loads a recipe from disk, renders its variables, validates it and
// returns the resulting model. Files ending in .toml are read as TOML, anything
// else as YAML.
func ParseRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, convergeerrors.NewParseError(path, 0, err)
	}

	recipe, err := decodeRecipe(path, data)
	if err != nil {
		return nil, err
	}

	if err := ValidateRecipe(recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

func decodeRecipe(path string, data []byte) (*Recipe, error) {
	var header struct {
		Variables map[string]string `yaml:"variables"`
	}
	if err := decodeDocument(path, data, &header); err != nil {
		return nil, err
	}

	if len(header.Variables) > 0 {
		rendered, err := renderVariables(path, data, header.Variables)
		if err != nil {
			return nil, err
		}
		data = rendered
	}

	var recipe Recipe
	if err := decodeDocument(path, data, &recipe); err != nil {
		return nil, err
	}
	recipe.Path = path

	base := filepath.Dir(path)
	for i := range recipe.Resources {
		res := &recipe.Resources[i]
		if res.File != nil {
			res.File.Source = resolveAgainst(base, res.File.Source)
		}
		if res.Artifact != nil {
			res.Artifact.Pattern = resolveAgainst(base, res.Artifact.Pattern)
		}
		if res.Symlink != nil {
			res.Symlink.Path = resolveAgainst(base, res.Symlink.Path)
		}
	}
	return &recipe, nil
}

// resolveAgainst anchors a relative, non-empty path at the recipe directory.
func resolveAgainst(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// decodeDocument unmarshals YAML directly and routes TOML through a generic map so
// both formats share the YAML decoding hooks.
func decodeDocument(path string, data []byte, out any) error {
	if !isTOML(path) {
		if err := yaml.Unmarshal(data, out); err != nil {
			return convergeerrors.NewParseError(path, extractLine(err), err)
		}
		return nil
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		line := 0
		var perr toml.ParseError
		if errors.As(err, &perr) {
			line = perr.Position.Line
		}
		return convergeerrors.NewParseError(path, line, err)
	}

	intermediate, err := yaml.Marshal(doc)
	if err != nil {
		return convergeerrors.NewParseError(path, 0, err)
	}
	if err := yaml.Unmarshal(intermediate, out); err != nil {
		return convergeerrors.NewParseError(path, 0, err)
	}
	return nil
}

func renderVariables(path string, data []byte, variables map[string]string) ([]byte, error) {
	tmpl, err := template.New(filepath.Base(path)).Option("missingkey=error").Parse(string(data))
	if err != nil {
		return nil, convergeerrors.NewParseError(path, 0, fmt.Errorf("template: %w", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, variables); err != nil {
		return nil, convergeerrors.NewParseError(path, 0, fmt.Errorf("render variables: %w", err))
	}
	return buf.Bytes(), nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
