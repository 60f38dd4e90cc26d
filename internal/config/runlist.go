package config

import (
	"fmt"
	"os"
	"path/filepath"

	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

// RunList orders the recipes applied in a single run.
type RunList struct {
	Name    string   `yaml:"name" validate:"required"`
	Recipes []string `yaml:"recipes" validate:"required,min=1,dive,required"`

	// Path is the file the run-list was loaded from.
	Path string `yaml:"-"`
}

// ParseRunList reads a run-list. Recipe paths are resolved relative to the
// run-list's directory.
func ParseRunList(path string) (*RunList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, convergeerrors.NewParseError(path, 0, err)
	}

	var runList RunList
	if err := decodeDocument(path, data, &runList); err != nil {
		return nil, err
	}

	if err := validatorInstance().Struct(&runList); err != nil {
		return nil, convertValidationError(err)
	}

	base := filepath.Dir(path)
	for i, recipe := range runList.Recipes {
		if !filepath.IsAbs(recipe) {
			runList.Recipes[i] = filepath.Join(base, recipe)
		}
	}
	runList.Path = path
	return &runList, nil
}

// LoadRecipes parses every recipe in order and validates cross-recipe invariants.
func LoadRecipes(paths []string) ([]*Recipe, error) {
	if len(paths) == 0 {
		return nil, convergeerrors.NewValidationError("recipes", "at least one recipe is required", nil)
	}

	recipes := make([]*Recipe, 0, len(paths))
	names := make(map[string]string, len(paths))
	for _, path := range paths {
		recipe, err := ParseRecipe(path)
		if err != nil {
			return nil, err
		}
		if other, exists := names[recipe.Name]; exists {
			return nil, convergeerrors.NewValidationError("name",
				fmt.Sprintf("recipe name %q is declared by both %s and %s", recipe.Name, other, path), nil)
		}
		names[recipe.Name] = path
		recipes = append(recipes, recipe)
	}

	if err := ValidateRun(recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// LoadRunList parses a run-list and every recipe it names.
func LoadRunList(path string) (*RunList, []*Recipe, error) {
	runList, err := ParseRunList(path)
	if err != nil {
		return nil, nil, err
	}

	recipes, err := LoadRecipes(runList.Recipes)
	if err != nil {
		return nil, nil, err
	}
	return runList, recipes, nil
}
