package engine

import (
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/converge/internal/config"
)

// Plan is the ordered set of recipes converged by one run.
type Plan struct {
	Recipes []*config.Recipe
}

// NewPlan keeps recipes in the given order.
func NewPlan(recipes ...*config.Recipe) *Plan {
	return &Plan{Recipes: recipes}
}

// Step is one enabled resource in execution order.
type Step struct {
	Recipe   *config.Recipe
	Resource *config.Resource
}

// Steps flattens the plan into execution order, dropping disabled resources.
func (p *Plan) Steps() []Step {
	if p == nil {
		return nil
	}

	var steps []Step
	for _, recipe := range p.Recipes {
		for i := range recipe.Resources {
			res := &recipe.Resources[i]
			if !res.Enabled {
				continue
			}
			steps = append(steps, Step{Recipe: recipe, Resource: res})
		}
	}
	return steps
}

// String renders the execution order with guards, one resource per line.
func (p *Plan) String() string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	for _, recipe := range p.Recipes {
		fmt.Fprintf(&b, "%s (%s)\n", recipe.Name, recipe.Path)
		for i := range recipe.Resources {
			res := &recipe.Resources[i]
			line := fmt.Sprintf("  %-24s %-10s %-9s", res.ID, res.Type, res.Action)
			if !res.Enabled {
				line += " [disabled]"
			}
			if res.Guarded() {
				line += " [guarded]"
				for _, g := range res.OnlyIf {
					line += " only_if " + g.Describe()
				}
				for _, g := range res.NotIf {
					line += " not_if " + g.Describe()
				}
			}
			if res.Symlink != nil && res.Symlink.ToArtifact != "" {
				line += " <- " + res.Symlink.ToArtifact
			}
			b.WriteString(strings.TrimRight(line, " ") + "\n")
		}
	}
	return b.String()
}
