package validation

import "github.com/alexisbeaulieu97/converge/internal/config"

// ValidationResult captures the outcome of executing a single validation rule.
type ValidationResult struct {
	Recipe     string
	Validation config.Validation
	Passed     bool
	Message    string
	Error      error
}

// Describe renders the rule for summaries.
func Describe(v config.Validation) string {
	switch {
	case v.CommandExists != nil:
		return "command_exists " + v.CommandExists.Command
	case v.FileExists != nil:
		return "file_exists " + v.FileExists.Path
	case v.PathContains != nil:
		return "path_contains " + v.PathContains.File + " =~ " + v.PathContains.Text
	}
	return v.Type
}
