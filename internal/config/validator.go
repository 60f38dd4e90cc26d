package config

import (
	"fmt"
	"strings"

	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

// ValidateRecipe performs schema and per-resource validation on a single recipe.
func ValidateRecipe(recipe *Recipe) error {
	if recipe == nil {
		return convergeerrors.NewValidationError("recipe", "recipe is nil", nil)
	}

	if err := validatorInstance().Struct(recipe); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]struct{}, len(recipe.Resources))
	for i := range recipe.Resources {
		res := &recipe.Resources[i]
		if _, exists := seen[res.ID]; exists {
			return convergeerrors.NewValidationError(fieldForResource(i, "id"), fmt.Sprintf("duplicate resource id %q", res.ID), nil)
		}
		seen[res.ID] = struct{}{}

		if err := ValidateResource(res); err != nil {
			return err
		}
	}

	for i, validation := range recipe.Validations {
		if err := validateValidation(validation, i); err != nil {
			return err
		}
	}

	return nil
}

// ValidateRun checks invariants that span every recipe of a run: resource ids are
// unique and every artifact binding names an artifact declared earlier.
func ValidateRun(recipes []*Recipe) error {
	owners := make(map[string]string)
	artifacts := make(map[string]struct{})

	for _, recipe := range recipes {
		if recipe == nil {
			continue
		}
		for i := range recipe.Resources {
			res := &recipe.Resources[i]
			if owner, exists := owners[res.ID]; exists {
				return convergeerrors.NewValidationError(
					fmt.Sprintf("%s.%s", recipe.Name, fieldForResource(i, "id")),
					fmt.Sprintf("resource id %q already declared in recipe %q", res.ID, owner),
					nil,
				)
			}
			owners[res.ID] = recipe.Name

			if res.Type == TypeSymlink && res.Symlink != nil && res.Symlink.ToArtifact != "" {
				if _, ok := artifacts[res.Symlink.ToArtifact]; !ok {
					return convergeerrors.NewValidationError(
						fmt.Sprintf("%s.%s", recipe.Name, fieldForResource(i, "to_artifact")),
						fmt.Sprintf("references unknown or later artifact %q", res.Symlink.ToArtifact),
						nil,
					)
				}
			}

			if res.Type == TypeArtifact {
				artifacts[res.ID] = struct{}{}
			}
		}
	}

	return nil
}

// ValidateResource validates a single resource independent of its siblings.
func ValidateResource(res *Resource) error {
	v := validatorInstance()
	if err := v.Struct(res); err != nil {
		return convertValidationError(err)
	}

	if !containsString(allowedActions[res.Type], res.Action) {
		return convergeerrors.NewValidationError(res.ID+".action",
			fmt.Sprintf("action %q is not valid for %s resources (allowed: %s)", res.Action, res.Type, strings.Join(allowedActions[res.Type], ", ")), nil)
	}

	for i, g := range res.OnlyIf {
		if err := validateGuard(res.ID, "only_if", i, g); err != nil {
			return err
		}
	}
	for i, g := range res.NotIf {
		if err := validateGuard(res.ID, "not_if", i, g); err != nil {
			return err
		}
	}

	payload, err := payloadFor(res)
	if err != nil {
		return err
	}
	if err := v.Struct(payload); err != nil {
		return convertValidationError(err)
	}

	switch res.Type {
	case TypeFile:
		if res.File.Content != nil && res.File.Source != "" {
			return convergeerrors.NewValidationError(res.ID, "content and source are mutually exclusive", nil)
		}
	case TypeUser:
		if res.User.LiteralPassword {
			return convergeerrors.NewValidationError(res.ID+".password",
				"literal password hashes are not accepted; use password_secret with a secret reference", nil)
		}
	case TypeSymlink:
		hasTo := res.Symlink.To != ""
		hasArtifact := res.Symlink.ToArtifact != ""
		if res.Action == "create" && hasTo == hasArtifact {
			return convergeerrors.NewValidationError(res.ID, "symlink requires exactly one of to or to_artifact", nil)
		}
	case TypeService:
		if res.Service.HasAction("enable") && res.Service.HasAction("disable") {
			return convergeerrors.NewValidationError(res.ID+".actions", "enable and disable are mutually exclusive", nil)
		}
		if res.Service.HasAction("start") && res.Service.HasAction("stop") {
			return convergeerrors.NewValidationError(res.ID+".actions", "start and stop are mutually exclusive", nil)
		}
	}

	return nil
}

func payloadFor(res *Resource) (any, error) {
	var payload any
	var present bool
	switch res.Type {
	case TypePackage:
		payload, present = res.Package, res.Package != nil
	case TypeFile:
		payload, present = res.File, res.File != nil
	case TypeDirectory:
		payload, present = res.Directory, res.Directory != nil
	case TypeUser:
		payload, present = res.User, res.User != nil
	case TypeGroup:
		payload, present = res.Group, res.Group != nil
	case TypeService:
		payload, present = res.Service, res.Service != nil
	case TypeCron:
		payload, present = res.Cron, res.Cron != nil
	case TypeShell:
		payload, present = res.Shell, res.Shell != nil
	case TypeSymlink:
		payload, present = res.Symlink, res.Symlink != nil
	case TypeArtifact:
		payload, present = res.Artifact, res.Artifact != nil
	case TypeGit:
		payload, present = res.Git, res.Git != nil
	default:
		return nil, convergeerrors.NewValidationError(res.ID+".type", fmt.Sprintf("unsupported resource type %q", res.Type), nil)
	}
	if !present {
		return nil, convergeerrors.NewValidationError(res.ID, fmt.Sprintf("%s configuration is required", res.Type), nil)
	}
	return payload, nil
}

func validateGuard(resourceID, clause string, index int, g Guard) error {
	if g.predicates() != 1 {
		return convergeerrors.NewValidationError(
			fmt.Sprintf("%s.%s[%d]", resourceID, clause, index),
			"guard must declare exactly one of file_exists, directory_exists, process_running, command",
			nil,
		)
	}
	return nil
}

func validateValidation(validation Validation, index int) error {
	v := validatorInstance()
	if err := v.Struct(validation); err != nil {
		return convertValidationError(err)
	}

	var payload any
	switch validation.Type {
	case "command_exists":
		if validation.CommandExists != nil {
			payload = validation.CommandExists
		}
	case "file_exists":
		if validation.FileExists != nil {
			payload = validation.FileExists
		}
	case "path_contains":
		if validation.PathContains != nil {
			payload = validation.PathContains
		}
	}
	if payload == nil {
		return convergeerrors.NewValidationError(fieldForValidation(index, "type"), fmt.Sprintf("%s configuration is required", validation.Type), nil)
	}
	if err := v.Struct(payload); err != nil {
		return convertValidationError(err)
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
