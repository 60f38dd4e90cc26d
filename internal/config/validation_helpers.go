package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	convergeerrors "github.com/alexisbeaulieu97/converge/pkg/errors"
)

// convertValidationError normalizes validator errors into converge validation errors.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return convergeerrors.NewValidationError(field, msg, err)
	}

	return convergeerrors.NewValidationError("recipe", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForResource(index int, field string) string {
	return fmt.Sprintf("resources[%d].%s", index, field)
}

func fieldForValidation(index int, field string) string {
	return fmt.Sprintf("validations[%d].%s", index, field)
}
