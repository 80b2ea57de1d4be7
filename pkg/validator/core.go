package validator

import (
	"fmt"
	"strings"
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors represents a collection of validation errors.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Rule is a single validation check. A zero-value ValidationError (empty
// Field) means the check passed.
type Rule func() ValidationError

// Apply runs all rules and returns the accumulated errors, or nil if every
// rule passed.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if ve := rule(); ve.Field != "" {
			errs = append(errs, ve)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
