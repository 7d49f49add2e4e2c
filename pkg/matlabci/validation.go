package matlabci

import (
	"fmt"
	"strings"
)

// ValidationErrors represents a collection of validation errors
type ValidationErrors struct {
	errors []error
}

// NewValidationErrors creates a new ValidationErrors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		errors: make([]error, 0),
	}
}

// Add adds an error to the collection
func (ve *ValidationErrors) Add(err error) {
	if err != nil {
		ve.errors = append(ve.errors, err)
	}
}

// AddErrorf adds a formatted error to the collection
func (ve *ValidationErrors) AddErrorf(format string, args ...interface{}) {
	ve.errors = append(ve.errors, fmt.Errorf(format, args...))
}

// Count returns the number of validation errors
func (ve *ValidationErrors) Count() int {
	return len(ve.errors)
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	switch len(ve.errors) {
	case 0:
		return ""
	case 1:
		return ve.errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:\n", len(ve.errors))
	for i, err := range ve.errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (ve *ValidationErrors) Unwrap() []error {
	return ve.errors
}

// ErrorOrNil returns the ValidationErrors as an error if there are any errors, otherwise nil
func (ve *ValidationErrors) ErrorOrNil() error {
	if len(ve.errors) > 0 {
		return ve
	}
	return nil
}

// ValidateRequired validates that a required string field is not empty
func ValidateRequired(value, fieldName, context string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %s is required", context, fieldName)
	}
	return nil
}
