package model

import (
	"errors"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAmbiguous        = errors.New("ambiguous reference")
	ErrValidation       = errors.New("validation failed")
	ErrHashCodeMismatch = errors.New("hashcode does not match")
	ErrStashExists      = errors.New("course already has a stash")
)

// FieldError is a validation failure on a single field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every field that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// NewValidationError builds a validation error for the given fields.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// FieldInvalid is shorthand for a single-field validation error.
func FieldInvalid(field, message string) *ValidationError {
	return NewValidationError(FieldError{Field: field, Message: message})
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
