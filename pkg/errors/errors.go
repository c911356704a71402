package errors

import (
	"fmt"
)

// ValidationError reports a template that failed static structural checks.
// Templates that fail validation are never attempted for compilation.
type ValidationError struct {
	TemplateID string
	Field      string
	Message    string
	Err        error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(templateID, field, message string, err error) error {
	return &ValidationError{TemplateID: templateID, Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error [%s]: %s: %s", e.TemplateID, e.Field, e.Message)
	}
	return fmt.Sprintf("validation error [%s]: %s", e.TemplateID, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CompilationError reports a parse or segment-walk failure, including
// template size and variable-count overflow.
type CompilationError struct {
	TemplateID string
	Stage      string
	Message    string
	Err        error
}

// NewCompilationError constructs a CompilationError for the given pipeline stage.
func NewCompilationError(templateID, stage, message string, err error) error {
	return &CompilationError{TemplateID: templateID, Stage: stage, Message: message, Err: err}
}

func (e *CompilationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Stage != "" {
		return fmt.Sprintf("compilation error [%s] during %s: %s", e.TemplateID, e.Stage, e.Message)
	}
	return fmt.Sprintf("compilation error [%s]: %s", e.TemplateID, e.Message)
}

// Unwrap exposes the underlying error.
func (e *CompilationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// VariableError reports a required variable that could not be resolved
// from the runtime context. It names the offending variable so callers can
// distinguish "fix the template" from "fix the runtime input".
type VariableError struct {
	TemplateID string
	VariableID string
	Message    string
	Err        error
}

// NewVariableError constructs a VariableError for the given variable.
func NewVariableError(templateID, variableID, message string, err error) error {
	return &VariableError{TemplateID: templateID, VariableID: variableID, Message: message, Err: err}
}

func (e *VariableError) Error() string {
	if e == nil {
		return ""
	}
	if e.VariableID != "" {
		return fmt.Sprintf("variable error [%s] for %q: %s", e.TemplateID, e.VariableID, e.Message)
	}
	return fmt.Sprintf("variable error [%s]: %s", e.TemplateID, e.Message)
}

// Unwrap exposes the underlying error.
func (e *VariableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
