package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name:     "with field",
			err:      &ValidationError{TemplateID: "tpl", Field: "variables", Message: "cycle detected"},
			expected: "validation error [tpl]: variables: cycle detected",
		},
		{
			name:     "without field",
			err:      &ValidationError{TemplateID: "tpl", Message: "template field is empty"},
			expected: "validation error [tpl]: template field is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestCompilationError_Error(t *testing.T) {
	err := NewCompilationError("tpl", "parse", "unmatched brace", nil)
	assert.Equal(t, "compilation error [tpl] during parse: unmatched brace", err.Error())
}

func TestVariableError_Error(t *testing.T) {
	err := NewVariableError("tpl", "accent", "required but unresolved", nil)
	assert.Equal(t, `variable error [tpl] for "accent": required but unresolved`, err.Error())
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")

	tests := []struct {
		name string
		err  error
	}{
		{name: "validation", err: NewValidationError("tpl", "", "failed", cause)},
		{name: "compilation", err: NewCompilationError("tpl", "walk", "failed", cause)},
		{name: "variable", err: NewVariableError("tpl", "v", "failed", cause)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}

func TestErrorKindsAreDistinguishable(t *testing.T) {
	var compErr error = NewCompilationError("tpl", "parse", "bad", nil)

	var ve *ValidationError
	var ce *CompilationError
	require.False(t, errors.As(compErr, &ve))
	require.True(t, errors.As(compErr, &ce))
	assert.Equal(t, "tpl", ce.TemplateID)
}
