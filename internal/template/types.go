package template

import (
	"strings"
	"time"
)

// PortraitType discriminates which arrangement a template targets.
type PortraitType string

const (
	PortraitSingle PortraitType = "single"
	PortraitCouple PortraitType = "couple"
	PortraitFamily PortraitType = "family"
)

// VariableType enumerates the supported variable kinds.
type VariableType string

const (
	TypeText        VariableType = "text"
	TypeNumber      VariableType = "number"
	TypeBoolean     VariableType = "boolean"
	TypeSelect      VariableType = "select"
	TypeMultiselect VariableType = "multiselect"
	TypeStyle       VariableType = "style"
	TypeTheme       VariableType = "theme"
	TypeConditional VariableType = "conditional"
	TypeDynamic     VariableType = "dynamic"
)

// CompareOp is a comparison operator used by dependencies and conditional segments.
type CompareOp string

const (
	OpEquals    CompareOp = "equals"
	OpNotEquals CompareOp = "not_equals"
	OpContains  CompareOp = "contains"
	OpIn        CompareOp = "in"
	OpNotIn     CompareOp = "not_in"
)

// DependencyAction is what happens when a dependency comparison is not satisfied.
type DependencyAction string

const (
	ActionShow    DependencyAction = "show"
	ActionHide    DependencyAction = "hide"
	ActionEnable  DependencyAction = "enable"
	ActionDisable DependencyAction = "disable"
	ActionRequire DependencyAction = "require"
)

// Definition is a user-editable prompt template. It is read-only to the
// engine; an external admin workflow owns its lifecycle, incrementing
// Version on every edit.
type Definition struct {
	ID        string                  `yaml:"id" json:"id" validate:"required,template_id"`
	Name      string                  `yaml:"name" json:"name" validate:"required,min=1,max=100"`
	Type      PortraitType            `yaml:"type" json:"type" validate:"required,portrait_type"`
	Template  string                  `yaml:"template" json:"template" validate:"required"`
	Variables map[string]VariableSpec `yaml:"variables,omitempty" json:"variables,omitempty"`
	Theme     *ThemeConfig            `yaml:"theme,omitempty" json:"theme,omitempty"`
	Advanced  *AdvancedOptions        `yaml:"advanced,omitempty" json:"advanced,omitempty"`
	Version   int                     `yaml:"version" json:"version" validate:"omitempty,min=1"`
	IsDefault bool                    `yaml:"is_default,omitempty" json:"is_default,omitempty"`
}

// ThemeConfig couples a template to a preferred style and variation.
type ThemeConfig struct {
	StyleID   string `yaml:"style_id,omitempty" json:"style_id,omitempty"`
	Variation string `yaml:"variation,omitempty" json:"variation,omitempty"`
}

// AdvancedOptions carries per-template overrides for caching and custom
// validation rules.
type AdvancedOptions struct {
	Cache       *CacheSettings   `yaml:"cache,omitempty" json:"cache,omitempty"`
	CustomRules []ValidationRule `yaml:"custom_rules,omitempty" json:"custom_rules,omitempty"`
}

// CacheSettings overrides the engine's default caching policy for one template.
type CacheSettings struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds,omitempty" json:"ttl_seconds,omitempty"`
}

// ValidationRule is a template-author-declared check executed by the validator.
type ValidationRule struct {
	// Type is one of required_variables, variable_combination,
	// template_structure or custom.
	Type      string   `yaml:"type" json:"type"`
	Variables []string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Predicate string   `yaml:"predicate,omitempty" json:"predicate,omitempty"`
	Message   string   `yaml:"message,omitempty" json:"message,omitempty"`
}

// VariableSpec declares one template variable: its type, constraints,
// dependencies on other variables, and output formatting.
type VariableSpec struct {
	ID           string        `yaml:"id" json:"id"`
	Name         string        `yaml:"name" json:"name"`
	Type         VariableType  `yaml:"type" json:"type"`
	Default      any           `yaml:"default,omitempty" json:"default,omitempty"`
	Required     bool          `yaml:"required,omitempty" json:"required,omitempty"`
	Validation   *Constraints  `yaml:"validation,omitempty" json:"validation,omitempty"`
	Options      []string      `yaml:"options,omitempty" json:"options,omitempty"`
	Dependencies []Dependency  `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Formatting   *Formatting   `yaml:"formatting,omitempty" json:"formatting,omitempty"`
	Generator    string        `yaml:"generator,omitempty" json:"generator,omitempty"`
	Params       map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// Constraints are validation rules applied to a resolved variable value.
type Constraints struct {
	MinLength *int    `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength *int    `yaml:"max_length,omitempty" json:"max_length,omitempty"`
	Min       *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Pattern   string  `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	// Predicate is an expression evaluated against {"value": v}; a falsy
	// outcome fails the constraint.
	Predicate string `yaml:"predicate,omitempty" json:"predicate,omitempty"`
}

// Dependency ties a variable to the value of another variable. The graph of
// dependencies over a definition's variables must be acyclic.
type Dependency struct {
	Variable string           `yaml:"variable" json:"variable"`
	Operator CompareOp        `yaml:"operator" json:"operator"`
	Value    any              `yaml:"value" json:"value"`
	Action   DependencyAction `yaml:"action" json:"action"`
}

// Formatting describes output transforms applied per occurrence at
// substitution time, in order: case transform, prefix, suffix, wrapper.
type Formatting struct {
	Case    string `yaml:"case,omitempty" json:"case,omitempty"` // uppercase, lowercase, capitalize
	Prefix  string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Suffix  string `yaml:"suffix,omitempty" json:"suffix,omitempty"`
	Wrapper string `yaml:"wrapper,omitempty" json:"wrapper,omitempty"` // contains {value}
}

// RuntimeContext is the caller-supplied input for one compilation. It is
// never persisted by the engine.
type RuntimeContext struct {
	Style             string
	CustomPrompt      string
	PhotoType         PortraitType
	FamilyMemberCount int
	Preferences       map[string]string
	Session           map[string]string
	// Values holds caller-supplied inputs for custom variables, keyed by
	// variable id.
	Values map[string]any
}

// CompiledResult is the immutable output of one compilation.
type CompiledResult struct {
	Prompt   string          `json:"prompt"`
	Metadata CompileMetadata `json:"metadata"`
	Warnings []string        `json:"warnings,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
}

// CompileMetadata records how and when a result was produced.
type CompileMetadata struct {
	CompilationID   string         `json:"compilation_id"`
	TemplateID      string         `json:"template_id"`
	TemplateVersion int            `json:"template_version"`
	Style           string         `json:"style"`
	Resolved        map[string]any `json:"resolved,omitempty"`
	CompiledAt      time.Time      `json:"compiled_at"`
	Duration        time.Duration  `json:"duration"`
	CacheHit        bool           `json:"cache_hit"`
}

// Eval applies the operator to an actual value against the expected one.
// Comparisons are performed on canonical string forms so that coerced
// numbers and booleans compare naturally. The in/not_in operators accept a
// comma-separated expected list or a string slice.
func (op CompareOp) Eval(actual, expected any) bool {
	got := Stringify(actual)
	switch op {
	case OpEquals, "":
		return strings.EqualFold(got, Stringify(expected))
	case OpNotEquals:
		return !strings.EqualFold(got, Stringify(expected))
	case OpContains:
		return strings.Contains(strings.ToLower(got), strings.ToLower(Stringify(expected)))
	case OpIn:
		return inList(got, expected)
	case OpNotIn:
		return !inList(got, expected)
	}
	return false
}

func inList(got string, expected any) bool {
	for _, candidate := range expectedList(expected) {
		if strings.EqualFold(got, candidate) {
			return true
		}
	}
	return false
}

func expectedList(expected any) []string {
	switch v := expected.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, Stringify(item))
		}
		return out
	default:
		parts := strings.Split(Stringify(expected), ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
}
