package variables

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/expr-lang/expr"

	"github.com/l2laihub/portrait-prompt-engine/internal/logger"
	"github.com/l2laihub/portrait-prompt-engine/internal/template"
	perrors "github.com/l2laihub/portrait-prompt-engine/pkg/errors"
)

// Resolved is the output of one resolution pass: raw typed values keyed by
// variable id, plus advisory visibility metadata from dependency actions.
// Formatting is deliberately not applied here; it happens per occurrence at
// substitution time so the same variable can render differently per segment.
type Resolved struct {
	Values   map[string]any
	Hidden   map[string]bool
	Disabled map[string]bool
}

// Value returns the resolved value for a variable id.
func (r *Resolved) Value(id string) (any, bool) {
	v, ok := r.Values[id]
	return v, ok
}

// Processor resolves declared variables against a runtime context.
type Processor struct {
	generators *Generators
	log        *logger.Logger
}

// NewProcessor creates a processor backed by the given generator table.
func NewProcessor(generators *Generators, log *logger.Logger) *Processor {
	return &Processor{generators: generators, log: log.WithComponent("variables")}
}

// Resolve derives a concrete value for every declared variable. Built-in
// context fields are seeded first so custom variables can use them as
// dependency targets. Declared variables resolve in sorted-id order, which
// keeps cross-variable dependency evaluation deterministic.
func (p *Processor) Resolve(def *template.Definition, ctx *template.RuntimeContext) (*Resolved, error) {
	resolved := &Resolved{
		Values:   make(map[string]any),
		Hidden:   make(map[string]bool),
		Disabled: make(map[string]bool),
	}

	seedBuiltins(resolved.Values, ctx)

	ids := make([]string, 0, len(def.Variables))
	for id := range def.Variables {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		spec := def.Variables[id]
		if spec.ID == "" {
			spec.ID = id
		}

		value, err := p.deriveValue(&spec, resolved.Values, ctx)
		if err != nil {
			return nil, perrors.NewVariableError(def.ID, spec.ID, err.Error(), err)
		}

		value, err = p.constrain(&spec, value)
		if err != nil {
			return nil, perrors.NewVariableError(def.ID, spec.ID, err.Error(), err)
		}

		if spec.Required && template.IsEmpty(value) {
			return nil, perrors.NewVariableError(def.ID, spec.ID, "required variable could not be resolved", nil)
		}

		if err := applyDependencies(def.ID, &spec, value, resolved); err != nil {
			return nil, err
		}

		resolved.Values[spec.ID] = value
	}

	return resolved, nil
}

func seedBuiltins(values map[string]any, ctx *template.RuntimeContext) {
	if ctx == nil {
		return
	}
	values["style"] = ctx.Style
	values["customPrompt"] = ctx.CustomPrompt
	values["photoType"] = string(ctx.PhotoType)
	values["familyMemberCount"] = ctx.FamilyMemberCount
	values["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	if ctx.Session != nil {
		if userID, ok := ctx.Session["userId"]; ok {
			values["userId"] = userID
		}
		if sessionID, ok := ctx.Session["sessionId"]; ok {
			values["sessionId"] = sessionID
		}
	}
}

func (p *Processor) deriveValue(spec *template.VariableSpec, values map[string]any, ctx *template.RuntimeContext) (any, error) {
	var supplied any
	var ok bool
	if ctx != nil && ctx.Values != nil {
		supplied, ok = ctx.Values[spec.ID]
	}

	switch spec.Type {
	case template.TypeText, "":
		if ok && !template.IsEmpty(supplied) {
			return template.Stringify(supplied), nil
		}
		if spec.Default != nil {
			return template.Stringify(spec.Default), nil
		}
		return "", nil

	case template.TypeNumber:
		if ok {
			return template.ToInt(supplied, template.ToInt(spec.Default, 0)), nil
		}
		return template.ToInt(spec.Default, 0), nil

	case template.TypeBoolean:
		if ok {
			return template.Truthy(supplied), nil
		}
		if spec.Default != nil {
			return template.Truthy(spec.Default), nil
		}
		return false, nil

	case template.TypeSelect:
		if len(spec.Options) == 0 {
			if spec.Default != nil {
				return template.Stringify(spec.Default), nil
			}
			return "", nil
		}
		if ok {
			choice := template.Stringify(supplied)
			for _, option := range spec.Options {
				if option == choice {
					return choice, nil
				}
			}
		}
		return spec.Options[0], nil

	case template.TypeMultiselect:
		if ok {
			return asStringSlice(supplied), nil
		}
		if spec.Default != nil {
			return asStringSlice(spec.Default), nil
		}
		return []string{}, nil

	case template.TypeStyle, template.TypeTheme:
		if ctx != nil {
			return ctx.Style, nil
		}
		return "", nil

	case template.TypeConditional:
		if len(spec.Dependencies) == 0 {
			return template.Truthy(spec.Default), nil
		}
		dep := spec.Dependencies[0]
		return dep.Operator.Eval(values[dep.Variable], dep.Value), nil

	case template.TypeDynamic:
		return p.generate(spec, values, ctx), nil

	default:
		return nil, fmt.Errorf("unsupported variable type %q", spec.Type)
	}
}

func (p *Processor) generate(spec *template.VariableSpec, values map[string]any, ctx *template.RuntimeContext) any {
	name := spec.Generator
	if name == "" {
		name = spec.ID
	}

	fn, ok := p.generators.Get(name)
	if !ok {
		p.log.WithFields(map[string]any{"generator": name}).Warn("unknown generator, using default")
		return template.Stringify(spec.Default)
	}

	out, err := fn(spec.Params, values, ctx)
	if err != nil || out == "" {
		if err != nil {
			p.log.Error(err, "generator failed, using default")
		}
		return template.Stringify(spec.Default)
	}
	return out
}

// constrain runs the declared validation constraints. A failing required
// variable aborts resolution; a failing optional one falls back to its
// default.
func (p *Processor) constrain(spec *template.VariableSpec, value any) (any, error) {
	if spec.Validation == nil {
		return value, nil
	}

	err := checkConstraints(spec.Validation, value)
	if err == nil {
		return value, nil
	}
	if spec.Required {
		return nil, err
	}

	p.log.WithFields(map[string]any{"variable": spec.ID}).Debug("optional variable failed validation, using default")
	if spec.Default != nil {
		return spec.Default, nil
	}
	return zeroFor(spec.Type), nil
}

func checkConstraints(c *template.Constraints, value any) error {
	text := template.Stringify(value)

	if c.MinLength != nil && len(text) < *c.MinLength {
		return fmt.Errorf("value shorter than minimum length %d", *c.MinLength)
	}
	if c.MaxLength != nil && len(text) > *c.MaxLength {
		return fmt.Errorf("value longer than maximum length %d", *c.MaxLength)
	}
	if c.Min != nil || c.Max != nil {
		n := float64(template.ToInt(value, 0))
		if c.Min != nil && n < *c.Min {
			return fmt.Errorf("value %v below minimum %v", n, *c.Min)
		}
		if c.Max != nil && n > *c.Max {
			return fmt.Errorf("value %v above maximum %v", n, *c.Max)
		}
	}
	if c.Pattern != "" {
		pattern, err := regexp.Compile(c.Pattern)
		if err != nil {
			return fmt.Errorf("invalid validation pattern: %w", err)
		}
		if !pattern.MatchString(text) {
			return fmt.Errorf("value does not match pattern %q", c.Pattern)
		}
	}
	if c.Predicate != "" {
		out, err := expr.Eval(c.Predicate, map[string]any{"value": value})
		if err != nil {
			return fmt.Errorf("predicate failed: %w", err)
		}
		if !template.Truthy(out) {
			return fmt.Errorf("value rejected by predicate %q", c.Predicate)
		}
	}
	return nil
}

// applyDependencies evaluates each dependency against the current resolved
// state. When a comparison is not satisfied, the dependency's action
// applies: require raises an error if this variable's value is still empty;
// show/hide/enable/disable record advisory metadata for a UI layer and
// never change compilation output.
func applyDependencies(templateID string, spec *template.VariableSpec, value any, resolved *Resolved) error {
	for _, dep := range spec.Dependencies {
		target := resolved.Values[dep.Variable]
		if dep.Operator.Eval(target, dep.Value) {
			continue
		}

		switch dep.Action {
		case template.ActionRequire:
			if template.IsEmpty(value) {
				return perrors.NewVariableError(templateID, spec.ID,
					fmt.Sprintf("required because %q %s %v was not met", dep.Variable, dep.Operator, dep.Value), nil)
			}
		case template.ActionHide:
			resolved.Hidden[spec.ID] = true
		case template.ActionDisable:
			resolved.Disabled[spec.ID] = true
		}
	}
	return nil
}

func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, template.Stringify(item))
		}
		return out
	default:
		if template.IsEmpty(v) {
			return []string{}
		}
		return []string{template.Stringify(v)}
	}
}

func zeroFor(t template.VariableType) any {
	switch t {
	case template.TypeNumber:
		return 0
	case template.TypeBoolean:
		return false
	case template.TypeMultiselect:
		return []string{}
	default:
		return ""
	}
}
