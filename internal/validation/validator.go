package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/go-playground/validator/v10"

	"github.com/l2laihub/portrait-prompt-engine/internal/logger"
	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

const (
	defaultMaxTemplateSize  = 10000
	defaultMaxVariableCount = 50
	minUsefulLength         = 10
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	templateIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)
	variableIDPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

	portraitTypes = map[string]struct{}{"single": {}, "couple": {}, "family": {}}
)

// builtinFields resolve from the runtime context without a declaration.
var builtinFields = map[string]struct{}{
	"style":             {},
	"customPrompt":      {},
	"familyMemberCount": {},
	"photoType":         {},
	"timestamp":         {},
	"userId":            {},
	"sessionId":         {},
}

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("template_id", func(fl validator.FieldLevel) bool {
			return templateIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("portrait_type", func(fl validator.FieldLevel) bool {
			_, ok := portraitTypes[fl.Field().String()]
			return ok
		})

		validateInst = v
	})

	return validateInst
}

// Options configures a Validator.
type Options struct {
	Level            Level
	MaxTemplateSize  int
	MaxVariableCount int
	Logger           *logger.Logger
}

// Validator statically analyzes template definitions and scores their quality.
type Validator struct {
	level    Level
	maxSize  int
	maxVars  int
	validate *validator.Validate
	log      *logger.Logger
}

// New creates a Validator. Zero-valued options fall back to defaults.
func New(opts Options) *Validator {
	if opts.Level == "" {
		opts.Level = LevelNormal
	}
	if opts.MaxTemplateSize <= 0 {
		opts.MaxTemplateSize = defaultMaxTemplateSize
	}
	if opts.MaxVariableCount <= 0 {
		opts.MaxVariableCount = defaultMaxVariableCount
	}

	return &Validator{
		level:    opts.Level,
		maxSize:  opts.MaxTemplateSize,
		maxVars:  opts.MaxVariableCount,
		validate: validatorInstance(),
		log:      opts.Logger.WithComponent("validation"),
	}
}

// Validate runs every check against the definition. The score starts at 100
// and each finding subtracts its penalty, floored at zero. Validity depends
// only on errors; warnings never flip it.
func (v *Validator) Validate(def *template.Definition) *Result {
	if def == nil {
		return &Result{
			Valid:  false,
			Errors: []Finding{{Field: "template", Message: "definition is nil"}},
			Score:  0,
		}
	}

	var findings []finding
	findings = append(findings, v.checkStructure(def)...)
	findings = append(findings, v.checkContent(def)...)
	findings = append(findings, v.checkVariables(def)...)
	findings = append(findings, v.checkCrossReferences(def)...)
	findings = append(findings, v.checkCustomRules(def)...)

	result := v.assemble(findings)
	v.log.WithFields(map[string]any{
		"template": def.ID,
		"score":    result.Score,
		"errors":   len(result.Errors),
		"warnings": len(result.Warnings),
	}).Debug("template validated")
	return result
}

func (v *Validator) checkStructure(def *template.Definition) []finding {
	var out []finding

	if err := v.validate.Struct(def); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				out = append(out, finding{
					category: catStructure,
					severe:   true,
					field:    strings.ToLower(fe.Field()),
					message:  structuralMessage(fe),
					penalty:  20,
				})
			}
		} else {
			out = append(out, finding{
				category: catStructure, severe: true,
				field: "template", message: err.Error(), penalty: 20,
			})
		}
	}

	return out
}

func structuralMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(fe.Field()))
	case "template_id":
		return "id must start with an alphanumeric and contain only alphanumerics, hyphens and underscores"
	case "portrait_type":
		return fmt.Sprintf("type must be one of single, couple or family, got %q", fe.Value())
	case "min":
		return fmt.Sprintf("%s is below the minimum of %s", strings.ToLower(fe.Field()), fe.Param())
	case "max":
		return fmt.Sprintf("%s exceeds the maximum of %s", strings.ToLower(fe.Field()), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s check", strings.ToLower(fe.Field()), fe.Tag())
	}
}

func (v *Validator) checkContent(def *template.Definition) []finding {
	var out []finding
	text := def.Template

	if len(text) > v.maxSize {
		out = append(out, finding{
			category: catContent, severe: true, field: "template",
			message: fmt.Sprintf("template exceeds maximum size of %d characters", v.maxSize),
			penalty: 20,
		})
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" && len(trimmed) < minUsefulLength {
		out = append(out, finding{
			category: catContent, field: "template",
			message: "template is too short to produce a useful prompt",
			penalty: 10,
		})
	}

	refs, stripped := scanReferences(text)

	if strings.Contains(stripped, "{}") {
		out = append(out, finding{
			category: catContent, field: "template",
			message: "template contains empty {} brackets",
			penalty: 5,
		})
	}
	if nestedBracePattern.MatchString(stripped) {
		out = append(out, finding{
			category: catContent, field: "template",
			message: "template contains nested braces",
			penalty: 5,
		})
	}
	if strings.Count(stripped, "{") != strings.Count(stripped, "}") {
		out = append(out, finding{
			category: catContent, severe: true, field: "template",
			message: "template has unbalanced braces",
			penalty: 15,
		})
	}
	if _, ok := refs["style"]; !ok && strings.TrimSpace(text) != "" {
		out = append(out, finding{
			category: catContent, field: "template",
			message: "template does not reference {style}",
			penalty: 3,
		})
	}

	return out
}

var nestedBracePattern = regexp.MustCompile(`\{[^{}]*\{`)

func (v *Validator) checkVariables(def *template.Definition) []finding {
	var out []finding

	if len(def.Variables) > v.maxVars {
		out = append(out, finding{
			category: catVariables, severe: true, field: "variables",
			message: fmt.Sprintf("declared variable count %d exceeds maximum of %d", len(def.Variables), v.maxVars),
			penalty: 10,
		})
	}

	ids := sortedVariableIDs(def)
	for _, id := range ids {
		spec := def.Variables[id]
		field := "variables." + id

		if !variableIDPattern.MatchString(id) {
			out = append(out, finding{
				category: catVariables, severe: true, field: field,
				message: fmt.Sprintf("variable id %q must start with a letter and contain only letters, digits and underscores", id),
				penalty: 10,
			})
		}
		if spec.Name == "" {
			out = append(out, finding{
				category: catVariables, field: field,
				message: "variable has no display name",
				penalty: 5,
			})
		}
		if spec.Type == "" {
			out = append(out, finding{
				category: catVariables, severe: true, field: field,
				message: "variable has no type",
				penalty: 10,
			})
		}
		if (spec.Type == template.TypeSelect || spec.Type == template.TypeMultiselect) && len(spec.Options) == 0 {
			out = append(out, finding{
				category: catVariables, severe: true, field: field,
				message: fmt.Sprintf("%s variable must declare options", spec.Type),
				penalty: 10,
			})
		}

		for _, dep := range spec.Dependencies {
			if _, declared := def.Variables[dep.Variable]; declared {
				continue
			}
			if _, builtin := builtinFields[dep.Variable]; builtin {
				continue
			}
			out = append(out, finding{
				category: catVariables, severe: true, field: field,
				message: fmt.Sprintf("dependency references unknown variable %q", dep.Variable),
				penalty: 5,
			})
		}
	}

	if cycle := detectCycle(def.Variables); len(cycle) > 0 {
		out = append(out, finding{
			category: catVariables, severe: true, field: "variables",
			message: fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")),
			penalty: 30,
		})
	}

	return out
}

func (v *Validator) checkCrossReferences(def *template.Definition) []finding {
	var out []finding
	refs, _ := scanReferences(def.Template)

	refIDs := make([]string, 0, len(refs))
	for id := range refs {
		refIDs = append(refIDs, id)
	}
	sort.Strings(refIDs)

	for _, id := range refIDs {
		if _, declared := def.Variables[id]; declared {
			continue
		}
		if _, builtin := builtinFields[id]; builtin {
			continue
		}
		out = append(out, finding{
			category: catCrossRef, field: "template",
			message: fmt.Sprintf("template references undeclared variable %q", id),
			penalty: 3,
		})
	}

	for _, id := range sortedVariableIDs(def) {
		if _, used := refs[id]; used {
			continue
		}
		out = append(out, finding{
			category: catCrossRef, field: "variables." + id,
			message: fmt.Sprintf("declared variable %q is never used in the template", id),
			penalty: 3,
		})
	}

	return out
}

func (v *Validator) checkCustomRules(def *template.Definition) []finding {
	if def.Advanced == nil {
		return nil
	}

	var out []finding
	refs, _ := scanReferences(def.Template)

	for i, rule := range def.Advanced.CustomRules {
		field := fmt.Sprintf("advanced.custom_rules[%d]", i)

		switch rule.Type {
		case "required_variables":
			for _, id := range rule.Variables {
				if _, declared := def.Variables[id]; declared {
					continue
				}
				if _, builtin := builtinFields[id]; builtin {
					continue
				}
				out = append(out, finding{
					category: catCustomRule, severe: true, field: field,
					message: ruleMessage(rule, fmt.Sprintf("required variable %q is not declared", id)),
					penalty: 10,
				})
			}

		case "variable_combination":
			var present int
			for _, id := range rule.Variables {
				if _, ok := refs[id]; ok {
					present++
				}
			}
			if present > 0 && present < len(rule.Variables) {
				out = append(out, finding{
					category: catCustomRule, field: field,
					message: ruleMessage(rule, fmt.Sprintf("variables %s must be used together", strings.Join(rule.Variables, ", "))),
					penalty: 5,
				})
			}

		case "template_structure":
			pattern, err := regexp.Compile(rule.Pattern)
			if err != nil {
				out = append(out, finding{
					category: catCustomRule, field: field,
					message: fmt.Sprintf("invalid structure pattern: %v", err),
					penalty: 5,
				})
				continue
			}
			if !pattern.MatchString(def.Template) {
				out = append(out, finding{
					category: catCustomRule, field: field,
					message: ruleMessage(rule, fmt.Sprintf("template does not match structure pattern %q", rule.Pattern)),
					penalty: 5,
				})
			}

		case "custom":
			passed, err := evalRulePredicate(rule.Predicate, def)
			if err != nil {
				out = append(out, finding{
					category: catCustomRule, field: field,
					message: fmt.Sprintf("predicate failed to evaluate: %v", err),
					penalty: 5,
				})
				continue
			}
			if !passed {
				out = append(out, finding{
					category: catCustomRule, field: field,
					message: ruleMessage(rule, fmt.Sprintf("predicate %q rejected the template", rule.Predicate)),
					penalty: 5,
				})
			}

		default:
			out = append(out, finding{
				category: catCustomRule, field: field,
				message: fmt.Sprintf("unknown rule type %q", rule.Type),
				penalty: 3,
			})
		}
	}

	return out
}

func ruleMessage(rule template.ValidationRule, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}

// evalRulePredicate evaluates a custom rule expression against the template
// metadata. The expression sees the template text, the declared variable ids
// and their count.
func evalRulePredicate(predicate string, def *template.Definition) (bool, error) {
	if predicate == "" {
		return false, fmt.Errorf("custom rule has no predicate")
	}

	env := map[string]any{
		"template":      def.Template,
		"variables":     sortedVariableIDs(def),
		"variableCount": len(def.Variables),
	}
	out, err := expr.Eval(predicate, env)
	if err != nil {
		return false, err
	}
	return template.Truthy(out), nil
}

// assemble applies the level's reweighting and folds findings into a Result.
func (v *Validator) assemble(findings []finding) *Result {
	result := &Result{Score: 100}

	for _, f := range findings {
		severe := f.severe
		switch v.level {
		case LevelStrict:
			if f.category == catContent || f.category == catCrossRef || f.category == catCustomRule {
				severe = true
			}
		case LevelPermissive:
			if f.category == catContent {
				severe = false
			}
		}

		entry := Finding{Field: f.field, Message: f.message}
		if severe {
			result.Errors = append(result.Errors, entry)
		} else {
			result.Warnings = append(result.Warnings, entry)
		}
		result.Score -= f.penalty
	}

	if result.Score < 0 {
		result.Score = 0
	}
	result.Valid = len(result.Errors) == 0
	return result
}

func sortedVariableIDs(def *template.Definition) []string {
	ids := make([]string, 0, len(def.Variables))
	for id := range def.Variables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// scanReferences walks the template text collecting variable ids referenced
// by single-brace tokens and conditional openers. It also returns the text
// with double-brace segments removed so naive brace checks do not trip on
// conditional or dynamic markers.
func scanReferences(text string) (map[string]struct{}, string) {
	refs := make(map[string]struct{})
	var stripped strings.Builder

	for i := 0; i < len(text); {
		if strings.HasPrefix(text[i:], "{{") {
			rest := text[i:]
			if id, ok := conditionVariable(rest); ok {
				refs[id] = struct{}{}
			}
			end := closingDoubleBrace(rest)
			if end < 0 {
				// Unterminated marker; leave the remainder for the brace
				// balance check to flag.
				stripped.WriteString(rest)
				break
			}
			i += end
			continue
		}

		if text[i] == '{' {
			if id, length, ok := singleBraceToken(text[i:]); ok {
				refs[id] = struct{}{}
				i += length
				continue
			}
		}

		stripped.WriteByte(text[i])
		i++
	}

	return refs, stripped.String()
}

// conditionVariable extracts the subject variable of a "{{#if var ...}}" opener.
func conditionVariable(marker string) (string, bool) {
	const prefix = "{{#if "
	if !strings.HasPrefix(marker, prefix) {
		return "", false
	}
	body := marker[len(prefix):]
	if end := strings.Index(body, "}}"); end >= 0 {
		body = body[:end]
	}
	parts := strings.Fields(body)
	if len(parts) == 0 || !variableIDPattern.MatchString(parts[0]) {
		return "", false
	}
	return parts[0], true
}

// closingDoubleBrace finds the end offset of a "{{...}}" marker, tolerating
// balanced inner braces from JSON generator payloads.
func closingDoubleBrace(marker string) int {
	depth := 0
	for i := 2; i < len(marker); i++ {
		switch marker[i] {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
				continue
			}
			if i+1 < len(marker) && marker[i+1] == '}' {
				return i + 2
			}
		}
	}
	return -1
}

// singleBraceToken parses "{id...}" returning the id and consumed length.
func singleBraceToken(s string) (string, int, bool) {
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return "", 0, false
	}
	inner := s[1:end]
	if strings.ContainsRune(inner, '{') {
		return "", 0, false
	}

	id := inner
	if cut := strings.IndexAny(id, ":|"); cut >= 0 {
		id = id[:cut]
	}
	if !variableIDPattern.MatchString(id) {
		return "", 0, false
	}
	return id, end + 1, true
}
