package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/l2laihub/portrait-prompt-engine/internal/cache"
	"github.com/l2laihub/portrait-prompt-engine/internal/logger"
	"github.com/l2laihub/portrait-prompt-engine/internal/styles"
	"github.com/l2laihub/portrait-prompt-engine/internal/template"
	"github.com/l2laihub/portrait-prompt-engine/internal/validation"
	"github.com/l2laihub/portrait-prompt-engine/internal/variables"
	perrors "github.com/l2laihub/portrait-prompt-engine/pkg/errors"
)

// Config assembles a Compiler. Nil collaborators fall back to defaults, so
// engine.New(engine.Config{}) yields a working compiler with the built-in
// style catalog and generators.
type Config struct {
	Styles     *styles.Registry
	Generators *variables.Generators
	Cache      *cache.Cache
	Telemetry  Telemetry
	Logger     *logger.Logger
	Options    *Options
}

// Compiler turns a template definition plus a runtime context into the
// final prompt string. It is safe for concurrent use.
type Compiler struct {
	styles     *styles.Registry
	generators *variables.Generators
	processor  *variables.Processor
	cache      *cache.Cache
	telemetry  Telemetry
	opts       Options
	log        *logger.Logger
	logRoot    *logger.Logger
}

// New creates a Compiler from cfg, filling in defaults for nil collaborators.
func New(cfg Config) *Compiler {
	reg := cfg.Styles
	if reg == nil {
		reg = styles.NewRegistry(styles.WithLogger(cfg.Logger))
		reg.Import(styles.DefaultCatalog())
	}
	gens := cfg.Generators
	if gens == nil {
		gens = variables.NewGenerators()
	}
	store := cfg.Cache
	if store == nil {
		store = cache.New(cache.Options{Logger: cfg.Logger})
	}
	opts := DefaultOptions()
	if cfg.Options != nil {
		opts = *cfg.Options
	}

	return &Compiler{
		styles:     reg,
		generators: gens,
		processor:  variables.NewProcessor(gens, cfg.Logger),
		cache:      store,
		telemetry:  cfg.Telemetry,
		opts:       opts,
		log:        cfg.Logger.WithComponent("engine"),
		logRoot:    cfg.Logger,
	}
}

// Styles exposes the theme registry for query and selection calls.
func (c *Compiler) Styles() *styles.Registry { return c.styles }

// Generators exposes the dynamic generator table for registration.
func (c *Compiler) Generators() *variables.Generators { return c.generators }

// Cache exposes the compilation cache for operational tooling.
func (c *Compiler) Cache() *cache.Cache { return c.cache }

// Validate runs the template validator at the compiler's configured level.
func (c *Compiler) Validate(def *template.Definition) *validation.Result {
	return c.validator(c.opts).Validate(def)
}

func (c *Compiler) validator(opts Options) *validation.Validator {
	return validation.New(validation.Options{
		Level:            opts.ValidationLevel,
		MaxTemplateSize:  opts.MaxTemplateSize,
		MaxVariableCount: opts.MaxVariableCount,
		Logger:           c.logRoot,
	})
}

// Compile produces the final prompt for def under rctx. A nil override uses
// the compiler's configured options. Typed errors surface unchanged to the
// caller; cache writes and telemetry never fail a compilation.
func (c *Compiler) Compile(ctx context.Context, def *template.Definition, rctx *template.RuntimeContext, override *Options) (*template.CompiledResult, error) {
	if def == nil {
		return nil, perrors.NewCompilationError("", "setup", "template definition is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := c.opts
	if override != nil {
		opts = *override
	}

	start := time.Now()
	key := cacheKey(def, rctx, opts)
	cacheable := opts.EnableCaching && templateAllowsCaching(def)

	if cacheable {
		if cached, ok := c.cache.Get(key); ok {
			hit := *cached
			hit.Metadata.CacheHit = true
			c.record(ctx, Event{
				CompilationID: hit.Metadata.CompilationID,
				TemplateID:    def.ID,
				Style:         hit.Metadata.Style,
				PromptLength:  len(hit.Prompt),
				Duration:      time.Since(start),
				CacheHit:      true,
				Warnings:      len(hit.Warnings),
			})
			return &hit, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.EnableValidation {
		if result := c.validator(opts).Validate(def); !result.Valid {
			first := result.Errors[0]
			return nil, perrors.NewValidationError(def.ID, first.Field,
				fmt.Sprintf("template failed validation (score %d): %s", result.Score, first.Message), nil)
		}
	}

	resolved, err := c.processor.Resolve(def, rctx)
	if err != nil {
		return nil, err
	}

	parser := template.NewParser(template.ParseConfig{
		MaxTemplateSize:  opts.MaxTemplateSize,
		MaxVariableCount: opts.MaxVariableCount,
		AdvancedSegments: opts.EnableDebugMode,
	})

	// The raw template parses first so a defect in the authored text
	// surfaces even when a replace modifier would rewrite it away.
	parsed, err := parser.Parse(def.Template)
	if err != nil {
		return nil, perrors.NewCompilationError(def.ID, "parse", err.Error(), err)
	}

	text, styleName := c.applyTheme(def, rctx)
	if text != def.Template {
		parsed, err = parser.Parse(text)
		if err != nil {
			return nil, perrors.NewCompilationError(def.ID, "parse", err.Error(), err)
		}
	}

	var b strings.Builder
	var warnings []string
	c.walk(parsed.Segments, def, rctx, resolved, opts, &b, &warnings)
	prompt := collapseSpaces(strings.TrimSpace(b.String()))

	result := &template.CompiledResult{
		Prompt:   prompt,
		Warnings: warnings,
		Metadata: template.CompileMetadata{
			CompilationID:   uuid.NewString(),
			TemplateID:      def.ID,
			TemplateVersion: def.Version,
			Style:           styleName,
			CompiledAt:      time.Now().UTC(),
			Duration:        time.Since(start),
		},
	}
	if opts.EnableDebugMode {
		result.Metadata.Resolved = resolved.Values
	}

	if cacheable {
		c.cache.Set(key, result, templateTTL(def))
	}

	c.record(ctx, Event{
		CompilationID: result.Metadata.CompilationID,
		TemplateID:    def.ID,
		Style:         styleName,
		Complexity:    parsed.Complexity,
		PromptLength:  len(prompt),
		Duration:      result.Metadata.Duration,
		Warnings:      len(warnings),
	})

	c.log.WithFields(map[string]any{
		"template":   def.ID,
		"style":      styleName,
		"complexity": parsed.Complexity,
		"length":     len(prompt),
	}).Debug("template compiled")

	return result, nil
}

// applyTheme folds the selected style's prompt modifiers into the raw
// template text. The template's theme config wins over the runtime style;
// an unknown style leaves the text unchanged.
func (c *Compiler) applyTheme(def *template.Definition, rctx *template.RuntimeContext) (string, string) {
	styleID := ""
	variation := ""
	styleName := ""
	if rctx != nil {
		styleID = styles.NormalizeID(rctx.Style)
		styleName = rctx.Style
	}
	if def.Theme != nil && def.Theme.StyleID != "" {
		styleID = def.Theme.StyleID
		variation = def.Theme.Variation
	}
	if styleID == "" {
		return def.Template, styleName
	}

	if style, ok := c.styles.Get(styleID); ok && styleName == "" {
		styleName = style.Name
	}
	mods := c.styles.ModifiersFor(styleID, variation)
	return styles.Apply(def.Template, mods), styleName
}

func (c *Compiler) walk(segments []template.Segment, def *template.Definition, rctx *template.RuntimeContext, resolved *variables.Resolved, opts Options, b *strings.Builder, warnings *[]string) {
	for _, seg := range segments {
		switch seg.Kind {
		case template.SegmentText:
			b.WriteString(seg.Text)

		case template.SegmentVariable:
			b.WriteString(c.substitute(seg, def, resolved, opts, warnings))

		case template.SegmentConditional:
			branch := seg.Falsy
			if conditionMet(seg.Condition, resolved.Values[seg.Condition.Variable]) {
				branch = seg.Truthy
			}
			c.walk(branch, def, rctx, resolved, opts, b, warnings)

		case template.SegmentDynamic:
			b.WriteString(c.generate(seg, rctx, resolved, opts, warnings))
		}
	}
}

func (c *Compiler) substitute(seg template.Segment, def *template.Definition, resolved *variables.Resolved, opts Options, warnings *[]string) string {
	value, known := resolved.Values[seg.Variable]

	var text string
	switch {
	case known && !template.IsEmpty(value):
		var spec *template.VariableSpec
		if declared, ok := def.Variables[seg.Variable]; ok {
			spec = &declared
		}
		text = variables.Format(spec, value)
	case seg.Fallback != "":
		text = seg.Fallback
	case !known:
		*warnings = append(*warnings, fmt.Sprintf("variable %q is not declared and has no value", seg.Variable))
		return ""
	default:
		return ""
	}

	text = variables.ApplyInlineFormats(text, seg.Formats)
	if !opts.AllowUnsafeVariables {
		text = stripUnsafe(text)
	}
	return text
}

func (c *Compiler) generate(seg template.Segment, rctx *template.RuntimeContext, resolved *variables.Resolved, opts Options, warnings *[]string) string {
	fn, ok := c.generators.Get(seg.Generator)
	if !ok {
		*warnings = append(*warnings, fmt.Sprintf("unknown generator %q", seg.Generator))
		return ""
	}

	out, err := fn(seg.Params, resolved.Values, rctx)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("generator %q failed: %v", seg.Generator, err))
		return ""
	}
	if !opts.AllowUnsafeVariables {
		out = stripUnsafe(out)
	}
	return out
}

// conditionMet evaluates a segment condition against a resolved value. The
// bare form "{{#if var}}" parses as "var equals true" and means "var is
// truthy or non-empty", so booleans and free-text variables both work.
func conditionMet(cond *template.Condition, value any) bool {
	if cond == nil {
		return false
	}
	if cond.Operator == template.OpEquals && cond.Value == "true" {
		if b, ok := value.(bool); ok {
			return b
		}
		s := strings.TrimSpace(template.Stringify(value))
		return s != "" && !strings.EqualFold(s, "false") && s != "0"
	}
	return cond.Operator.Eval(value, cond.Value)
}

// templateAllowsCaching honors a per-template cache override.
func templateAllowsCaching(def *template.Definition) bool {
	if def.Advanced != nil && def.Advanced.Cache != nil {
		return def.Advanced.Cache.Enabled
	}
	return true
}

// templateTTL returns the per-template TTL override, or zero for the cache
// default.
func templateTTL(def *template.Definition) time.Duration {
	if def.Advanced != nil && def.Advanced.Cache != nil && def.Advanced.Cache.TTLSeconds > 0 {
		return time.Duration(def.Advanced.Cache.TTLSeconds) * time.Second
	}
	return 0
}

var multiSpace = regexp.MustCompile(` {2,}`)

func collapseSpaces(text string) string {
	return multiSpace.ReplaceAllString(text, " ")
}
