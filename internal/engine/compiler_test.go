package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l2laihub/portrait-prompt-engine/internal/cache"
	"github.com/l2laihub/portrait-prompt-engine/internal/styles"
	"github.com/l2laihub/portrait-prompt-engine/internal/template"
	"github.com/l2laihub/portrait-prompt-engine/internal/validation"
	"github.com/l2laihub/portrait-prompt-engine/internal/variables"
	perrors "github.com/l2laihub/portrait-prompt-engine/pkg/errors"
)

// newCompiler returns a compiler with an empty style registry so tests
// control exactly which modifiers apply.
func newCompiler(t *testing.T, cfg Config) *Compiler {
	t.Helper()
	if cfg.Styles == nil {
		cfg.Styles = styles.NewRegistry()
	}
	return New(cfg)
}

func coupleDefinition() *template.Definition {
	return &template.Definition{
		ID:       "classic-couple",
		Name:     "Classic Couple",
		Type:     template.PortraitCouple,
		Template: "A {style} portrait. {customPrompt}",
		Version:  1,
	}
}

func coupleContext() *template.RuntimeContext {
	return &template.RuntimeContext{
		Style:             "Rustic Barn Wedding",
		PhotoType:         template.PortraitCouple,
		FamilyMemberCount: 2,
	}
}

func TestCompile_BasicSubstitution(t *testing.T) {
	c := newCompiler(t, Config{})

	result, err := c.Compile(context.Background(), coupleDefinition(), coupleContext(), nil)
	require.NoError(t, err)

	assert.Equal(t, "A Rustic Barn Wedding portrait.", result.Prompt)
	assert.Equal(t, "classic-couple", result.Metadata.TemplateID)
	assert.NotEmpty(t, result.Metadata.CompilationID)
	assert.False(t, result.Metadata.CacheHit)
	assert.Empty(t, result.Warnings)
}

func TestCompile_CustomPromptAppended(t *testing.T) {
	c := newCompiler(t, Config{})
	ctx := coupleContext()
	ctx.CustomPrompt = "holding hands at sunset"

	result, err := c.Compile(context.Background(), coupleDefinition(), ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "A Rustic Barn Wedding portrait. holding hands at sunset", result.Prompt)
}

func TestCompile_CacheHitIsIdempotent(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()

	first, err := c.Compile(context.Background(), def, coupleContext(), nil)
	require.NoError(t, err)
	require.False(t, first.Metadata.CacheHit)

	second, err := c.Compile(context.Background(), def, coupleContext(), nil)
	require.NoError(t, err)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, first.Prompt, second.Prompt)
	assert.Equal(t, first.Metadata.CompilationID, second.Metadata.CompilationID)
}

func TestCompile_DistinctContextsMissTheCache(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()

	_, err := c.Compile(context.Background(), def, coupleContext(), nil)
	require.NoError(t, err)

	other := coupleContext()
	other.CustomPrompt = "different"
	result, err := c.Compile(context.Background(), def, other, nil)
	require.NoError(t, err)
	assert.False(t, result.Metadata.CacheHit)
}

func TestCompile_TemplateCacheOverrideDisablesCaching(t *testing.T) {
	store := cache.New(cache.Options{})
	c := newCompiler(t, Config{Cache: store})

	def := coupleDefinition()
	def.Advanced = &template.AdvancedOptions{Cache: &template.CacheSettings{Enabled: false}}

	_, err := c.Compile(context.Background(), def, coupleContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, store.GetStats().Entries)
}

func TestCompile_FallbackAndWarnings(t *testing.T) {
	c := newCompiler(t, Config{})

	def := coupleDefinition()
	def.Template = "A {style} shot at {venue:an old barn} with {mysteryProp}"

	opts := DefaultOptions()
	opts.EnableValidation = false

	result, err := c.Compile(context.Background(), def, coupleContext(), &opts)
	require.NoError(t, err)
	assert.Equal(t, "A Rustic Barn Wedding shot at an old barn with", result.Prompt)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "mysteryProp")
}

func TestCompile_ConditionalBranches(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()
	def.Template = "A {style} portrait{{#if customPrompt}}, {customPrompt}{{else}}, classic pose{{/if}}"

	ctx := coupleContext()
	result, err := c.Compile(context.Background(), def, ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "A Rustic Barn Wedding portrait, classic pose", result.Prompt)

	ctx.CustomPrompt = "laughing together"
	result, err = c.Compile(context.Background(), def, ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "A Rustic Barn Wedding portrait, laughing together", result.Prompt)
}

func TestCompile_ConditionalOperator(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()
	def.Template = "{style} portrait{{#if photoType equals family}} with the whole family{{/if}}"

	result, err := c.Compile(context.Background(), def, coupleContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Rustic Barn Wedding portrait", result.Prompt)

	ctx := coupleContext()
	ctx.PhotoType = template.PortraitFamily
	result, err = c.Compile(context.Background(), def, ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rustic Barn Wedding portrait with the whole family", result.Prompt)
}

func TestCompile_DynamicSegment(t *testing.T) {
	gens := variables.NewGenerators()
	require.NoError(t, gens.Register("sceneHint", func(params map[string]string, _ map[string]any, _ *template.RuntimeContext) (string, error) {
		return "bathed in " + params["light"] + " light", nil
	}))
	c := newCompiler(t, Config{Generators: gens})

	def := coupleDefinition()
	def.Template = "A {style} portrait {{sceneHint:light=golden}}"

	result, err := c.Compile(context.Background(), def, coupleContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, "A Rustic Barn Wedding portrait bathed in golden light", result.Prompt)
}

func TestCompile_UnknownGeneratorWarns(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()
	def.Template = "A {style} portrait {{no.such.generator}}"

	result, err := c.Compile(context.Background(), def, coupleContext(), nil)
	require.NoError(t, err)
	assert.Equal(t, "A Rustic Barn Wedding portrait", result.Prompt)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no.such.generator")
}

func TestCompile_ThemeModifiers(t *testing.T) {
	reg := styles.NewRegistry()
	reg.Register(styles.StyleDefinition{
		ID:      "golden-hour",
		Name:    "Golden Hour",
		Enabled: true,
		Modifiers: []styles.PromptModifier{
			{Type: styles.ModifierPrepend, Content: "Award-winning photo:"},
			{Type: styles.ModifierAppend, Content: "warm backlight"},
		},
	})
	c := newCompiler(t, Config{Styles: reg})

	def := coupleDefinition()
	def.Template = "a couple at {style}"
	def.Theme = &template.ThemeConfig{StyleID: "golden-hour"}

	ctx := coupleContext()
	ctx.Style = "Golden Hour"

	result, err := c.Compile(context.Background(), def, ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "Award-winning photo: a couple at Golden Hour warm backlight", result.Prompt)
	assert.Equal(t, "Golden Hour", result.Metadata.Style)
}

func TestCompile_ValidationFailure(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()
	def.Template = ""

	_, err := c.Compile(context.Background(), def, coupleContext(), nil)
	require.Error(t, err)

	var verr *perrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "classic-couple", verr.TemplateID)
}

func TestCompile_RequiredVariableMissing(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()
	def.Template = "A {style} portrait wearing {attire}"
	def.Variables = map[string]template.VariableSpec{
		"attire": {ID: "attire", Name: "Attire", Type: template.TypeText, Required: true},
	}

	_, err := c.Compile(context.Background(), def, coupleContext(), nil)
	require.Error(t, err)

	var varErr *perrors.VariableError
	require.True(t, errors.As(err, &varErr))
	assert.Equal(t, "attire", varErr.VariableID)
}

func TestCompile_ParseFailure(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()
	def.Template = "A {style} portrait with { an unclosed brace"

	opts := DefaultOptions()
	opts.EnableValidation = false

	_, err := c.Compile(context.Background(), def, coupleContext(), &opts)
	require.Error(t, err)

	var cerr *perrors.CompilationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "classic-couple", cerr.TemplateID)
}

func TestCompile_ScriptStripping(t *testing.T) {
	def := coupleDefinition()
	def.Template = "A {style} portrait. {note}"
	def.Variables = map[string]template.VariableSpec{
		"note": {ID: "note", Name: "Note", Type: template.TypeText},
	}
	ctx := coupleContext()
	ctx.Values = map[string]any{"note": `<script>alert("x")</script>soft focus`}

	c := newCompiler(t, Config{})
	result, err := c.Compile(context.Background(), def, ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "A Rustic Barn Wedding portrait. soft focus", result.Prompt)

	opts := DefaultOptions()
	opts.AllowUnsafeVariables = true
	result, err = c.Compile(context.Background(), def, ctx, &opts)
	require.NoError(t, err)
	assert.Contains(t, result.Prompt, "<script>")
}

func TestCompile_DebugModeOffDisablesAdvancedSegments(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()
	def.Template = "A {style} portrait {{#if customPrompt}}x{{/if}}"

	opts := DefaultOptions()
	opts.EnableValidation = false
	opts.EnableDebugMode = false

	result, err := c.Compile(context.Background(), def, coupleContext(), &opts)
	require.NoError(t, err)
	assert.Contains(t, result.Prompt, "{{#if customPrompt}}")
	assert.Nil(t, result.Metadata.Resolved)
}

func TestCompile_CancelledContext(t *testing.T) {
	c := newCompiler(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Compile(ctx, coupleDefinition(), coupleContext(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type capturingTelemetry struct {
	events []Event
	fail   bool
}

func (c *capturingTelemetry) RecordCompilation(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	if c.fail {
		return fmt.Errorf("analytics backend down")
	}
	return nil
}

func TestCompile_TelemetryRecorded(t *testing.T) {
	tel := &capturingTelemetry{}
	c := newCompiler(t, Config{Telemetry: tel})

	_, err := c.Compile(context.Background(), coupleDefinition(), coupleContext(), nil)
	require.NoError(t, err)

	require.Len(t, tel.events, 1)
	assert.Equal(t, "classic-couple", tel.events[0].TemplateID)
	assert.False(t, tel.events[0].CacheHit)
	assert.Greater(t, tel.events[0].PromptLength, 0)
}

func TestCompile_TelemetryFailureIsIgnored(t *testing.T) {
	tel := &capturingTelemetry{fail: true}
	c := newCompiler(t, Config{Telemetry: tel})

	result, err := c.Compile(context.Background(), coupleDefinition(), coupleContext(), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Prompt)
}

func TestCompile_NilContext(t *testing.T) {
	c := newCompiler(t, Config{})

	result, err := c.Compile(nil, coupleDefinition(), coupleContext(), nil) //nolint:staticcheck
	require.NoError(t, err)
	assert.Equal(t, "A Rustic Barn Wedding portrait.", result.Prompt)
}

func TestCompile_CachedResultNotServedAcrossValidationOptions(t *testing.T) {
	c := newCompiler(t, Config{})
	def := coupleDefinition()
	def.Name = ""
	def.Template = "A {style} portrait over ten chars"

	lax := DefaultOptions()
	lax.EnableValidation = false

	first, err := c.Compile(context.Background(), def, coupleContext(), &lax)
	require.NoError(t, err)
	require.False(t, first.Metadata.CacheHit)

	_, err = c.Compile(context.Background(), def, coupleContext(), nil)
	require.Error(t, err)
	var verr *perrors.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestCompile_ReplaceModifierDoesNotMaskParseError(t *testing.T) {
	reg := styles.NewRegistry()
	reg.Register(styles.StyleDefinition{
		ID:   "fixup",
		Name: "Fixup",
		Modifiers: []styles.PromptModifier{
			{Type: styles.ModifierReplace, Target: `\{ an unclosed`, Content: "nothing"},
		},
	})
	c := newCompiler(t, Config{Styles: reg})

	def := coupleDefinition()
	def.Template = "A {style} portrait with { an unclosed"
	def.Theme = &template.ThemeConfig{StyleID: "fixup"}

	opts := DefaultOptions()
	opts.EnableValidation = false

	_, err := c.Compile(context.Background(), def, coupleContext(), &opts)
	require.Error(t, err)
	var cerr *perrors.CompilationError
	require.True(t, errors.As(err, &cerr))
}

func TestCacheKey_VariesWithOptions(t *testing.T) {
	def := coupleDefinition()
	base := DefaultOptions()

	permissive := base
	permissive.ValidationLevel = validation.LevelPermissive
	assert.NotEqual(t, cacheKey(def, coupleContext(), base), cacheKey(def, coupleContext(), permissive))

	roomy := base
	roomy.MaxTemplateSize = 50000
	assert.NotEqual(t, cacheKey(def, coupleContext(), base), cacheKey(def, coupleContext(), roomy))
}

func TestCacheKey_StableAcrossValueOrdering(t *testing.T) {
	def := coupleDefinition()

	a := coupleContext()
	a.Values = map[string]any{"mood": "soft", "venue": "barn"}
	b := coupleContext()
	b.Values = map[string]any{"venue": "barn", "mood": "soft"}

	assert.Equal(t, cacheKey(def, a, DefaultOptions()), cacheKey(def, b, DefaultOptions()))

	b.Values["mood"] = "dramatic"
	assert.NotEqual(t, cacheKey(def, a, DefaultOptions()), cacheKey(def, b, DefaultOptions()))
}

func TestCacheKey_VersionBumpChangesKey(t *testing.T) {
	def := coupleDefinition()
	key1 := cacheKey(def, coupleContext(), DefaultOptions())
	def.Version = 2
	key2 := cacheKey(def, coupleContext(), DefaultOptions())
	assert.NotEqual(t, key1, key2)
}

func TestValidate_Passthrough(t *testing.T) {
	c := newCompiler(t, Config{})

	result := c.Validate(coupleDefinition())
	assert.True(t, result.Valid)
	assert.Equal(t, 100, result.Score)
}
