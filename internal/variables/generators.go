package variables

import (
	"fmt"
	"sync"

	"github.com/l2laihub/portrait-prompt-engine/internal/styles"
	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// Generator produces text for a dynamic segment or dynamic variable. It
// receives the segment parameters, the variables resolved so far, and the
// runtime context.
type Generator func(params map[string]string, values map[string]any, ctx *template.RuntimeContext) (string, error)

// Generators is a named-generator table. Construct one per engine instance;
// there is no package-level registry.
type Generators struct {
	mu    sync.RWMutex
	items map[string]Generator
}

// NewGenerators creates a table pre-populated with the built-in generators.
func NewGenerators() *Generators {
	g := &Generators{items: make(map[string]Generator)}
	g.items["stylePhrase"] = stylePhraseGenerator
	g.items["memberCount"] = memberCountGenerator
	g.items["photoPhrase"] = photoPhraseGenerator
	return g
}

// Register adds a generator under the given name. Registering an existing
// name is an error; overwrite semantics would silently change template
// output.
func (g *Generators) Register(name string, fn Generator) error {
	if fn == nil {
		return fmt.Errorf("generator %q is nil", name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.items[name]; exists {
		return fmt.Errorf("generator %q already registered", name)
	}
	g.items[name] = fn
	return nil
}

// Get looks up a generator by name.
func (g *Generators) Get(name string) (Generator, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn, ok := g.items[name]
	return fn, ok
}

// stylePhrases keys on the normalized style id.
var stylePhrases = map[string]string{
	"rustic-barn-wedding": "amid weathered timber and glowing string lights",
	"classic-cathedral":   "beneath soaring stone arches and stained glass",
	"bohemian-beach":      "with the ocean breeze and a driftwood arch behind them",
	"enchanted-garden":    "surrounded by climbing ivy and soft fairy lights",
	"vintage-hollywood":   "under dramatic spotlights with art-deco glamour",
	"modern-minimalist":   "against clean architectural lines and open space",
	"fairytale-castle":    "before candlelit stone walls and storybook towers",
	"tuscan-vineyard":     "among sun-warmed vines and distant cypress trees",
}

func stylePhraseGenerator(params map[string]string, _ map[string]any, ctx *template.RuntimeContext) (string, error) {
	if ctx == nil {
		return params["default"], nil
	}
	if phrase, ok := stylePhrases[styles.NormalizeID(ctx.Style)]; ok {
		return phrase, nil
	}
	return params["default"], nil
}

func memberCountGenerator(params map[string]string, _ map[string]any, ctx *template.RuntimeContext) (string, error) {
	if ctx == nil || ctx.FamilyMemberCount <= 0 {
		return params["default"], nil
	}
	switch ctx.FamilyMemberCount {
	case 1:
		return "one person", nil
	case 2:
		return "two people", nil
	default:
		return fmt.Sprintf("a group of %d people", ctx.FamilyMemberCount), nil
	}
}

func photoPhraseGenerator(params map[string]string, _ map[string]any, ctx *template.RuntimeContext) (string, error) {
	if ctx == nil {
		return params["default"], nil
	}
	switch ctx.PhotoType {
	case template.PortraitSingle:
		return "an individual portrait", nil
	case template.PortraitCouple:
		return "a couple's portrait", nil
	case template.PortraitFamily:
		return "a family portrait", nil
	}
	if fallback, ok := params["default"]; ok {
		return fallback, nil
	}
	return "a portrait", nil
}
