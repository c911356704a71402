package styles

import (
	"regexp"
	"strings"
)

// ModifierType enumerates how a PromptModifier transforms template text.
type ModifierType string

const (
	ModifierPrepend ModifierType = "prepend"
	ModifierAppend  ModifierType = "append"
	ModifierReplace ModifierType = "replace"
	ModifierInject  ModifierType = "inject"
)

// PromptModifier is one text operation expressing a style's aesthetic.
// Replace treats Target as a case-insensitive literal; Inject substitutes
// the "{Target}" placeholder token.
type PromptModifier struct {
	Type    ModifierType `yaml:"type" json:"type"`
	Content string       `yaml:"content" json:"content"`
	Target  string       `yaml:"target,omitempty" json:"target,omitempty"`
}

// Attributes bundle a style's visual characteristics.
type Attributes struct {
	ColorPalette []string `yaml:"color_palette,omitempty" json:"color_palette,omitempty"`
	Mood         []string `yaml:"mood,omitempty" json:"mood,omitempty"`
	Setting      string   `yaml:"setting,omitempty" json:"setting,omitempty"`
}

// StyleDefinition is a named bundle of visual attributes and prompt
// modifiers. Styles are seeded at startup and may be extended at runtime
// via explicit register/import calls; they are never deleted implicitly.
type StyleDefinition struct {
	ID          string                      `yaml:"id" json:"id"`
	Name        string                      `yaml:"name" json:"name"`
	Description string                      `yaml:"description,omitempty" json:"description,omitempty"`
	Category    string                      `yaml:"category,omitempty" json:"category,omitempty"`
	Tags        []string                    `yaml:"tags,omitempty" json:"tags,omitempty"`
	Popularity  float64                     `yaml:"popularity,omitempty" json:"popularity,omitempty"`
	Attributes  Attributes                  `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Modifiers   []PromptModifier            `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	Variations  map[string][]PromptModifier `yaml:"variations,omitempty" json:"variations,omitempty"`
	Enabled     bool                        `yaml:"enabled" json:"enabled"`
	Featured    bool                        `yaml:"featured,omitempty" json:"featured,omitempty"`
	Premium     bool                        `yaml:"premium,omitempty" json:"premium,omitempty"`
	Seasonal    bool                        `yaml:"seasonal,omitempty" json:"seasonal,omitempty"`
}

// ListFilter narrows List results. Nil pointer fields are ignored; set
// fields AND-combine.
type ListFilter struct {
	Category    string
	Enabled     *bool
	Featured    *bool
	PremiumOnly *bool
}

// Preferences drive style recommendation scoring.
type Preferences struct {
	Mood     []string
	Category string
	Tags     []string
	Setting  string
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeID derives a registry key from a human-readable style name:
// lowercased, runs of non-alphanumerics collapsed to single hyphens,
// leading and trailing hyphens stripped.
func NormalizeID(name string) string {
	id := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(id, "-")
}
