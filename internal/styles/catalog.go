package styles

// DefaultCatalog returns the built-in wedding style set seeded into a
// registry at startup.
func DefaultCatalog() []StyleDefinition {
	return []StyleDefinition{
		{
			ID:          "rustic-barn-wedding",
			Name:        "Rustic Barn Wedding",
			Description: "Weathered wood, string lights and warm golden-hour tones.",
			Category:    "rustic",
			Tags:        []string{"barn", "country", "outdoor"},
			Popularity:  92,
			Attributes: Attributes{
				ColorPalette: []string{"warm brown", "cream", "sage green"},
				Mood:         []string{"cozy", "romantic", "earthy"},
				Setting:      "restored barn with exposed beams and string lights",
			},
			Modifiers: []PromptModifier{
				{Type: ModifierAppend, Content: "set in a rustic barn with warm string lights and weathered wood"},
			},
			Variations: map[string][]PromptModifier{
				"sunset": {
					{Type: ModifierAppend, Content: "bathed in golden-hour sunset light"},
				},
			},
			Enabled:  true,
			Featured: true,
		},
		{
			ID:          "classic-cathedral",
			Name:        "Classic Cathedral",
			Description: "Grand stone arches, stained glass and formal elegance.",
			Category:    "classic",
			Tags:        []string{"church", "formal", "traditional"},
			Popularity:  85,
			Attributes: Attributes{
				ColorPalette: []string{"ivory", "gold", "deep red"},
				Mood:         []string{"elegant", "timeless", "formal"},
				Setting:      "gothic cathedral with stained glass windows",
			},
			Modifiers: []PromptModifier{
				{Type: ModifierAppend, Content: "inside a grand cathedral with soaring stone arches and stained glass"},
			},
			Enabled:  true,
			Featured: true,
		},
		{
			ID:          "bohemian-beach",
			Name:        "Bohemian Beach",
			Description: "Barefoot elegance with ocean breeze and driftwood arches.",
			Category:    "outdoor",
			Tags:        []string{"beach", "boho", "sunset"},
			Popularity:  88,
			Attributes: Attributes{
				ColorPalette: []string{"sand", "turquoise", "coral"},
				Mood:         []string{"relaxed", "free-spirited", "romantic"},
				Setting:      "sandy beach at sunset with a driftwood arch",
			},
			Modifiers: []PromptModifier{
				{Type: ModifierAppend, Content: "on a sandy beach at sunset with a bohemian driftwood arch"},
			},
			Enabled: true,
		},
		{
			ID:          "enchanted-garden",
			Name:        "Enchanted Garden",
			Description: "Lush florals, ivy-covered trellises and soft fairy lights.",
			Category:    "outdoor",
			Tags:        []string{"garden", "floral", "whimsical"},
			Popularity:  80,
			Attributes: Attributes{
				ColorPalette: []string{"blush pink", "ivy green", "lavender"},
				Mood:         []string{"whimsical", "romantic", "dreamy"},
				Setting:      "overgrown garden with ivy trellises and fairy lights",
			},
			Modifiers: []PromptModifier{
				{Type: ModifierAppend, Content: "in an enchanted garden overflowing with flowers and fairy lights"},
			},
			Enabled: true,
		},
		{
			ID:          "vintage-hollywood",
			Name:        "Vintage Hollywood",
			Description: "Art-deco glamour with dramatic black-and-white lighting.",
			Category:    "vintage",
			Tags:        []string{"glamour", "art-deco", "retro"},
			Popularity:  74,
			Attributes: Attributes{
				ColorPalette: []string{"black", "silver", "champagne"},
				Mood:         []string{"glamorous", "dramatic", "elegant"},
				Setting:      "art deco ballroom with dramatic spotlights",
			},
			Modifiers: []PromptModifier{
				{Type: ModifierAppend, Content: "styled as vintage Hollywood glamour with art-deco details"},
			},
			Variations: map[string][]PromptModifier{
				"noir": {
					{Type: ModifierAppend, Content: "rendered in dramatic black and white film noir lighting"},
				},
			},
			Enabled: true,
			Premium: true,
		},
		{
			ID:          "modern-minimalist",
			Name:        "Modern Minimalist",
			Description: "Clean architectural lines and uncluttered composition.",
			Category:    "modern",
			Tags:        []string{"minimal", "architectural", "clean"},
			Popularity:  70,
			Attributes: Attributes{
				ColorPalette: []string{"white", "grey", "black"},
				Mood:         []string{"sleek", "contemporary", "calm"},
				Setting:      "minimalist gallery space with clean lines",
			},
			Modifiers: []PromptModifier{
				{Type: ModifierAppend, Content: "in a modern minimalist space with clean architectural lines"},
			},
			Enabled: true,
		},
		{
			ID:          "fairytale-castle",
			Name:        "Fairytale Castle",
			Description: "Storybook towers, candlelit halls and royal grandeur.",
			Category:    "fantasy",
			Tags:        []string{"castle", "royal", "storybook"},
			Popularity:  78,
			Attributes: Attributes{
				ColorPalette: []string{"royal blue", "gold", "ivory"},
				Mood:         []string{"magical", "grand", "romantic"},
				Setting:      "storybook castle with candlelit stone halls",
			},
			Modifiers: []PromptModifier{
				{Type: ModifierAppend, Content: "before a fairytale castle with storybook towers and candlelight"},
			},
			Enabled:  true,
			Seasonal: false,
		},
		{
			ID:          "tuscan-vineyard",
			Name:        "Tuscan Vineyard",
			Description: "Rolling hills, cypress trees and late-afternoon warmth.",
			Category:    "rustic",
			Tags:        []string{"vineyard", "italy", "outdoor"},
			Popularity:  66,
			Attributes: Attributes{
				ColorPalette: []string{"terracotta", "olive", "gold"},
				Mood:         []string{"warm", "romantic", "pastoral"},
				Setting:      "tuscan vineyard with rolling hills and cypress trees",
			},
			Modifiers: []PromptModifier{
				{Type: ModifierAppend, Content: "among the rolling vines of a Tuscan vineyard in late afternoon light"},
			},
			Enabled: true,
		},
	}
}
