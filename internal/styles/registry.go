package styles

import (
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/l2laihub/portrait-prompt-engine/internal/logger"
)

// defaultFeaturedBias is the probability that a favor-featured random pick
// draws from the featured pool. Editorial promotion heuristic, tunable via
// WithFeaturedBias.
const defaultFeaturedBias = 0.7

// Registry holds style definitions in memory. It is safe for concurrent
// use; mutation happens only through Register and Import.
type Registry struct {
	mu    sync.RWMutex
	items map[string]StyleDefinition
	order []string

	bias float64
	rng  *rand.Rand
	log  *logger.Logger
}

// Option customises registry construction.
type Option func(*Registry)

// WithFeaturedBias overrides the featured-pool probability used by
// RandomSelection.
func WithFeaturedBias(bias float64) Option {
	return func(r *Registry) { r.bias = bias }
}

// WithRandSource fixes the random source, for deterministic tests.
func WithRandSource(src rand.Source) Option {
	return func(r *Registry) { r.rng = rand.New(src) }
}

// WithLogger attaches a logger.
func WithLogger(log *logger.Logger) Option {
	return func(r *Registry) { r.log = log.WithComponent("styles") }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		items: make(map[string]StyleDefinition),
		bias:  defaultFeaturedBias,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts or overwrites a style by id. A missing id is derived
// from the name.
func (r *Registry) Register(style StyleDefinition) {
	if style.ID == "" {
		style.ID = NormalizeID(style.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[style.ID]; !exists {
		r.order = append(r.order, style.ID)
	}
	r.items[style.ID] = style
	r.log.WithFields(map[string]any{"style": style.ID}).Debug("style registered")
}

// Import registers every style in the batch.
func (r *Registry) Import(styleSet []StyleDefinition) {
	for _, style := range styleSet {
		r.Register(style)
	}
}

// Get returns the style with the given id.
func (r *Registry) Get(id string) (StyleDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	style, ok := r.items[id]
	return style, ok
}

// List returns styles matching the filter, sorted by descending popularity.
// Ties keep registration order.
func (r *Registry) List(filter *ListFilter) []StyleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]StyleDefinition, 0, len(r.order))
	for _, id := range r.order {
		style := r.items[id]
		if matchesFilter(style, filter) {
			out = append(out, style)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Popularity > out[j].Popularity
	})
	return out
}

func matchesFilter(style StyleDefinition, filter *ListFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Category != "" && style.Category != filter.Category {
		return false
	}
	if filter.Enabled != nil && style.Enabled != *filter.Enabled {
		return false
	}
	if filter.Featured != nil && style.Featured != *filter.Featured {
		return false
	}
	if filter.PremiumOnly != nil && style.Premium != *filter.PremiumOnly {
		return false
	}
	return true
}

// ModifiersFor returns a style's base modifiers, optionally followed by a
// named variation's modifiers in declared order.
func (r *Registry) ModifiersFor(styleID, variation string) []PromptModifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	style, ok := r.items[styleID]
	if !ok {
		return nil
	}

	modifiers := append([]PromptModifier(nil), style.Modifiers...)
	if variation != "" {
		modifiers = append(modifiers, style.Variations[variation]...)
	}
	return modifiers
}

// Apply folds the modifiers over promptText left to right and trims the
// result.
func Apply(promptText string, modifiers []PromptModifier) string {
	text := promptText
	for _, mod := range modifiers {
		switch mod.Type {
		case ModifierPrepend:
			text = mod.Content + " " + text
		case ModifierAppend:
			text = text + " " + mod.Content
		case ModifierReplace:
			if mod.Target == "" {
				continue
			}
			pattern, err := regexp.Compile("(?i)" + mod.Target)
			if err != nil {
				continue
			}
			if pattern.MatchString(text) {
				text = pattern.ReplaceAllString(text, mod.Content)
			}
		case ModifierInject:
			placeholder := "{" + mod.Target + "}"
			text = strings.ReplaceAll(text, placeholder, mod.Content)
		}
	}
	return strings.TrimSpace(text)
}

// SelectionOptions tune RandomSelection.
type SelectionOptions struct {
	ExcludeIDs    []string
	FavorFeatured bool
	OnlyEnabled   bool
}

// RandomSelection picks count distinct styles. With FavorFeatured each pick
// independently draws from the featured pool with the configured bias,
// falling back to the other pool when the preferred one is exhausted;
// otherwise it is a uniform shuffle-and-slice over the eligible set.
func (r *Registry) RandomSelection(count int, opts SelectionOptions) []StyleDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	excluded := make(map[string]bool, len(opts.ExcludeIDs))
	for _, id := range opts.ExcludeIDs {
		excluded[id] = true
	}

	var eligible []StyleDefinition
	for _, id := range r.order {
		style := r.items[id]
		if excluded[id] {
			continue
		}
		if opts.OnlyEnabled && !style.Enabled {
			continue
		}
		eligible = append(eligible, style)
	}

	if count >= len(eligible) {
		count = len(eligible)
	}
	if count <= 0 {
		return nil
	}

	if !opts.FavorFeatured {
		shuffled := append([]StyleDefinition(nil), eligible...)
		r.rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		return shuffled[:count]
	}

	var featured, rest []StyleDefinition
	for _, style := range eligible {
		if style.Featured {
			featured = append(featured, style)
		} else {
			rest = append(rest, style)
		}
	}

	picks := make([]StyleDefinition, 0, count)
	take := func(pool *[]StyleDefinition) StyleDefinition {
		idx := r.rng.Intn(len(*pool))
		pick := (*pool)[idx]
		*pool = append((*pool)[:idx], (*pool)[idx+1:]...)
		return pick
	}

	for len(picks) < count {
		useFeatured := r.rng.Float64() < r.bias
		switch {
		case useFeatured && len(featured) > 0:
			picks = append(picks, take(&featured))
		case !useFeatured && len(rest) > 0:
			picks = append(picks, take(&rest))
		case len(featured) > 0:
			picks = append(picks, take(&featured))
		default:
			picks = append(picks, take(&rest))
		}
	}
	return picks
}

// Recommend scores every eligible style against the preferences and returns
// the top count by descending score. Equal scores keep registration order.
func (r *Registry) Recommend(prefs Preferences, count int) []StyleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		style StyleDefinition
		score float64
	}

	var candidates []scored
	for _, id := range r.order {
		style := r.items[id]
		if !style.Enabled {
			continue
		}
		candidates = append(candidates, scored{style: style, score: scoreStyle(style, prefs)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if count > len(candidates) {
		count = len(candidates)
	}
	out := make([]StyleDefinition, 0, count)
	for _, c := range candidates[:count] {
		out = append(out, c.style)
	}
	return out
}

func scoreStyle(style StyleDefinition, prefs Preferences) float64 {
	var score float64

	for _, mood := range prefs.Mood {
		for _, has := range style.Attributes.Mood {
			if strings.EqualFold(mood, has) {
				score += 3
			}
		}
	}

	if prefs.Category != "" && strings.EqualFold(prefs.Category, style.Category) {
		score += 5
	}

	for _, tag := range prefs.Tags {
		for _, has := range style.Tags {
			if strings.EqualFold(tag, has) {
				score += 2
			}
		}
	}

	score += float64(sharedWords(prefs.Setting, style.Attributes.Setting))
	score += 0.5 * style.Popularity
	return score
}

func sharedWords(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(a)) {
		words[w] = true
	}
	count := 0
	for _, w := range strings.Fields(strings.ToLower(b)) {
		if words[w] {
			count++
			words[w] = false
		}
	}
	return count
}
