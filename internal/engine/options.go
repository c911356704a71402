package engine

import "github.com/l2laihub/portrait-prompt-engine/internal/validation"

// Options tunes one compilation. A nil *Options passed to Compile uses the
// compiler's configured defaults.
type Options struct {
	// EnableCaching reads and writes the compilation cache.
	EnableCaching bool
	// EnableValidation runs the template validator before compiling.
	EnableValidation bool
	// ValidationLevel selects the validator's error/warning weighting.
	ValidationLevel validation.Level
	// AllowUnsafeVariables skips stripping of script-like content from
	// resolved string values.
	AllowUnsafeVariables bool
	// MaxTemplateSize caps template length in characters.
	MaxTemplateSize int
	// MaxVariableCount caps the number of distinct referenced variables.
	MaxVariableCount int
	// EnableDebugMode turns on conditional/dynamic segment parsing and
	// includes resolved values in result metadata.
	EnableDebugMode bool
}

// DefaultOptions is the production configuration: cached, validated at the
// normal level, advanced segments on.
func DefaultOptions() Options {
	return Options{
		EnableCaching:    true,
		EnableValidation: true,
		ValidationLevel:  validation.LevelNormal,
		MaxTemplateSize:  10000,
		MaxVariableCount: 50,
		EnableDebugMode:  true,
	}
}
