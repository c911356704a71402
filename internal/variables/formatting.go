package variables

import (
	"strings"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// Format renders a resolved value as text, applying the variable's formatting
// rules in order: case transform, prefix, suffix, wrapper. Called once per
// occurrence during the segment walk, never at resolution time.
func Format(spec *template.VariableSpec, value any) string {
	text := template.Stringify(value)
	if spec == nil || spec.Formatting == nil {
		return text
	}

	f := spec.Formatting
	text = transformCase(text, f.Case)
	text = f.Prefix + text + f.Suffix
	if f.Wrapper != "" && strings.Contains(f.Wrapper, "{value}") {
		text = strings.ReplaceAll(f.Wrapper, "{value}", text)
	}
	return text
}

// ApplyInlineFormats applies a segment's inline format chain, e.g.
// "uppercase" or "prefix:very ". Unknown formats are ignored.
func ApplyInlineFormats(text string, formats []string) string {
	for _, format := range formats {
		name, arg, _ := strings.Cut(format, ":")
		switch name {
		case "uppercase":
			text = strings.ToUpper(text)
		case "lowercase":
			text = strings.ToLower(text)
		case "capitalize":
			text = transformCase(text, "capitalize")
		case "prefix":
			if text != "" {
				text = arg + text
			}
		case "suffix":
			if text != "" {
				text = text + arg
			}
		}
	}
	return text
}

func transformCase(text, mode string) string {
	switch mode {
	case "uppercase":
		return strings.ToUpper(text)
	case "lowercase":
		return strings.ToLower(text)
	case "capitalize":
		if text == "" {
			return text
		}
		return strings.ToUpper(text[:1]) + text[1:]
	default:
		return text
	}
}
