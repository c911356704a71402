package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ParseConfig bounds and shapes the parser's behavior.
type ParseConfig struct {
	// MaxTemplateSize is the maximum template length in characters. Zero
	// disables the check.
	MaxTemplateSize int
	// MaxVariableCount is the maximum number of distinct referenced
	// variables. Zero disables the check.
	MaxVariableCount int
	// AdvancedSegments enables {{#if}} conditional and {{generator}}
	// dynamic segment parsing. When disabled, double-braced blocks pass
	// through as literal text.
	AdvancedSegments bool
}

// DefaultParseConfig returns the engine's standard parse limits.
func DefaultParseConfig() ParseConfig {
	return ParseConfig{
		MaxTemplateSize:  10000,
		MaxVariableCount: 50,
		AdvancedSegments: true,
	}
}

var (
	variableIDPattern  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	generatorIDPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.]*$`)
)

// Parser turns raw template text into an ordered segment list.
//
// Variable tokens support a fallback and a format chain. The token is split
// at the first '|'; the part before it is split at the first ':'. So
// "{name:friend|uppercase}" yields id "name", fallback "friend" and format
// chain [uppercase]; a ':' after the first '|' always belongs to a
// prefix:/suffix: format argument.
type Parser struct {
	cfg ParseConfig
}

// NewParser creates a parser with the supplied configuration.
func NewParser(cfg ParseConfig) *Parser {
	return &Parser{cfg: cfg}
}

// Parse scans templateText left to right into a ParsedTemplate. Size and
// variable-count overflows and unterminated tokens are errors, never
// silently truncated.
func (p *Parser) Parse(templateText string) (*ParsedTemplate, error) {
	start := time.Now()

	if p.cfg.MaxTemplateSize > 0 && len(templateText) > p.cfg.MaxTemplateSize {
		return nil, fmt.Errorf("template length %d exceeds maximum %d", len(templateText), p.cfg.MaxTemplateSize)
	}

	segments, err := p.parseSegments(templateText)
	if err != nil {
		return nil, err
	}

	variables := collectVariables(segments)
	if p.cfg.MaxVariableCount > 0 && len(variables) > p.cfg.MaxVariableCount {
		return nil, fmt.Errorf("template references %d variables, exceeding maximum %d", len(variables), p.cfg.MaxVariableCount)
	}

	conditionals, dynamics := countAdvanced(segments)

	return &ParsedTemplate{
		Segments:   segments,
		Variables:  variables,
		Complexity: classify(len(variables), conditionals, dynamics),
		ParseTime:  time.Since(start),
	}, nil
}

func (p *Parser) parseSegments(text string) ([]Segment, error) {
	var segments []Segment
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			segments = append(segments, Segment{Kind: SegmentText, Text: buf.String()})
			buf.Reset()
		}
	}

	i := 0
	for i < len(text) {
		rest := text[i:]

		switch {
		case p.cfg.AdvancedSegments && strings.HasPrefix(rest, "{{#if "):
			flush()
			seg, consumed, err := p.parseConditional(rest)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
			i += consumed

		case p.cfg.AdvancedSegments && (strings.HasPrefix(rest, "{{else}}") || strings.HasPrefix(rest, "{{/if}}")):
			return nil, fmt.Errorf("unexpected %q outside a conditional at offset %d", rest[:strings.Index(rest, "}}")+2], i)

		case strings.HasPrefix(rest, "{{"):
			flush()
			seg, consumed, err := p.parseDoubleBrace(rest, i)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
			i += consumed

		case text[i] == '{':
			end := strings.IndexByte(rest[1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unmatched '{' at offset %d", i)
			}
			token := rest[1 : 1+end]
			if seg, ok := parseVariableToken(token); ok {
				flush()
				segments = append(segments, seg)
			} else {
				// Not a well-formed variable reference; the braced run
				// stays literal and the validator flags it.
				buf.WriteString(rest[:end+2])
			}
			i += end + 2

		default:
			buf.WriteByte(text[i])
			i++
		}
	}

	flush()
	return segments, nil
}

// parseDoubleBrace handles "{{...}}" runs: a dynamic generator call when
// advanced segments are on, literal text otherwise.
func (p *Parser) parseDoubleBrace(rest string, offset int) (Segment, int, error) {
	// JSON payloads contain braces of their own, so the closing "}}" is the
	// first one that leaves the inner braces balanced.
	end := -1
	for search := 0; ; search++ {
		idx := strings.Index(rest[search:], "}}")
		if idx < 0 {
			break
		}
		idx += search
		inner := rest[2:idx]
		if strings.Count(inner, "{") == strings.Count(inner, "}") {
			end = idx
			break
		}
		search = idx
	}
	if end < 0 {
		return Segment{}, 0, fmt.Errorf("unmatched '{{' at offset %d", offset)
	}
	consumed := end + 2

	if !p.cfg.AdvancedSegments {
		return Segment{Kind: SegmentText, Text: rest[:consumed]}, consumed, nil
	}

	inner := rest[2:end]
	name, payload := inner, ""
	if idx := strings.IndexByte(inner, ':'); idx >= 0 {
		name, payload = inner[:idx], inner[idx+1:]
	}

	if !generatorIDPattern.MatchString(name) {
		return Segment{Kind: SegmentText, Text: rest[:consumed]}, consumed, nil
	}

	params, err := parseGeneratorParams(payload)
	if err != nil {
		return Segment{}, 0, fmt.Errorf("invalid parameters for generator %q at offset %d: %w", name, offset, err)
	}

	return Segment{Kind: SegmentDynamic, Generator: name, Params: params}, consumed, nil
}

// parseGeneratorParams accepts either a JSON object payload or
// "key=val,key2=val2" pairs.
func parseGeneratorParams(payload string) (map[string]string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, nil
	}

	if strings.HasPrefix(payload, "{") {
		var raw map[string]any
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			return nil, err
		}
		params := make(map[string]string, len(raw))
		for k, v := range raw {
			params[k] = Stringify(v)
		}
		return params, nil
	}

	params := make(map[string]string)
	for _, pair := range strings.Split(payload, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("parameter %q is not key=value", pair)
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return params, nil
}

// parseVariableToken interprets the inside of a single-brace token.
func parseVariableToken(token string) (Segment, bool) {
	head, formatChain, hasFormats := strings.Cut(token, "|")
	id, fallback, _ := strings.Cut(head, ":")
	if !variableIDPattern.MatchString(id) {
		return Segment{}, false
	}

	seg := Segment{Kind: SegmentVariable, Variable: id, Fallback: fallback}
	if hasFormats {
		for _, format := range strings.Split(formatChain, "|") {
			format = strings.TrimSpace(format)
			if format != "" {
				seg.Formats = append(seg.Formats, format)
			}
		}
	}
	return seg, true
}

// parseConditional consumes a "{{#if cond}}...{{else}}...{{/if}}" block,
// returning the segment and the number of bytes consumed.
func (p *Parser) parseConditional(rest string) (Segment, int, error) {
	condEnd := strings.Index(rest, "}}")
	if condEnd < 0 {
		return Segment{}, 0, fmt.Errorf("unterminated conditional open tag")
	}

	cond, err := parseCondition(rest[len("{{#if "):condEnd])
	if err != nil {
		return Segment{}, 0, err
	}

	body := rest[condEnd+2:]
	depth := 1
	elseAt := -1
	pos := 0
	bodyEnd := -1

	for pos < len(body) {
		next := strings.IndexByte(body[pos:], '{')
		if next < 0 {
			break
		}
		pos += next
		switch {
		case strings.HasPrefix(body[pos:], "{{#if "):
			depth++
			pos += len("{{#if ")
		case strings.HasPrefix(body[pos:], "{{/if}}"):
			depth--
			if depth == 0 {
				bodyEnd = pos
			}
			pos += len("{{/if}}")
		case strings.HasPrefix(body[pos:], "{{else}}"):
			if depth == 1 && elseAt < 0 {
				elseAt = pos
			}
			pos += len("{{else}}")
		default:
			pos++
		}
		if bodyEnd >= 0 {
			break
		}
	}

	if bodyEnd < 0 {
		return Segment{}, 0, fmt.Errorf("conditional on %q is missing {{/if}}", cond.Variable)
	}

	truthyText := body[:bodyEnd]
	falsyText := ""
	if elseAt >= 0 {
		truthyText = body[:elseAt]
		falsyText = body[elseAt+len("{{else}}") : bodyEnd]
	}

	truthy, err := p.parseSegments(truthyText)
	if err != nil {
		return Segment{}, 0, err
	}
	falsy, err := p.parseSegments(falsyText)
	if err != nil {
		return Segment{}, 0, err
	}

	seg := Segment{Kind: SegmentConditional, Condition: cond, Truthy: truthy, Falsy: falsy}
	consumed := condEnd + 2 + bodyEnd + len("{{/if}}")
	return seg, consumed, nil
}

// parseCondition interprets "variable operator value". A bare variable is
// shorthand for "variable equals true".
func parseCondition(expr string) (*Condition, error) {
	fields := strings.Fields(expr)
	switch {
	case len(fields) == 0:
		return nil, fmt.Errorf("empty conditional expression")
	case len(fields) == 1:
		if !variableIDPattern.MatchString(fields[0]) {
			return nil, fmt.Errorf("invalid conditional variable %q", fields[0])
		}
		return &Condition{Variable: fields[0], Operator: OpEquals, Value: "true"}, nil
	case len(fields) == 2:
		return nil, fmt.Errorf("conditional %q is missing a comparison value", expr)
	}

	op := CompareOp(fields[1])
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpIn, OpNotIn:
	default:
		return nil, fmt.Errorf("unknown conditional operator %q", fields[1])
	}

	if !variableIDPattern.MatchString(fields[0]) {
		return nil, fmt.Errorf("invalid conditional variable %q", fields[0])
	}

	value := strings.Join(fields[2:], " ")
	value = strings.Trim(value, `"'`)
	return &Condition{Variable: fields[0], Operator: op, Value: value}, nil
}

func collectVariables(segments []Segment) []string {
	seen := make(map[string]bool)
	var ordered []string

	var walk func([]Segment)
	walk = func(segs []Segment) {
		for _, seg := range segs {
			switch seg.Kind {
			case SegmentVariable:
				if !seen[seg.Variable] {
					seen[seg.Variable] = true
					ordered = append(ordered, seg.Variable)
				}
			case SegmentConditional:
				if seg.Condition != nil && !seen[seg.Condition.Variable] {
					seen[seg.Condition.Variable] = true
					ordered = append(ordered, seg.Condition.Variable)
				}
				walk(seg.Truthy)
				walk(seg.Falsy)
			}
		}
	}

	walk(segments)
	return ordered
}

func countAdvanced(segments []Segment) (conditionals, dynamics int) {
	for _, seg := range segments {
		switch seg.Kind {
		case SegmentConditional:
			conditionals++
			c, d := countAdvanced(seg.Truthy)
			conditionals += c
			dynamics += d
			c, d = countAdvanced(seg.Falsy)
			conditionals += c
			dynamics += d
		case SegmentDynamic:
			dynamics++
		}
	}
	return conditionals, dynamics
}

func classify(variables, conditionals, dynamics int) Complexity {
	switch {
	case variables > 8 || conditionals >= 3 || dynamics >= 2:
		return ComplexityComplex
	case variables <= 3 && conditionals == 0 && dynamics == 0:
		return ComplexitySimple
	default:
		return ComplexityModerate
	}
}
