package template

import "time"

// SegmentKind discriminates the parsed segment union.
type SegmentKind string

const (
	SegmentText        SegmentKind = "text"
	SegmentVariable    SegmentKind = "variable"
	SegmentConditional SegmentKind = "conditional"
	SegmentDynamic     SegmentKind = "dynamic"
)

// Segment is one parsed unit of a template. Exactly the fields for its Kind
// are populated.
type Segment struct {
	Kind SegmentKind

	// Text literal, for SegmentText.
	Text string

	// Variable reference with optional literal fallback and inline format
	// chain, for SegmentVariable.
	Variable string
	Fallback string
	Formats  []string

	// Conditional block with true/false branches, for SegmentConditional.
	Condition *Condition
	Truthy    []Segment
	Falsy     []Segment

	// Dynamic generator call, for SegmentDynamic.
	Generator string
	Params    map[string]string
}

// Condition is the test of a conditional segment: variable operator value.
// A bare variable with no operator evaluates as "equals true".
type Condition struct {
	Variable string
	Operator CompareOp
	Value    string
}

// Complexity is an informational classification of a parsed template. It
// never alters compilation behavior.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ParsedTemplate is the ephemeral output of a parse: the ordered segment
// list, the distinct variable ids referenced (in first-appearance order),
// and parse metadata.
type ParsedTemplate struct {
	Segments   []Segment
	Variables  []string
	Complexity Complexity
	ParseTime  time.Duration
}
