package validation

// Level controls how findings are weighted between errors and warnings.
type Level string

const (
	// LevelStrict promotes style-reference, undeclared-variable and
	// custom-rule findings to hard errors.
	LevelStrict Level = "strict"
	// LevelNormal is the default weighting.
	LevelNormal Level = "normal"
	// LevelPermissive demotes content findings to warnings.
	LevelPermissive Level = "permissive"
)

// Finding is a single validator observation tied to a template field.
type Finding struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating one template definition. Valid is
// true iff Errors is empty; warnings only lower the score.
type Result struct {
	Valid    bool      `json:"valid"`
	Errors   []Finding `json:"errors,omitempty"`
	Warnings []Finding `json:"warnings,omitempty"`
	Score    int       `json:"score"`
}

// finding categories drive level-based reweighting.
type category int

const (
	catStructure category = iota
	catContent
	catVariables
	catCrossRef
	catCustomRule
)

type finding struct {
	category category
	severe   bool
	field    string
	message  string
	penalty  int
}
