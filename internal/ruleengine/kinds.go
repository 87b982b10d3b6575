package ruleengine

import "encoding/json"

// ValidationCondition is one entry of a VALIDATION rule's
// logic_tree.conditions.
type ValidationCondition struct {
	Field       string      `json:"field"`
	Operator    string      `json:"operator"`
	Value       interface{} `json:"value"`
	Description string      `json:"description,omitempty"`
}

// Validation operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpContains    = "contains"
	OpExists      = "exists"
)

func parseValidationConditions(logicTree map[string]interface{}) ([]ValidationCondition, error) {
	return decodeSlice[ValidationCondition](logicTree, "conditions")
}

// ScoringFactor is one entry of a SCORING rule's
// logic_tree.scoring_factors.
type ScoringFactor struct {
	Field     string      `json:"field"`
	Weight    float64     `json:"weight"`
	Operation string      `json:"operation"`
	Threshold interface{} `json:"threshold,omitempty"`
}

// Scoring factor operations.
const (
	ScoringExists    = "exists"
	ScoringValue     = "value"
	ScoringThreshold = "threshold"
)

func parseScoringFactors(logicTree map[string]interface{}) ([]ScoringFactor, error) {
	return decodeSlice[ScoringFactor](logicTree, "scoring_factors")
}

func scoringThreshold(logicTree map[string]interface{}) float64 {
	if v, ok := logicTree["threshold"]; ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return 0.5
}

// Pattern is one entry of a PATTERN rule's logic_tree.patterns.
type Pattern struct {
	Kind    string   `json:"kind"` // "regex" or "value_list"
	Field   string   `json:"field"`
	Pattern string   `json:"pattern,omitempty"`
	Values  []string `json:"values,omitempty"`
}

const (
	PatternKindRegex     = "regex"
	PatternKindValueList = "value_list"
)

func parsePatterns(logicTree map[string]interface{}) ([]Pattern, error) {
	return decodeSlice[Pattern](logicTree, "patterns")
}

// decodeSlice round-trips logicTree[key] through JSON into []T. This is
// the simplest way to turn the rule definition's duck-typed logic_tree
// into the neutral, schema-validated form each rule kind expects.
func decodeSlice[T any](logicTree map[string]interface{}, key string) ([]T, error) {
	raw, ok := logicTree[key]
	if !ok {
		return nil, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
