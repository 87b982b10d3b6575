package ruleengine

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

type kindOutcome struct {
	outcome    string // "PASS" or "FAIL"; ERROR handled by the caller
	output     map[string]interface{}
	triggered  []string
	errMessage string
}

func evaluateValidation(logicTree map[string]interface{}, doc []byte) (kindOutcome, error) {
	conditions, err := parseValidationConditions(logicTree)
	if err != nil {
		return kindOutcome{}, fmt.Errorf("parse conditions: %w", err)
	}

	var failed []string
	for _, c := range conditions {
		ok, err := evaluateCondition(c, doc)
		if err != nil {
			return kindOutcome{}, err
		}
		if !ok {
			desc := c.Description
			if desc == "" {
				desc = fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
			}
			failed = append(failed, desc)
		}
	}

	if len(failed) > 0 {
		return kindOutcome{
			outcome:   "FAIL",
			output:    map[string]interface{}{"failed_conditions": failed},
			triggered: failed,
		}, nil
	}
	return kindOutcome{outcome: "PASS"}, nil
}

func evaluateCondition(c ValidationCondition, doc []byte) (bool, error) {
	value, exists := extractFieldValue(doc, c.Field)

	switch c.Operator {
	case OpExists:
		want, _ := c.Value.(bool)
		if c.Value == nil {
			want = true
		}
		return exists == want, nil
	case OpEquals:
		if !exists {
			return false, nil
		}
		return fmt.Sprintf("%v", value.Value()) == fmt.Sprintf("%v", c.Value), nil
	case OpNotEquals:
		if !exists {
			return true, nil
		}
		return fmt.Sprintf("%v", value.Value()) != fmt.Sprintf("%v", c.Value), nil
	case OpGreaterThan:
		if !exists {
			return false, nil
		}
		want, ok := toFloat(c.Value)
		if !ok {
			return false, fmt.Errorf("greater_than requires a numeric value")
		}
		return value.Float() > want, nil
	case OpLessThan:
		if !exists {
			return false, nil
		}
		want, ok := toFloat(c.Value)
		if !ok {
			return false, fmt.Errorf("less_than requires a numeric value")
		}
		return value.Float() < want, nil
	case OpContains:
		if !exists {
			return false, nil
		}
		want := fmt.Sprintf("%v", c.Value)
		return strings.Contains(value.String(), want), nil
	default:
		return false, fmt.Errorf("unknown operator %q", c.Operator)
	}
}

func evaluateScoring(logicTree map[string]interface{}, doc []byte) (kindOutcome, float64, error) {
	factors, err := parseScoringFactors(logicTree)
	if err != nil {
		return kindOutcome{}, 0, fmt.Errorf("parse scoring_factors: %w", err)
	}
	threshold := scoringThreshold(logicTree)

	var raw float64
	contributions := make(map[string]interface{}, len(factors))
	for _, f := range factors {
		value, exists := extractFieldValue(doc, f.Field)
		var applies bool
		switch f.Operation {
		case ScoringExists:
			applies = exists
		case ScoringValue:
			if exists {
				raw += value.Float() * f.Weight
			}
			applies = exists
		case ScoringThreshold:
			if exists {
				want, ok := toFloat(f.Threshold)
				applies = ok && value.Float() >= want
			}
		}
		if applies && f.Operation != ScoringValue {
			raw += f.Weight
		}
		contributions[f.Field] = map[string]interface{}{
			"applies": applies,
			"weight":  f.Weight,
		}
	}

	normalized := logisticSquash(raw)
	outcome := "PASS"
	var triggered []string
	if normalized >= threshold {
		outcome = "FAIL"
		triggered = append(triggered, fmt.Sprintf("normalized score %.4f >= threshold %.4f", normalized, threshold))
	}

	return kindOutcome{
		outcome: outcome,
		output: map[string]interface{}{
			"raw_score":       raw,
			"normalized_score": normalized,
			"threshold":       threshold,
			"contributions":   contributions,
		},
		triggered: triggered,
	}, normalized, nil
}

// logisticSquash maps an unbounded raw score into (0, 1) via the
// standard logistic function.
func logisticSquash(raw float64) float64 {
	return 1.0 / (1.0 + math.Exp(-raw))
}

func evaluatePattern(logicTree map[string]interface{}, doc []byte) (kindOutcome, error) {
	patterns, err := parsePatterns(logicTree)
	if err != nil {
		return kindOutcome{}, fmt.Errorf("parse patterns: %w", err)
	}

	var matches []string
	for _, p := range patterns {
		value, exists := extractFieldValue(doc, p.Field)
		if !exists {
			continue
		}
		switch p.Kind {
		case PatternKindRegex:
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				return kindOutcome{}, fmt.Errorf("compile pattern for field %s: %w", p.Field, err)
			}
			if re.MatchString(value.String()) {
				matches = append(matches, fmt.Sprintf("field %s matched regex %q", p.Field, p.Pattern))
			}
		case PatternKindValueList:
			str := value.String()
			for _, v := range p.Values {
				if v == str {
					matches = append(matches, fmt.Sprintf("field %s matched value %q", p.Field, v))
					break
				}
			}
		}
	}

	if len(matches) > 0 {
		return kindOutcome{
			outcome:   "FAIL",
			output:    map[string]interface{}{"matches": matches},
			triggered: matches,
		}, nil
	}
	return kindOutcome{outcome: "PASS"}, nil
}
