package ruleengine

import (
	"context"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// MLPrediction is the outcome of a machine-learning rule's inference
// call.
type MLPrediction struct {
	Outcome    model.RuleOutcome
	Confidence float64
	Diagnostic string
}

// MLRunner performs the inference an ML-kind rule delegates to. The
// default runner always PASSes with confidence 0.5, matching the
// placeholder contract; a real implementation can be substituted without
// changing the execution loop.
type MLRunner func(ctx context.Context, rule model.RuleDefinition, ec ExecutionContext) (MLPrediction, error)

// DefaultMLRunner is the placeholder ML path: always PASS/0.5 with a
// diagnostic noting no model is wired.
func DefaultMLRunner(ctx context.Context, rule model.RuleDefinition, ec ExecutionContext) (MLPrediction, error) {
	return MLPrediction{
		Outcome:    model.OutcomePass,
		Confidence: 0.5,
		Diagnostic: "no ML model wired; placeholder runner always passes",
	}, nil
}
