package ruleengine

import (
	"context"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// ValidateRuleLogic checks that logicTree is well-formed for kind,
// without registering anything. Returns a diagnostic map suitable for an
// API response: {"valid": bool, "errors": []string}.
func ValidateRuleLogic(kind model.RuleKind, logicTree map[string]interface{}) map[string]interface{} {
	var err error
	switch kind {
	case model.RuleKindValidation:
		_, err = parseValidationConditions(logicTree)
	case model.RuleKindScoring:
		_, err = parseScoringFactors(logicTree)
	case model.RuleKindPattern:
		_, err = parsePatterns(logicTree)
	case model.RuleKindML:
		// no structural requirements.
	default:
		return map[string]interface{}{"valid": false, "errors": []string{"unknown rule kind"}}
	}
	if err != nil {
		return map[string]interface{}{"valid": false, "errors": []string{err.Error()}}
	}
	return map[string]interface{}{"valid": true, "errors": []string{}}
}

// TestRuleExecution dry-runs rule against a synthetic context without
// persisting anything: no cache mutation, no metrics update, no audit
// journal entry.
func (e *Engine) TestRuleExecution(ctx context.Context, rule model.RuleDefinition, ec ExecutionContext) model.RuleExecutionResult {
	if skip, reason := e.shouldSkip(rule, ec.ExecutionTime); skip {
		return model.RuleExecutionResult{RuleID: rule.ID, Outcome: model.OutcomeSkipped, Risk: model.RiskLow, ErrorMessage: reason}
	}
	return e.executeByKind(ctx, rule, ec)
}
