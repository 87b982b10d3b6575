package ruleengine

import (
	"context"
	"testing"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateTransaction_SingleRulePass(t *testing.T) {
	e := New(DefaultConfig(), nil, nil, nil, nil, nil)

	rule := model.RuleDefinition{
		ID:       "r1",
		Name:     "small amount",
		Kind:     model.RuleKindValidation,
		Priority: model.PriorityNormal,
		Active:   true,
		LogicTree: map[string]interface{}{
			"conditions": []map[string]interface{}{
				{"field": "amount", "operator": OpLessThan, "value": 1000.0},
			},
		},
	}
	require.NoError(t, e.RegisterRule(context.Background(), rule))

	ec := ExecutionContext{TransactionData: map[string]interface{}{"amount": 500.0}}
	result := e.EvaluateTransaction(context.Background(), ec, nil)

	assert.False(t, result.IsFlagged)
	assert.Equal(t, 0.0, result.FraudScore)
	assert.Equal(t, model.RecommendApprove, result.Recommendation)
	require.Len(t, result.PerRuleResults, 1)
	assert.Equal(t, model.OutcomePass, result.PerRuleResults[0].Outcome)
	assert.InDelta(t, 0.2*(float64(model.PriorityNormal.PriorityRank())/4.0), result.PerRuleResults[0].Confidence, 1e-9)
}

func TestEvaluateTransaction_AggregatedFailBlocksOrReviews(t *testing.T) {
	e := New(DefaultConfig(), nil, nil, nil, nil, nil)

	for i := 0; i < 3; i++ {
		rule := model.RuleDefinition{
			ID:       []string{"r1", "r2", "r3"}[i],
			Name:     "scoring rule",
			Kind:     model.RuleKindScoring,
			Priority: model.PriorityCritical,
			Active:   true,
			LogicTree: map[string]interface{}{
				"threshold": 0.1,
				"scoring_factors": []map[string]interface{}{
					{"field": "amount", "weight": 5.0, "operation": ScoringValue},
				},
			},
		}
		require.NoError(t, e.RegisterRule(context.Background(), rule))
	}

	ec := ExecutionContext{TransactionData: map[string]interface{}{"amount": 1_000_000.0, "country": "XX"}}
	result := e.EvaluateTransaction(context.Background(), ec, nil)

	assert.True(t, result.IsFlagged)
	require.Len(t, result.PerRuleResults, 3)
	for _, r := range result.PerRuleResults {
		assert.Equal(t, model.OutcomeFail, r.Outcome)
	}
	// CRITICAL priority -> confidence 0.8 per failing rule; aggregated
	// score = 0.8 * min(1, 3/5) = 0.48 -> MEDIUM -> REVIEW.
	assert.InDelta(t, 0.8*0.6, result.FraudScore, 1e-9)
	assert.Equal(t, model.RiskMedium, result.OverallRisk)
	assert.Equal(t, model.RecommendReview, result.Recommendation)
}

func TestExecuteRule_SkipsInactive(t *testing.T) {
	e := New(DefaultConfig(), nil, nil, nil, nil, nil)
	rule := model.RuleDefinition{ID: "r1", Kind: model.RuleKindValidation, Active: false}
	result := e.ExecuteRule(context.Background(), rule, ExecutionContext{}, ModeSynchronous)
	assert.Equal(t, model.OutcomeSkipped, result.Outcome)
}

func TestPatternRule_ValueListMatch(t *testing.T) {
	e := New(DefaultConfig(), nil, nil, nil, nil, nil)
	rule := model.RuleDefinition{
		ID: "p1", Kind: model.RuleKindPattern, Active: true, Priority: model.PriorityHigh,
		LogicTree: map[string]interface{}{
			"patterns": []map[string]interface{}{
				{"kind": PatternKindValueList, "field": "country", "values": []string{"XX", "YY"}},
			},
		},
	}
	result := e.ExecuteRule(context.Background(), rule, ExecutionContext{TransactionData: map[string]interface{}{"country": "XX"}}, ModeSynchronous)
	assert.Equal(t, model.OutcomeFail, result.Outcome)
}

func TestMLRule_DefaultRunnerAlwaysPasses(t *testing.T) {
	e := New(DefaultConfig(), nil, nil, nil, nil, nil)
	rule := model.RuleDefinition{ID: "ml1", Kind: model.RuleKindML, Active: true}
	result := e.ExecuteRule(context.Background(), rule, ExecutionContext{}, ModeSynchronous)
	assert.Equal(t, model.OutcomePass, result.Outcome)
	assert.Equal(t, 0.5, result.Confidence)
	assert.NotEmpty(t, result.ErrorMessage)
}
