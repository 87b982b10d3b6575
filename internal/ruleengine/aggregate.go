package ruleengine

import "github.com/gaigenticai/Regulens-sub011/internal/model"

// calculateConfidence implements the confidence formula: a base value by
// outcome, scaled by a priority multiplier, capped at 1.
func calculateConfidence(outcome model.RuleOutcome, priority model.TaskPriority) float64 {
	var base float64
	switch outcome {
	case model.OutcomeFail:
		base = 0.8
	case model.OutcomePass:
		base = 0.2
	default:
		base = 0.5
	}

	multiplier := float64(priority.PriorityRank()) / 4.0
	confidence := base * multiplier
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// scoreToRiskLevel buckets a score in [0,1] into a RiskLevel, shared by
// per-rule confidence and the transaction's aggregated score.
func scoreToRiskLevel(score float64) model.RiskLevel {
	switch {
	case score >= 0.8:
		return model.RiskCritical
	case score >= 0.6:
		return model.RiskHigh
	case score >= 0.4:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// calculateAggregatedScore is the mean confidence of FAILing rules,
// scaled by min(1, failingCount/5).
func calculateAggregatedScore(results []model.RuleExecutionResult) float64 {
	var sum float64
	var failing int
	for _, r := range results {
		if r.Outcome == model.OutcomeFail {
			sum += r.Confidence
			failing++
		}
	}
	if failing == 0 {
		return 0
	}
	mean := sum / float64(failing)
	scale := float64(failing) / 5.0
	if scale > 1 {
		scale = 1
	}
	return mean * scale
}

// recommendationForRisk maps a risk level (and flagged status) to the
// platform's recommendation.
func recommendationForRisk(flagged bool, risk model.RiskLevel) model.Recommendation {
	if !flagged {
		return model.RecommendApprove
	}
	switch risk {
	case model.RiskCritical:
		return model.RecommendBlock
	case model.RiskHigh, model.RiskMedium:
		return model.RecommendReview
	default:
		return model.RecommendApprove
	}
}
