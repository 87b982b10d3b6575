package ruleengine

import (
	"context"

	"github.com/gaigenticai/Regulens-sub011/internal/metricsource"
)

// SetMetricSource wires the external scalar-metric collaborator the
// engine consults for ExecutionContext.MetricQueries. Nil disables
// resolution: queries are then simply skipped.
func (e *Engine) SetMetricSource(src metricsource.Source) {
	e.metricSource = src
}

// resolveMetricQueries queries e.metricSource for every entry in
// ec.MetricQueries and merges the results into a copy of ec's
// HistoricalData under "external_metrics", keyed by metric name. A
// failing query is logged and skipped rather than aborting evaluation;
// conditions that reference the missing metric then see the field as
// absent.
func (e *Engine) resolveMetricQueries(ctx context.Context, ec ExecutionContext) ExecutionContext {
	if e.metricSource == nil || len(ec.MetricQueries) == 0 {
		return ec
	}

	resolved := make(map[string]interface{}, len(ec.MetricQueries))
	for _, q := range ec.MetricQueries {
		result, err := e.metricSource.Query(ctx, q)
		if err != nil {
			e.logger.WithError(err).WithField("metric", q.Name).Warn("metric source query failed")
			continue
		}
		resolved[q.Name] = result.Value
	}
	if len(resolved) == 0 {
		return ec
	}

	historical := make(map[string]interface{}, len(ec.HistoricalData)+1)
	for k, v := range ec.HistoricalData {
		historical[k] = v
	}
	historical["external_metrics"] = resolved
	ec.HistoricalData = historical
	return ec
}
