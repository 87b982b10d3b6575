package ruleengine

import (
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/metricsource"
)

// ExecutionContext is the input to a single rule evaluation: the
// transaction under inspection plus whatever profile/history data the
// caller supplied. Field access for rule conditions is evaluated via
// dotted paths over these three JSON documents.
type ExecutionContext struct {
	TransactionID   string
	UserID          string
	SessionID       string
	TransactionData map[string]interface{}
	UserProfile     map[string]interface{}
	HistoricalData  map[string]interface{}
	SourceSystem    string
	Metadata        map[string]string
	ExecutionTime   time.Time
	// MetricQueries names external scalar metrics (e.g. "avg_txn_amount_30d")
	// a rule's conditions reference but cannot compute from the three data
	// maps above. The engine resolves these against its metricsource.Source
	// before evaluation and merges them into historical_data.external_metrics.
	MetricQueries []metricsource.Query
}
