package ruleengine

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// combinedDocument renders the execution context's three data sources
// into a single JSON blob so condition field paths can address any of
// them with a dotted path, e.g. "transaction_data.amount" or
// "user_profile.risk_tier".
func combinedDocument(ctx ExecutionContext) []byte {
	doc := map[string]interface{}{
		"transaction_data": ctx.TransactionData,
		"user_profile":     ctx.UserProfile,
		"historical_data":  ctx.HistoricalData,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// extractFieldValue resolves a dotted field path against the execution
// context. Bare paths (no "transaction_data."/"user_profile."/
// "historical_data." prefix) are resolved against transaction_data for
// convenience, matching how rule authors write conditions against the
// transaction under evaluation.
func extractFieldValue(doc []byte, field string) (gjson.Result, bool) {
	r := gjson.GetBytes(doc, field)
	if r.Exists() {
		return r, true
	}
	r = gjson.GetBytes(doc, "transaction_data."+field)
	return r, r.Exists()
}
