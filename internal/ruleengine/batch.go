package ruleengine

import (
	"context"
	"sync"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/google/uuid"
)

// batchStatus is one in-flight or completed batch evaluation.
type batchStatus struct {
	mu        sync.Mutex
	total     int
	completed int
	results   map[string]model.FraudDetectionResult
}

// batchTracker backs submit_batch_evaluation/get_batch_progress/
// get_batch_results: an in-memory table keyed by batch id.
type batchTracker struct {
	mu      sync.RWMutex
	batches map[string]*batchStatus
}

func newBatchTracker() *batchTracker {
	return &batchTracker{batches: make(map[string]*batchStatus)}
}

// MaxBatchSize bounds submit_batch_evaluation, mirroring the translator's
// own batch cap for symmetry across the platform's batch APIs.
const MaxBatchSize = 100

// SubmitBatchEvaluation evaluates each context against ruleIDs (or all
// active rules) concurrently, returning a batch id immediately; results
// stream in as each context finishes.
func (e *Engine) SubmitBatchEvaluation(ctx context.Context, contexts []ExecutionContext, ruleIDs []string) (string, error) {
	if len(contexts) == 0 {
		return "", nil
	}
	if len(contexts) > MaxBatchSize {
		contexts = contexts[:MaxBatchSize]
	}

	batchID := "batch_" + uuid.NewString()
	status := &batchStatus{total: len(contexts), results: make(map[string]model.FraudDetectionResult)}

	e.batches.mu.Lock()
	e.batches.batches[batchID] = status
	e.batches.mu.Unlock()

	for _, ec := range contexts {
		go func(ec ExecutionContext) {
			result := e.EvaluateTransaction(ctx, ec, ruleIDs)
			status.mu.Lock()
			status.results[result.TransactionID] = result
			status.completed++
			status.mu.Unlock()
		}(ec)
	}

	return batchID, nil
}

// GetBatchProgress returns the fraction (0..1) of a batch's contexts
// that have completed.
func (e *Engine) GetBatchProgress(batchID string) float64 {
	e.batches.mu.RLock()
	status, ok := e.batches.batches[batchID]
	e.batches.mu.RUnlock()
	if !ok {
		return 0
	}
	status.mu.Lock()
	defer status.mu.Unlock()
	if status.total == 0 {
		return 1
	}
	return float64(status.completed) / float64(status.total)
}

// GetBatchResults returns the results completed so far for a batch,
// keyed by transaction id.
func (e *Engine) GetBatchResults(batchID string) map[string]model.FraudDetectionResult {
	e.batches.mu.RLock()
	status, ok := e.batches.batches[batchID]
	e.batches.mu.RUnlock()
	if !ok {
		return nil
	}
	status.mu.Lock()
	defer status.mu.Unlock()
	out := make(map[string]model.FraudDetectionResult, len(status.results))
	for k, v := range status.results {
		out[k] = v
	}
	return out
}
