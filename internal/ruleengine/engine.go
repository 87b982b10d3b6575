// Package ruleengine evaluates typed compliance rules against an
// execution context and aggregates per-transaction fraud/risk across a
// rule set.
package ruleengine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/apierrors"
	"github.com/gaigenticai/Regulens-sub011/internal/logging"
	"github.com/gaigenticai/Regulens-sub011/internal/metrics"
	"github.com/gaigenticai/Regulens-sub011/internal/metricsource"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gaigenticai/Regulens-sub011/internal/store"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ExecutionMode mirrors the four dispatch modes a rule execution can be
// requested under. ExecuteRule does not branch on the mode: all four
// describe how the caller invokes ExecuteRule (e.g. from a worker pool or
// the batch tracker), not a different code path inside it.
type ExecutionMode string

const (
	ModeSynchronous  ExecutionMode = "SYNCHRONOUS"
	ModeAsynchronous ExecutionMode = "ASYNCHRONOUS"
	ModeBatch        ExecutionMode = "BATCH"
	ModeStreaming    ExecutionMode = "STREAMING"
)

// AuditRecorder is the narrow capability the rule engine needs from the
// Audit & Rollback Engine: it never holds a reference back to the full
// audit API, only the ability to journal its own mutations.
type AuditRecorder interface {
	RecordChange(ctx context.Context, change model.ChangeRecord) (string, error)
}

// Config configures an Engine.
type Config struct {
	ExecutionTimeout        time.Duration
	MaxParallelExecutions   int
	EnablePerformanceMonitoring bool
}

// DefaultConfig returns the spec's stated defaults: 5s timeout, 10-way
// parallelism, performance monitoring on.
func DefaultConfig() Config {
	return Config{
		ExecutionTimeout:      5 * time.Second,
		MaxParallelExecutions: 10,
		EnablePerformanceMonitoring: true,
	}
}

type ruleMetrics struct {
	totalExecutions      int
	successfulExecutions int
	failedExecutions     int
	fraudDetections      int
	totalDurationMs      int64
	totalConfidence      float64
	lastExecution        time.Time
	errorCounts          map[string]int
}

// Engine is the Rule Execution Engine.
type Engine struct {
	cfg Config

	rulesMu sync.RWMutex
	rules   map[string]model.RuleDefinition

	metricsMu sync.Mutex
	ruleStats map[string]*ruleMetrics

	store        store.RuleGateway
	audit        AuditRecorder
	mlRunner     MLRunner
	metricSource metricsource.Source

	logger *logging.Logger
	m      *metrics.Metrics

	batches *batchTracker

	reloadRunner *cron.Cron
}

// New creates an Engine. audit may be nil (changes are then not
// journaled, useful for tests); mlRunner defaults to DefaultMLRunner if
// nil.
func New(cfg Config, ruleStore store.RuleGateway, audit AuditRecorder, mlRunner MLRunner, logger *logging.Logger, m *metrics.Metrics) *Engine {
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = 5 * time.Second
	}
	if cfg.MaxParallelExecutions <= 0 {
		cfg.MaxParallelExecutions = 10
	}
	if mlRunner == nil {
		mlRunner = DefaultMLRunner
	}
	if logger == nil {
		logger = logging.New("rule_engine", "info", "json")
	}
	return &Engine{
		cfg:       cfg,
		rules:     make(map[string]model.RuleDefinition),
		ruleStats: make(map[string]*ruleMetrics),
		store:     ruleStore,
		audit:     audit,
		mlRunner:  mlRunner,
		logger:    logger,
		m:         m,
		batches:   newBatchTracker(),
	}
}

// ReloadRules refreshes the in-memory cache from the store, replacing
// the prior contents atomically.
func (e *Engine) ReloadRules(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	rules, err := e.store.ListRules(ctx, false)
	if err != nil {
		return apierrors.Database("list_rules", err)
	}
	next := make(map[string]model.RuleDefinition, len(rules))
	for _, r := range rules {
		next[r.ID] = r
	}
	e.rulesMu.Lock()
	e.rules = next
	e.rulesMu.Unlock()
	return nil
}

// RegisterRule validates and adds a new rule, journaling the creation.
func (e *Engine) RegisterRule(ctx context.Context, rule model.RuleDefinition) error {
	if err := e.validateRuleDefinition(rule); err != nil {
		return err
	}

	e.rulesMu.Lock()
	if _, exists := e.rules[rule.ID]; exists {
		e.rulesMu.Unlock()
		return apierrors.Conflict(fmt.Sprintf("rule %q already registered", rule.ID))
	}
	now := time.Now()
	rule.CreatedAt, rule.UpdatedAt = now, now
	e.rules[rule.ID] = rule
	e.rulesMu.Unlock()

	if e.store != nil {
		if err := e.store.CreateRule(ctx, &rule); err != nil {
			return apierrors.Database("create_rule", err)
		}
	}
	e.journalRuleChange(ctx, model.OpCreate, rule.ID, nil, &rule)
	return nil
}

// UpdateRule replaces a rule's definition, bumping UpdatedAt and
// journaling the change.
func (e *Engine) UpdateRule(ctx context.Context, rule model.RuleDefinition) error {
	if err := e.validateRuleDefinition(rule); err != nil {
		return err
	}

	e.rulesMu.Lock()
	before, exists := e.rules[rule.ID]
	if !exists {
		e.rulesMu.Unlock()
		return apierrors.NotFound("rule", rule.ID)
	}
	rule.CreatedAt = before.CreatedAt
	rule.UpdatedAt = time.Now()
	e.rules[rule.ID] = rule
	e.rulesMu.Unlock()

	if e.store != nil {
		if err := e.store.UpdateRule(ctx, &rule); err != nil {
			return apierrors.Database("update_rule", err)
		}
	}
	e.journalRuleChange(ctx, model.OpUpdate, rule.ID, &before, &rule)
	return nil
}

// ApplyRollbackValue restores priority/active/kind onto ruleID's live
// definition from a journaled old/new value map. It is registered with
// the Audit & Rollback Engine as the "RULE" entity applier, so executing
// a rollback against a rule change is observable on the rule cache
// itself, not only in the audit journal. It does not re-journal: the
// audit engine already records the compensating change record.
func (e *Engine) ApplyRollbackValue(ctx context.Context, ruleID string, value map[string]interface{}) error {
	e.rulesMu.Lock()
	rule, exists := e.rules[ruleID]
	if !exists {
		e.rulesMu.Unlock()
		return apierrors.NotFound("rule", ruleID)
	}
	if p, ok := value["priority"]; ok {
		if pr, ok := toPriority(p); ok {
			rule.Priority = pr
		}
	}
	if a, ok := value["active"].(bool); ok {
		rule.Active = a
	}
	if k, ok := value["kind"]; ok {
		if ks, ok := k.(string); ok {
			rule.Kind = model.RuleKind(ks)
		} else if kk, ok := k.(model.RuleKind); ok {
			rule.Kind = kk
		}
	}
	rule.UpdatedAt = time.Now()
	e.rules[ruleID] = rule
	e.rulesMu.Unlock()

	if e.store != nil {
		if err := e.store.UpdateRule(ctx, &rule); err != nil {
			return apierrors.Database("update_rule", err)
		}
	}
	return nil
}

// toPriority accepts a model.TaskPriority (in-process round trip) or any
// numeric JSON-decoded form (float64, int) of the same value.
func toPriority(v interface{}) (model.TaskPriority, bool) {
	switch t := v.(type) {
	case model.TaskPriority:
		return t, true
	case float64:
		return model.TaskPriority(int(t)), true
	case int:
		return model.TaskPriority(t), true
	}
	return 0, false
}

// DeactivateRule flips a rule's Active flag off without deleting it.
func (e *Engine) DeactivateRule(ctx context.Context, ruleID string) error {
	e.rulesMu.Lock()
	rule, exists := e.rules[ruleID]
	if !exists {
		e.rulesMu.Unlock()
		return apierrors.NotFound("rule", ruleID)
	}
	before := rule
	rule.Active = false
	rule.UpdatedAt = time.Now()
	e.rules[ruleID] = rule
	e.rulesMu.Unlock()

	if e.store != nil {
		if err := e.store.UpdateRule(ctx, &rule); err != nil {
			return apierrors.Database("update_rule", err)
		}
	}
	e.journalRuleChange(ctx, model.OpDisable, ruleID, &before, &rule)
	return nil
}

// DeleteRule removes a rule from the cache and the store.
func (e *Engine) DeleteRule(ctx context.Context, ruleID string) error {
	e.rulesMu.Lock()
	before, exists := e.rules[ruleID]
	if !exists {
		e.rulesMu.Unlock()
		return apierrors.NotFound("rule", ruleID)
	}
	delete(e.rules, ruleID)
	e.rulesMu.Unlock()

	if e.store != nil {
		if err := e.store.DeleteRule(ctx, ruleID); err != nil {
			return apierrors.Database("delete_rule", err)
		}
	}
	e.journalRuleChange(ctx, model.OpDelete, ruleID, &before, nil)
	return nil
}

// GetRule returns a cached rule definition.
func (e *Engine) GetRule(ruleID string) (model.RuleDefinition, bool) {
	e.rulesMu.RLock()
	defer e.rulesMu.RUnlock()
	r, ok := e.rules[ruleID]
	return r, ok
}

// GetActiveRules returns every Active rule, highest priority first.
func (e *Engine) GetActiveRules() []model.RuleDefinition {
	e.rulesMu.RLock()
	defer e.rulesMu.RUnlock()
	out := make([]model.RuleDefinition, 0, len(e.rules))
	for _, r := range e.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	sortByPriorityDesc(out)
	return out
}

// GetRulesByKind returns every rule of the given kind.
func (e *Engine) GetRulesByKind(kind model.RuleKind) []model.RuleDefinition {
	e.rulesMu.RLock()
	defer e.rulesMu.RUnlock()
	out := make([]model.RuleDefinition, 0)
	for _, r := range e.rules {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	sortByPriorityDesc(out)
	return out
}

func sortByPriorityDesc(rules []model.RuleDefinition) {
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })
}

func (e *Engine) validateRuleDefinition(rule model.RuleDefinition) error {
	if rule.ID == "" {
		return apierrors.Validation("rule_id is required")
	}
	if rule.Name == "" {
		return apierrors.Validation("name is required")
	}
	switch rule.Kind {
	case model.RuleKindValidation:
		if _, err := parseValidationConditions(rule.LogicTree); err != nil {
			return apierrors.Wrap(apierrors.CodeValidation, "invalid validation conditions", err)
		}
	case model.RuleKindScoring:
		if _, err := parseScoringFactors(rule.LogicTree); err != nil {
			return apierrors.Wrap(apierrors.CodeValidation, "invalid scoring factors", err)
		}
	case model.RuleKindPattern:
		if _, err := parsePatterns(rule.LogicTree); err != nil {
			return apierrors.Wrap(apierrors.CodeValidation, "invalid patterns", err)
		}
	case model.RuleKindML:
		// no structural requirements; ML is a placeholder path.
	default:
		return apierrors.Validation(fmt.Sprintf("unknown rule kind %q", rule.Kind))
	}
	return nil
}

func (e *Engine) journalRuleChange(ctx context.Context, op model.ChangeOperation, ruleID string, before, after *model.RuleDefinition) {
	if e.audit == nil {
		return
	}
	change := model.ChangeRecord{
		EntityKind: "RULE",
		EntityID:   ruleID,
		Operation:  op,
		ChangedAt:  time.Now(),
	}
	if before != nil {
		change.OldValue = map[string]interface{}{"priority": before.Priority, "active": before.Active, "kind": before.Kind}
	}
	if after != nil {
		change.NewValue = map[string]interface{}{"priority": after.Priority, "active": after.Active, "kind": after.Kind}
	}
	if _, err := e.audit.RecordChange(ctx, change); err != nil {
		e.logger.WithContext(ctx).WithError(err).Warn("failed to journal rule change")
	}
}

// ExecuteRule evaluates a single rule against an execution context.
func (e *Engine) ExecuteRule(ctx context.Context, rule model.RuleDefinition, ec ExecutionContext, mode ExecutionMode) model.RuleExecutionResult {
	start := time.Now()

	if skip, reason := e.shouldSkip(rule, ec.ExecutionTime); skip {
		return model.RuleExecutionResult{
			RuleID:      rule.ID,
			Outcome:     model.OutcomeSkipped,
			Risk:        model.RiskLow,
			ErrorMessage: reason,
		}
	}

	result := e.runWithTimeout(ctx, rule, ec)
	result.ExecutionDuration = time.Since(start)
	result.ExecutionDurationMs = result.ExecutionDuration.Milliseconds()

	e.recordMetrics(rule.ID, result)
	e.logger.LogRuleExecution(ctx, rule.ID, string(result.Outcome), result.ExecutionDuration)
	if e.m != nil {
		e.m.RuleExecutionsTotal.WithLabelValues(rule.ID, string(result.Outcome)).Inc()
		e.m.RuleExecutionDuration.WithLabelValues(rule.ID).Observe(result.ExecutionDuration.Seconds())
		if result.Outcome == model.OutcomeFail {
			e.m.RuleDetectionsTotal.WithLabelValues(rule.ID).Inc()
		}
	}
	return result
}

func (e *Engine) shouldSkip(rule model.RuleDefinition, at time.Time) (bool, string) {
	if at.IsZero() {
		at = time.Now()
	}
	if !rule.Active {
		return true, "rule is inactive"
	}
	if rule.ValidFrom != nil && at.Before(*rule.ValidFrom) {
		return true, "rule is not yet valid"
	}
	if rule.ValidUntil != nil && at.After(*rule.ValidUntil) {
		return true, "rule has expired"
	}
	return false, ""
}

func (e *Engine) runWithTimeout(ctx context.Context, rule model.RuleDefinition, ec ExecutionContext) model.RuleExecutionResult {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.cfg.ExecutionTimeout)
	defer cancel()

	type outcome struct {
		res model.RuleExecutionResult
	}
	ch := make(chan outcome, 1)

	go func() {
		ch <- outcome{res: e.executeByKind(timeoutCtx, rule, ec)}
	}()

	select {
	case o := <-ch:
		return o.res
	case <-timeoutCtx.Done():
		return model.RuleExecutionResult{
			RuleID:       rule.ID,
			Outcome:      model.OutcomeTimeout,
			Risk:         model.RiskLow,
			ErrorMessage: "rule execution timed out",
		}
	}
}

func (e *Engine) executeByKind(ctx context.Context, rule model.RuleDefinition, ec ExecutionContext) model.RuleExecutionResult {
	doc := combinedDocument(ec)

	var (
		ko  kindOutcome
		err error
	)

	switch rule.Kind {
	case model.RuleKindValidation:
		ko, err = evaluateValidation(rule.LogicTree, doc)
	case model.RuleKindScoring:
		ko, _, err = evaluateScoring(rule.LogicTree, doc)
	case model.RuleKindPattern:
		ko, err = evaluatePattern(rule.LogicTree, doc)
	case model.RuleKindML:
		pred, mlErr := e.mlRunner(ctx, rule, ec)
		if mlErr != nil {
			err = mlErr
			break
		}
		return model.RuleExecutionResult{
			RuleID:       rule.ID,
			Outcome:      pred.Outcome,
			Confidence:   pred.Confidence,
			Risk:         scoreToRiskLevel(pred.Confidence),
			ErrorMessage: pred.Diagnostic,
		}
	default:
		err = fmt.Errorf("unknown rule kind %q", rule.Kind)
	}

	if err != nil {
		return model.RuleExecutionResult{
			RuleID:       rule.ID,
			Outcome:      model.OutcomeError,
			Risk:         model.RiskLow,
			ErrorMessage: err.Error(),
		}
	}

	outcome := model.RuleOutcome(ko.outcome)
	confidence := calculateConfidence(outcome, rule.Priority)
	return model.RuleExecutionResult{
		RuleID:              rule.ID,
		Outcome:             outcome,
		Confidence:          confidence,
		Risk:                scoreToRiskLevel(confidence),
		Output:              ko.output,
		TriggeredConditions: ko.triggered,
	}
}

func (e *Engine) recordMetrics(ruleID string, result model.RuleExecutionResult) {
	if !e.cfg.EnablePerformanceMonitoring {
		return
	}
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()

	s, ok := e.ruleStats[ruleID]
	if !ok {
		s = &ruleMetrics{errorCounts: make(map[string]int)}
		e.ruleStats[ruleID] = s
	}
	s.totalExecutions++
	s.totalDurationMs += result.ExecutionDurationMs
	s.totalConfidence += result.Confidence
	s.lastExecution = time.Now()

	switch result.Outcome {
	case model.OutcomeError, model.OutcomeTimeout:
		s.failedExecutions++
		s.errorCounts[string(result.Outcome)]++
	default:
		s.successfulExecutions++
	}
	if result.Outcome == model.OutcomeFail {
		s.fraudDetections++
	}
}

// RuleMetricsSnapshot is the public view of get_rule_metrics.
type RuleMetricsSnapshot struct {
	RuleID               string    `json:"rule_id"`
	TotalExecutions      int       `json:"total_executions"`
	SuccessfulExecutions int       `json:"successful_executions"`
	FailedExecutions     int       `json:"failed_executions"`
	FraudDetections      int       `json:"fraud_detections"`
	AverageExecutionMs   float64   `json:"average_execution_time_ms"`
	AverageConfidence    float64   `json:"average_confidence_score"`
	LastExecution        time.Time `json:"last_execution"`
}

// GetRuleMetrics returns the performance snapshot for one rule.
func (e *Engine) GetRuleMetrics(ruleID string) (RuleMetricsSnapshot, bool) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	s, ok := e.ruleStats[ruleID]
	if !ok {
		return RuleMetricsSnapshot{}, false
	}
	return snapshotFrom(ruleID, s), true
}

// GetAllRuleMetrics returns every tracked rule's performance snapshot.
func (e *Engine) GetAllRuleMetrics() []RuleMetricsSnapshot {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	out := make([]RuleMetricsSnapshot, 0, len(e.ruleStats))
	for id, s := range e.ruleStats {
		out = append(out, snapshotFrom(id, s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out
}

func snapshotFrom(ruleID string, s *ruleMetrics) RuleMetricsSnapshot {
	snap := RuleMetricsSnapshot{RuleID: ruleID, TotalExecutions: s.totalExecutions, SuccessfulExecutions: s.successfulExecutions, FailedExecutions: s.failedExecutions, FraudDetections: s.fraudDetections, LastExecution: s.lastExecution}
	if s.totalExecutions > 0 {
		snap.AverageExecutionMs = float64(s.totalDurationMs) / float64(s.totalExecutions)
		snap.AverageConfidence = s.totalConfidence / float64(s.totalExecutions)
	}
	return snap
}

// ResetRuleMetrics clears performance counters for ruleID, or every rule
// if ruleID is empty.
func (e *Engine) ResetRuleMetrics(ruleID string) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	if ruleID == "" {
		e.ruleStats = make(map[string]*ruleMetrics)
		return
	}
	delete(e.ruleStats, ruleID)
}

// OptimizeRuleExecution re-sorts no persistent state (the active-rule
// view is always computed fresh), but rule authors can call this to
// force a metrics-informed re-evaluation of execution order: rules with
// higher average execution time are logged so operators can split or
// simplify them. This does not reorder the rule_id -> RuleDefinition
// cache, since GetActiveRules already sorts by priority on every call.
func (e *Engine) OptimizeRuleExecution(ctx context.Context) {
	for _, snap := range e.GetAllRuleMetrics() {
		if snap.AverageExecutionMs > float64(e.cfg.ExecutionTimeout.Milliseconds())/2 {
			e.logger.WithContext(ctx).WithFields(map[string]interface{}{
				"rule_id":      snap.RuleID,
				"avg_duration": snap.AverageExecutionMs,
			}).Warn("rule execution time trending toward timeout")
		}
	}
}

// EvaluateTransaction loads the named rules (or every active rule),
// executes each, and aggregates the results into a FraudDetectionResult.
func (e *Engine) EvaluateTransaction(ctx context.Context, ec ExecutionContext, ruleIDs []string) model.FraudDetectionResult {
	start := time.Now()
	ec = e.resolveMetricQueries(ctx, ec)

	var rules []model.RuleDefinition
	if len(ruleIDs) > 0 {
		e.rulesMu.RLock()
		for _, id := range ruleIDs {
			if r, ok := e.rules[id]; ok {
				rules = append(rules, r)
			}
		}
		e.rulesMu.RUnlock()
		sortByPriorityDesc(rules)
	} else {
		rules = e.GetActiveRules()
	}

	results := make([]model.RuleExecutionResult, len(rules))
	sem := make(chan struct{}, e.cfg.MaxParallelExecutions)
	var wg sync.WaitGroup
	for i, rule := range rules {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rule model.RuleDefinition) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.ExecuteRule(ctx, rule, ec, ModeSynchronous)
		}(i, rule)
	}
	wg.Wait()

	var failedIDs []string
	for _, r := range results {
		if r.Outcome == model.OutcomeFail {
			failedIDs = append(failedIDs, r.RuleID)
		}
	}

	score := calculateAggregatedScore(results)
	risk := scoreToRiskLevel(score)
	flagged := len(failedIDs) > 0
	recommendation := recommendationForRisk(flagged, risk)

	txID := ec.TransactionID
	if txID == "" {
		txID = uuid.NewString()
	}

	fd := model.FraudDetectionResult{
		TransactionID:  txID,
		IsFlagged:      flagged,
		OverallRisk:    risk,
		FraudScore:     score,
		PerRuleResults: results,
		AggregatedFindings: map[string]interface{}{
			"failed_rule_ids": failedIDs,
			"rule_count":      len(results),
		},
		Recommendation:   recommendation,
		DetectionTime:    time.Now(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	if e.audit != nil {
		change := model.ChangeRecord{
			EntityKind: "transaction_evaluation",
			EntityID:   txID,
			Operation:  model.OpCreate,
			Impact:     model.ImpactLow,
			NewValue:   map[string]interface{}{"recommendation": recommendation, "fraud_score": score},
			ChangedAt:  time.Now(),
		}
		if _, err := e.audit.RecordChange(ctx, change); err != nil {
			e.logger.WithContext(ctx).WithError(err).Warn("failed to journal transaction evaluation")
		}
	}

	return fd
}
