// Package model holds the data types shared across every subsystem of the
// compliance platform: events, tasks, agents, rules, messages, WebSocket
// connections, and audit records.
package model

import "time"

// EventSeverity tags a ComplianceEvent's urgency.
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityCritical EventSeverity = "CRITICAL"
)

// ComplianceEvent is a typed, severity-tagged, timestamped record
// describing a regulatory change, transaction, or health ping. Immutable
// once created.
type ComplianceEvent struct {
	ID         string                 `json:"id"`
	Kind       string                 `json:"kind"`
	Severity   EventSeverity          `json:"severity"`
	Source     string                 `json:"source"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// TaskPriority orders tasks within the queue; higher runs first.
type TaskPriority int

const (
	PriorityLow      TaskPriority = 0
	PriorityNormal   TaskPriority = 1
	PriorityHigh     TaskPriority = 2
	PriorityCritical TaskPriority = 3
)

// PriorityRank returns the 1..4 rank used by confidence scoring
// (CRITICAL=4 .. LOW=1).
func (p TaskPriority) PriorityRank() int { return int(p) + 1 }

// TaskStatus is the lifecycle state of an AgentTask.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskAssigned  TaskStatus = "ASSIGNED"
	TaskRunning   TaskStatus = "RUNNING"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
)

// AgentTask is a unit of work owned by the task queue until dispatched.
// Invariants: ID is process-unique; Deadline >= creation time.
type AgentTask struct {
	ID         string          `json:"task_id"`
	AgentType  string          `json:"agent_type"`
	Event      ComplianceEvent `json:"event"`
	Priority   TaskPriority    `json:"priority"`
	Deadline   time.Time       `json:"deadline"`
	Status     TaskStatus      `json:"status"`
	AssignedTo string          `json:"assigned_to,omitempty"`
	Result     map[string]interface{} `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	// ProcessingTimeMs is wall-clock execution time once the task
	// completes, in milliseconds. Resolves spec.md's "processing_duration"
	// open question in favor of an integer, never a suffixed string.
	ProcessingTimeMs int64 `json:"processing_time_ms,omitempty"`
}

// AgentCapabilities is consulted by the router to decide routing.
type AgentCapabilities struct {
	SupportedEventKinds []string `json:"supported_event_kinds"`
	SupportedActions    []string `json:"supported_actions"`
	KnowledgeDomains    []string `json:"knowledge_domains"`
	RealTimeCapable     bool     `json:"real_time_capable"`
	BatchCapable        bool     `json:"batch_capable"`
	MaxConcurrentTasks  int      `json:"max_concurrent_tasks"`
}

// Supports reports whether these capabilities cover the given event kind.
func (c AgentCapabilities) Supports(eventKind string) bool {
	for _, k := range c.SupportedEventKinds {
		if k == eventKind {
			return true
		}
	}
	return false
}

// AgentState is the lifecycle state of a registered agent.
type AgentState string

const (
	AgentInitializing AgentState = "INITIALIZING"
	AgentReady        AgentState = "READY"
	AgentActive       AgentState = "ACTIVE"
	AgentBusy         AgentState = "BUSY"
	AgentError        AgentState = "ERROR"
	AgentShutdown     AgentState = "SHUTDOWN"
	AgentMaintenance  AgentState = "MAINTENANCE"
)

// AgentHealth is the health tier derived from consecutive check failures.
type AgentHealth string

const (
	HealthHealthy     AgentHealth = "HEALTHY"
	HealthDegraded    AgentHealth = "DEGRADED"
	HealthUnhealthy   AgentHealth = "UNHEALTHY"
	HealthCritical    AgentHealth = "CRITICAL"
)

// AgentStatus is the live status of a registered agent. Health transitions
// are monotone within a check interval: two consecutive failures degrade,
// five fail the component.
type AgentStatus struct {
	State               AgentState             `json:"state"`
	Health              AgentHealth            `json:"health"`
	Metrics             map[string]interface{} `json:"metrics,omitempty"`
	LastError           string                 `json:"last_error,omitempty"`
	LastHealthCheckTime time.Time              `json:"last_health_check_time"`
	Enabled             bool                   `json:"enabled"`
	ConsecutiveFailures int                    `json:"-"`
}

// AgentRegistration is registered at most once per AgentType; disabling
// preserves the registration.
type AgentRegistration struct {
	AgentType    string            `json:"agent_type"`
	DisplayName  string            `json:"display_name"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Status       AgentStatus       `json:"status"`
	RegisteredAt time.Time         `json:"registered_at"`
}

// RuleKind selects the execution path a RuleDefinition takes.
type RuleKind string

const (
	RuleKindValidation RuleKind = "VALIDATION"
	RuleKindScoring    RuleKind = "SCORING"
	RuleKindPattern    RuleKind = "PATTERN"
	RuleKindML         RuleKind = "ML"
)

// RuleDefinition's identity is ID; updates bump UpdatedAt. A rule with
// ValidUntil in the past never fires.
type RuleDefinition struct {
	ID           string                 `json:"rule_id"`
	Name         string                 `json:"name"`
	Priority     TaskPriority           `json:"priority"`
	Kind         RuleKind               `json:"kind"`
	LogicTree    map[string]interface{} `json:"logic_tree"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	InputFields  []string               `json:"input_fields,omitempty"`
	OutputFields []string               `json:"output_fields,omitempty"`
	Active       bool                   `json:"active"`
	ValidFrom    *time.Time             `json:"valid_from,omitempty"`
	ValidUntil   *time.Time             `json:"valid_until,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// RuleOutcome is the verdict of a single rule execution.
type RuleOutcome string

const (
	OutcomePass    RuleOutcome = "PASS"
	OutcomeFail    RuleOutcome = "FAIL"
	OutcomeError   RuleOutcome = "ERROR"
	OutcomeTimeout RuleOutcome = "TIMEOUT"
	OutcomeSkipped RuleOutcome = "SKIPPED"
)

// RiskLevel buckets a confidence or aggregated score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RuleExecutionResult is the outcome of evaluating one rule against one
// execution context.
type RuleExecutionResult struct {
	RuleID             string                 `json:"rule_id"`
	Outcome            RuleOutcome            `json:"outcome"`
	Confidence         float64                `json:"confidence"`
	Risk               RiskLevel              `json:"risk"`
	Output             map[string]interface{} `json:"output,omitempty"`
	TriggeredConditions []string              `json:"triggered_conditions,omitempty"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
	ExecutionDuration  time.Duration          `json:"-"`
	ExecutionDurationMs int64                 `json:"execution_duration_ms"`
}

// Recommendation is the action the platform suggests given a risk level.
type Recommendation string

const (
	RecommendApprove Recommendation = "APPROVE"
	RecommendReview  Recommendation = "REVIEW"
	RecommendBlock   Recommendation = "BLOCK"
)

// FraudDetectionResult aggregates every rule's verdict on one transaction
// into a single risk score and recommendation. IsFlagged holds iff any
// rule FAILed.
type FraudDetectionResult struct {
	TransactionID      string                 `json:"transaction_id"`
	IsFlagged          bool                   `json:"is_flagged"`
	OverallRisk        RiskLevel              `json:"overall_risk"`
	FraudScore         float64                `json:"fraud_score"`
	PerRuleResults     []RuleExecutionResult  `json:"per_rule_results"`
	AggregatedFindings map[string]interface{} `json:"aggregated_findings,omitempty"`
	Recommendation     Recommendation         `json:"recommendation"`
	DetectionTime      time.Time              `json:"detection_time"`
	ProcessingTimeMs   int64                  `json:"processing_time_ms"`
}

// MessageKind classifies a MessageHeader.
type MessageKind string

const (
	MessageRequest      MessageKind = "REQUEST"
	MessageResponse     MessageKind = "RESPONSE"
	MessageNotification MessageKind = "NOTIFICATION"
	MessageError        MessageKind = "ERROR"
	MessageHeartbeat    MessageKind = "HEARTBEAT"
	MessageAck          MessageKind = "ACK"
)

// MessageHeader is the protocol-agnostic envelope the Message Translator
// normalizes every inbound/outbound message into.
type MessageHeader struct {
	MessageID       string            `json:"message_id"`
	CorrelationID   string            `json:"correlation_id,omitempty"`
	Kind            MessageKind       `json:"message_kind"`
	SourceProtocol  string            `json:"source_protocol"`
	TargetProtocol  string            `json:"target_protocol"`
	Timestamp       time.Time         `json:"timestamp"`
	SenderID        string            `json:"sender_id"`
	RecipientID     string            `json:"recipient_id,omitempty"`
	Priority        int               `json:"priority"`
	CustomHeaders   map[string]string `json:"custom_headers,omitempty"`
}

// TranslationRule names a pairwise protocol conversion the translator can
// perform. Higher Priority wins; Bidirectional rules match either
// direction.
type TranslationRule struct {
	ID                 string                 `json:"rule_id"`
	Name               string                 `json:"name"`
	FromProtocol       string                 `json:"from_protocol"`
	ToProtocol         string                 `json:"to_protocol"`
	TransformationSpec TransformationSpec     `json:"transformation_spec"`
	Bidirectional      bool                   `json:"bidirectional"`
	Priority           int                    `json:"priority"`
	Active             bool                   `json:"active"`
}

// TransformationSpec is the field-mapping/value-transform payload applied
// by a TranslationRule.
type TransformationSpec struct {
	FieldMappings        map[string]string `json:"field_mappings,omitempty"`
	ValueTransformations map[string]string `json:"value_transformations,omitempty"`
}

// ConnectionState is the lifecycle of a pooled WebSocket connection.
type ConnectionState string

const (
	ConnConnecting    ConnectionState = "CONNECTING"
	ConnConnected     ConnectionState = "CONNECTED"
	ConnAuthenticated ConnectionState = "AUTHENTICATED"
	ConnDisconnecting ConnectionState = "DISCONNECTING"
	ConnDisconnected  ConnectionState = "DISCONNECTED"
)

// ChangeOperation is the kind of mutation a ChangeRecord journals.
type ChangeOperation string

const (
	OpCreate  ChangeOperation = "CREATE"
	OpUpdate  ChangeOperation = "UPDATE"
	OpDelete  ChangeOperation = "DELETE"
	OpEnable  ChangeOperation = "ENABLE"
	OpDisable ChangeOperation = "DISABLE"
	OpDeploy  ChangeOperation = "DEPLOY"
	OpApprove ChangeOperation = "APPROVE"
	OpReject  ChangeOperation = "REJECT"
)

// ChangeImpact is the severity bucket of a ChangeRecord. DELETE is always
// CRITICAL impact.
type ChangeImpact string

const (
	ImpactLow      ChangeImpact = "LOW"
	ImpactMedium   ChangeImpact = "MEDIUM"
	ImpactHigh     ChangeImpact = "HIGH"
	ImpactCritical ChangeImpact = "CRITICAL"
)

// ChangeRecord is a single journaled mutation to a tracked entity.
type ChangeRecord struct {
	ID               string                 `json:"change_id"`
	UserID           string                 `json:"user_id"`
	EntityKind       string                 `json:"entity_kind"`
	EntityID         string                 `json:"entity_id"`
	Operation        ChangeOperation        `json:"operation"`
	Impact           ChangeImpact           `json:"impact"`
	OldValue         map[string]interface{} `json:"old_value,omitempty"`
	NewValue         map[string]interface{} `json:"new_value,omitempty"`
	Diff             map[string]interface{} `json:"diff,omitempty"`
	Reason           string                 `json:"reason,omitempty"`
	ApprovalRef      string                 `json:"approval_ref,omitempty"`
	RequiresApproval bool                   `json:"requires_approval"`
	Approved         bool                   `json:"approved"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	ChangedAt        time.Time              `json:"changed_at"`
	ApprovedAt       *time.Time             `json:"approved_at,omitempty"`
}

// EntitySnapshot is a point-in-time capture of an entity's full state.
// Invariant: for a given (EntityKind, EntityID) the VersionNumber values
// are a gap-free ascending sequence of positive integers.
type EntitySnapshot struct {
	ID            string                 `json:"snapshot_id"`
	EntityKind    string                 `json:"entity_kind"`
	EntityID      string                 `json:"entity_id"`
	VersionNumber int                    `json:"version_number"`
	State         map[string]interface{} `json:"state"`
	CreatedBy     string                 `json:"created_by"`
	CreatedAt     time.Time              `json:"created_at"`
	Active        bool                   `json:"active"`
}

// RollbackStatus is the lifecycle of a RollbackRequest.
type RollbackStatus string

const (
	RollbackPending   RollbackStatus = "PENDING"
	RollbackApproved  RollbackStatus = "APPROVED"
	RollbackExecuting RollbackStatus = "EXECUTING"
	RollbackCompleted RollbackStatus = "COMPLETED"
	RollbackFailed    RollbackStatus = "FAILED"
	RollbackCancelled RollbackStatus = "CANCELLED"
)

// RollbackRequest asks the Audit & Rollback Engine to reverse a change.
// Invariant: if DependentChangeIDs is non-empty, rollback cannot proceed
// without either rolling them back first or an explicit override.
type RollbackRequest struct {
	ID                  string                 `json:"rollback_id"`
	Requester           string                 `json:"requester"`
	TargetChangeID      string                 `json:"target_change_id"`
	Reason              string                 `json:"reason"`
	DependentChangeIDs  []string               `json:"dependent_change_ids,omitempty"`
	RequiresApproval    bool                   `json:"requires_approval"`
	Status              RollbackStatus         `json:"status"`
	Result              map[string]interface{} `json:"result,omitempty"`
	CompensatingChangeID string                `json:"compensating_change_id,omitempty"`
	RequestedAt         time.Time              `json:"requested_at"`
	ResolvedAt          *time.Time             `json:"resolved_at,omitempty"`
}

// CircuitBreakerState mirrors the resilience package's State for API
// responses that report breaker health without importing resilience
// directly.
type CircuitBreakerState string

const (
	BreakerClosed   CircuitBreakerState = "CLOSED"
	BreakerOpen     CircuitBreakerState = "OPEN"
	BreakerHalfOpen CircuitBreakerState = "HALF_OPEN"
)

// WebSocketConnection is a single pooled connection owned by the
// WebSocket Fabric. The fabric counts MessagesSent as frames are written
// and resets FailedPings on pong; it never increments FailedPings and
// does not update MessagesReceived.
type WebSocketConnection struct {
	ID               string          `json:"connection_id"`
	UserID           string          `json:"user_id"`
	SessionID        string          `json:"session_id"`
	State            ConnectionState `json:"state"`
	ConnectedAt      time.Time       `json:"connected_at"`
	LastHeartbeatAt  time.Time       `json:"last_heartbeat_at"`
	Subscriptions    []string        `json:"subscriptions"`
	FailedPings      int             `json:"failed_pings"`
	MessagesSent     int64           `json:"messages_sent"`
	MessagesReceived int64           `json:"messages_received"`
}

// WSMessageType enumerates the frame types defined by the platform's
// WebSocket wire contract.
type WSMessageType string

const (
	WSConnectionEstablished  WSMessageType = "CONNECTION_ESTABLISHED"
	WSHeartbeat              WSMessageType = "HEARTBEAT"
	WSSubscribe              WSMessageType = "SUBSCRIBE"
	WSUnsubscribe            WSMessageType = "UNSUBSCRIBE"
	WSBroadcast              WSMessageType = "BROADCAST"
	WSDirectMessage          WSMessageType = "DIRECT_MESSAGE"
	WSSessionUpdate          WSMessageType = "SESSION_UPDATE"
	WSRuleEvaluationResult   WSMessageType = "RULE_EVALUATION_RESULT"
	WSDecisionAnalysisResult WSMessageType = "DECISION_ANALYSIS_RESULT"
	WSConsensusUpdate        WSMessageType = "CONSENSUS_UPDATE"
	WSLearningFeedback       WSMessageType = "LEARNING_FEEDBACK"
	WSAlert                  WSMessageType = "ALERT"
	WSError                  WSMessageType = "ERROR"
)

// WSFrame is the JSON payload carried over every WebSocket message, per
// spec.md's external interface contract.
type WSFrame struct {
	MessageID              string                 `json:"message_id"`
	Type                   WSMessageType          `json:"type"`
	SenderID               string                 `json:"sender_id"`
	RecipientID            string                 `json:"recipient_id,omitempty"`
	Payload                map[string]interface{} `json:"payload,omitempty"`
	RequiresAcknowledgment bool                   `json:"requires_acknowledgment"`
}

// ConsensusVote is a single agent's vote in a collaborative decision.
type ConsensusVote struct {
	AgentID    string  `json:"agent_id"`
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// ConsensusResult is the outcome of a weighted collaborative decision.
type ConsensusResult struct {
	SessionID     string          `json:"session_id"`
	Votes         []ConsensusVote `json:"votes"`
	WinningOption string          `json:"winning_option"`
	Score         float64         `json:"score"`
	ReachedAt     time.Time       `json:"reached_at"`
}
