// Package store defines the Store Gateway: the platform's abstraction
// over durable persistence for every entity the compliance platform
// tracks. An in-memory implementation backs tests and local development;
// production deployments supply their own Gateway.
package store

import (
	"context"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// RuleGateway persists rule definitions.
type RuleGateway interface {
	GetRule(ctx context.Context, id string) (*model.RuleDefinition, error)
	ListRules(ctx context.Context, onlyEnabled bool) ([]model.RuleDefinition, error)
	CreateRule(ctx context.Context, rule *model.RuleDefinition) error
	UpdateRule(ctx context.Context, rule *model.RuleDefinition) error
	DeleteRule(ctx context.Context, id string) error
}

// AgentGateway persists agent registrations.
type AgentGateway interface {
	GetAgent(ctx context.Context, id string) (*model.AgentRegistration, error)
	ListAgents(ctx context.Context) ([]model.AgentRegistration, error)
	UpsertAgent(ctx context.Context, agent *model.AgentRegistration) error
	DeleteAgent(ctx context.Context, id string) error
}

// TaskGateway persists agent tasks.
type TaskGateway interface {
	GetTask(ctx context.Context, id string) (*model.AgentTask, error)
	ListTasks(ctx context.Context, status model.TaskStatus, limit int) ([]model.AgentTask, error)
	CreateTask(ctx context.Context, task *model.AgentTask) error
	UpdateTask(ctx context.Context, task *model.AgentTask) error
}

// AuditGateway persists change records and entity snapshots for the
// Audit & Rollback Engine.
type AuditGateway interface {
	AppendChange(ctx context.Context, change *model.ChangeRecord) error
	GetChange(ctx context.Context, id string) (*model.ChangeRecord, error)
	ListChanges(ctx context.Context, entityKind, entityID string) ([]model.ChangeRecord, error)
	ListAllChanges(ctx context.Context) ([]model.ChangeRecord, error)
	UpdateChange(ctx context.Context, change *model.ChangeRecord) error

	PutSnapshot(ctx context.Context, snap *model.EntitySnapshot) error
	GetSnapshot(ctx context.Context, entityKind, entityID string, version int) (*model.EntitySnapshot, error)
	LatestSnapshot(ctx context.Context, entityKind, entityID string) (*model.EntitySnapshot, error)
	ListSnapshots(ctx context.Context, entityKind, entityID string) ([]model.EntitySnapshot, error)

	CreateRollback(ctx context.Context, rb *model.RollbackRequest) error
	UpdateRollback(ctx context.Context, rb *model.RollbackRequest) error
	GetRollback(ctx context.Context, id string) (*model.RollbackRequest, error)
}

// TranslationRuleGateway persists translation rules for the Message
// Translator.
type TranslationRuleGateway interface {
	GetTranslationRule(ctx context.Context, id string) (*model.TranslationRule, error)
	ListTranslationRules(ctx context.Context) ([]model.TranslationRule, error)
	UpsertTranslationRule(ctx context.Context, rule *model.TranslationRule) error
	DeleteTranslationRule(ctx context.Context, id string) error
}

// Gateway is the full persistence surface used by the platform. Service
// packages depend on the narrower per-entity interfaces above where
// possible; cmd/server wires a single concrete Gateway implementing all
// of them.
type Gateway interface {
	RuleGateway
	AgentGateway
	TaskGateway
	AuditGateway
	TranslationRuleGateway

	// HealthCheck verifies connectivity to the underlying store.
	HealthCheck(ctx context.Context) error
}

var _ Gateway = (*MemoryGateway)(nil)
