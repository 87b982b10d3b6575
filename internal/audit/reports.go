package audit

import (
	"context"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/model"
)

// AuditReport summarizes journal activity over a window, optionally
// scoped to one entity kind.
type AuditReport struct {
	WindowDays     int                    `json:"window_days"`
	EntityKind     string                 `json:"entity_kind,omitempty"`
	TotalChanges   int                    `json:"total_changes"`
	ByOperation    map[string]int         `json:"by_operation"`
	ByImpact       map[string]int         `json:"by_impact"`
	ApprovalsPending int                  `json:"approvals_pending"`
	GeneratedAt    time.Time              `json:"generated_at"`
	Changes        []model.ChangeRecord  `json:"changes,omitempty"`
}

// GenerateAuditReport tallies every change in the last `days` days,
// optionally filtered to a single entity kind.
func (e *Engine) GenerateAuditReport(ctx context.Context, days int, entityKind string) (*AuditReport, error) {
	all, err := e.gateway.ListAllChanges(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	report := &AuditReport{
		WindowDays:  days,
		EntityKind:  entityKind,
		ByOperation: make(map[string]int),
		ByImpact:    make(map[string]int),
		GeneratedAt: time.Now(),
	}
	for _, c := range all {
		if c.ChangedAt.Before(cutoff) {
			continue
		}
		if entityKind != "" && c.EntityKind != entityKind {
			continue
		}
		report.TotalChanges++
		report.ByOperation[string(c.Operation)]++
		report.ByImpact[string(c.Impact)]++
		if c.RequiresApproval && !c.Approved {
			report.ApprovalsPending++
		}
		report.Changes = append(report.Changes, c)
	}
	return report, nil
}

// ComplianceCertification is a narrower attestation-style summary: it
// asserts that every high-impact change in the window was approved.
type ComplianceCertification struct {
	WindowDays          int       `json:"window_days"`
	HighImpactChanges   int       `json:"high_impact_changes"`
	UnapprovedHighImpact int      `json:"unapproved_high_impact"`
	Certified           bool      `json:"certified"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// GenerateComplianceCertification reports whether every CRITICAL/HIGH
// change in the window carries an approval.
func (e *Engine) GenerateComplianceCertification(ctx context.Context, days int) (*ComplianceCertification, error) {
	highImpact, err := e.ListHighImpact(ctx, days)
	if err != nil {
		return nil, err
	}
	cert := &ComplianceCertification{
		WindowDays:        days,
		HighImpactChanges: len(highImpact),
		GeneratedAt:       time.Now(),
	}
	for _, c := range highImpact {
		if c.RequiresApproval && !c.Approved {
			cert.UnapprovedHighImpact++
		}
	}
	cert.Certified = cert.UnapprovedHighImpact == 0
	return cert, nil
}

// SOC2Report adds the access-control and change-management narrative
// sections a SOC 2 Type II evidence request typically asks for, built
// entirely from journal data already captured.
type SOC2Report struct {
	WindowDays         int            `json:"window_days"`
	TotalChanges       int            `json:"total_changes"`
	ChangesByUser      map[string]int `json:"changes_by_user"`
	RollbacksExecuted  int            `json:"rollbacks_executed"`
	RollbacksCancelled int            `json:"rollbacks_cancelled"`
	GeneratedAt        time.Time      `json:"generated_at"`
}

// GenerateSOC2Report adds per-user change attribution and a count of
// executed rollbacks (compensating records in the window) on top of
// GenerateAuditReport's totals. RollbacksCancelled is not computed and is
// always zero.
func (e *Engine) GenerateSOC2Report(ctx context.Context, days int) (*SOC2Report, error) {
	base, err := e.GenerateAuditReport(ctx, days, "")
	if err != nil {
		return nil, err
	}

	report := &SOC2Report{
		WindowDays:    days,
		TotalChanges:  base.TotalChanges,
		ChangesByUser: make(map[string]int),
		GeneratedAt:   time.Now(),
	}
	for _, c := range base.Changes {
		report.ChangesByUser[c.UserID]++
		if c.Metadata != nil {
			if _, ok := c.Metadata["compensates"]; ok {
				report.RollbacksExecuted++
			}
		}
	}
	return report, nil
}
