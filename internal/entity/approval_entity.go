package entity

import (
	"fmt"
	"time"
)

// ApprovalStatus is the steward decision on one recommended source.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// MinRequiredApprovals gates phase advancement out of recommendations.
const MinRequiredApprovals = 1

// ApprovalKey builds the map key for a source approval.
func ApprovalKey(sourceType SourceType, sourceId string) string {
	return fmt.Sprintf("%s:%s", sourceType, sourceId)
}

// SourceApproval tracks the decision state of one recommended source.
// Reason is required iff the status is rejected.
type SourceApproval struct {
	SourceType SourceType             `json:"source_type"`
	SourceId   string                 `json:"source_id"`
	Status     ApprovalStatus         `json:"status"`
	Reason     string                 `json:"reason,omitempty"`
	DecidedAt  *time.Time             `json:"decided_at,omitempty"`
	Actor      string                 `json:"actor,omitempty"`
	Settings   map[string]interface{} `json:"settings,omitempty"`
}

// AuditEntry is one record of the append-only approval audit trail. Entries
// are appended strictly in call-invocation order and never mutated.
type AuditEntry struct {
	Timestamp      time.Time      `json:"timestamp"`
	SourceType     SourceType     `json:"source_type,omitempty"`
	SourceId       string         `json:"source_id,omitempty"`
	Action         string         `json:"action"`
	Reason         string         `json:"reason,omitempty"`
	Actor          string         `json:"actor,omitempty"`
	PreviousStatus ApprovalStatus `json:"previous_status,omitempty"`
}

// ApprovalSummary tallies decisions by status and by source type.
type ApprovalSummary struct {
	Total         int                `json:"total"`
	Approved      int                `json:"approved"`
	Rejected      int                `json:"rejected"`
	Pending       int                `json:"pending"`
	ByType        map[SourceType]int `json:"by_type"`
	ApprovedTypes map[SourceType]int `json:"approved_by_type"`
	CanProceed    bool               `json:"can_proceed"`
}

// SummarizeApprovals recomputes the summary from the approval map.
// CanProceed holds exactly when approved count reaches the gate minimum.
func SummarizeApprovals(approvals map[string]*SourceApproval) *ApprovalSummary {
	summary := &ApprovalSummary{
		ByType:        make(map[SourceType]int),
		ApprovedTypes: make(map[SourceType]int),
	}
	for _, a := range approvals {
		summary.Total++
		summary.ByType[a.SourceType]++
		switch a.Status {
		case ApprovalApproved:
			summary.Approved++
			summary.ApprovedTypes[a.SourceType]++
		case ApprovalRejected:
			summary.Rejected++
		default:
			summary.Pending++
		}
	}
	summary.CanProceed = summary.Approved >= MinRequiredApprovals
	return summary
}
