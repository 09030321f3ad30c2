package entities

import "time"

// Moderation actions recorded in the audit log.
const (
	ActionApproved = "submission.approved"
	ActionRejected = "submission.rejected"
)

// AuditEntry represents a logged moderation decision.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	SubjectID string         `json:"subject_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
