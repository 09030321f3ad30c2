package ports

import (
	"context"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
)

// AuditLog records moderation decisions.
type AuditLog interface {
	// LogAction logs an action to the audit log.
	LogAction(ctx context.Context, action string, subjectID string, details map[string]any) error

	// FindAuditLog finds audit log entries for a specific subject, newest first.
	FindAuditLog(ctx context.Context, subjectID string) ([]entities.AuditEntry, error)

	// FindAuditLogByAction finds audit log entries by action type, newest first.
	// An empty action matches every entry.
	FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error)
}
