package mocks

import (
	"context"
	"time"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
)

// AuditLog is a mock implementation of ports.AuditLog.
type AuditLog struct {
	Entries []entities.AuditEntry
	Err     error
}

// LogAction appends an entry.
func (m *AuditLog) LogAction(_ context.Context, action string, subjectID string, details map[string]any) error {
	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, entities.AuditEntry{
		ID:        int64(len(m.Entries) + 1),
		Action:    action,
		SubjectID: subjectID,
		Details:   details,
		CreatedAt: time.Now(),
	})
	return nil
}

// FindAuditLogByAction returns matching entries, newest first.
func (m *AuditLog) FindAuditLogByAction(_ context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for i := len(m.Entries) - 1; i >= 0; i-- {
		e := m.Entries[i]
		if action != "" && e.Action != action {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// FindAuditLog returns entries for subjectID, newest first.
func (m *AuditLog) FindAuditLog(_ context.Context, subjectID string) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var result []entities.AuditEntry
	for i := len(m.Entries) - 1; i >= 0; i-- {
		if m.Entries[i].SubjectID == subjectID {
			result = append(result, m.Entries[i])
		}
	}
	return result, nil
}
