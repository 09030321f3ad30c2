package handlers

import (
	"context"
	"errors"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/domain/services"
)

// AdminHandler exposes the moderation use cases. Every call except
// HandleUnlock needs a session token.
type AdminHandler struct {
	auth       *services.AuthService
	moderation *services.ModerationService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(auth *services.AuthService, moderation *services.ModerationService) *AdminHandler {
	return &AdminHandler{
		auth:       auth,
		moderation: moderation,
	}
}

// HandleUnlock exchanges the admin password for a session.
func (h *AdminHandler) HandleUnlock(password string) (*entities.Session, error) {
	return h.auth.Unlock(password)
}

// HandleLock ends a session.
func (h *AdminHandler) HandleLock(token string) {
	h.auth.Lock(token)
}

// QueueResult contains the pending submissions.
type QueueResult struct {
	Submissions []entities.Submission `json:"submissions"`
	Total       int                   `json:"total"`
}

// HandleQueue returns pending submissions, newest first.
func (h *AdminHandler) HandleQueue(ctx context.Context, token string) (*QueueResult, error) {
	subs, err := h.moderation.Queue(ctx, token)
	if err != nil {
		return nil, err
	}
	return &QueueResult{Submissions: subs, Total: len(subs)}, nil
}

// DecisionResult describes the outcome of approve or reject.
type DecisionResult struct {
	SubmissionID string          `json:"submission_id"`
	Action       string          `json:"action"`
	Entry        *entities.Entry `json:"entry,omitempty"`
	// Applied is false when the submission was already handled.
	Applied bool `json:"applied"`
	// Warning is set when the decision was stored but not audited.
	Warning string `json:"warning,omitempty"`
}

// auditWarning turns an audit failure into a warning on an applied
// decision. Any other error is returned unchanged.
func auditWarning(err error) (string, error) {
	var auditErr *services.AuditError
	if errors.As(err, &auditErr) {
		return auditErr.Error(), nil
	}
	return "", err
}

// HandleApprove publishes a submission as an entry.
func (h *AdminHandler) HandleApprove(ctx context.Context, token, submissionID string) (*DecisionResult, error) {
	entry, err := h.moderation.Approve(ctx, token, submissionID)
	warning, err := auditWarning(err)
	if err != nil {
		return nil, err
	}
	return &DecisionResult{
		SubmissionID: submissionID,
		Action:       entities.ActionApproved,
		Entry:        entry,
		Applied:      entry != nil,
		Warning:      warning,
	}, nil
}

// HandleReject discards a submission.
func (h *AdminHandler) HandleReject(ctx context.Context, token, submissionID string) (*DecisionResult, error) {
	removed, err := h.moderation.Reject(ctx, token, submissionID)
	warning, err := auditWarning(err)
	if err != nil {
		return nil, err
	}
	return &DecisionResult{
		SubmissionID: submissionID,
		Action:       entities.ActionRejected,
		Applied:      removed,
		Warning:      warning,
	}, nil
}

// HandleHistory returns recent moderation decisions.
func (h *AdminHandler) HandleHistory(ctx context.Context, token, action string, limit int) ([]entities.AuditEntry, error) {
	return h.moderation.History(ctx, token, action, limit)
}

// HandleSubmissionHistory returns the decisions recorded for one submission.
func (h *AdminHandler) HandleSubmissionHistory(ctx context.Context, token, submissionID string) ([]entities.AuditEntry, error) {
	return h.moderation.SubmissionHistory(ctx, token, submissionID)
}
