package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/domain/ports"
)

// Curator fields given to entries created by approval.
const (
	ApprovedVerdict  = entities.VerdictLikely
	PendingEvidence  = "Curator evidence pending"
	PendingContext   = "Context pending curator review"
	defaultHistorySz = 50
)

// AuditError reports a decision that was stored but could not be written
// to the audit log.
type AuditError struct {
	Err error
}

func (e *AuditError) Error() string {
	return "recording audit entry: " + e.Err.Error()
}

func (e *AuditError) Unwrap() error {
	return e.Err
}

// ModerationService moves submissions out of the pending queue.
// A submission ends either approved (converted to an entry) or rejected.
type ModerationService struct {
	repo  *ContentRepository
	auth  *AuthService
	audit ports.AuditLog
}

// NewModerationService creates a new ModerationService. audit may be nil.
func NewModerationService(repo *ContentRepository, auth *AuthService, audit ports.AuditLog) *ModerationService {
	return &ModerationService{
		repo:  repo,
		auth:  auth,
		audit: audit,
	}
}

// Queue returns the pending submissions, newest first.
func (s *ModerationService) Queue(ctx context.Context, token string) ([]entities.Submission, error) {
	if err := s.auth.Authorize(token); err != nil {
		return nil, err
	}

	subs, err := s.repo.ListSubmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	return subs, nil
}

// Approve converts a submission into an entry and removes it from the queue
// in one store transaction. An unknown ID is a no-op and returns a nil entry.
// If an entry created from the submission already exists, it is reused so
// no duplicate is created.
//
// When the decision is stored but the audit log write fails, the entry is
// returned together with an *AuditError.
func (s *ModerationService) Approve(ctx context.Context, token, submissionID string) (*entities.Entry, error) {
	if err := s.auth.Authorize(token); err != nil {
		return nil, err
	}

	var (
		entry   *entities.Entry
		created bool
	)
	err := s.repo.store.Update(ctx, func(tx ports.KVTx) error {
		var err error
		entry, created, err = approveTx(ctx, tx, submissionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	if created {
		s.repo.notify(entities.ChangeEvent{Kind: entities.ChangeEntryAdded, SubjectID: entry.ID})
	}
	s.repo.notify(entities.ChangeEvent{Kind: entities.ChangeSubmissionRemoved, SubjectID: submissionID})

	if err := s.logDecision(ctx, entities.ActionApproved, submissionID, map[string]any{
		"entry_id": entry.ID,
		"title":    entry.Title,
	}); err != nil {
		return entry, err
	}
	return entry, nil
}

func approveTx(ctx context.Context, tx ports.KVTx, submissionID string) (*entities.Entry, bool, error) {
	subs, err := loadSubmissions(ctx, tx)
	if err != nil {
		return nil, false, fmt.Errorf("listing submissions: %w", err)
	}

	var sub *entities.Submission
	for i := range subs {
		if subs[i].ID == submissionID {
			sub = &subs[i]
			break
		}
	}
	if sub == nil {
		return nil, false, nil
	}

	entry, err := findApprovedEntry(ctx, tx, submissionID)
	if err != nil {
		return nil, false, err
	}

	created := false
	if entry == nil {
		entry, err = addEntryTx(ctx, tx, entities.EntryInput{
			Title:              sub.Title,
			Category:           sub.Category,
			Verdict:            ApprovedVerdict,
			Confidence:         sub.Confidence,
			Tags:               sub.Tags,
			Claim:              sub.Claim,
			Evidence:           []string{PendingEvidence},
			Context:            PendingContext,
			Links:              sub.Links,
			SourceSubmissionID: submissionID,
		})
		if err != nil {
			return nil, false, fmt.Errorf("creating entry: %w", err)
		}
		created = true
	}

	if _, err := removeSubmissionTx(ctx, tx, submissionID); err != nil {
		return nil, false, fmt.Errorf("removing submission: %w", err)
	}
	return entry, created, nil
}

func findApprovedEntry(ctx context.Context, rd ports.KVReader, submissionID string) (*entities.Entry, error) {
	entries, err := loadEntries(ctx, rd)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	for i := range entries {
		if entries[i].SourceSubmissionID == submissionID {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// Reject removes a submission without creating an entry. It reports
// whether a submission was removed; rejecting an unknown ID is a no-op.
// An audit log failure after the removal is reported as an *AuditError.
func (s *ModerationService) Reject(ctx context.Context, token, submissionID string) (bool, error) {
	if err := s.auth.Authorize(token); err != nil {
		return false, err
	}

	var sub *entities.Submission
	err := s.repo.store.Update(ctx, func(tx ports.KVTx) error {
		var err error
		sub, err = rejectTx(ctx, tx, submissionID)
		return err
	})
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}

	s.repo.notify(entities.ChangeEvent{Kind: entities.ChangeSubmissionRemoved, SubjectID: submissionID})

	if err := s.logDecision(ctx, entities.ActionRejected, submissionID, map[string]any{
		"title": sub.Title,
	}); err != nil {
		return true, err
	}
	return true, nil
}

func rejectTx(ctx context.Context, tx ports.KVTx, submissionID string) (*entities.Submission, error) {
	subs, err := loadSubmissions(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}

	for i := range subs {
		if subs[i].ID != submissionID {
			continue
		}
		sub := subs[i]
		if _, err := removeSubmissionTx(ctx, tx, submissionID); err != nil {
			return nil, fmt.Errorf("removing submission: %w", err)
		}
		return &sub, nil
	}
	return nil, nil
}

// History returns recent moderation decisions, newest first. An empty
// action returns every decision.
func (s *ModerationService) History(ctx context.Context, token, action string, limit int) ([]entities.AuditEntry, error) {
	if err := s.auth.Authorize(token); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []entities.AuditEntry{}, nil
	}
	if limit <= 0 {
		limit = defaultHistorySz
	}

	entries, err := s.audit.FindAuditLogByAction(ctx, action, limit)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return entries, nil
}

// SubmissionHistory returns the decisions recorded for one submission.
func (s *ModerationService) SubmissionHistory(ctx context.Context, token, submissionID string) ([]entities.AuditEntry, error) {
	if err := s.auth.Authorize(token); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []entities.AuditEntry{}, nil
	}

	entries, err := s.audit.FindAuditLog(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return entries, nil
}

func (s *ModerationService) logDecision(ctx context.Context, action, submissionID string, details map[string]any) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.LogAction(ctx, action, submissionID, details); err != nil {
		return &AuditError{Err: err}
	}
	return nil
}
