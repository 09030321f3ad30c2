package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/domain/mocks"
)

type moderationFixture struct {
	store *mocks.KVStore
	audit *mocks.AuditLog
	repo  *ContentRepository
	svc   *ModerationService
	token string
}

func newModerationFixture(t *testing.T) *moderationFixture {
	t.Helper()
	store := mocks.NewKVStore()
	audit := &mocks.AuditLog{}
	repo := NewContentRepository(store)
	auth := NewAuthService("haiti", 0)

	session, err := auth.Unlock("haiti")
	require.NoError(t, err)

	return &moderationFixture{
		store: store,
		audit: audit,
		repo:  repo,
		svc:   NewModerationService(repo, auth, audit),
		token: session.Token,
	}
}

func (f *moderationFixture) submit(t *testing.T) *entities.Submission {
	t.Helper()
	sub, err := f.repo.AddSubmission(context.Background(), entities.SubmissionInput{
		Title:      "Griot roots",
		Category:   "Music",
		Claim:      "Griot storytelling shaped hip hop.",
		Confidence: "Somewhat sure",
		Tags:       []string{"griot", "hip hop"},
		Links:      []string{"https://example.org/griot"},
	})
	require.NoError(t, err)
	return sub
}

func TestModerationService_Approve(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	sub := f.submit(t)

	entry, err := f.svc.Approve(ctx, f.token, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)

	assert.Equal(t, sub.Title, entry.Title)
	assert.Equal(t, sub.Category, entry.Category)
	assert.Equal(t, sub.Claim, entry.Claim)
	assert.Equal(t, sub.Tags, entry.Tags)
	assert.Equal(t, sub.Links, entry.Links)
	assert.Equal(t, sub.Confidence, entry.Confidence)
	assert.Equal(t, ApprovedVerdict, entry.Verdict)
	assert.Equal(t, []string{PendingEvidence}, entry.Evidence)
	assert.Equal(t, PendingContext, entry.Context)
	assert.Equal(t, sub.ID, entry.SourceSubmissionID)

	subs, err := f.repo.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)

	entries, err := f.repo.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)

	require.Len(t, f.audit.Entries, 1)
	assert.Equal(t, entities.ActionApproved, f.audit.Entries[0].Action)
	assert.Equal(t, sub.ID, f.audit.Entries[0].SubjectID)
	assert.Equal(t, entry.ID, f.audit.Entries[0].Details["entry_id"])
}

func TestModerationService_Approve_Twice(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	sub := f.submit(t)

	_, err := f.svc.Approve(ctx, f.token, sub.ID)
	require.NoError(t, err)

	entry, err := f.svc.Approve(ctx, f.token, sub.ID)
	require.NoError(t, err)
	assert.Nil(t, entry)

	entries, err := f.repo.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, f.audit.Entries, 1)
}

func TestModerationService_Approve_Unknown(t *testing.T) {
	f := newModerationFixture(t)

	entry, err := f.svc.Approve(context.Background(), f.token, "sub_missing")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Zero(t, f.store.Sets)
}

func TestModerationService_Approve_FailedDequeueStoresNothing(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	sub := f.submit(t)

	f.store.SetErr = errors.New("disk full")
	f.store.FailSetKey = KeySubmissions
	_, err := f.svc.Approve(ctx, f.token, sub.ID)
	require.Error(t, err)

	entries, err := f.repo.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	subs, err := f.repo.ListSubmissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Empty(t, f.audit.Entries)

	f.store.SetErr = nil
	entry, err := f.svc.Approve(ctx, f.token, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)

	entries, err = f.repo.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	subs, err = f.repo.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestModerationService_Approve_ReusesExistingEntry(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	sub := f.submit(t)

	// Entry already created from this submission while it is still queued.
	existing, err := f.repo.AddEntry(ctx, entities.EntryInput{
		Title:              sub.Title,
		Claim:              sub.Claim,
		SourceSubmissionID: sub.ID,
	})
	require.NoError(t, err)

	var kinds []entities.ChangeKind
	f.repo.Subscribe(func(ev entities.ChangeEvent) { kinds = append(kinds, ev.Kind) })

	entry, err := f.svc.Approve(ctx, f.token, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, existing.ID, entry.ID)
	assert.Equal(t, []entities.ChangeKind{entities.ChangeSubmissionRemoved}, kinds)

	entries, err := f.repo.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	subs, err := f.repo.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestModerationService_Approve_Events(t *testing.T) {
	f := newModerationFixture(t)
	sub := f.submit(t)

	var kinds []entities.ChangeKind
	f.repo.Subscribe(func(ev entities.ChangeEvent) { kinds = append(kinds, ev.Kind) })

	_, err := f.svc.Approve(context.Background(), f.token, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []entities.ChangeKind{entities.ChangeEntryAdded, entities.ChangeSubmissionRemoved}, kinds)
}

func TestModerationService_Approve_AuditFailure(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	sub := f.submit(t)
	f.audit.Err = errors.New("audit down")

	entry, err := f.svc.Approve(ctx, f.token, sub.ID)
	var auditErr *AuditError
	require.ErrorAs(t, err, &auditErr)
	assert.Contains(t, err.Error(), "audit down")
	require.NotNil(t, entry)

	entries, err := f.repo.ListEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestModerationService_Reject_AuditFailure(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	sub := f.submit(t)
	f.audit.Err = errors.New("audit down")

	removed, err := f.svc.Reject(ctx, f.token, sub.ID)
	var auditErr *AuditError
	require.ErrorAs(t, err, &auditErr)
	assert.True(t, removed)

	subs, err := f.repo.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestModerationService_Reject(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	sub := f.submit(t)

	removed, err := f.svc.Reject(ctx, f.token, sub.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	subs, err := f.repo.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
	entries, err := f.repo.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	removed, err = f.svc.Reject(ctx, f.token, sub.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	require.Len(t, f.audit.Entries, 1)
	assert.Equal(t, entities.ActionRejected, f.audit.Entries[0].Action)
}

func TestModerationService_RequiresSession(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	sub := f.submit(t)

	_, err := f.svc.Approve(ctx, "", sub.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Reject(ctx, "sess_forged", sub.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Queue(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.History(ctx, "", "", 0)
	require.ErrorIs(t, err, ErrUnauthorized)

	subs, err := f.repo.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestModerationService_Queue_NewestFirst(t *testing.T) {
	f := newModerationFixture(t)
	fixedClock(t, testEpoch)
	ctx := context.Background()

	first := f.submit(t)
	second := f.submit(t)

	subs, err := f.svc.Queue(ctx, f.token)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, second.ID, subs[0].ID)
	assert.Equal(t, first.ID, subs[1].ID)
}

func TestModerationService_History(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()

	a := f.submit(t)
	b := f.submit(t)
	_, err := f.svc.Approve(ctx, f.token, a.ID)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.token, b.ID)
	require.NoError(t, err)

	all, err := f.svc.History(ctx, f.token, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].SubjectID)

	approved, err := f.svc.History(ctx, f.token, entities.ActionApproved, 10)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, a.ID, approved[0].SubjectID)
}

func TestModerationService_NilAudit(t *testing.T) {
	repo := NewContentRepository(mocks.NewKVStore())
	auth := NewAuthService("haiti", 0)
	svc := NewModerationService(repo, auth, nil)
	session, err := auth.Unlock("haiti")
	require.NoError(t, err)

	sub, err := repo.AddSubmission(context.Background(), entities.SubmissionInput{Claim: "c"})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), session.Token, sub.ID)
	require.NoError(t, err)

	history, err := svc.History(context.Background(), session.Token, "", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestModerationService_SubmissionHistory(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()

	a := f.submit(t)
	b := f.submit(t)
	_, err := f.svc.Approve(ctx, f.token, a.ID)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.token, b.ID)
	require.NoError(t, err)

	history, err := f.svc.SubmissionHistory(ctx, f.token, a.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entities.ActionApproved, history[0].Action)

	_, err = f.svc.SubmissionHistory(ctx, "", a.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
}
