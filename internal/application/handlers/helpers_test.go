package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/domain/mocks"
	"github.com/ersonp/influence-tracker/internal/domain/services"
)

const testPassword = "haiti"

type fixture struct {
	store      *mocks.KVStore
	audit      *mocks.AuditLog
	repo       *services.ContentRepository
	auth       *services.AuthService
	moderation *services.ModerationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := mocks.NewKVStore()
	audit := &mocks.AuditLog{}
	repo := services.NewContentRepository(store)
	auth := services.NewAuthService(testPassword, 0)
	return &fixture{
		store:      store,
		audit:      audit,
		repo:       repo,
		auth:       auth,
		moderation: services.NewModerationService(repo, auth, audit),
	}
}

func (f *fixture) addEntry(t *testing.T, in entities.EntryInput) *entities.Entry {
	t.Helper()
	e, err := f.repo.AddEntry(t.Context(), in)
	require.NoError(t, err)
	return e
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	s, err := f.auth.Unlock(testPassword)
	require.NoError(t, err)
	return s.Token
}
