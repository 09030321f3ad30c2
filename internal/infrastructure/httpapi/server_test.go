package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/influence-tracker/internal/application/handlers"
	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/domain/mocks"
	"github.com/ersonp/influence-tracker/internal/domain/services"
	"github.com/ersonp/influence-tracker/internal/infrastructure/config"
)

const testPassword = "haiti"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	srv   *Server
	repo  *services.ContentRepository
	audit *mocks.AuditLog
}

func newTestServer(t *testing.T, cfg config.ServerConfig) *testServer {
	t.Helper()
	repo := services.NewContentRepository(mocks.NewKVStore())
	auth := services.NewAuthService(testPassword, 0)
	audit := &mocks.AuditLog{}
	moderation := services.NewModerationService(repo, auth, audit)

	srv := NewServer(Deps{
		Repo:    repo,
		Auth:    auth,
		Archive: handlers.NewArchiveHandler(repo),
		Submit:  handlers.NewSubmitHandler(repo),
		Admin:   handlers.NewAdminHandler(auth, moderation),
	}, cfg)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, repo: repo, audit: audit}
}

func openConfig() config.ServerConfig {
	return config.ServerConfig{Addr: ":0", CORSOrigin: "*", SubmitRPS: 1000, SubmitBurst: 100}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(AdminTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) unlock(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/admin/unlock", UnlockInput{Password: testPassword}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var session entities.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_ListAndShowEntries(t *testing.T) {
	ts := newTestServer(t, openConfig())
	ctx := context.Background()

	jazz, err := ts.repo.AddEntry(ctx, entities.EntryInput{Title: "Jazz", Category: "Music", Claim: "Jazz roots", Tags: []string{"rhythm", "music"}})
	require.NoError(t, err)
	_, err = ts.repo.AddEntry(ctx, entities.EntryInput{Title: "Vodou", Category: "Religion", Claim: "Rituals", Tags: []string{"rhythm"}})
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/entries?category=Music", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[handlers.EntryListResult](t, rec)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "Jazz", list.Entries[0].Title)

	rec = ts.do(t, http.MethodGet, "/api/entries?q=RITUAL", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list = decode[handlers.EntryListResult](t, rec)
	assert.Equal(t, services.CategoryAll, list.Category)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Vodou", list.Entries[0].Title)

	rec = ts.do(t, http.MethodGet, "/api/entries/"+jazz.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[handlers.EntryDetail](t, rec)
	assert.Equal(t, jazz.ID, detail.Entry.ID)
	assert.Equal(t, 1, detail.Views)

	rec = ts.do(t, http.MethodGet, "/api/entries/entry_missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/tags?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"rhythm"}, decode[[]string](t, rec))

	rec = ts.do(t, http.MethodGet, "/api/tags?limit=-2", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Music", "Religion"}, decode[[]string](t, rec))

	rec = ts.do(t, http.MethodGet, "/api/featured?limit=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	featured := decode[[]entities.Entry](t, rec)
	require.Len(t, featured, 1)
	assert.Equal(t, jazz.ID, featured[0].ID)
}

func TestServer_CreateSubmission(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodPost, "/api/submissions", handlers.SubmitForm{Claim: "Kompa shaped zouk.", Tags: "kompa, zouk"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	sub := decode[entities.Submission](t, rec)
	assert.Equal(t, "User Submission: Kompa shaped zouk.", sub.Title)
	assert.Equal(t, []string{"kompa", "zouk"}, sub.Tags)

	rec = ts.do(t, http.MethodPost, "/api/submissions", handlers.SubmitForm{Claim: "   "}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	subs, err := ts.repo.ListSubmissions(context.Background())
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestServer_SubmissionRateLimit(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{CORSOrigin: "*", SubmitRPS: 0.001, SubmitBurst: 1})

	rec := ts.do(t, http.MethodPost, "/api/submissions", handlers.SubmitForm{Claim: "first"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/submissions", handlers.SubmitForm{Claim: "second"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads are not limited.
	rec = ts.do(t, http.MethodGet, "/api/entries", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_AdminFlow(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodPost, "/api/submissions", handlers.SubmitForm{Claim: "Griot storytelling shaped hip hop."}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	sub := decode[entities.Submission](t, rec)

	token := ts.unlock(t)

	rec = ts.do(t, http.MethodGet, "/api/admin/submissions", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decode[handlers.QueueResult](t, rec)
	assert.Equal(t, 1, queue.Total)

	rec = ts.do(t, http.MethodPost, "/api/admin/submissions/"+sub.ID+"/approve", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decision := decode[handlers.DecisionResult](t, rec)
	assert.True(t, decision.Applied)
	require.NotNil(t, decision.Entry)
	assert.Equal(t, sub.Claim, decision.Entry.Claim)

	rec = ts.do(t, http.MethodPost, "/api/admin/submissions/"+sub.ID+"/approve", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handlers.DecisionResult](t, rec).Applied)

	rec = ts.do(t, http.MethodPost, "/api/admin/submissions/"+sub.ID+"/reject", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handlers.DecisionResult](t, rec).Applied)

	rec = ts.do(t, http.MethodGet, "/api/admin/history?action="+entities.ActionApproved, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]entities.AuditEntry](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, sub.ID, history[0].SubjectID)

	entries, err := ts.repo.ListEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	rec = ts.do(t, http.MethodPost, "/api/admin/lock", nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/admin/submissions", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_DecisionSucceedsWhenAuditFails(t *testing.T) {
	ts := newTestServer(t, openConfig())
	ts.audit.Err = errors.New("audit down")

	rec := ts.do(t, http.MethodPost, "/api/submissions", handlers.SubmitForm{Claim: "Kompa shaped zouk."}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	keep := decode[entities.Submission](t, rec)
	rec = ts.do(t, http.MethodPost, "/api/submissions", handlers.SubmitForm{Claim: "Spam"}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	drop := decode[entities.Submission](t, rec)

	token := ts.unlock(t)

	rec = ts.do(t, http.MethodPost, "/api/admin/submissions/"+keep.ID+"/approve", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decision := decode[handlers.DecisionResult](t, rec)
	assert.True(t, decision.Applied)
	require.NotNil(t, decision.Entry)
	assert.Contains(t, decision.Warning, "audit down")

	rec = ts.do(t, http.MethodPost, "/api/admin/submissions/"+drop.ID+"/reject", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	decision = decode[handlers.DecisionResult](t, rec)
	assert.True(t, decision.Applied)
	assert.Contains(t, decision.Warning, "audit down")

	entries, err := ts.repo.ListEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestServer_AdminRequiresToken(t *testing.T) {
	ts := newTestServer(t, openConfig())

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{name: "queue without token", method: http.MethodGet, path: "/api/admin/submissions"},
		{name: "approve forged token", method: http.MethodPost, path: "/api/admin/submissions/sub_1/approve", token: "sess_forged"},
		{name: "reject without token", method: http.MethodPost, path: "/api/admin/submissions/sub_1/reject"},
		{name: "history forged token", method: http.MethodGet, path: "/api/admin/history", token: "sess_forged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, nil, tt.token)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestServer_UnlockWrongPassword(t *testing.T) {
	ts := newTestServer(t, openConfig())

	rec := ts.do(t, http.MethodPost, "/api/admin/unlock", UnlockInput{Password: "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/admin/unlock", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	ts := newTestServer(t, config.ServerConfig{CORSOrigin: "https://tracker.example", SubmitRPS: 1, SubmitBurst: 1})

	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
	req.Header.Set("Origin", "https://tracker.example")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://tracker.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

// flushRecorder is a ResponseWriter safe to read while a handler streams.
type flushRecorder struct {
	mu     sync.Mutex
	header http.Header
	body   bytes.Buffer
	code   int
}

func newFlushRecorder() *flushRecorder {
	return &flushRecorder{header: make(http.Header)}
}

func (r *flushRecorder) Header() http.Header { return r.header }

func (r *flushRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.Write(p)
}

func (r *flushRecorder) WriteHeader(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

func (r *flushRecorder) Flush() {}

func (r *flushRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body.String()
}

func TestServer_StreamEvents(t *testing.T) {
	ts := newTestServer(t, openConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newFlushRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		ts.srv.Handler().ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return ts.srv.Hub().Clients() == 1 }, time.Second, 5*time.Millisecond)

	entry, err := ts.repo.AddEntry(context.Background(), entities.EntryInput{Title: "t", Claim: "c"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		body := rec.String()
		return strings.Contains(body, string(entities.ChangeEntryAdded)) && strings.Contains(body, entry.ID)
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, 0, ts.srv.Hub().Clients())
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestServer_WebSocketEvents(t *testing.T) {
	ts := newTestServer(t, openConfig())
	httpSrv := httptest.NewServer(ts.srv.Handler())
	defer httpSrv.Close()

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.srv.Hub().Clients() == 1 }, time.Second, 5*time.Millisecond)

	sub, err := ts.repo.AddSubmission(context.Background(), entities.SubmissionInput{Claim: "c"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev entities.ChangeEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, entities.ChangeSubmissionAdded, ev.Kind)
	assert.Equal(t, sub.ID, ev.SubjectID)
}
