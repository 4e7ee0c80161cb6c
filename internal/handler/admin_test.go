package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleccia/chatbot-engine/internal/model"
	"github.com/eleccia/chatbot-engine/internal/service"
	"github.com/eleccia/chatbot-engine/internal/session"
	"github.com/eleccia/chatbot-engine/pkg/logger"
)

type memRepo struct {
	noopRepo
	saved []*model.ArchivedConversation
}

func (m *memRepo) SaveConversation(ctx context.Context, conv *model.ArchivedConversation) error {
	m.saved = append(m.saved, conv)
	return nil
}

func (m *memRepo) ConversationsByUser(ctx context.Context, userID string, limit int) ([]model.ArchivedConversation, error) {
	var out []model.ArchivedConversation
	for _, c := range m.saved {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepo) Ping(ctx context.Context) error { return nil }

func (m *memRepo) Close() error { return nil }

type stubReloader struct {
	calls int
	err   error
}

func (s *stubReloader) Reload() error {
	s.calls++
	return s.err
}

type adminFixture struct {
	engine   *service.Engine
	repo     *memRepo
	reloader *stubReloader
	router   *chi.Mux
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	log, _ := logger.New("error")
	st := session.NewMemoryStore()
	repo := &memRepo{}
	archiver := service.NewArchiver(st, repo, nil, log)
	controller := service.NewController(noopContent{}, noopRepo{}, time.Second, log)
	engine := service.NewEngine(st, session.NewKeyedLocks(), controller, archiver, 30*time.Minute, log)
	sweeper := service.NewSweeper(st, engine, time.Minute, 5*time.Minute, log)
	reloader := &stubReloader{}
	h := NewAdminHandler(engine, sweeper, repo, reloader, log)

	r := chi.NewRouter()
	r.Get("/admin/stats", h.Stats)
	r.Post("/admin/sweep", h.RunSweep)
	r.Post("/admin/content/reload", h.ReloadContent)
	r.Route("/admin/sessions/{userID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/conversations", h.ListConversations)
		r.Post("/finalize", h.FinalizeSession)
		r.Post("/reset", h.ResetSession)
	})
	return &adminFixture{engine: engine, repo: repo, reloader: reloader, router: r}
}

func (f *adminFixture) startSession(t *testing.T, userID string) {
	t.Helper()
	_, err := f.engine.HandleMessage(context.Background(), service.TurnInput{
		UserID: userID, Canal: "telegram", Text: "hola",
	})
	require.NoError(t, err)
}

func TestAdminGetSession(t *testing.T) {
	f := newAdminFixture(t)
	f.startSession(t, "u1")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/sessions/u1/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var sess model.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, model.StageMain, sess.Stage)
}

func TestAdminGetSessionMissing(t *testing.T) {
	f := newAdminFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/sessions/nadie/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminFinalizeSession(t *testing.T) {
	f := newAdminFixture(t)
	f.startSession(t, "u1")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/sessions/u1/finalize", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, f.repo.saved, 1)
	assert.Contains(t, f.repo.saved[0].Flujo, model.ReasonAdminReset)

	// A second finalize finds nothing.
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/sessions/u1/finalize", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminListConversations(t *testing.T) {
	f := newAdminFixture(t)
	f.startSession(t, "u1")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/sessions/u1/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/sessions/u1/conversations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var convs []model.ArchivedConversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	assert.Equal(t, "u1", convs[0].UserID)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/sessions/u1/conversations?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminStatsAndSweep(t *testing.T) {
	f := newAdminFixture(t)
	f.startSession(t, "u1")
	f.startSession(t, "u2")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats session.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.ActiveSessions)

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/sweep", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sweep map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sweep))
	assert.Zero(t, sweep["swept"])
}

func TestAdminReloadContent(t *testing.T) {
	f := newAdminFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/content/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.reloader.calls)

	f.reloader.err = errors.New("csv dir missing")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/content/reload", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
