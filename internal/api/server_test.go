package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/turbostart/internal/analytics"
	"github.com/set-night/turbostart/internal/config"
	"github.com/set-night/turbostart/internal/metrics"
	"github.com/set-night/turbostart/internal/repository/memory"
	"github.com/set-night/turbostart/internal/service"
)

const testAPIKey = "secret-key"

type recordingSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (s *recordingSink) Track(_ context.Context, ev analytics.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		out = append(out, ev.Name)
	}
	return out
}

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	sink    *recordingSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	credits := config.Credits{TaskCreateCost: 1, InitialCredits: 2, ReferralBonus: 10, ReferralQualifyingArtifacts: 2}

	store := memory.New()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	activity := service.NewActivityRecorder(store, nil, m)
	ledger := service.NewLedger(store, activity, m)
	referrals := service.NewReferralService(store, ledger, activity, m, credits)
	sink := &recordingSink{}

	srv := NewServer(Deps{
		Accounts:  service.NewAccountService(store, referrals, activity, credits),
		Artifacts: service.NewArtifactService(store, ledger, referrals, activity, nil, m, credits),
		Referrals: referrals,
		Admin:     service.NewAdminService(store),
		Sink:      sink,
		Metrics:   m,
		Gatherer:  reg,
		APIKey:    testAPIKey,
	})
	return &testEnv{handler: srv.Handler(), store: store, sink: sink}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return e.doWithKey(t, method, path, body, testAPIKey)
}

func (e *testEnv) doWithKey(t *testing.T, method, path string, body any, key string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	var decoded map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func (e *testEnv) createUser(t *testing.T, telegramID int64, referralCode string) map[string]any {
	t.Helper()
	w, body := e.do(t, http.MethodPost, "/api/users", map[string]any{
		"telegramId":   telegramID,
		"firstName":    "User",
		"referralCode": referralCode,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return body["user"].(map[string]any)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.doWithKey(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, config.Version, body["version"])
}

func TestHealth_StorageDown(t *testing.T) {
	srv := NewServer(Deps{Ping: func(context.Context) error { return errors.New("down") }})
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.doWithKey(t, http.MethodGet, "/api/admin/stats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, false, body["success"])

	w, _ = env.doWithKey(t, http.MethodGet, "/api/admin/stats", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpsertUser(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/users", map[string]any{"telegramId": 42, "username": "neo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["created"])
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(42), user["telegramId"])
	assert.Equal(t, float64(2), user["credits"])
	assert.NotEmpty(t, user["referralCode"])

	w, body = env.do(t, http.MethodPost, "/api/users", map[string]any{"telegramId": 42, "username": "trinity"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["created"])
	assert.Equal(t, "trinity", body["user"].(map[string]any)["username"])

	assert.Equal(t, []string{analytics.EventAccountCreated}, env.sink.names())

	w, body = env.do(t, http.MethodPost, "/api/users", map[string]any{"username": "nobody"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", body["error"])

	w, _ = env.do(t, http.MethodGet, "/api/users/42", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, body = env.do(t, http.MethodGet, "/api/users/43", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", body["error"])
	w, _ = env.do(t, http.MethodGet, "/api/users/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpsertUser_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTask(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 7, "")

	for i := range 2 {
		w, body := env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": 7, "title": fmt.Sprintf("t%d", i)})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		task := body["task"].(map[string]any)
		assert.Equal(t, "completed", task["status"])
		assert.NotEmpty(t, task["shareId"])
	}

	w, body := env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": 7, "title": "broke"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "insufficient_credits", body["error"])
	assert.Equal(t, float64(1), body["required"])
	assert.Equal(t, float64(0), body["available"])

	w, body = env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": 8, "title": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", body["error"])

	w, body = env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", body["error"])

	assert.Equal(t, []string{
		analytics.EventAccountCreated,
		analytics.EventArtifactCreated,
		analytics.EventArtifactCreated,
		analytics.EventArtifactRejected,
	}, env.sink.names())
}

func TestGetTasks(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 7, "")
	_, body := env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": 7, "title": "first"})
	first := body["task"].(map[string]any)
	env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": 7, "title": "second"})

	w, body := env.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%v", first["id"]), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "first", body["task"].(map[string]any)["title"])

	w, _ = env.do(t, http.MethodGet, "/api/tasks/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = env.do(t, http.MethodGet, "/api/tasks/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/tasks/user/7?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := body["tasks"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, "second", tasks[0].(map[string]any)["title"])
	pag := body["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pag["total"])
	assert.Equal(t, float64(2), pag["totalPages"])

	w, body = env.do(t, http.MethodGet, "/api/tasks/user/7?page=9223372036854775807", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["tasks"].([]any))
}

func TestViewShared(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, 7, "")
	_, body := env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": 7, "title": "pub", "isPublic": true})
	public := body["task"].(map[string]any)
	_, body = env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": 7, "title": "priv"})
	private := body["task"].(map[string]any)

	w, body := env.doWithKey(t, http.MethodGet, fmt.Sprintf("/share/%s", public["shareId"]), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["task"].(map[string]any)["viewCount"])

	w, _ = env.doWithKey(t, http.MethodGet, fmt.Sprintf("/share/%s", private["shareId"]), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReferralBonusThroughAPI(t *testing.T) {
	env := newTestEnv(t)
	referrer := env.createUser(t, 1, "")
	referred := env.createUser(t, 2, referrer["referralCode"].(string))
	assert.NotNil(t, referred["referredByUserId"])

	for range 2 {
		w, _ := env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": 2, "title": "work"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	_, body := env.do(t, http.MethodGet, "/api/users/1", nil)
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(12), user["credits"])
	assert.Equal(t, float64(10), user["referralCreditsEarned"])

	w, body := env.do(t, http.MethodGet, "/api/users/1/referrals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	refs := body["referrals"].(map[string]any)["referrals"].([]any)
	require.Len(t, refs, 1)
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	var first map[string]any
	for id := int64(1); id <= 3; id++ {
		user := env.createUser(t, id, "")
		if id == 1 {
			first = user
		}
		env.do(t, http.MethodPost, "/api/tasks", map[string]any{"telegramId": id, "title": "x"})
	}

	w, body := env.do(t, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(3), stats["totalUsers"])
	assert.Equal(t, float64(3), stats["totalTasks"])

	w, body = env.do(t, http.MethodGet, "/api/admin/users?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["users"].([]any), 1)

	w, body = env.do(t, http.MethodGet, "/api/admin/users?page=9223372036854775807", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["users"].([]any))

	w, body = env.do(t, http.MethodGet, "/api/admin/users/1/activity?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	activity := body["activity"].([]any)
	require.NotEmpty(t, activity)
	for _, e := range activity {
		assert.Equal(t, first["id"], e.(map[string]any)["userId"])
	}

	w, _ = env.do(t, http.MethodGet, "/api/admin/users/404/activity", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/admin/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["tasks"].([]any), 3)
	assert.Equal(t, float64(20), body["pagination"].(map[string]any)["limit"])
}

func TestNotFoundAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.doWithKey(t, http.MethodGet, "/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", body["error"])

	env.doWithKey(t, http.MethodGet, "/health", nil, "")
	w, _ = env.doWithKey(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "turbostart_http_request_duration_seconds")
	assert.Contains(t, w.Body.String(), `route="/health"`)
}

func TestRecoverJSON(t *testing.T) {
	h := recoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/tasks", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
