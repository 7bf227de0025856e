package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/webroll/webroll/internal/clock/system"
	"github.com/webroll/webroll/internal/config"
	"github.com/webroll/webroll/internal/dispatch"
	"github.com/webroll/webroll/internal/id/uuid"
	"github.com/webroll/webroll/internal/registry"
	"github.com/webroll/webroll/internal/session"
	memorystorage "github.com/webroll/webroll/internal/storage/memory"
)

type testEnv struct {
	server   *Server
	registry *registry.Registry
	sessions *session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLogger(t, zap.NewNop())
}

func newTestEnvWithLogger(t *testing.T, logger *zap.Logger) *testEnv {
	t.Helper()
	reg, err := registry.New([]config.WorkerSpec{
		{Nickname: "alpha", Root: "https://worker.example/alpha"},
		{Nickname: "bravo", Root: "https://worker.example/bravo"},
	})
	require.NoError(t, err)
	selector, err := registry.NewSelector(reg, config.PolicyLeastLoaded)
	require.NoError(t, err)

	users := memorystorage.NewUserStore()
	captures := memorystorage.NewCaptureStore()
	sessions := session.NewStore()
	idGen := uuid.New()
	coordinator := dispatch.NewCoordinator(selector, idGen, system.New(), captures, zap.NewNop())
	batches := dispatch.NewBatchCoordinator(coordinator, idGen, zap.NewNop())

	return &testEnv{
		server:   NewServer(users, captures, sessions, coordinator, batches, logger),
		registry: reg,
		sessions: sessions,
	}
}

func (e *testEnv) do(method, path string, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// register creates a user and logs in, returning the auth cookies.
func (e *testEnv) register(t *testing.T, name, password string) []*http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"password":%q}`, name, password)
	rec := e.do(http.MethodPost, "/user/create", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(http.MethodPost, "/user/login", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	return cookies
}

func TestRegisterAndDuplicateUsername(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	body := `{"name":"alice","password":"secret123"}`

	rec := env.do(http.MethodPost, "/user/create", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "success")

	rec = env.do(http.MethodPost, "/user/create", body, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "unavailable_username")
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/user/create", `{"name":"","password":"pw"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_username")

	rec = env.do(http.MethodPost, "/user/create", `{"name":"bob","password":""}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_password")

	rec = env.do(http.MethodPost, "/user/create", `{not json`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFlowAndSessionRevocation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cookies := env.register(t, "alice", "secret123")

	var userCookie, sessionCookie *http.Cookie
	for _, c := range cookies {
		switch c.Name {
		case "user":
			userCookie = c
		case "session":
			sessionCookie = c
		}
	}
	require.NotNil(t, userCookie)
	require.NotNil(t, sessionCookie)
	require.True(t, env.sessions.Validate(1, sessionCookie.Value))

	rec := env.do(http.MethodDelete, "/user/session/all", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, env.sessions.Validate(1, sessionCookie.Value))

	// Revoked cookies no longer authenticate.
	rec = env.do(http.MethodDelete, "/user/session/all", "", cookies)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_credentials")
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.register(t, "alice", "secret123")

	// Unknown user and wrong password produce the same discriminant.
	rec := env.do(http.MethodPost, "/user/login", `{"name":"nobody","password":"x"}`, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_credentials")

	rec = env.do(http.MethodPost, "/user/login", `{"name":"alice","password":"wrong"}`, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_credentials")
}

func TestAuthenticatedRoutesRequireCookies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	for _, tc := range []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodDelete, "/user/session/all", ""},
		{http.MethodPost, "/capture/create", `{"url":"http://a.example/"}`},
		{http.MethodPost, "/batch/create", `{"urls":["http://a.example/"]}`},
	} {
		rec := env.do(tc.method, tc.path, tc.body, nil)
		require.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
		require.Contains(t, rec.Body.String(), "invalid_credentials")
	}
}

func TestCaptureCreateAndMonitor(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cookies := env.register(t, "alice", "secret123")

	rec := env.do(http.MethodPost, "/capture/create", `{"url":"http://a.example/page"}`, cookies)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		UUID string `json:"uuid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.UUID)

	// The task sits on exactly one of the two workers' queues.
	total := 0
	for _, entry := range env.registry.Entries() {
		total += entry.Backlog()
	}
	require.Equal(t, 1, total)

	rec = env.do(http.MethodPost, "/capture/monitor", fmt.Sprintf(`{"uuid":%q}`, created.UUID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "capturing")
	require.Contains(t, rec.Body.String(), "pending")
}

func TestCaptureMonitorUnknownUUID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/capture/monitor", `{"uuid":"missing"}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "no_such_capture")
}

func TestCaptureCreateRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cookies := env.register(t, "alice", "secret123")

	for _, body := range []string{
		`{"url":""}`,
		`{"url":"not a url"}`,
		`{"url":"ftp://files.example/x"}`,
		`{bad json`,
	} {
		rec := env.do(http.MethodPost, "/capture/create", body, cookies)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestBatchCreateAndMonitor(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cookies := env.register(t, "alice", "secret123")

	body := `{"urls":["http://a.example/","http://b.example/","http://c.example/"]}`
	rec := env.do(http.MethodPost, "/batch/create", body, cookies)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created struct {
		UUID string `json:"uuid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.UUID)

	total := 0
	for _, entry := range env.registry.Entries() {
		total += entry.Backlog()
	}
	require.Equal(t, 3, total)

	rec = env.do(http.MethodPost, "/batch/monitor", fmt.Sprintf(`{"uuid":%q}`, created.UUID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Result   string `json:"result"`
		Total    int    `json:"total"`
		Complete int    `json:"complete"`
		Failed   int    `json:"failed"`
		Pending  int    `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, 3, status.Total)
	require.Equal(t, 3, status.Pending)
	require.Zero(t, status.Complete)
	require.Zero(t, status.Failed)
}

func TestBatchMonitorUnknownUUID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/batch/monitor", `{"uuid":"missing"}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "no_such_batch")
}

func TestRequestIDReachesHeaderAndLogs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	env := newTestEnvWithLogger(t, zap.New(core))

	rec := env.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	reqID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, reqID)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	require.Equal(t, reqID, entries[0].ContextMap()["request_id"])
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
