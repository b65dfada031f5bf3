package web

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhsanaei/3x-accounts/config"
	"github.com/mhsanaei/3x-accounts/database"
	"github.com/mhsanaei/3x-accounts/web/service"
	"github.com/mhsanaei/3x-accounts/xray"
)

const (
	adminToken   = "admin-secret"
	metricsToken = "metrics-secret"
)

// stubRemote is an in-memory backend that records every call.
type stubRemote struct {
	mu       sync.Mutex
	calls    []string
	accounts map[string]*xray.RemoteUser
}

var _ service.RemoteClient = (*stubRemote)(nil)

func (r *stubRemote) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *stubRemote) has(call string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.calls, call)
}

func (r *stubRemote) CreateUser(_ context.Context, name string, limit uint64) (*xray.RemoteUser, error) {
	r.record("create %s %d", name, limit)
	r.mu.Lock()
	defer r.mu.Unlock()
	user := &xray.RemoteUser{Username: name, Status: xray.StatusActive, DataLimit: limit, Links: []string{"vless://x", "ss://" + name}}
	r.accounts[name] = user
	return user, nil
}

func (r *stubRemote) GetUser(_ context.Context, name string) (*xray.RemoteUser, error) {
	r.record("get %s", name)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[name], nil
}

func (r *stubRemote) ResetUserUsage(_ context.Context, name string) error {
	r.record("reset %s", name)
	return nil
}

func (r *stubRemote) UpdateTrafficLimit(_ context.Context, name string, limit uint64) error {
	r.record("limit %s %d", name, limit)
	return nil
}

func (r *stubRemote) ActivateUser(_ context.Context, name string) error {
	r.record("activate %s", name)
	return nil
}

func (r *stubRemote) DeactivateUser(_ context.Context, name string) error {
	r.record("deactivate %s", name)
	return nil
}

func (r *stubRemote) RotateCredential(_ context.Context, name string) error {
	r.record("rotate %s", name)
	return nil
}

func (r *stubRemote) GetSystemStats(context.Context) (*xray.SystemStats, error) {
	return &xray.SystemStats{MemTotal: 4096, MemUsed: 1024, TotalUser: 2, UsersActive: 1}, nil
}

func (r *stubRemote) SetRemarks(_ context.Context, remark string) error {
	r.record("remarks %s", remark)
	return nil
}

type apiMsg struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

type testServer struct {
	engine *gin.Engine
	remote *stubRemote
	app    *App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dbCfg := config.GetDefaultDatabaseConfig()
	dbCfg.SQLite.Path = filepath.Join(t.TempDir(), "web.db")
	require.NoError(t, database.InitDB(dbCfg))
	t.Cleanup(func() { _ = database.CloseDB() })

	cfg := &config.AppConfig{
		Web:          config.WebConfig{AdminToken: adminToken, MetricsToken: metricsToken},
		MonthlyQuota: 1024,
		SyncWorkers:  2,
		QueueSize:    16,
	}
	remote := &stubRemote{accounts: map[string]*xray.RemoteUser{}}
	app, err := newApp(cfg, remote)
	require.NoError(t, err)

	app.Queue.Start(context.Background())
	t.Cleanup(app.Queue.Stop)

	s := NewServer(app)
	return &testServer{engine: s.initRouter(), remote: remote, app: app}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) apiMsg {
	t.Helper()
	rec := ts.raw(t, method, path, body, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var msg apiMsg
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	return msg
}

func (ts *testServer) raw(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) eventually(t *testing.T, call string) {
	t.Helper()
	require.Eventually(t, func() bool { return ts.remote.has(call) }, 2*time.Second, 10*time.Millisecond, call)
}

func decodeId(t *testing.T, msg apiMsg) int {
	t.Helper()
	require.True(t, msg.Success, msg.Msg)
	var obj struct {
		Id int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(msg.Obj, &obj))
	return obj.Id
}

func TestAPIRequiresAdminToken(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.raw(t, http.MethodGet, "/api/users", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, ts.raw(t, http.MethodGet, "/api/users", nil, metricsToken).Code)
	assert.Equal(t, http.StatusOK, ts.raw(t, http.MethodGet, "/api/users", nil, adminToken).Code)
	assert.Equal(t, http.StatusNotFound, ts.raw(t, http.MethodGet, "/nowhere", nil, adminToken).Code)
}

func TestUserLifecycleSyncsBackend(t *testing.T) {
	ts := newTestServer(t)

	policyId := decodeId(t, ts.do(t, http.MethodPost, "/api/policies", gin.H{"name": "gold", "quota": 2048}))
	aliceId := decodeId(t, ts.do(t, http.MethodPost, "/api/users", gin.H{
		"email":           "alice@example.com",
		"accountName":     "alice",
		"trafficPolicyId": policyId,
	}))
	ts.eventually(t, "activate alice")
	ts.eventually(t, "limit alice 2048")

	ts.do(t, http.MethodPut, fmt.Sprintf("/api/policies/%d", policyId), gin.H{"name": "gold", "quota": 4096})
	ts.eventually(t, "limit alice 4096")

	msg := ts.do(t, http.MethodPatch, fmt.Sprintf("/api/users/%d/active", aliceId), gin.H{"isActive": false})
	require.True(t, msg.Success, msg.Msg)
	ts.eventually(t, "deactivate alice")

	msg = ts.do(t, http.MethodPatch, fmt.Sprintf("/api/users/%d/policy", aliceId), gin.H{"trafficPolicyId": nil})
	require.True(t, msg.Success, msg.Msg)
	ts.eventually(t, "limit alice 1024")

	msg = ts.do(t, http.MethodPatch, fmt.Sprintf("/api/users/%d/account-name", aliceId), gin.H{"accountName": "bob"})
	assert.False(t, msg.Success)
	assert.Contains(t, msg.Msg, service.ErrAccountNameImmutable.Error())
}

func TestPolicyDeleteInUse(t *testing.T) {
	ts := newTestServer(t)

	policyId := decodeId(t, ts.do(t, http.MethodPost, "/api/policies", gin.H{"name": "silver", "quota": 10}))
	decodeId(t, ts.do(t, http.MethodPost, "/api/users", gin.H{"email": "carol@example.com", "trafficPolicyId": policyId}))

	msg := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/policies/%d", policyId), nil)
	assert.False(t, msg.Success)
	assert.Contains(t, msg.Msg, service.ErrPolicyInUse.Error())

	rec := ts.raw(t, http.MethodPost, "/api/policies", gin.H{"name": "no quota"}, adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountAndBulkReset(t *testing.T) {
	ts := newTestServer(t)

	aliceId := decodeId(t, ts.do(t, http.MethodPost, "/api/users", gin.H{"email": "alice@example.com", "accountName": "alice"}))
	plainId := decodeId(t, ts.do(t, http.MethodPost, "/api/users", gin.H{"email": "dave@example.com"}))

	msg := ts.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/account", aliceId), nil)
	require.True(t, msg.Success, msg.Msg)
	var account struct {
		Username    string `json:"username"`
		DataLimit   uint64 `json:"dataLimit"`
		ProxyConfig string `json:"proxyConfig"`
	}
	require.NoError(t, json.Unmarshal(msg.Obj, &account))
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, uint64(1024), account.DataLimit)
	assert.Equal(t, "ss://alice", account.ProxyConfig)

	msg = ts.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d/account", plainId), nil)
	assert.False(t, msg.Success)

	msg = ts.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/account/rotate", aliceId), nil)
	assert.True(t, msg.Success, msg.Msg)
	assert.True(t, ts.remote.has("rotate alice"))

	msg = ts.do(t, http.MethodPost, "/api/users/reset", gin.H{"ids": []int{aliceId, plainId}})
	assert.True(t, msg.Success)
	assert.Equal(t, "reset 1 users, 0 failed, 1 skipped", msg.Msg)
	assert.True(t, ts.remote.has("reset alice"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.raw(t, http.MethodGet, "/metrics", nil, adminToken).Code)

	rec := ts.raw(t, http.MethodGet, "/metrics", nil, metricsToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "accounts_remote_up 1")
	assert.Contains(t, body, "accounts_total_memory_bytes 4096")
	assert.Contains(t, body, "accounts_queue_depth")
}

func TestServerStatus(t *testing.T) {
	ts := newTestServer(t)

	msg := ts.do(t, http.MethodGet, "/api/server/status", nil)
	require.True(t, msg.Success)
	var status struct {
		Name   string            `json:"name"`
		Remote xray.SystemStats  `json:"remote"`
		Queue  map[string]uint64 `json:"queue"`
	}
	require.NoError(t, json.Unmarshal(msg.Obj, &status))
	assert.Equal(t, config.GetName(), status.Name)
	assert.Equal(t, uint64(4096), status.Remote.MemTotal)
	assert.Contains(t, status.Queue, "handled")
}
