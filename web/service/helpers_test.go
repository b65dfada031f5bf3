package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/mhsanaei/3x-accounts/config"
	"github.com/mhsanaei/3x-accounts/database"
	"github.com/mhsanaei/3x-accounts/database/model"
	"github.com/mhsanaei/3x-accounts/xray"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) {
	t.Helper()
	cfg := config.GetDefaultDatabaseConfig()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.InitDB(cfg))
	t.Cleanup(func() { _ = database.CloseDB() })
}

// fakeRemote records calls and fails for accounts listed in failFor.
type fakeRemote struct {
	mu       sync.Mutex
	calls    []string
	accounts map[string]*xray.RemoteUser
	failFor  map[string]bool
	stats    *xray.SystemStats
	statsHit int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{accounts: map[string]*xray.RemoteUser{}, failFor: map[string]bool{}}
}

func (f *fakeRemote) record(format string, args ...any) string {
	call := fmt.Sprintf(format, args...)
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	return call
}

func (f *fakeRemote) fail(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[name] {
		return &xray.RemoteServiceError{StatusCode: 500, Body: "boom"}
	}
	return nil
}

func (f *fakeRemote) setFail(name string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFor[name] = fail
}

// Calls returns the recorded calls sorted, since batches run concurrently.
func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func (f *fakeRemote) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeRemote) CreateUser(_ context.Context, name string, limit uint64) (*xray.RemoteUser, error) {
	f.record("create %s %d", name, limit)
	if err := f.fail(name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.accounts[name]; ok {
		return existing, nil
	}
	user := &xray.RemoteUser{Username: name, Status: xray.StatusActive, DataLimit: limit, Links: []string{"ss://" + name}}
	f.accounts[name] = user
	return user, nil
}

func (f *fakeRemote) GetUser(_ context.Context, name string) (*xray.RemoteUser, error) {
	f.record("get %s", name)
	if err := f.fail(name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[name], nil
}

func (f *fakeRemote) ResetUserUsage(_ context.Context, name string) error {
	f.record("reset %s", name)
	return f.fail(name)
}

func (f *fakeRemote) UpdateTrafficLimit(_ context.Context, name string, limit uint64) error {
	f.record("limit %s %d", name, limit)
	return f.fail(name)
}

func (f *fakeRemote) ActivateUser(_ context.Context, name string) error {
	f.record("activate %s", name)
	return f.fail(name)
}

func (f *fakeRemote) DeactivateUser(_ context.Context, name string) error {
	f.record("deactivate %s", name)
	return f.fail(name)
}

func (f *fakeRemote) RotateCredential(_ context.Context, name string) error {
	f.record("rotate %s", name)
	return f.fail(name)
}

func (f *fakeRemote) GetSystemStats(context.Context) (*xray.SystemStats, error) {
	f.record("stats")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsHit++
	if f.stats == nil {
		return nil, &xray.RemoteServiceError{StatusCode: 502}
	}
	return f.stats, nil
}

func (f *fakeRemote) SetRemarks(_ context.Context, remark string) error {
	f.record("remarks %s", remark)
	return nil
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func createTestPolicy(t *testing.T, name string, quota uint64) *model.TrafficPolicy {
	t.Helper()
	policy := &model.TrafficPolicy{Name: name, Quota: quota}
	require.NoError(t, database.GetDB().Create(policy).Error)
	return policy
}

// createTestUser stores a user directly, bypassing events. An empty account leaves the
// user unprovisioned.
func createTestUser(t *testing.T, account string, policy *model.TrafficPolicy) *model.User {
	t.Helper()
	user := &model.User{Email: fmt.Sprintf("u%d@example.com", nextEmail()), IsActive: true}
	if account != "" {
		user.AccountName = strPtr(account)
	}
	if policy != nil {
		user.TrafficPolicyId = &policy.Id
	}
	require.NoError(t, database.GetDB().Create(user).Error)
	loaded, err := loadUser(context.Background(), user.Id)
	require.NoError(t, err)
	return loaded
}

var (
	emailMu  sync.Mutex
	emailSeq int
)

func nextEmail() int {
	emailMu.Lock()
	defer emailMu.Unlock()
	emailSeq++
	return emailSeq
}

// recordingPublisher captures published events without delivering them.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, kind EventKind, id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, fmt.Sprintf("%s %d", kind, id))
	return nil
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
