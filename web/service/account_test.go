package service

import (
	"context"
	"testing"

	"github.com/mhsanaei/3x-accounts/xray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccounts(remote *fakeRemote) (*AccountService, *UserService) {
	users := NewUserService(nil)
	quota := NewQuotaService(defaultQuota)
	return NewAccountService(remote, quota, NewSyncService(remote, quota, 2, nil), users), users
}

func TestGetOrCreateRemoteAccount(t *testing.T) {
	setupDB(t)
	remote := newFakeRemote()
	accounts, _ := newTestAccounts(remote)
	ctx := context.Background()

	policy := createTestPolicy(t, "p", 5_000_000_000)
	user := createTestUser(t, "alice", policy)

	account, err := accounts.GetOrCreateRemoteAccount(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "ss://alice", account.ProxyConfig())
	assert.Equal(t, []string{"create alice 5000000000", "get alice"}, remote.Calls())

	remote.reset()
	_, err = accounts.GetOrCreateRemoteAccount(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{"get alice"}, remote.Calls())
}

func TestGetOrCreateRemoteAccountForInactiveUser(t *testing.T) {
	setupDB(t)
	remote := newFakeRemote()
	accounts, users := newTestAccounts(remote)
	ctx := context.Background()

	user := createTestUser(t, "bob", nil)
	_, err := users.SetActive(ctx, user.Id, false)
	require.NoError(t, err)

	account, err := accounts.GetOrCreateRemoteAccount(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, xray.StatusDisabled, account.Status)
	assert.Contains(t, remote.Calls(), "deactivate bob")
}

func TestAccountRequiresProvisioning(t *testing.T) {
	setupDB(t)
	remote := newFakeRemote()
	accounts, _ := newTestAccounts(remote)
	ctx := context.Background()

	user := createTestUser(t, "", nil)

	_, err := accounts.GetOrCreateRemoteAccount(ctx, user.Id)
	assert.ErrorIs(t, err, ErrNotProvisioned)
	assert.ErrorIs(t, accounts.RotateCredential(ctx, user.Id), ErrNotProvisioned)
	assert.Empty(t, remote.Calls())

	_, err = accounts.GetOrCreateRemoteAccount(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRotateCredentialAndBulkReset(t *testing.T) {
	setupDB(t)
	remote := newFakeRemote()
	remote.setFail("b", true)
	accounts, _ := newTestAccounts(remote)
	ctx := context.Background()

	a := createTestUser(t, "a", nil)
	b := createTestUser(t, "b", nil)
	c := createTestUser(t, "", nil)

	require.NoError(t, accounts.RotateCredential(ctx, a.Id))

	result, err := accounts.BulkReset(ctx, []int{a.Id, b.Id, c.Id})
	require.NoError(t, err)
	assert.Equal(t, "reset 1 users, 1 failed, 1 skipped", result.Summary("reset"))
	assert.Equal(t, []string{"reset a", "reset b", "rotate a"}, remote.Calls())
}
