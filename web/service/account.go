package service

import (
	"context"

	"github.com/mhsanaei/3x-accounts/logger"
	"github.com/mhsanaei/3x-accounts/xray"
)

// AccountService exposes a subscriber's remote account.
type AccountService struct {
	remote RemoteClient
	quota  *QuotaService
	sync   *SyncService
	users  *UserService
}

func NewAccountService(remote RemoteClient, quota *QuotaService, syncService *SyncService, users *UserService) *AccountService {
	return &AccountService{remote: remote, quota: quota, sync: syncService, users: users}
}

// GetOrCreateRemoteAccount returns the user's remote account, creating it with the
// effective quota when the backend does not know it yet.
func (s *AccountService) GetOrCreateRemoteAccount(ctx context.Context, userId int) (*xray.RemoteUser, error) {
	user, err := s.users.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if !user.IsProvisioned() {
		return nil, ErrNotProvisioned
	}

	account, err := s.remote.GetUser(ctx, user.Account())
	if err != nil || account != nil {
		return account, err
	}

	account, err = s.remote.CreateUser(ctx, user.Account(), s.quota.EffectiveQuota(user))
	if err != nil {
		return nil, err
	}
	logger.Infof("remote account %s created for user %d", user.Account(), user.Id)

	// new accounts start active
	if !user.IsActive {
		if err := s.remote.DeactivateUser(ctx, user.Account()); err != nil {
			return nil, err
		}
		account.Status = xray.StatusDisabled
	}
	return account, nil
}

// RotateCredential issues a new proxy password for the user.
func (s *AccountService) RotateCredential(ctx context.Context, userId int) error {
	user, err := s.users.GetUser(ctx, userId)
	if err != nil {
		return err
	}
	if !user.IsProvisioned() {
		return ErrNotProvisioned
	}
	return s.remote.RotateCredential(ctx, user.Account())
}

// BulkReset resets the usage counters of the selected users.
func (s *AccountService) BulkReset(ctx context.Context, ids []int) (BatchResult, error) {
	users, err := s.users.GetUsersByIds(ctx, ids)
	if err != nil {
		return BatchResult{}, err
	}
	result := s.sync.OnAdminBulkResetRequested(ctx, users)
	logger.Infof("bulk reset: %s", result.Summary("reset"))
	return result, nil
}
