package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mhsanaei/3x-accounts/database"
	"github.com/mhsanaei/3x-accounts/database/model"
	"github.com/mhsanaei/3x-accounts/logger"
	"github.com/mhsanaei/3x-accounts/util/metrics"

	"golang.org/x/sync/errgroup"
)

const defaultSyncWorkers = 8

// Batch operation names used for metrics and log lines.
const (
	OpSyncQuota  = "sync_quota"
	OpReconcile  = "reconcile"
	OpResetUsage = "reset_usage"
	OpBulkReset  = "bulk_reset"
)

// SyncService pushes local quota and activation state to the proxy backend and resets
// remote usage counters. It never mutates local state.
type SyncService struct {
	remote  RemoteClient
	quota   *QuotaService
	workers int
	metrics *metrics.Metrics
}

func NewSyncService(remote RemoteClient, quota *QuotaService, workers int, m *metrics.Metrics) *SyncService {
	if workers <= 0 {
		workers = defaultSyncWorkers
	}
	return &SyncService{remote: remote, quota: quota, workers: workers, metrics: m}
}

// SyncUser sets the remote data limit to the user's effective quota.
func (s *SyncService) SyncUser(ctx context.Context, user *model.User) error {
	if !user.IsProvisioned() {
		return ErrNotProvisioned
	}
	return s.remote.UpdateTrafficLimit(ctx, user.Account(), s.quota.EffectiveQuota(user))
}

// SyncUserActivation mirrors IsActive onto the remote status, then syncs the quota.
func (s *SyncService) SyncUserActivation(ctx context.Context, user *model.User) error {
	if !user.IsProvisioned() {
		return ErrNotProvisioned
	}
	var err error
	if user.IsActive {
		err = s.remote.ActivateUser(ctx, user.Account())
	} else {
		err = s.remote.DeactivateUser(ctx, user.Account())
	}
	if err != nil {
		return err
	}
	return s.SyncUser(ctx, user)
}

// SyncUsers syncs the quota of every user. One user's failure does not affect the others.
func (s *SyncService) SyncUsers(ctx context.Context, users []*model.User) BatchResult {
	return s.run(ctx, OpSyncQuota, users, s.SyncUser)
}

// SyncAll pushes the status and quota of every stored user, repairing remote state left
// behind by failed or lost sync events.
func (s *SyncService) SyncAll(ctx context.Context) (BatchResult, error) {
	var users []*model.User
	if err := database.GetDB().WithContext(ctx).Preload("TrafficPolicy").Order("id").Find(&users).Error; err != nil {
		return BatchResult{}, fmt.Errorf("load users: %w", err)
	}
	result := s.run(ctx, OpReconcile, users, s.SyncUserActivation)
	logger.Infof("reconcile: %s", result.Summary("synced"))
	return result, nil
}

// ResetUsage zeroes remote usage for every provisioned user. Unprovisioned users are
// reported as skipped.
func (s *SyncService) ResetUsage(ctx context.Context, users []*model.User) BatchResult {
	return s.run(ctx, OpResetUsage, users, s.resetUser)
}

func (s *SyncService) resetUser(ctx context.Context, user *model.User) error {
	if !user.IsProvisioned() {
		return ErrNotProvisioned
	}
	return s.remote.ResetUserUsage(ctx, user.Account())
}

// OnUserActivationChanged is called after a user's IsActive flag was committed.
func (s *SyncService) OnUserActivationChanged(ctx context.Context, user *model.User) error {
	return s.SyncUserActivation(ctx, user)
}

// OnUserCreatedWithAccountName is called after a user received its account name.
func (s *SyncService) OnUserCreatedWithAccountName(ctx context.Context, user *model.User) error {
	return s.SyncUserActivation(ctx, user)
}

// OnPolicyQuotaChanged pushes the quota of policy to every user attached to it, one
// update per user. The users are synced as copies that carry policy.
func (s *SyncService) OnPolicyQuotaChanged(ctx context.Context, policy *model.TrafficPolicy, users []*model.User) BatchResult {
	attached := make([]*model.User, len(users))
	for i, user := range users {
		u := *user
		u.TrafficPolicy = policy
		attached[i] = &u
	}
	return s.SyncUsers(ctx, attached)
}

// OnAdminBulkResetRequested resets usage for an operator-selected set of users.
func (s *SyncService) OnAdminBulkResetRequested(ctx context.Context, users []*model.User) BatchResult {
	return s.run(ctx, OpBulkReset, users, s.resetUser)
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// run applies op to every user with at most s.workers calls in flight.
func (s *SyncService) run(ctx context.Context, name string, users []*model.User, op func(context.Context, *model.User) error) BatchResult {
	outcomes := make([]outcome, len(users))
	errs := make([]error, len(users))

	// errgroup bounds concurrency only; every item returns nil so nothing is cancelled.
	eg := errgroup.Group{}
	eg.SetLimit(s.workers)
	for i, user := range users {
		eg.Go(func() error {
			err := ctx.Err()
			if err == nil {
				err = op(ctx, user)
			}
			switch {
			case err == nil:
				outcomes[i] = outcomeSucceeded
			case errors.Is(err, ErrNotProvisioned):
				outcomes[i] = outcomeSkipped
			default:
				outcomes[i] = outcomeFailed
				errs[i] = err
			}
			return nil
		})
	}
	_ = eg.Wait()

	var result BatchResult
	for i, user := range users {
		switch outcomes[i] {
		case outcomeSucceeded:
			result.Succeeded = append(result.Succeeded, user)
		case outcomeSkipped:
			result.Skipped = append(result.Skipped, user)
		default:
			item := ItemError{User: user, Err: errs[i]}
			result.Failed = append(result.Failed, item)
			logger.Warningf("%s failed for %v", name, item)
		}
	}

	s.metrics.ObserveBatch(name, len(result.Succeeded), len(result.Failed), len(result.Skipped))
	return result
}
