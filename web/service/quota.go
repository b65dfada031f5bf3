package service

import (
	"github.com/mhsanaei/3x-accounts/database/model"
	"github.com/mhsanaei/3x-accounts/logger"
)

// QuotaService resolves the monthly traffic quota that applies to a user.
type QuotaService struct {
	defaultQuota uint64
}

func NewQuotaService(defaultQuota uint64) *QuotaService {
	return &QuotaService{defaultQuota: defaultQuota}
}

func (s *QuotaService) DefaultQuota() uint64 {
	return s.defaultQuota
}

// EffectiveQuota returns the quota of the user's traffic policy, or the default quota
// when no policy is attached. The user must be loaded with its TrafficPolicy preloaded.
func (s *QuotaService) EffectiveQuota(user *model.User) uint64 {
	if user.TrafficPolicy != nil {
		return user.TrafficPolicy.Quota
	}
	if user.TrafficPolicyId != nil {
		logger.Warningf("traffic policy %d of user %d was not loaded, using the default quota", *user.TrafficPolicyId, user.Id)
	}
	return s.defaultQuota
}
