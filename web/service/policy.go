package service

import (
	"context"
	"strings"

	"github.com/mhsanaei/3x-accounts/database"
	"github.com/mhsanaei/3x-accounts/database/model"
	"github.com/mhsanaei/3x-accounts/logger"
)

// PolicyService manages traffic policies. A quota edit is published once and fans out to
// every attached user asynchronously.
type PolicyService struct {
	events EventPublisher
}

func NewPolicyService(events EventPublisher) *PolicyService {
	return &PolicyService{events: events}
}

func (s *PolicyService) GetPolicies(ctx context.Context) ([]*model.TrafficPolicy, error) {
	var policies []*model.TrafficPolicy
	err := database.GetDB().WithContext(ctx).Order("id").Find(&policies).Error
	return policies, err
}

func (s *PolicyService) GetPolicy(ctx context.Context, id int) (*model.TrafficPolicy, error) {
	policy := &model.TrafficPolicy{}
	err := database.GetDB().WithContext(ctx).First(policy, id).Error
	if database.IsNotFound(err) {
		return nil, ErrPolicyNotFound
	}
	return policy, err
}

func (s *PolicyService) CreatePolicy(ctx context.Context, name string, quota uint64) (*model.TrafficPolicy, error) {
	name, err := validatePolicyName(name)
	if err != nil {
		return nil, err
	}
	policy := &model.TrafficPolicy{Name: name, Quota: quota}
	if err := database.GetDB().WithContext(ctx).Create(policy).Error; err != nil {
		return nil, err
	}
	return policy, nil
}

// UpdatePolicy renames the policy and sets its quota.
func (s *PolicyService) UpdatePolicy(ctx context.Context, id int, name string, quota uint64) (*model.TrafficPolicy, error) {
	name, err := validatePolicyName(name)
	if err != nil {
		return nil, err
	}
	policy, err := s.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}

	quotaChanged := policy.Quota != quota
	policy.Name = name
	policy.Quota = quota
	if err := database.GetDB().WithContext(ctx).Save(policy).Error; err != nil {
		return nil, err
	}

	if quotaChanged && s.events != nil {
		if err := s.events.Publish(ctx, EventPolicyQuota, policy.Id); err != nil {
			logger.Warningf("failed to publish quota change of policy %d: %v", policy.Id, err)
		}
	}
	return policy, nil
}

// DeletePolicy removes an unused policy. Policies still attached to users are kept.
func (s *PolicyService) DeletePolicy(ctx context.Context, id int) error {
	db := database.GetDB().WithContext(ctx)

	var count int64
	if err := db.Model(&model.User{}).Where("traffic_policy_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrPolicyInUse
	}

	res := db.Delete(&model.TrafficPolicy{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

func validatePolicyName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > model.MaxPolicyNameLength {
		return "", ErrInvalidPolicyName
	}
	return name, nil
}
