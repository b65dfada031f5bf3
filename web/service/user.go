package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/mhsanaei/3x-accounts/database"
	"github.com/mhsanaei/3x-accounts/database/model"
	"github.com/mhsanaei/3x-accounts/logger"
	"github.com/mhsanaei/3x-accounts/util/crypto"

	"gorm.io/gorm"
)

// CreateUserRequest describes a new subscriber. IsActive defaults to true.
type CreateUserRequest struct {
	Email           string `json:"email" form:"email"`
	AccountName     string `json:"accountName" form:"accountName"`
	Password        string `json:"password" form:"password"`
	TrafficPolicyId *int   `json:"trafficPolicyId" form:"trafficPolicyId"`
	IsActive        *bool  `json:"isActive" form:"isActive"`
}

// UserService manages local subscribers. Changes the proxy backend must see are
// published as sync events after they are committed.
type UserService struct {
	events EventPublisher
}

func NewUserService(events EventPublisher) *UserService {
	return &UserService{events: events}
}

func (s *UserService) GetUser(ctx context.Context, id int) (*model.User, error) {
	return loadUser(ctx, id)
}

func (s *UserService) GetUsers(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	err := database.GetDB().WithContext(ctx).Preload("TrafficPolicy").Order("id").Find(&users).Error
	return users, err
}

func (s *UserService) GetUsersByIds(ctx context.Context, ids []int) ([]*model.User, error) {
	var users []*model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := database.GetDB().WithContext(ctx).Preload("TrafficPolicy").Where("id IN ?", ids).Order("id").Find(&users).Error
	return users, err
}

func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	accountName := strings.TrimSpace(req.AccountName)
	if accountName != "" {
		if err := model.ValidateAccountName(accountName); err != nil {
			return nil, err
		}
	}
	if err := checkPolicyExists(ctx, req.TrafficPolicyId); err != nil {
		return nil, err
	}
	hash, err := crypto.HashPasswordAsBcrypt(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:           email,
		PasswordHash:    hash,
		IsActive:        req.IsActive == nil || *req.IsActive,
		TrafficPolicyId: req.TrafficPolicyId,
	}
	if accountName != "" {
		user.AccountName = &accountName
	}
	if err := database.GetDB().WithContext(ctx).Create(user).Error; err != nil {
		return nil, translateUserError(err)
	}
	logger.Infof("user %d created (%s)", user.Id, user.Email)

	if user.IsProvisioned() {
		s.publish(ctx, EventUserCreated, user.Id)
	}
	return loadUser(ctx, user.Id)
}

// SetActive changes the activation flag. Setting the current value is a no-op.
func (s *UserService) SetActive(ctx context.Context, id int, active bool) (*model.User, error) {
	user, err := loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return user, nil
	}
	if err := database.GetDB().WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	user.IsActive = active
	s.publish(ctx, EventUserActivation, id)
	return user, nil
}

// SetPolicy attaches the user to policyId, or detaches it when policyId is nil.
func (s *UserService) SetPolicy(ctx context.Context, id int, policyId *int) (*model.User, error) {
	user, err := loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkPolicyExists(ctx, policyId); err != nil {
		return nil, err
	}
	if samePolicy(user.TrafficPolicyId, policyId) {
		return user, nil
	}
	if err := database.GetDB().WithContext(ctx).Model(user).Update("traffic_policy_id", policyId).Error; err != nil {
		return nil, err
	}
	s.publish(ctx, EventUserPolicy, id)
	return loadUser(ctx, id)
}

// SetAccountName provisions the link to a remote account. The name is immutable once set.
func (s *UserService) SetAccountName(ctx context.Context, id int, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if err := model.ValidateAccountName(name); err != nil {
		return nil, err
	}
	user, err := loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsProvisioned() {
		if user.Account() == name {
			return user, nil
		}
		return nil, ErrAccountNameImmutable
	}

	if err := database.GetDB().WithContext(ctx).Model(user).Update("account_name", name).Error; err != nil {
		return nil, translateUserError(err)
	}
	user.AccountName = &name
	s.publish(ctx, EventUserCreated, id)
	return user, nil
}

// publish logs instead of failing: the change is already committed and the periodic
// reconciliation picks up anything a lost event missed.
func (s *UserService) publish(ctx context.Context, kind EventKind, id int) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, kind, id); err != nil {
		logger.Warningf("failed to publish %s for %d: %v", kind, id, err)
	}
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > model.MaxEmailLength {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", ErrInvalidEmail
	}
	local, domain, ok := strings.Cut(raw, "@")
	if !ok {
		return "", ErrInvalidEmail
	}
	return local + "@" + strings.ToLower(domain), nil
}

func checkPolicyExists(ctx context.Context, policyId *int) error {
	if policyId == nil {
		return nil
	}
	var count int64
	if err := database.GetDB().WithContext(ctx).Model(&model.TrafficPolicy{}).Where("id = ?", *policyId).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

func samePolicy(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func translateUserError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateUser
	}
	return err
}
