package service

import (
	"errors"

	"github.com/mhsanaei/3x-accounts/database/model"
)

var (
	// ErrNotProvisioned marks a user without a remote account. Batches count it as
	// skipped, never as failed.
	ErrNotProvisioned = errors.New("user has no remote account")

	ErrPolicyInUse          = errors.New("traffic policy is assigned to users")
	ErrAccountNameImmutable = errors.New("account name cannot be changed once set")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidPolicyName    = errors.New("invalid traffic policy name")
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateUser        = errors.New("email or account name is already in use")
	ErrPolicyNotFound       = errors.New("traffic policy not found")
	ErrQueueClosed          = errors.New("sync queue is stopped")

	ErrInvalidAccountName = model.ErrInvalidAccountName
	ErrQuotaOutOfRange    = model.ErrQuotaOutOfRange
)
