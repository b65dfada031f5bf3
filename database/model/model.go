// Package model contains the persisted entities of the accounts service.
package model

import (
	"errors"
	"math"
	"regexp"
	"time"

	"gorm.io/gorm"
)

const (
	MaxAccountNameLength = 150
	MaxEmailLength       = 50
	MaxPolicyNameLength  = 128
)

var (
	ErrQuotaOutOfRange    = errors.New("quota exceeds the storable range")
	ErrInvalidAccountName = errors.New("account name may contain only letters, digits and underscores")

	accountNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// User is a local subscriber. AccountName links it to the remote proxy account and is
// empty until the user has been provisioned.
type User struct {
	Id              int            `json:"id" gorm:"primaryKey;autoIncrement"`
	AccountName     *string        `json:"accountName" gorm:"uniqueIndex;size:150"`
	Email           string         `json:"email" gorm:"uniqueIndex;size:50;not null"`
	PasswordHash    string         `json:"-" gorm:"column:password_hash"`
	IsActive        bool           `json:"isActive" gorm:"not null"`
	TrafficPolicyId *int           `json:"trafficPolicyId" gorm:"index"`
	TrafficPolicy   *TrafficPolicy `json:"trafficPolicy,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Account returns the remote account name, or "" when the user is not provisioned.
func (u *User) Account() string {
	if u == nil || u.AccountName == nil {
		return ""
	}
	return *u.AccountName
}

func (u *User) IsProvisioned() bool {
	return u.Account() != ""
}

// ValidateAccountName reports whether name is usable as a remote account name.
func ValidateAccountName(name string) error {
	if len(name) > MaxAccountNameLength || !accountNamePattern.MatchString(name) {
		return ErrInvalidAccountName
	}
	return nil
}

// TrafficPolicy is a named monthly quota shared by many users.
type TrafficPolicy struct {
	Id        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"size:128"`
	Quota     uint64    `json:"quota" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeSave rejects quotas that do not fit a signed 64-bit column.
func (p *TrafficPolicy) BeforeSave(*gorm.DB) error {
	if p.Quota > math.MaxInt64 {
		return ErrQuotaOutOfRange
	}
	return nil
}

// TrafficResetLog records that a user's usage was reset for the cycle starting at Date.
// At most one row exists per (user, cycle).
type TrafficResetLog struct {
	Id     int       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserId int       `json:"userId" gorm:"not null;uniqueIndex:idx_reset_user_date,priority:1"`
	Date   time.Time `json:"date" gorm:"not null;uniqueIndex:idx_reset_user_date,priority:2"`
}
