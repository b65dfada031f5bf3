package service

import (
	"context"
	"time"

	"github.com/mhsanaei/3x-accounts/database"
	"github.com/mhsanaei/3x-accounts/database/model"

	"gorm.io/gorm/clause"
)

const resetLogBatchSize = 500

// ResetLogService is the ledger of completed usage resets, keyed by user and cycle start.
type ResetLogService struct{}

// HasReset reports whether userId already has a reset recorded for the cycle.
func (s *ResetLogService) HasReset(ctx context.Context, userId int, cycleStart time.Time) (bool, error) {
	var count int64
	err := database.GetDB().WithContext(ctx).Model(&model.TrafficResetLog{}).
		Where("user_id = ? AND date = ?", userId, cycleStart.UTC()).
		Count(&count).Error
	return count > 0, err
}

// GetUsersNotReset returns every user without a ledger entry for the cycle, with the
// traffic policy preloaded.
func (s *ResetLogService) GetUsersNotReset(ctx context.Context, cycleStart time.Time) ([]*model.User, error) {
	db := database.GetDB().WithContext(ctx)
	logged := db.Model(&model.TrafficResetLog{}).
		Select("user_id").
		Where("date = ?", cycleStart.UTC())

	var users []*model.User
	err := db.Preload("TrafficPolicy").
		Where("id NOT IN (?)", logged).
		Order("id").
		Find(&users).Error
	return users, err
}

// RecordResets appends a ledger entry per user. Entries that already exist are left
// untouched, so recording the same cycle twice is harmless.
func (s *ResetLogService) RecordResets(ctx context.Context, users []*model.User, cycleStart time.Time) error {
	if len(users) == 0 {
		return nil
	}
	date := cycleStart.UTC()
	logs := make([]model.TrafficResetLog, len(users))
	for i, user := range users {
		logs[i] = model.TrafficResetLog{UserId: user.Id, Date: date}
	}
	return database.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&logs, resetLogBatchSize).Error
}
