package database

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/mhsanaei/3x-accounts/config"
	"github.com/mhsanaei/3x-accounts/database/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	cfg := config.GetDefaultDatabaseConfig()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, InitDB(cfg))
	t.Cleanup(func() { _ = CloseDB() })
}

func TestResetLogUniquePerUserAndCycle(t *testing.T) {
	setupTestDB(t)

	cycle := time.Date(2024, 2, 29, 20, 30, 0, 0, time.UTC)
	require.NoError(t, GetDB().Create(&model.TrafficResetLog{UserId: 1, Date: cycle}).Error)
	assert.Error(t, GetDB().Create(&model.TrafficResetLog{UserId: 1, Date: cycle}).Error)
	assert.NoError(t, GetDB().Create(&model.TrafficResetLog{UserId: 2, Date: cycle}).Error)
	assert.NoError(t, GetDB().Create(&model.TrafficResetLog{UserId: 1, Date: cycle.AddDate(0, 1, 0)}).Error)
}

func TestPolicyQuotaRange(t *testing.T) {
	setupTestDB(t)

	ok := &model.TrafficPolicy{Name: "max", Quota: math.MaxInt64}
	require.NoError(t, GetDB().Create(ok).Error)

	var loaded model.TrafficPolicy
	require.NoError(t, GetDB().First(&loaded, ok.Id).Error)
	assert.Equal(t, uint64(math.MaxInt64), loaded.Quota)

	tooBig := &model.TrafficPolicy{Name: "overflow", Quota: math.MaxInt64 + 1}
	assert.ErrorIs(t, GetDB().Create(tooBig).Error, model.ErrQuotaOutOfRange)
}

func TestUnprovisionedUsersShareNullAccountName(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, GetDB().Create(&model.User{Email: "a@example.com", IsActive: true}).Error)
	require.NoError(t, GetDB().Create(&model.User{Email: "b@example.com", IsActive: true}).Error)

	name := "alice"
	require.NoError(t, GetDB().Create(&model.User{Email: "c@example.com", AccountName: &name}).Error)
	dup := "alice"
	assert.Error(t, GetDB().Create(&model.User{Email: "d@example.com", AccountName: &dup}).Error)
}
