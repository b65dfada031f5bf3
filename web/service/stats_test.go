package service

import (
	"context"
	"testing"
	"time"

	"github.com/mhsanaei/3x-accounts/xray"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsServiceCachesSnapshot(t *testing.T) {
	remote := newFakeRemote()
	stats := NewStatsService(remote, time.Minute)
	ctx := context.Background()

	_, err := stats.Snapshot(ctx)
	assert.Error(t, err)

	remote.mu.Lock()
	remote.stats = &xray.SystemStats{MemTotal: 100, MemUsed: 40, TotalUser: 5, UsersActive: 3, IncomingBandwidth: 7, OutgoingBandwidth: 9}
	remote.mu.Unlock()

	snapshot, err := stats.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), snapshot.TransmittedTrafficBytes)
	assert.Equal(t, uint64(7), snapshot.ReceivedTrafficBytes)
	assert.Equal(t, uint64(3), snapshot.ActiveUsers)

	_, err = stats.GetSystemStats(ctx)
	require.NoError(t, err)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, 2, remote.statsHit, "the failed load is retried, the successful one is cached")
}
