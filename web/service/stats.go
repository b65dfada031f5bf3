package service

import (
	"context"
	"time"

	"github.com/mhsanaei/3x-accounts/caching"
	"github.com/mhsanaei/3x-accounts/util/metrics"
	"github.com/mhsanaei/3x-accounts/xray"
)

const systemStatsKey = "system_stats"

// StatsService reads backend host statistics, cached briefly so frequent scrapes do not
// reach the backend every time.
type StatsService struct {
	remote RemoteClient
	cache  *caching.Cache
}

func NewStatsService(remote RemoteClient, ttl time.Duration) *StatsService {
	return &StatsService{remote: remote, cache: caching.NewCache(ttl)}
}

func (s *StatsService) GetSystemStats(ctx context.Context) (*xray.SystemStats, error) {
	v, err := s.cache.GetOrLoad(systemStatsKey, func() (any, error) {
		return s.remote.GetSystemStats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*xray.SystemStats), nil
}

// Snapshot adapts the backend statistics for the metrics collector.
func (s *StatsService) Snapshot(ctx context.Context) (*metrics.SystemSnapshot, error) {
	stats, err := s.GetSystemStats(ctx)
	if err != nil {
		return nil, err
	}
	return &metrics.SystemSnapshot{
		TotalMemoryBytes:        stats.MemTotal,
		UsedMemoryBytes:         stats.MemUsed,
		TotalUsers:              stats.TotalUser,
		ActiveUsers:             stats.UsersActive,
		TransmittedTrafficBytes: stats.OutgoingBandwidth,
		ReceivedTrafficBytes:    stats.IncomingBandwidth,
	}, nil
}
