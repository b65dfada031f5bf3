package xray

import (
	"context"

	"github.com/go-resty/resty/v2"
)

// SystemStats is the backend host summary reported by /api/system.
type SystemStats struct {
	MemTotal          uint64 `json:"mem_total"`
	MemUsed           uint64 `json:"mem_used"`
	TotalUser         uint64 `json:"total_user"`
	UsersActive       uint64 `json:"users_active"`
	IncomingBandwidth uint64 `json:"incoming_bandwidth"`
	OutgoingBandwidth uint64 `json:"outgoing_bandwidth"`
}

func (c *Client) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	var stats SystemStats
	if _, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&stats).Get("/api/system")
	}); err != nil {
		return nil, err
	}
	return &stats, nil
}
