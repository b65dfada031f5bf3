package xray

import (
	"context"

	"github.com/go-resty/resty/v2"
)

// Hosts maps inbound tags to their host entries. Entries are kept as generic maps so
// fields this client does not know about survive a read-modify-write.
type Hosts map[string][]map[string]any

// SetRemarks rewrites the remark of every host on every inbound. It reads the host list
// and writes it back, so a concurrent edit made on the backend in between is lost.
func (c *Client) SetRemarks(ctx context.Context, remark string) error {
	var hosts Hosts
	if _, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&hosts).Get("/api/hosts")
	}); err != nil {
		return err
	}

	if len(hosts) == 0 {
		return nil
	}
	for _, entries := range hosts {
		for _, host := range entries {
			host["remark"] = remark
		}
	}

	_, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(hosts).Put("/api/hosts")
	})
	return err
}
