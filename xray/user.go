package xray

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mhsanaei/3x-accounts/util/random"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// RemoteUser is the remote view of an account.
type RemoteUser struct {
	Username        string   `json:"username"`
	Status          string   `json:"status"`
	UsedTraffic     uint64   `json:"used_traffic"`
	DataLimit       uint64   `json:"data_limit"`
	Links           []string `json:"links"`
	SubscriptionURL string   `json:"subscription_url"`
}

// ProxyConfig returns the shadowsocks share link, or "" when the account has none.
func (u *RemoteUser) ProxyConfig() string {
	for _, link := range u.Links {
		if strings.HasPrefix(link, "ss://") {
			return link
		}
	}
	return ""
}

type shadowsocksProxy struct {
	Password string `json:"password"`
}

type proxies struct {
	Shadowsocks shadowsocksProxy `json:"shadowsocks"`
}

type createUserRequest struct {
	Username               string              `json:"username"`
	Proxies                proxies             `json:"proxies"`
	Inbounds               map[string][]string `json:"inbounds"`
	DataLimitResetStrategy string              `json:"data_limit_reset_strategy"`
	DataLimit              uint64              `json:"data_limit"`
	Status                 string              `json:"status"`
}

// CreateUser provisions an account with a fresh shadowsocks password. An account that
// already exists (409) is not an error: the existing account is fetched and returned.
func (c *Client) CreateUser(ctx context.Context, name string, trafficLimit uint64) (*RemoteUser, error) {
	req := createUserRequest{
		Username:               name,
		Proxies:                proxies{Shadowsocks: shadowsocksProxy{Password: random.Seq(passwordLength)}},
		Inbounds:               map[string][]string{"shadowsocks": {c.inboundTag}},
		DataLimitResetStrategy: "no_reset",
		DataLimit:              trafficLimit,
		Status:                 StatusActive,
	}

	var user RemoteUser
	res, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&user).Post("/api/user")
	}, http.StatusConflict)
	if err != nil {
		return nil, err
	}

	if res.StatusCode() == http.StatusConflict {
		existing, err := c.GetUser(ctx, name)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, &RemoteServiceError{Method: http.MethodPost, Path: "/api/user", StatusCode: http.StatusConflict, Body: "account exists but cannot be fetched"}
		}
		return existing, nil
	}
	return &user, nil
}

// GetUser fetches an account. It returns (nil, nil) when the account does not exist.
func (c *Client) GetUser(ctx context.Context, name string) (*RemoteUser, error) {
	var user RemoteUser
	res, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("username", name).SetResult(&user).Get("/api/user/{username}")
	}, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	if isNotFound(res) {
		return nil, nil
	}
	return &user, nil
}

// ResetUserUsage zeroes the account's used traffic. A missing account is a no-op.
func (c *Client) ResetUserUsage(ctx context.Context, name string) error {
	_, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("username", name).Post("/api/user/{username}/reset")
	}, http.StatusNotFound)
	return err
}

// UpdateTrafficLimit sets the account's data limit. A missing account is a no-op.
func (c *Client) UpdateTrafficLimit(ctx context.Context, name string, limit uint64) error {
	return c.modifyUser(ctx, name, map[string]any{"data_limit": limit})
}

// ActivateUser sets the account status to active. A missing account is a no-op.
func (c *Client) ActivateUser(ctx context.Context, name string) error {
	return c.modifyUser(ctx, name, map[string]any{"status": StatusActive})
}

// DeactivateUser sets the account status to disabled. A missing account is a no-op.
func (c *Client) DeactivateUser(ctx context.Context, name string) error {
	return c.modifyUser(ctx, name, map[string]any{"status": StatusDisabled})
}

// RotateCredential replaces the shadowsocks password. A missing account is a no-op.
func (c *Client) RotateCredential(ctx context.Context, name string) error {
	return c.modifyUser(ctx, name, map[string]any{
		"proxies": proxies{Shadowsocks: shadowsocksProxy{Password: random.Seq(passwordLength)}},
	})
}

func (c *Client) modifyUser(ctx context.Context, name string, body map[string]any) error {
	_, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("username", name).SetBody(body).Put("/api/user/{username}")
	}, http.StatusNotFound)
	return err
}
