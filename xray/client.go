// Package xray is a client for the Marzban-style REST API that manages the remote
// proxy accounts. The remote side is authoritative for usage counters and credentials.
package xray

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/mhsanaei/3x-accounts/logger"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultInboundTag = "Shadowsocks TCP"
	passwordLength    = 32
	maxErrorBody      = 512
)

// ClientConfig describes how to reach the proxy backend.
type ClientConfig struct {
	BaseURL     string
	AccessToken string
	// CertFile is a PEM bundle that replaces the system roots when set.
	CertFile string
	// Insecure disables certificate verification. It is never implied.
	Insecure   bool
	Timeout    time.Duration
	InboundTag string
	UserAgent  string
	Debug      bool
}

// Client talks to the proxy backend. Calls are not retried; a transport failure or
// timeout is returned as a wrapped error and is never mistaken for an absent account.
type Client struct {
	rc         *resty.Client
	inboundTag string
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("xray: base URL is required")
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("xray: access token is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.InboundTag == "" {
		cfg.InboundTag = defaultInboundTag
	}

	tlsConfig, err := newTLSConfig(cfg.CertFile, cfg.Insecure)
	if err != nil {
		return nil, err
	}

	rc := resty.New()
	rc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	rc.SetTimeout(cfg.Timeout)
	rc.SetTLSClientConfig(tlsConfig)
	rc.SetAuthToken(cfg.AccessToken)
	rc.SetLogger(logger.Bridge{Prefix: "remote"})
	rc.SetDebug(cfg.Debug)
	rc.SetJSONMarshaler(json.Marshal)
	rc.SetJSONUnmarshaler(json.Unmarshal)
	rc.SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{rc: rc, inboundTag: cfg.InboundTag}, nil
}

func newTLSConfig(certFile string, insecure bool) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if certFile != "" {
		pemData, err := os.ReadFile(certFile)
		if err != nil {
			return nil, fmt.Errorf("xray: read certificate file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, fmt.Errorf("xray: no certificates found in %s", certFile)
		}
		tlsConfig.RootCAs = pool
	}
	if insecure {
		logger.Warning("xray: TLS certificate verification is disabled for the proxy backend")
		tlsConfig.InsecureSkipVerify = true
	}
	return tlsConfig, nil
}

// do executes one request. 2xx responses and any status listed in tolerate are returned
// to the caller; everything else becomes a RemoteServiceError.
func (c *Client) do(ctx context.Context, fn func(*resty.Request) (*resty.Response, error), tolerate ...int) (*resty.Response, error) {
	res, err := fn(c.rc.R().SetContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("xray: request failed: %w", err)
	}
	if res.IsSuccess() || slices.Contains(tolerate, res.StatusCode()) {
		return res, nil
	}

	body := strings.TrimSpace(res.String())
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return nil, &RemoteServiceError{
		Method:     res.Request.Method,
		Path:       res.Request.URL,
		StatusCode: res.StatusCode(),
		Body:       body,
	}
}

func isNotFound(res *resty.Response) bool {
	return res.StatusCode() == http.StatusNotFound
}
