package service

import (
	"context"

	"github.com/mhsanaei/3x-accounts/xray"
)

// RemoteClient is the subset of the proxy backend API the services depend on.
type RemoteClient interface {
	CreateUser(ctx context.Context, name string, trafficLimit uint64) (*xray.RemoteUser, error)
	GetUser(ctx context.Context, name string) (*xray.RemoteUser, error)
	ResetUserUsage(ctx context.Context, name string) error
	UpdateTrafficLimit(ctx context.Context, name string, limit uint64) error
	ActivateUser(ctx context.Context, name string) error
	DeactivateUser(ctx context.Context, name string) error
	RotateCredential(ctx context.Context, name string) error
	GetSystemStats(ctx context.Context) (*xray.SystemStats, error)
	SetRemarks(ctx context.Context, remark string) error
}

var _ RemoteClient = (*xray.Client)(nil)
