package web

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"

	"github.com/mhsanaei/3x-accounts/config"
	"github.com/mhsanaei/3x-accounts/util/calendar"
	"github.com/mhsanaei/3x-accounts/util/metrics"
	"github.com/mhsanaei/3x-accounts/web/job"
	"github.com/mhsanaei/3x-accounts/web/service"
	"github.com/mhsanaei/3x-accounts/xray"
)

const (
	statsCacheTTL  = 10 * time.Second
	scrapeTimeout  = 5 * time.Second
	defaultNS      = "accounts"
	userAgentLabel = "3x-accounts"
)

// App holds the services of the synchronization engine, wired to one proxy backend. It is
// shared by the web server and the command line.
type App struct {
	Config *config.AppConfig

	Remote   service.RemoteClient
	Metrics  *metrics.Metrics
	Quota    *service.QuotaService
	Sync     *service.SyncService
	Queue    *service.SyncQueue
	Ledger   *service.ResetLogService
	Users    *service.UserService
	Policies *service.PolicyService
	Accounts *service.AccountService
	Stats    *service.StatsService
}

// NewApp builds the services for cfg with a backend client. The database must already be initialized.
func NewApp(cfg *config.AppConfig) (*App, error) {
	remote, err := xray.NewClient(xray.ClientConfig{
		BaseURL:     cfg.Remote.BaseURL,
		AccessToken: cfg.Remote.AccessToken,
		CertFile:    cfg.Remote.CertFile,
		Insecure:    cfg.Remote.Insecure,
		Timeout:     cfg.Remote.Timeout,
		InboundTag:  cfg.Remote.InboundTag,
		UserAgent:   fmt.Sprintf("%s/%s", userAgentLabel, config.GetVersion()),
		Debug:       config.IsDebug(),
	})
	if err != nil {
		return nil, err
	}
	return newApp(cfg, remote)
}

func newApp(cfg *config.AppConfig, remote service.RemoteClient) (*App, error) {
	namespace := cfg.Web.MetricsNamespace
	if namespace == "" {
		namespace = defaultNS
	}

	a := &App{Config: cfg, Remote: remote, Metrics: metrics.New(namespace)}
	a.Quota = service.NewQuotaService(cfg.MonthlyQuota)
	a.Sync = service.NewSyncService(remote, a.Quota, cfg.SyncWorkers, a.Metrics)
	a.Queue = service.NewSyncQueue(a.Sync, cfg.QueueSize, cfg.SyncWorkers, a.Metrics)
	a.Ledger = &service.ResetLogService{}
	a.Users = service.NewUserService(a.Queue)
	a.Policies = service.NewPolicyService(a.Queue)
	a.Accounts = service.NewAccountService(remote, a.Quota, a.Sync, a.Users)
	a.Stats = service.NewStatsService(remote, statsCacheTTL)

	if err := a.Metrics.Register(metrics.NewSystemCollector(namespace, scrapeTimeout, a.Stats.Snapshot)); err != nil {
		return nil, err
	}
	return a, nil
}

// NewUsageResetJob builds the reset job for the configured calendar and time zone.
func (a *App) NewUsageResetJob(ctx context.Context, clock quartz.Clock) (*job.UsageResetJob, error) {
	cal, err := calendar.Parse(a.Config.Reset.Calendar)
	if err != nil {
		return nil, err
	}
	return job.NewUsageResetJob(ctx, clock, a.Config.Location(), cal, a.Ledger, a.Sync, a.Metrics), nil
}
