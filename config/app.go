package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the config file.
const (
	EnvRemoteBaseURL     = "MARZBAN_BASE_URL"
	EnvRemoteAccessToken = "MARZBAN_ACCESS_TOKEN"
	EnvRemoteCertFile    = "XRAY_SERVER_CERTIFICATE_FILE"
	EnvRemoteInsecure    = "XRAY_SERVER_INSECURE"
	EnvRemoteTimeout     = "XRAY_REQUEST_TIMEOUT"
	EnvRemoteRemark      = "XRAY_REMARK"
	EnvInboundTag        = "XRAY_INBOUND_TAG"
	EnvMonthlyQuota      = "MONTHLY_TRAFFIC_LIMIT_BYTES"
	EnvResetTimeZone     = "RESET_TIME_ZONE"
	EnvResetCalendar     = "RESET_CALENDAR"
	EnvResetSchedule     = "RESET_SCHEDULE"
	EnvSyncWorkers       = "SYNC_WORKERS"
	EnvReconcileSchedule = "RECONCILE_SCHEDULE"
	EnvListen            = "WEB_LISTEN"
	EnvPort              = "WEB_PORT"
	EnvAdminToken        = "ADMIN_ACCESS_TOKEN"
	EnvMetricsToken      = "METRICS_ACCESS_TOKEN"
	EnvMetricsNamespace  = "METRICS_NAMESPACE"
)

const (
	defaultRemoteTimeout = 15 * time.Second
	defaultInboundTag    = "Shadowsocks TCP"
	defaultRemark        = "Server"
	defaultTimeZone      = "Asia/Tehran"
	defaultCalendar      = "persian"
	defaultResetSchedule = "@every 1m"
	defaultReconcile     = "@every 1h"
	defaultSyncWorkers   = 8
	defaultQueueSize     = 256
	defaultPort          = 2053
)

// ScheduleOff disables a scheduled job.
const ScheduleOff = "off"

// ErrMissingRemote is returned when the proxy backend is not configured.
var ErrMissingRemote = errors.New("missing remote backend (set `remote.baseUrl` and `remote.accessToken` or MARZBAN_BASE_URL / MARZBAN_ACCESS_TOKEN)")

// RemoteConfig describes how to reach the proxy-management backend.
type RemoteConfig struct {
	BaseURL     string        `yaml:"baseUrl"`
	AccessToken string        `yaml:"accessToken"`
	CertFile    string        `yaml:"certFile"`
	Insecure    bool          `yaml:"insecure"`
	Timeout     time.Duration `yaml:"timeout"`
	InboundTag  string        `yaml:"inboundTag"`
	Remark      string        `yaml:"remark"`
}

// ResetConfig controls when monthly usage counters are reset.
type ResetConfig struct {
	TimeZone string `yaml:"timeZone"`
	Calendar string `yaml:"calendar"`
	Schedule string `yaml:"schedule"`
}

// WebConfig holds the admin API listener settings.
type WebConfig struct {
	Listen           string `yaml:"listen"`
	Port             int    `yaml:"port"`
	CertFile         string `yaml:"certFile"`
	KeyFile          string `yaml:"keyFile"`
	AdminToken       string `yaml:"adminToken"`
	MetricsToken     string `yaml:"metricsToken"`
	MetricsNamespace string `yaml:"metricsNamespace"`
}

// AppConfig is the resolved application configuration.
type AppConfig struct {
	Remote       RemoteConfig   `yaml:"remote"`
	Reset        ResetConfig    `yaml:"reset"`
	Web          WebConfig      `yaml:"web"`
	Database     DatabaseConfig `yaml:"database"`
	MonthlyQuota uint64         `yaml:"monthlyQuota"`
	SyncWorkers  int            `yaml:"syncWorkers"`
	QueueSize    int            `yaml:"queueSize"`
	// ReconcileSchedule is the cron spec of the full quota resync, or "off".
	ReconcileSchedule string `yaml:"reconcileSchedule"`
}

// LoadEnvFile loads variables from a .env file next to the binary, if present.
// Variables already set in the environment win.
func LoadEnvFile(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load env file %s: %v\n", p, err)
		}
	}
}

// Load reads the YAML config file at path (a missing file is not an error), applies
// environment overrides and defaults, and validates the result.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{Database: *GetDefaultDatabaseConfig()}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.Remote.BaseURL, EnvRemoteBaseURL)
	setString(&c.Remote.AccessToken, EnvRemoteAccessToken)
	setString(&c.Remote.CertFile, EnvRemoteCertFile)
	setString(&c.Remote.Remark, EnvRemoteRemark)
	setString(&c.Remote.InboundTag, EnvInboundTag)
	setString(&c.Reset.TimeZone, EnvResetTimeZone)
	setString(&c.Reset.Calendar, EnvResetCalendar)
	setString(&c.Reset.Schedule, EnvResetSchedule)
	setString(&c.ReconcileSchedule, EnvReconcileSchedule)
	setString(&c.Web.Listen, EnvListen)
	setString(&c.Web.AdminToken, EnvAdminToken)
	setString(&c.Web.MetricsToken, EnvMetricsToken)
	setString(&c.Web.MetricsNamespace, EnvMetricsNamespace)

	if raw := strings.TrimSpace(os.Getenv(EnvRemoteInsecure)); raw != "" {
		insecure, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRemoteInsecure, err)
		}
		c.Remote.Insecure = insecure
	}
	if raw := strings.TrimSpace(os.Getenv(EnvRemoteTimeout)); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRemoteTimeout, err)
		}
		c.Remote.Timeout = timeout
	}
	if raw := strings.TrimSpace(os.Getenv(EnvMonthlyQuota)); raw != "" {
		quota, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMonthlyQuota, err)
		}
		c.MonthlyQuota = quota
	}
	if raw := strings.TrimSpace(os.Getenv(EnvSyncWorkers)); raw != "" {
		workers, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSyncWorkers, err)
		}
		c.SyncWorkers = workers
	}
	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Web.Port = port
	}
	return nil
}

func (c *AppConfig) applyDefaults() {
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = defaultRemoteTimeout
	}
	if c.Remote.InboundTag == "" {
		c.Remote.InboundTag = defaultInboundTag
	}
	if c.Remote.Remark == "" {
		c.Remote.Remark = defaultRemark
	}
	if c.Reset.TimeZone == "" {
		c.Reset.TimeZone = defaultTimeZone
	}
	if c.Reset.Calendar == "" {
		c.Reset.Calendar = defaultCalendar
	}
	if c.Reset.Schedule == "" {
		c.Reset.Schedule = defaultResetSchedule
	}
	if c.ReconcileSchedule == "" {
		c.ReconcileSchedule = defaultReconcile
	}
	if c.SyncWorkers <= 0 {
		c.SyncWorkers = defaultSyncWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.Web.Port <= 0 {
		c.Web.Port = defaultPort
	}
}

// Validate reports configuration that cannot work at runtime.
func (c *AppConfig) Validate() error {
	if c.Remote.BaseURL == "" || c.Remote.AccessToken == "" {
		return ErrMissingRemote
	}
	if _, err := time.LoadLocation(c.Reset.TimeZone); err != nil {
		return fmt.Errorf("reset time zone %q: %w", c.Reset.TimeZone, err)
	}
	switch c.Reset.Calendar {
	case "gregorian", "persian":
	default:
		return fmt.Errorf("unsupported reset calendar: %s", c.Reset.Calendar)
	}
	return c.Database.ValidateConfig()
}

// Location returns the time zone used to evaluate billing cycles.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reset.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
