// Package web provides the admin API server of the accounts service, including
// HTTP/HTTPS serving, routing, the sync queue and background job scheduling.
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/mhsanaei/3x-accounts/config"
	"github.com/mhsanaei/3x-accounts/logger"
	"github.com/mhsanaei/3x-accounts/util/common"
	"github.com/mhsanaei/3x-accounts/web/controller"
	"github.com/mhsanaei/3x-accounts/web/job"
	"github.com/mhsanaei/3x-accounts/web/middleware"
	"github.com/mhsanaei/3x-accounts/web/network"

	"github.com/coder/quartz"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

const shutdownTimeout = 10 * time.Second

// Server represents the admin API server with its controllers, sync queue and scheduled jobs.
type Server struct {
	app *App

	httpServer *http.Server
	listener   net.Listener

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web server instance with a cancellable context.
func NewServer(app *App) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{app: app, ctx: ctx, cancel: cancel}
}

// initRouter initializes Gin, registers middleware and controllers and returns the configured engine.
func (s *Server) initRouter() *gin.Engine {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
	))

	cfg := s.app.Config.Web
	engine.GET("/metrics", middleware.BearerAuth(cfg.MetricsToken), gin.WrapH(s.app.Metrics.Handler()))

	api := engine.Group("/api", middleware.BearerAuth(cfg.AdminToken))
	{
		users := api.Group("/users")
		controller.NewUserController(users, s.app.Users)
		controller.NewAccountController(users, s.app.Accounts)
		controller.NewPolicyController(api.Group("/policies"), s.app.Policies)
		controller.NewServerController(api.Group("/server"), s.app.Stats, s.app.Queue)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine
}

// startTask schedules the background jobs and runs the startup synchronization.
func (s *Server) startTask() error {
	cfg := s.app.Config
	cronLogger := logger.Bridge{Prefix: "cron"}
	chain := cron.NewChain(cron.SkipIfStillRunning(cronLogger))

	resetJob, err := s.app.NewUsageResetJob(s.ctx, quartz.NewReal())
	if err != nil {
		return err
	}
	if _, err := s.cron.AddJob(cfg.Reset.Schedule, chain.Then(resetJob)); err != nil {
		return err
	}
	logger.Infof("usage reset scheduled at %s (%s calendar, %s)", cfg.Reset.Schedule, cfg.Reset.Calendar, cfg.Reset.TimeZone)

	if cfg.ReconcileSchedule != config.ScheduleOff {
		if _, err := s.cron.AddJob(cfg.ReconcileSchedule, chain.Then(job.NewQuotaReconcileJob(s.ctx, s.app.Sync))); err != nil {
			return err
		}
	}

	go s.syncOnStart()
	return nil
}

// syncOnStart pushes quotas of all users and the configured remark to the backend.
func (s *Server) syncOnStart() {
	defer common.Recover("startup sync panic")

	result, err := s.app.Sync.SyncAll(s.ctx)
	if err != nil {
		logger.Warning("startup quota sync failed:", err)
	} else {
		logger.Infof("startup quota sync: %s", result.Summary("synced"))
	}

	if err := s.app.Remote.SetRemarks(s.ctx, s.app.Config.Remote.Remark); err != nil {
		logger.Warning("set host remarks failed:", err)
	}
}

// Start initializes and starts the web server.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	cfg := s.app.Config
	cronLogger := logger.Bridge{Prefix: "cron"}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)
	s.cron.Start()

	s.app.Queue.Start(s.ctx)

	engine := s.initRouter()

	listenAddr := net.JoinHostPort(cfg.Web.Listen, strconv.Itoa(cfg.Web.Port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	if cfg.Web.CertFile != "" || cfg.Web.KeyFile != "" {
		if cert, err := tls.LoadX509KeyPair(cfg.Web.CertFile, cfg.Web.KeyFile); err == nil {
			listener = network.NewTLSListener(listener, &tls.Config{Certificates: []tls.Certificate{cert}})
			logger.Info("Web server running HTTPS on ", listener.Addr())
		} else {
			logger.Error("Error loading certificates: ", err)
			logger.Info("Web server running HTTP on ", listener.Addr())
		}
	} else {
		logger.Info("Web server running HTTP on ", listener.Addr())
	}
	if cfg.Web.AdminToken == "" {
		logger.Warning("admin token is not set, the API rejects every request")
	}

	s.listener = listener
	s.httpServer = &http.Server{Handler: engine, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		_ = s.httpServer.Serve(listener)
	}()

	return s.startTask()
}

// Stop gracefully shuts down the web server, the cron jobs and the sync queue.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	var err1, err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			err2 = err
		}
	}
	s.app.Queue.Stop()
	return common.Combine(err1, err2)
}

// GetCtx returns the server's context.
func (s *Server) GetCtx() context.Context { return s.ctx }

// GetCron returns the server's cron scheduler instance.
func (s *Server) GetCron() *cron.Cron { return s.cron }
