package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/spf13/cobra"

	"github.com/mhsanaei/3x-accounts/config"
	"github.com/mhsanaei/3x-accounts/database"
	"github.com/mhsanaei/3x-accounts/logger"
	"github.com/mhsanaei/3x-accounts/util/common"
	"github.com/mhsanaei/3x-accounts/web"
)

// bootstrap loads the configuration, initializes logging and opens the database.
func bootstrap() (*config.AppConfig, error) {
	config.LoadEnvFile()

	level, err := logger.LevelFor(config.GetLogLevel())
	if err != nil {
		return nil, err
	}
	logger.InitLogger(level)

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		return nil, err
	}
	if err := database.InitDB(&cfg.Database); err != nil {
		return nil, err
	}
	return cfg, nil
}

func shutdown() {
	if err := database.CloseDB(); err != nil {
		logger.Warning("close database failed:", err)
	}
	logger.CloseLogger()
}

func startServer() (*web.Server, error) {
	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		return nil, err
	}
	app, err := web.NewApp(cfg)
	if err != nil {
		return nil, err
	}
	server := web.NewServer(app)
	if err := server.Start(); err != nil {
		return nil, err
	}
	return server, nil
}

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	if _, err := bootstrap(); err != nil {
		log.Fatal(err)
	}
	defer shutdown()

	server, err := startServer()
	if err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, os.Interrupt)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			logger.Info("reloading configuration")
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			server, err = startServer()
			if err != nil {
				log.Println(err)
				return
			}
		default:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			return
		}
	}
}

func syncQuotas() {
	cfg, err := bootstrap()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer shutdown()

	app, err := web.NewApp(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	result, err := app.Sync.SyncAll(context.Background())
	if err != nil {
		fmt.Println("quota sync failed:", err)
		return
	}
	fmt.Println(result.Summary("synced"))
	for _, f := range result.Failed {
		fmt.Println(" -", f.Error())
	}
}

func resetUsage(date string) {
	cfg, err := bootstrap()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer shutdown()

	now := time.Now()
	if date != "" {
		now, err = time.ParseInLocation(time.DateOnly, date, cfg.Location())
		if err != nil {
			fmt.Println("invalid date:", err)
			return
		}
	}

	app, err := web.NewApp(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	resetJob, err := app.NewUsageResetJob(context.Background(), quartz.NewReal())
	if err != nil {
		fmt.Println(err)
		return
	}
	report, err := resetJob.RunAt(context.Background(), now)
	if err != nil {
		fmt.Println("usage reset failed:", err)
		return
	}
	if !report.Acted {
		fmt.Printf("%s is not the first day of a %s month, nothing to reset\n", now.In(cfg.Location()).Format(time.DateOnly), cfg.Reset.Calendar)
		return
	}
	fmt.Println(report.Result.Summary("reset"))
}

func showSetting() {
	config.LoadEnvFile()
	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		fmt.Println("load config failed:", err)
		return
	}
	mask := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return "********"
	}
	fmt.Println("current settings as follows:")
	fmt.Println("config:", config.GetConfigPath())
	fmt.Println("remote:", cfg.Remote.BaseURL)
	fmt.Println("remote token:", mask(cfg.Remote.AccessToken))
	fmt.Println("inbound tag:", cfg.Remote.InboundTag)
	fmt.Println("monthly quota:", common.FormatTraffic(cfg.MonthlyQuota))
	fmt.Printf("reset: %s calendar, %s, schedule %s\n", cfg.Reset.Calendar, cfg.Reset.TimeZone, cfg.Reset.Schedule)
	fmt.Println("reconcile:", cfg.ReconcileSchedule)
	fmt.Println("database:", cfg.Database.Type)
	fmt.Printf("listen: %s:%d\n", cfg.Web.Listen, cfg.Web.Port)
	fmt.Println("admin token:", mask(cfg.Web.AdminToken))
	fmt.Println("metrics token:", mask(cfg.Web.MetricsToken))
}

func main() {
	var rootCmd = &cobra.Command{
		Use:     config.GetName(),
		Version: config.GetVersion(),
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the admin API server and scheduled jobs",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Push the status and effective quota of every user to the proxy backend",
		Run: func(cmd *cobra.Command, args []string) {
			syncQuotas()
		},
	}

	var resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Run the monthly usage reset once",
		Run: func(cmd *cobra.Command, args []string) {
			date, _ := cmd.Flags().GetString("date")
			resetUsage(date)
		},
	}
	resetCmd.Flags().String("date", "", "evaluate the schedule as of this date (YYYY-MM-DD, reset time zone)")

	var settingCmd = &cobra.Command{
		Use:   "setting",
		Short: "Inspect settings",
	}

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Run: func(cmd *cobra.Command, args []string) {
			showSetting()
		},
	}

	settingCmd.AddCommand(showCmd)

	rootCmd.AddCommand(runCmd, syncCmd, resetCmd, settingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
