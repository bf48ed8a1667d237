package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"cxdaemon/pkg/alerts"
	"cxdaemon/pkg/common"
	"cxdaemon/pkg/db"
	cxHttp "cxdaemon/pkg/http"
	"cxdaemon/pkg/ipc"
	"cxdaemon/pkg/models"
	"cxdaemon/pkg/monitor"
)

const (
	defaultIPCRate  float64 = 100.0
	defaultIPCBurst int     = 200
)

var (
	flagSocket         string
	flagDatabase       string
	flagForeground     bool
	flagMemoryWarning  float64
	flagMemoryCritical float64
	flagDiskWarning    float64
	flagDiskCritical   float64
	flagCheckInterval  int
	flagAlertCooldown  int
	flagRetentionDays  int
	flagHTTPAddr       string
	flagVerbose        bool
)

var rootCmd = &cobra.Command{
	Use:          "cx-daemon",
	Short:        "CX system monitoring daemon",
	Long:         "Background service that monitors host health, persists alerts and serves them over a local unix socket.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	defaults := models.DefaultMonitoringConfig()

	rootCmd.Flags().StringVar(&flagSocket, "socket", "", "unix socket path for IPC (default: resolved cx socket path)")
	rootCmd.Flags().StringVar(&flagDatabase, "database", "", "database path for alert storage (default: resolved cx db path)")
	rootCmd.Flags().BoolVar(&flagForeground, "foreground", false, "run in the foreground (the daemon always does; use a supervisor to background it)")
	rootCmd.Flags().Float64Var(&flagMemoryWarning, "memory-warning", defaults.MemoryWarningThreshold, "memory warning threshold (percentage)")
	rootCmd.Flags().Float64Var(&flagMemoryCritical, "memory-critical", defaults.MemoryCriticalThreshold, "memory critical threshold (percentage)")
	rootCmd.Flags().Float64Var(&flagDiskWarning, "disk-warning", defaults.DiskWarningThreshold, "disk warning threshold (percentage)")
	rootCmd.Flags().Float64Var(&flagDiskCritical, "disk-critical", defaults.DiskCriticalThreshold, "disk critical threshold (percentage)")
	rootCmd.Flags().IntVar(&flagCheckInterval, "check-interval", defaults.CheckIntervalSecs, "monitoring check interval in seconds")
	rootCmd.Flags().IntVar(&flagAlertCooldown, "alert-cooldown", defaults.AlertCooldownSecs, "seconds to suppress repeat alerts from the same source (0 disables)")
	rootCmd.Flags().IntVar(&flagRetentionDays, "retention-days", defaults.RetentionDays, "delete dismissed alerts older than this many days")
	rootCmd.Flags().StringVar(&flagHTTPAddr, "http-addr", "", "optional read-only HTTP status listener, e.g. 127.0.0.1:1080 (disabled when empty)")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
}

func main() {
	// .env is optional outside development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon() error {
	if flagVerbose && os.Getenv(common.EnvKeyGoEnv) == "" {
		os.Setenv(common.EnvKeyGoEnv, "development")
	}

	logger := common.GetLoggerWith(common.LoggerNameDaemon)
	logger.Info("Starting cx-daemon", zap.String("version", common.Version))

	config := models.MonitoringConfig{
		MemoryWarningThreshold:  flagMemoryWarning,
		MemoryCriticalThreshold: flagMemoryCritical,
		DiskWarningThreshold:    flagDiskWarning,
		DiskCriticalThreshold:   flagDiskCritical,
		CheckIntervalSecs:       flagCheckInterval,
		AlertCooldownSecs:       flagAlertCooldown,
		RetentionDays:           flagRetentionDays,
		DiskPath:                models.DefaultMonitoringConfig().DiskPath,
	}
	if issues := config.Validate(); issues != nil {
		return fmt.Errorf("invalid monitoring config: %v", issues)
	}

	socketPath := flagSocket
	if socketPath == "" {
		socketPath = os.Getenv(common.EnvKeyCXSocketPath)
	}
	if socketPath == "" {
		socketPath = common.DaemonSocketPath()
	}

	dbPath := flagDatabase
	if dbPath == "" {
		dbPath = os.Getenv(common.EnvKeyCXDbPath)
	}
	if dbPath == "" {
		dbPath = common.AlertDbPath()
	}

	dialector, err := db.UseSqliteDialector(dbPath)
	if err != nil {
		return err
	}
	dbInstance, err := db.Open(dialector)
	if err != nil {
		return err
	}
	logger.Info("Alert database opened", zap.String("database", dbPath))

	store := alerts.NewAlertStore(dbInstance)
	service := monitor.NewService(config, store, monitor.HostSampler{})
	logger.Info("Monitoring service initialized",
		zap.Int("check_interval_secs", config.CheckIntervalSecs))

	go service.Run(context.Background())

	ipcRate, ipcBurst, err := ipcLimitsFromEnv()
	if err != nil {
		return err
	}

	if flagHTTPAddr != "" {
		go func() {
			if !flagVerbose {
				gin.SetMode(gin.ReleaseMode)
			}
			ss := &cxHttp.StatusServer{
				Server:  gin.Default(),
				Store:   store,
				Monitor: service,
			}
			ss.Setup()
			logger.Info("Starting HTTP status server", zap.String("addr", flagHTTPAddr))
			if err := ss.Server.Run(flagHTTPAddr); err != nil {
				log.Fatalf("http status server failed to serve: %v", err)
			}
		}()
	}

	server := &ipc.Server{
		SocketPath:   socketPath,
		Handler:      ipc.NewRequestHandler(store, service),
		RequestRate:  rate.Limit(ipcRate),
		RequestBurst: ipcBurst,
	}
	if err := server.Listen(); err != nil {
		return err
	}
	return server.Serve()
}

func ipcLimitsFromEnv() (float64, int, error) {
	ipcRate := defaultIPCRate
	ipcBurst := defaultIPCBurst

	if raw, found := os.LookupEnv(common.EnvKeyCXIPCRate); found {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid %s, should be a float64 value", common.EnvKeyCXIPCRate)
		}
		ipcRate = parsed
	}
	if raw, found := os.LookupEnv(common.EnvKeyCXIPCBurst); found {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid %s, should be an int value", common.EnvKeyCXIPCBurst)
		}
		ipcBurst = int(parsed)
	}
	return ipcRate, ipcBurst, nil
}
