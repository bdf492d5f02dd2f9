package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FranksOps/ddgs/internal/config"
	"github.com/FranksOps/ddgs/internal/metrics"
	"github.com/FranksOps/ddgs/internal/storage"
	"github.com/FranksOps/ddgs/internal/storage/csvbackend"
	"github.com/FranksOps/ddgs/internal/storage/jsonbackend"
	"github.com/FranksOps/ddgs/internal/storage/postgres"
	"github.com/FranksOps/ddgs/internal/storage/sqlite"
	"github.com/FranksOps/ddgs/internal/workpool"
	"github.com/FranksOps/ddgs/pkg/ddgs"
	"github.com/FranksOps/ddgs/pkg/proxy"
)

var version = "0.1.0"

var (
	configFile string
	settings   config.Config
	logger     *slog.Logger
	recorder   storage.Backend
	metricsSrv *metrics.Server
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	shutdown()
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ddgs",
	Short: "DuckDuckGo search from the command line",
	Long: `ddgs queries DuckDuckGo's web, image, video, news, answer, suggestion,
maps, translation and chat endpoints and prints the results as JSON.

Settings come from --config (YAML), DDGS_* environment variables and flags,
with flags taking precedence.

Examples:
  ddgs text "golang generics" --max 50 --backend html
  ddgs images butterfly --size Large --color Monochrome
  ddgs maps cafe --city Berlin --max 40
  ddgs translate --to de "good morning" "thank you"
  DDGS_AUDIT_BACKEND=sqlite DDGS_AUDIT_DSN=audit.db ddgs audit`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	config.RegisterFlags(rootCmd.PersistentFlags())
}

func setup(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	settings = cfg

	level, _ := cfg.Level()
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if cfg.Workers > 0 {
		workpool.SetDefaultSize(cfg.Workers)
	}

	if cfg.MetricsPort > 0 {
		metricsSrv, err = metrics.Start(":"+strconv.Itoa(cfg.MetricsPort), logger)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("serving metrics", "addr", metricsSrv.Addr())
	}

	if cfg.Audit.Backend != "" {
		recorder, err = openAudit(cmd.Context(), cfg.Audit)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		logger.Debug("auditing requests", "backend", cfg.Audit.Backend)
	}
	return nil
}

func shutdown() {
	if recorder != nil {
		if err := recorder.Close(); err != nil && logger != nil {
			logger.Warn("closing audit store", "err", err)
		}
	}
	if err := metricsSrv.Stop(context.Background()); err != nil && logger != nil {
		logger.Warn("stopping metrics server", "err", err)
	}
}

func openAudit(ctx context.Context, a config.Audit) (storage.Backend, error) {
	switch a.Backend {
	case config.AuditSQLite:
		return sqlite.New(a.DSN)
	case config.AuditPostgres:
		return postgres.New(ctx, a.DSN)
	case config.AuditJSON:
		return jsonbackend.New(a.DSN)
	case config.AuditCSV:
		return csvbackend.New(a.DSN)
	default:
		return nil, fmt.Errorf("%q: %w", a.Backend, config.ErrAuditBackend)
	}
}

// newClient builds a client from the resolved settings. A proxy file is
// used only when no single proxy is configured.
func newClient() (*ddgs.Client, error) {
	cfg := ddgs.Config{
		Proxy:              settings.Proxy,
		Timeout:            settings.Timeout,
		Profile:            settings.Profile,
		InsecureSkipVerify: settings.Insecure,
		RequestsPerSecond:  settings.RPS,
		Jitter:             settings.Jitter,
		Recorder:           recorder,
		Logger:             logger,
	}
	if settings.Proxy == "" && settings.ProxyFile != "" {
		pool := proxy.NewPool(proxy.Config{})
		if err := pool.LoadFile(settings.ProxyFile); err != nil {
			return nil, fmt.Errorf("load proxies: %w", err)
		}
		logger.Debug("rotating proxies", "count", pool.Len())
		cfg.ProxyPool = pool
	}
	return ddgs.New(cfg)
}
