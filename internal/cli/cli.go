package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/topdog/internal/api"
	"github.com/pfrederiksen/topdog/internal/config"
	"github.com/pfrederiksen/topdog/internal/contest"
	"github.com/pfrederiksen/topdog/internal/crawler"
	"github.com/pfrederiksen/topdog/internal/logger"
	"github.com/pfrederiksen/topdog/internal/pipeline"
	"github.com/pfrederiksen/topdog/internal/scraper"
	"github.com/pfrederiksen/topdog/internal/storage"
	"github.com/pfrederiksen/topdog/internal/upload"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig  string
	flagVerbose bool
	flagOnce    bool
	flagFormat  string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topdog",
		Short: "Track votes and fundraising for dog photo contests",
		Long: `A crawler for dog photo contests.
Scrapes every entrant and contest total, reconciles bonus-day donations,
ranks entrants by votes and publishes JSON and CSV snapshots.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ./topdog.yaml or ./config/topdog.yaml)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(newCrawlCmd(), newServeCmd(), newUploadCmd())
	return cmd
}

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl contests and publish snapshots every interval",
		RunE:  runCrawl,
	}
	cmd.Flags().BoolVar(&flagOnce, "once", false, "Run a single cycle and exit")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format for --once: text or json")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the latest snapshot over HTTP and WebSocket",
		RunE:  runServe,
	}
}

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Ship CSV snapshots to the object store every interval",
		RunE:  runUpload,
	}
	cmd.Flags().BoolVar(&flagOnce, "once", false, "Ship once and exit")
	return cmd
}

// loadConfig reads the configuration and installs a logger at its level
func loadConfig(cmd *cobra.Command) (*config.Loader, *config.Config, error) {
	loader := config.NewLoader(flagConfig)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if flagVerbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))

	if file := loader.ConfigFile(); file != "" {
		logger.Debug("Loaded config", logger.Fields{"file": file})
	}
	return loader, cfg, nil
}

// runCrawl is the crawl command logic
func runCrawl(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	loader, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	registry, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}
	var current atomic.Pointer[contest.Registry]
	current.Store(registry)

	store, err := storage.New(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	sc := scraper.New(scraper.Options{
		Domain:    cfg.Domain,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	})
	p := pipeline.New(crawler.New(sc, cfg.Concurrency), store, pipeline.Options{
		Registry:  current.Load,
		Reconcile: cfg.Reconcile,
	})

	if flagOnce {
		res, err := p.RunCycle(cmd.Context())
		if err != nil {
			return err
		}
		return WriteOutput(cmd.OutOrStdout(), newOutputResult(res, time.Now(), cfg.Reconcile), format, flagVerbose)
	}

	if loader.ConfigFile() != "" {
		loader.Watch(func(next *config.Config) {
			r, err := next.Registry()
			if err != nil {
				logger.Error("Ignoring config change", nil, err)
				return
			}
			current.Store(r)
			logger.Info("Contest registry reloaded", logger.Fields{
				"contests": len(r.Contests()),
				"rules":    len(r.Rules()),
			})
		}, func(err error) {
			logger.Error("Ignoring config change", nil, err)
		})
	}

	logger.Info("Crawler started", logger.Fields{
		"domain":     sc.Domain(),
		"interval":   cfg.Interval.String(),
		"output_dir": store.Dir(),
	})
	return p.Run(cmd.Context(), cfg.Interval)
}

// runServe is the serve command logic
func runServe(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	store, err := storage.New(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	return api.NewServer(store).ListenAndServe(cmd.Context(), cfg.API.Addr)
}

// runUpload is the upload command logic
func runUpload(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	uploader, err := newUploader(cfg.Upload, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	shipper := upload.NewShipper(cfg.OutputDir, nil, uploader)

	if flagOnce {
		res := shipper.Ship(cmd.Context())
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d of %d uploads failed", len(res.Failed), len(res.Failed)+len(res.Uploaded))
		}
		return nil
	}

	logger.Info("Uploader started", logger.Fields{
		"bucket":   cfg.Upload.Bucket,
		"interval": cfg.Upload.Interval.String(),
		"dry_run":  cfg.Upload.DryRun,
	})
	return shipper.Run(cmd.Context(), cfg.Upload.Interval)
}

func newUploader(cfg config.UploadConfig, out io.Writer) (upload.Uploader, error) {
	if cfg.DryRun {
		return upload.NewDryRunUploader(out), nil
	}
	if cfg.Token == "" {
		logger.Warn("No upload token configured, requests are unauthenticated", nil)
	}
	u, err := upload.NewGCSUploader(upload.GCSOptions{
		BaseURL:    cfg.BaseURL,
		Bucket:     cfg.Bucket,
		Token:      cfg.Token,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing uploader: %w", err)
	}
	return u, nil
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(ExitError)
	}
}
