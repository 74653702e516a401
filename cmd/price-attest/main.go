package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/StrathCole/price-attest/pkg/cache"
	"github.com/StrathCole/price-attest/pkg/config"
	"github.com/StrathCole/price-attest/pkg/coordinator"
	"github.com/StrathCole/price-attest/pkg/feed"
	"github.com/StrathCole/price-attest/pkg/logging"
	"github.com/StrathCole/price-attest/pkg/metrics"
	"github.com/StrathCole/price-attest/pkg/version"
)

const (
	modeCache = "cache"
	modeRead  = "read"

	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

const usageText = `Usage:
  price-attest --mode=cache --times=<N> [--config=<file>] [--workers=<W>] [--interval=<d>]
  price-attest --mode=read [--config=<file>]
  price-attest --version

Modes:
  cache  collect N ticks per worker, sign, verify and aggregate; writes the cache
  read   print the cached aggregate and per-worker records

Flags:
`

// options holds the parsed command line.
type options struct {
	mode       string
	times      int
	configFile string
	workers    int
	interval   time.Duration
	showVer    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var opts options

	fs := flag.NewFlagSet("price-attest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.mode, "mode", "", "Run mode: cache or read")
	fs.IntVar(&opts.times, "times", 0, "Ticks collected per worker (cache mode)")
	fs.StringVar(&opts.configFile, "config", "", "Path to configuration file (optional)")
	fs.IntVar(&opts.workers, "workers", 0, "Number of concurrent workers (overrides config)")
	fs.DurationVar(&opts.interval, "interval", 0, "Delay after each tick (overrides config)")
	fs.BoolVar(&opts.showVer, "version", false, "Show version and exit")
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.showVer {
		return &opts, nil
	}

	switch opts.mode {
	case modeCache, modeRead:
	case "":
		fs.Usage()
		return nil, errors.New("--mode is required")
	default:
		fs.Usage()
		return nil, fmt.Errorf("unknown mode %q", opts.mode)
	}
	if opts.times < 0 {
		fs.Usage()
		return nil, fmt.Errorf("--times must be positive, got %d", opts.times)
	}
	if opts.workers < 0 || opts.interval < 0 {
		fs.Usage()
		return nil, errors.New("--workers and --interval must not be negative")
	}
	return &opts, nil
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitUsage
	}

	if opts.showVer {
		fmt.Fprintf(stdout, "price-attest version %s\n", version.Version)
		return exitOK
	}

	cfg := config.Default()
	if opts.configFile != "" {
		cfg, err = config.Load(opts.configFile)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return exitFailure
		}
	}

	if opts.times > 0 {
		cfg.Pipeline.Ticks = opts.times
	}
	if opts.workers > 0 {
		cfg.Pipeline.Workers = opts.workers
	}
	if opts.interval > 0 {
		cfg.Pipeline.Interval = config.Duration(opts.interval)
	}

	if opts.mode == modeCache && cfg.Pipeline.Ticks <= 0 {
		fmt.Fprint(stderr, usageText)
		fmt.Fprintln(stderr, "Error: --times is required in cache mode")
		return exitUsage
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return exitFailure
	}

	logger, err := logging.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitFailure
	}

	switch opts.mode {
	case modeRead:
		if err := runRead(cfg, stdout); err != nil {
			logger.Error("Failed to read cache", "error", err)
			return exitFailure
		}
		return exitOK
	default:
		logger.Info("Starting price-attest", "version", version.Version, "workers", cfg.Pipeline.Workers, "ticks", cfg.Pipeline.Ticks)

		if cfg.Metrics.Enabled {
			metrics.Init()
			go func() {
				logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
				if err := metrics.ServeHTTP(cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
					logger.Error("Metrics server failed", "error", err)
				}
			}()
		}

		if err := runCache(ctx, cfg, stdout, logger); err != nil {
			logger.Error("Pipeline failed", "error", err)
			return exitFailure
		}
		return exitOK
	}
}

func cacheOptions(cfg *config.Config) cache.Options {
	return cache.Options{
		Backend: cfg.Cache.Backend,
		Dir:     cfg.Cache.Dir,
		Name:    cfg.Cache.Name,
		Layout:  cfg.Cache.Layout,
	}
}

func runCache(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *logging.Logger) error {
	connector, err := feed.NewBinanceConnector(feed.BinanceConfig{
		URL:              cfg.Feed.URL,
		Symbol:           cfg.Feed.Symbol,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout.ToDuration(),
		ReadTimeout:      cfg.Feed.ReadTimeout.ToDuration(),
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create connector: %w", err)
	}
	return runPipeline(ctx, cfg, connector, stdout, logger)
}

// runPipeline runs the coordinator against connector and persists the aggregate.
func runPipeline(ctx context.Context, cfg *config.Config, connector feed.Connector, stdout io.Writer, logger *logging.Logger) error {
	store, err := cache.Open(cacheOptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	coord, err := coordinator.New(coordinator.Config{
		Workers:       cfg.Pipeline.Workers,
		Ticks:         cfg.Pipeline.Ticks,
		ChannelSize:   cfg.Pipeline.ChannelSize,
		Interval:      cfg.Pipeline.Interval.ToDuration(),
		AggregateMode: cfg.Pipeline.AggregateMode,
		Symbol:        cfg.Feed.Symbol,
		Sink:          store,
		SinkBackend:   cfg.Cache.Backend,
	}, connector, logger)
	if err != nil {
		return err
	}

	report, err := coord.Run(ctx)
	if report != nil {
		for _, f := range report.Failures {
			logger.Warn("Worker produced no contribution", "worker", f.WorkerID, "error", f.Err)
		}
	}
	if err != nil {
		return err
	}

	res := report.Result
	werr := store.Put(cache.AggregateKey, cache.Record{Mean: res.Value, Samples: res.Values})
	metrics.RecordCacheWrite(cfg.Cache.Backend, werr)
	if werr != nil {
		logger.Warn("Failed to write aggregate record", "error", werr)
	}
	metrics.RecordFinalPrice(res.Value)

	logger.Info("FINAL AVERAGE",
		"value", fmt.Sprintf("%.4f", res.Value),
		"mode", res.Mode,
		"verified", res.Verified,
		"rejected", res.Rejected,
		"failed", len(report.Failures))
	fmt.Fprintf(stdout, "FINAL AVERAGE: %.4f\n", res.Value)

	return nil
}

func runRead(cfg *config.Config, stdout io.Writer) error {
	store, err := cache.OpenReadOnly(cacheOptions(cfg))
	if errors.Is(err, cache.ErrNotFound) {
		fmt.Fprintln(stdout, "No cached data found.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	err = cache.Dump(stdout, store)
	if errors.Is(err, cache.ErrNotFound) {
		fmt.Fprintln(stdout, "No cached data found.")
		return nil
	}
	return err
}
