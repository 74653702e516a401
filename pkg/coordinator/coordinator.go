package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/StrathCole/price-attest/pkg/aggregator"
	"github.com/StrathCole/price-attest/pkg/cache"
	"github.com/StrathCole/price-attest/pkg/collector"
	"github.com/StrathCole/price-attest/pkg/feed"
	"github.com/StrathCole/price-attest/pkg/logging"
	"github.com/StrathCole/price-attest/pkg/signer"
	"github.com/StrathCole/price-attest/pkg/worker"
)

// Config configures a pipeline run.
type Config struct {
	Workers       int
	Ticks         int
	ChannelSize   int // delivery channel capacity, defaults to Workers
	Interval      time.Duration
	AggregateMode string
	Symbol        string
	Sink          cache.Store // optional per-worker sink
	SinkBackend   string
}

// WorkerFailure records why one worker produced no contribution.
type WorkerFailure struct {
	WorkerID int
	Err      error
}

// Report is the outcome of a pipeline run.
type Report struct {
	Result   aggregator.Result
	Failures []WorkerFailure
	Workers  int
}

// Coordinator runs one collect/sign/aggregate pipeline.
type Coordinator struct {
	cfg       Config
	connector feed.Connector
	logger    *logging.Logger
	keygen    func() (signer.KeyPair, error)
}

// New validates cfg and creates a coordinator. Each worker opens its own
// subscription through connector.
func New(cfg Config, connector feed.Connector, logger *logging.Logger) (*Coordinator, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, cfg.Workers)
	}
	if cfg.Ticks <= 0 {
		return nil, fmt.Errorf("%w: ticks must be positive, got %d", ErrInvalidConfig, cfg.Ticks)
	}
	if cfg.ChannelSize <= 0 {
		cfg.ChannelSize = cfg.Workers
	}
	switch cfg.AggregateMode {
	case "", aggregator.ModeAverage, aggregator.ModeMedian:
	default:
		return nil, fmt.Errorf("%w: %w: %s", ErrInvalidConfig, aggregator.ErrUnknownMode, cfg.AggregateMode)
	}
	if connector == nil {
		return nil, fmt.Errorf("%w: connector is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	return &Coordinator{
		cfg:       cfg,
		connector: connector,
		logger:    logger,
		keygen:    signer.GenerateKeyPair,
	}, nil
}

// Run generates a keypair per worker, runs all workers concurrently and
// aggregates their contributions. Individual worker failures are listed in the
// report; an error is returned only when no contribution could be trusted.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	builder := NewRegistryBuilder()
	tasks := make([]*worker.Task, 0, c.cfg.Workers)

	for id := 1; id <= c.cfg.Workers; id++ {
		keys, err := c.keygen()
		if err != nil {
			return nil, fmt.Errorf("worker %d: %w", id, err)
		}
		if err := builder.Add(id, keys.Public()); err != nil {
			return nil, err
		}

		workerLogger := c.logger.With("worker", id)
		tasks = append(tasks, &worker.Task{
			ID:        id,
			Keys:      keys,
			Ticks:     c.cfg.Ticks,
			Connector: c.connector,
			Collector: collector.New(collector.Config{
				Interval: c.cfg.Interval,
				Sink:     c.cfg.Sink,
				Backend:  c.cfg.SinkBackend,
				WorkerID: id,
				Symbol:   c.cfg.Symbol,
				Logger:   workerLogger,
			}),
			Logger: workerLogger,
		})
	}

	registry := builder.Build()

	agg, err := aggregator.New(registry,
		aggregator.WithMode(c.cfg.AggregateMode),
		aggregator.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}

	contributions := make(chan aggregator.Contribution, c.cfg.ChannelSize)

	type outcome struct {
		result aggregator.Result
		err    error
	}
	aggDone := make(chan outcome, 1)
	// stopped is closed when the aggregator stops draining, so no sender blocks forever.
	stopped := make(chan struct{})
	go func() {
		res, err := agg.Run(ctx, contributions)
		close(stopped)
		aggDone <- outcome{result: res, err: err}
	}()

	c.logger.Info("Starting workers", "workers", c.cfg.Workers, "ticks", c.cfg.Ticks)

	var (
		mu       sync.Mutex
		failures []WorkerFailure
		g        errgroup.Group
	)
	for _, task := range tasks {
		g.Go(func() error {
			contribution, err := runTask(ctx, task)
			if err != nil {
				mu.Lock()
				failures = append(failures, WorkerFailure{WorkerID: task.ID, Err: err})
				mu.Unlock()
				return nil
			}
			select {
			case contributions <- contribution:
			case <-stopped:
			}
			return nil
		})
	}
	_ = g.Wait()
	close(contributions)

	out := <-aggDone

	sort.Slice(failures, func(i, j int) bool {
		return failures[i].WorkerID < failures[j].WorkerID
	})
	report := &Report{
		Result:   out.result,
		Failures: failures,
		Workers:  c.cfg.Workers,
	}

	if out.err != nil {
		return report, fmt.Errorf("%w (%d of %d workers failed)", out.err, len(failures), c.cfg.Workers)
	}
	if len(failures) > 0 {
		c.logger.Warn("Some workers failed",
			"failed", len(failures),
			"workers", c.cfg.Workers,
			"verified", out.result.Verified)
	}
	return report, nil
}

// runTask runs task and converts a panic into a failure.
func runTask(ctx context.Context, task *worker.Task) (contribution aggregator.Contribution, err error) {
	defer func() {
		if r := recover(); r != nil {
			contribution = aggregator.Contribution{}
			err = fmt.Errorf("%w: worker %d: %v", ErrWorkerPanic, task.ID, r)
		}
	}()
	return task.Run(ctx)
}
