package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/price-attest/pkg/cache"
	"github.com/StrathCole/price-attest/pkg/feed"
	"github.com/StrathCole/price-attest/pkg/logging"
	"github.com/StrathCole/price-attest/pkg/metrics"
)

// DefaultInterval is the wait after each tick.
const DefaultInterval = time.Second

// Config configures a Collector.
type Config struct {
	Interval time.Duration
	Sink     cache.Store // optional
	Backend  string      // sink backend name, used as metrics label
	WorkerID int
	Symbol   string
	Logger   *logging.Logger // expected to carry the worker id field
}

// Result is the outcome of one collection.
type Result struct {
	Mean          float64
	Samples       []float64
	ParseFailures int
}

// Collector gathers a fixed number of ticks for one worker.
type Collector struct {
	interval time.Duration
	sink     cache.Store
	backend  string
	workerID int
	symbol   string
	logger   *logging.Logger
}

// New creates a collector.
func New(cfg Config) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Backend == "" {
		cfg.Backend = "file"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNoopLogger()
	}

	return &Collector{
		interval: cfg.Interval,
		sink:     cfg.Sink,
		backend:  cfg.Backend,
		workerID: cfg.WorkerID,
		symbol:   cfg.Symbol,
		logger:   cfg.Logger,
	}
}

// WorkerID returns the worker this collector records for.
func (c *Collector) WorkerID() int {
	return c.workerID
}

// CollectMean pulls exactly tickCount ticks from stream, waiting the configured
// interval after each, and returns their arithmetic mean. A tick whose price
// does not parse counts as 0.
func (c *Collector) CollectMean(ctx context.Context, tickCount int, stream feed.Stream) (Result, error) {
	if tickCount <= 0 {
		return Result{}, fmt.Errorf("%w: tick count %d", ErrEmptySample, tickCount)
	}

	var (
		sum = decimal.Zero
		res = Result{Samples: make([]float64, 0, tickCount)}
	)

	timer := time.NewTimer(c.interval)
	defer timer.Stop()

	for i := 0; i < tickCount; i++ {
		msg, err := stream.NextTick(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return Result{}, err
			}
			return Result{}, fmt.Errorf("%w: worker %d after %d of %d ticks: %w", ErrConnection, c.workerID, i, tickCount, err)
		}

		price, ok := msg.ParsePrice()
		if !ok {
			res.ParseFailures++
			c.logger.Debug("Unparseable price, using zero", "raw", msg.Price)
		}
		metrics.RecordTick(c.symbol, ok)

		sum = sum.Add(price)
		res.Samples = append(res.Samples, price.InexactFloat64())
		c.logger.Debug("Received price", "price", price.String())

		timer.Reset(c.interval)
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	res.Mean = sum.Div(decimal.NewFromInt(int64(tickCount))).InexactFloat64()
	c.persist(res)

	return res, nil
}

// persist writes the result to the sink. Failures are logged, never returned.
func (c *Collector) persist(res Result) {
	if c.sink == nil {
		return
	}
	err := c.sink.Put(cache.WorkerKey(c.workerID), cache.Record{Mean: res.Mean, Samples: res.Samples})
	metrics.RecordCacheWrite(c.backend, err)
	if err != nil {
		c.logger.Warn("Failed to write cache record", "error", err)
	}
}
