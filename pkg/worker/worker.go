// Package worker runs one collect-and-sign task.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/StrathCole/price-attest/pkg/aggregator"
	"github.com/StrathCole/price-attest/pkg/collector"
	"github.com/StrathCole/price-attest/pkg/feed"
	"github.com/StrathCole/price-attest/pkg/logging"
	"github.com/StrathCole/price-attest/pkg/metrics"
	"github.com/StrathCole/price-attest/pkg/signer"
)

// Task collects a mean over its own subscription and signs it.
type Task struct {
	ID        int
	Keys      signer.KeyPair
	Ticks     int
	Connector feed.Connector
	Collector *collector.Collector
	Logger    *logging.Logger // expected to carry the worker id field
}

// Run produces a signed contribution. On failure it returns the zero
// Contribution; unsigned data never leaves a task.
func (t *Task) Run(ctx context.Context) (aggregator.Contribution, error) {
	logger := t.Logger
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	start := time.Now()
	c, err := t.run(ctx)
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordWorkerRun("failed", elapsed)
		logger.Warn("Worker failed", "error", err, "duration", elapsed)
		return aggregator.Contribution{}, err
	}

	metrics.RecordWorkerRun("ok", elapsed)
	logger.Info("Worker finished", "mean", c.Value, "duration", elapsed)
	return c, nil
}

func (t *Task) run(ctx context.Context) (aggregator.Contribution, error) {
	stream, err := t.Connector.Subscribe(ctx)
	if err != nil {
		return aggregator.Contribution{}, fmt.Errorf("%w: worker %d: %w", collector.ErrConnection, t.ID, err)
	}
	defer stream.Close()

	res, err := t.Collector.CollectMean(ctx, t.Ticks, stream)
	if err != nil {
		return aggregator.Contribution{}, err
	}

	return aggregator.Contribution{
		WorkerID:  t.ID,
		Signature: t.Keys.SignValue(res.Mean),
		Value:     res.Mean,
	}, nil
}
