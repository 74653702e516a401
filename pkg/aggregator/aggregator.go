package aggregator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/price-attest/pkg/logging"
	"github.com/StrathCole/price-attest/pkg/metrics"
	"github.com/StrathCole/price-attest/pkg/signer"
)

// Aggregator drains contributions, keeps those whose signature verifies
// against the registry, and computes the final price once the input closes.
type Aggregator struct {
	registry Registry
	mode     string
	logger   *logging.Logger

	mu    sync.Mutex
	state State
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMode selects the reduction applied to verified values.
func WithMode(mode string) Option {
	return func(a *Aggregator) {
		a.mode = mode
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an aggregator bound to registry.
func New(registry Registry, opts ...Option) (*Aggregator, error) {
	a := &Aggregator{
		registry: registry,
		mode:     ModeAverage,
		logger:   logging.NewNoopLogger(),
		state:    StateAwaitingInput,
	}
	for _, opt := range opts {
		opt(a)
	}

	switch a.mode {
	case "":
		a.mode = ModeAverage
	case ModeAverage, ModeMedian:
	default:
		return nil, fmt.Errorf("%w: %s (supported: average, median)", ErrUnknownMode, a.mode)
	}
	return a, nil
}

// State returns the current lifecycle state.
func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Mode returns the configured reduction mode.
func (a *Aggregator) Mode() string {
	return a.mode
}

func (a *Aggregator) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Run drains in until it is closed and returns the aggregate of verified
// values. The channel closing is the only completion signal. Run may be
// called once.
func (a *Aggregator) Run(ctx context.Context, in <-chan Contribution) (Result, error) {
	a.mu.Lock()
	if a.state != StateAwaitingInput {
		a.mu.Unlock()
		return Result{}, ErrAlreadyRun
	}
	a.state = StateDraining
	a.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.RecordAggregation(a.mode, time.Since(start))
	}()

	var (
		verified []decimal.Decimal
		values   []float64
		rejected int
	)

drain:
	for {
		select {
		case <-ctx.Done():
			a.setState(StateFailed)
			return Result{}, ctx.Err()
		case c, ok := <-in:
			if !ok {
				break drain
			}

			pub, known := a.registry.PublicKey(c.WorkerID)
			if !known {
				a.setState(StateFailed)
				return Result{}, fmt.Errorf("%w: %d", ErrUnknownWorker, c.WorkerID)
			}

			if !signer.VerifyValue(c.Value, pub, c.Signature) {
				rejected++
				metrics.RecordContribution("rejected")
				a.logger.Warn("Dropping contribution",
					"worker", c.WorkerID,
					"value", c.Value,
					"error", ErrVerificationFailed)
				continue
			}

			metrics.RecordContribution("verified")
			verified = append(verified, decimal.NewFromFloat(c.Value))
			values = append(values, c.Value)
			a.logger.Debug("Accepted contribution", "worker", c.WorkerID, "value", c.Value)
		}
	}

	if len(verified) == 0 {
		a.setState(StateFailed)
		return Result{}, fmt.Errorf("%w: %d rejected", ErrNoTrustedContributions, rejected)
	}

	var final decimal.Decimal
	switch a.mode {
	case ModeMedian:
		final = median(verified)
	default:
		final = average(verified)
	}

	a.setState(StateFinalized)
	a.logger.Debug("Aggregated contributions",
		"mode", a.mode,
		"verified", len(verified),
		"rejected", rejected,
		"value", final.String())

	return Result{
		Value:    final.InexactFloat64(),
		Verified: len(verified),
		Rejected: rejected,
		Mode:     a.mode,
		Values:   values,
	}, nil
}

// average computes the arithmetic mean.
func average(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// median computes the median, averaging the two middle values for an even count.
func median(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return sorted[n/2-1].Add(sorted[n/2]).Div(decimal.NewFromInt(2))
}
