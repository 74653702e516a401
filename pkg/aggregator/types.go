package aggregator

import "github.com/StrathCole/price-attest/pkg/signer"

const (
	// ModeAverage uses the arithmetic mean of verified values.
	ModeAverage = "average"
	// ModeMedian uses the median of verified values.
	ModeMedian = "median"
)

// State is the aggregator lifecycle state.
type State string

// Aggregator states.
const (
	StateAwaitingInput State = "awaiting_input"
	StateDraining      State = "draining"
	StateFinalized     State = "finalized"
	StateFailed        State = "failed"
)

// Contribution is one worker's signed mean.
type Contribution struct {
	WorkerID  int
	Signature signer.Signature
	Value     float64
}

// Registry resolves the public key a worker signs with.
type Registry interface {
	PublicKey(workerID int) (signer.PublicKey, bool)
}

// Result is the finalized aggregate.
type Result struct {
	Value    float64
	Verified int
	Rejected int
	Mode     string
	// Values holds the verified contribution values in arrival order.
	Values []float64
}
