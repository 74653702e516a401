package feed

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawMessage is one tick as delivered by the connector. Price is kept as the
// raw string from the wire; it may be empty or non-numeric.
type RawMessage struct {
	Symbol    string
	Price     string
	TradeTime time.Time
}

// ParsePrice parses the tick price. ok is false when the price is missing or not numeric.
func (m RawMessage) ParsePrice() (price decimal.Decimal, ok bool) {
	raw := strings.TrimSpace(m.Price)
	if raw == "" {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

// Stream is one independent subscription to the feed.
type Stream interface {
	// NextTick blocks until the next tick arrives. It returns an error wrapping
	// ErrStreamClosed when the feed ends.
	NextTick(ctx context.Context) (RawMessage, error)

	// Close releases the subscription.
	Close() error
}

// Connector opens subscriptions to a market data feed.
type Connector interface {
	// Subscribe opens a new, independent stream. Connection failures are
	// returned wrapped in ErrConnect.
	Subscribe(ctx context.Context) (Stream, error)
}
