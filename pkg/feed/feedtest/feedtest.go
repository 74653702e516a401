// Package feedtest provides in-memory market data connectors for tests.
package feedtest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/StrathCole/price-attest/pkg/feed"
)

// Connector replays a fixed list of prices on every subscription. When
// Repeat is set the list cycles forever; otherwise the stream ends with
// feed.ErrStreamClosed after the last price.
type Connector struct {
	Prices []string
	Repeat bool
	// Delay is applied before each tick is delivered.
	Delay time.Duration
	// SubscribeErr is returned from Subscribe when non-nil.
	SubscribeErr error

	subscriptions atomic.Int32
	mu            sync.Mutex
	streams       []*Stream
}

var _ feed.Connector = (*Connector)(nil)

// Constant returns a connector yielding price forever.
func Constant(price string) *Connector {
	return &Connector{Prices: []string{price}, Repeat: true}
}

// Sequence returns a connector yielding prices once, then closing.
func Sequence(prices ...string) *Connector {
	return &Connector{Prices: prices}
}

// Subscribe opens a new independent replay stream.
func (c *Connector) Subscribe(ctx context.Context) (feed.Stream, error) {
	if c.SubscribeErr != nil {
		return nil, errors.Join(feed.ErrConnect, c.SubscribeErr)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.subscriptions.Add(1)
	s := &Stream{prices: c.Prices, repeat: c.Repeat, delay: c.Delay}

	c.mu.Lock()
	c.streams = append(c.streams, s)
	c.mu.Unlock()

	return s, nil
}

// Subscriptions returns how many streams have been opened.
func (c *Connector) Subscriptions() int {
	return int(c.subscriptions.Load())
}

// Streams returns the streams opened so far.
func (c *Connector) Streams() []*Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Stream(nil), c.streams...)
}

// Stream is a replay stream.
type Stream struct {
	prices []string
	repeat bool
	delay  time.Duration

	mu     sync.Mutex
	pos    int
	closed bool
}

var _ feed.Stream = (*Stream)(nil)

// NextTick returns the next replayed price.
func (s *Stream) NextTick(ctx context.Context) (feed.RawMessage, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return feed.RawMessage{}, ctx.Err()
		case <-time.After(s.delay):
		}
	} else if err := ctx.Err(); err != nil {
		return feed.RawMessage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.prices) == 0 {
		return feed.RawMessage{}, feed.ErrStreamClosed
	}
	if s.pos >= len(s.prices) {
		if !s.repeat {
			return feed.RawMessage{}, feed.ErrStreamClosed
		}
		s.pos = 0
	}

	msg := feed.RawMessage{Symbol: "TEST", Price: s.prices[s.pos], TradeTime: time.Now()}
	s.pos++
	return msg, nil
}

// Close marks the stream closed.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
