package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/StrathCole/price-attest/pkg/feed/websocket"
	"github.com/StrathCole/price-attest/pkg/logging"
	"github.com/StrathCole/price-attest/pkg/version"
)

const (
	// BinanceWSURL is the Binance raw stream endpoint.
	BinanceWSURL = "wss://stream.binance.com:9443/ws"
)

// BinanceTradeMessage represents one Binance trade stream event
// (https://developers.binance.com/docs/binance-spot-api-docs/web-socket-streams#trade-streams).
// Prices and quantities are decimal strings.
type BinanceTradeMessage struct {
	EventType string  `json:"e"` // Event type ("trade")
	EventTime int64   `json:"E"` // Event time (milliseconds)
	Symbol    string  `json:"s"` // Trading pair symbol, e.g. "BTCUSDT"
	TradeID   int64   `json:"t"` // Trade ID
	Price     *string `json:"p"` // Price (string decimal), nil when the frame carries none
	Quantity  string  `json:"q"` // Quantity (string decimal)
	TradeTime int64   `json:"T"` // Trade time (milliseconds)
	IsMaker   bool    `json:"m"` // Is the buyer the market maker?
}

// BinanceConfig configures the Binance trade connector.
type BinanceConfig struct {
	URL              string // Base URL, defaults to BinanceWSURL
	Symbol           string // e.g. "btcusdt"
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	Logger           *logging.Logger
}

// BinanceConnector subscribes to the Binance <symbol>@trade stream. Every
// Subscribe call dials its own connection.
type BinanceConnector struct {
	url              string
	symbol           string
	handshakeTimeout time.Duration
	readTimeout      time.Duration
	logger           *logging.Logger
}

var _ Connector = (*BinanceConnector)(nil)

// NewBinanceConnector creates a new Binance trade connector.
func NewBinanceConnector(cfg BinanceConfig) (*BinanceConnector, error) {
	if cfg.Symbol == "" {
		return nil, ErrSymbolRequired
	}
	if cfg.URL == "" {
		cfg.URL = BinanceWSURL
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNoopLogger()
	}

	return &BinanceConnector{
		url:              strings.TrimRight(cfg.URL, "/"),
		symbol:           strings.ToLower(cfg.Symbol),
		handshakeTimeout: cfg.HandshakeTimeout,
		readTimeout:      cfg.ReadTimeout,
		logger:           cfg.Logger,
	}, nil
}

// StreamURL returns the URL dialed by Subscribe.
func (b *BinanceConnector) StreamURL() string {
	return b.url + "/" + b.symbol + "@trade"
}

// Symbol returns the configured symbol.
func (b *BinanceConnector) Symbol() string {
	return b.symbol
}

// Subscribe dials a fresh connection to the trade stream.
func (b *BinanceConnector) Subscribe(ctx context.Context) (Stream, error) {
	headers := http.Header{}
	headers.Set("User-Agent", version.AgentString())

	client := websocket.NewClient(websocket.Config{
		URL:              b.StreamURL(),
		HandshakeTimeout: b.handshakeTimeout,
		PongWait:         b.readTimeout,
		Logger:           b.logger.ZerologLogger(),
		Headers:          headers,
	})

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	return &binanceStream{client: client, logger: b.logger}, nil
}

type binanceStream struct {
	client *websocket.Client
	logger *logging.Logger
}

// NextTick returns the next trade. Frames without a price field (subscription
// acks, other event types, undecodable text) are skipped and do not count as
// ticks. A trade whose price is present but not numeric is returned as is.
func (s *binanceStream) NextTick(ctx context.Context) (RawMessage, error) {
	for {
		select {
		case <-ctx.Done():
			return RawMessage{}, ctx.Err()
		case frame, ok := <-s.client.Messages():
			if !ok {
				if err := s.client.Err(); err != nil {
					return RawMessage{}, fmt.Errorf("%w: %v", ErrStreamClosed, err)
				}
				return RawMessage{}, ErrStreamClosed
			}
			if msg, isTrade := decodeTrade(frame, s.logger); isTrade {
				return msg, nil
			}
		}
	}
}

func (s *binanceStream) Close() error {
	return s.client.Close()
}

// decodeTrade decodes one frame. isTrade is false when the frame has no
// string "p" field.
func decodeTrade(frame []byte, logger *logging.Logger) (msg RawMessage, isTrade bool) {
	var trade BinanceTradeMessage
	if err := json.Unmarshal(frame, &trade); err != nil {
		logger.Debug("Skipping undecodable frame", "error", err)
		return RawMessage{}, false
	}
	if trade.Price == nil {
		logger.Debug("Skipping frame without price", "event", trade.EventType)
		return RawMessage{}, false
	}

	msg = RawMessage{
		Symbol: trade.Symbol,
		Price:  *trade.Price,
	}
	if trade.TradeTime > 0 {
		msg.TradeTime = time.UnixMilli(trade.TradeTime)
	}
	return msg, true
}
