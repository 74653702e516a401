package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client is a single-connection WebSocket reader. It does not reconnect: once
// the connection drops, Messages is closed and Err reports why.
type Client struct {
	url              string
	conn             *websocket.Conn
	connMu           sync.Mutex // Serializes writes (pings, close frame)
	handshakeTimeout time.Duration
	pingInterval     time.Duration
	pongWait         time.Duration
	writeWait        time.Duration
	logger           zerolog.Logger
	headers          http.Header

	messages chan []byte
	done     chan struct{}

	errMu sync.RWMutex
	err   error

	stateMu   sync.Mutex
	connected bool
	closed    bool
}

// Config holds WebSocket client configuration
type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	PongWait         time.Duration // Read deadline, extended on every frame and pong
	WriteWait        time.Duration
	BufferSize       int // Capacity of the Messages channel
	Logger           zerolog.Logger
	Headers          http.Header // Custom headers for WebSocket handshake
}

// NewClient creates a new WebSocket client
func NewClient(cfg Config) *Client {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongWait == 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.WriteWait == 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 256
	}

	return &Client{
		url:              cfg.URL,
		handshakeTimeout: cfg.HandshakeTimeout,
		pingInterval:     cfg.PingInterval,
		pongWait:         cfg.PongWait,
		writeWait:        cfg.WriteWait,
		logger:           cfg.Logger,
		headers:          cfg.Headers,
		messages:         make(chan []byte, cfg.BufferSize),
		done:             make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping pumps.
func (c *Client) Connect(ctx context.Context) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.connected {
		return ErrAlreadyConnected
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, c.url, c.headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", c.url, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.conn = conn
	c.connected = true

	c.logger.Info().Str("url", c.url).Msg("WebSocket connected")

	go c.readPump()
	go c.pingPump()

	return nil
}

// Messages returns the channel of received text/binary frames. It is closed
// when the connection ends for any reason.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// Err returns the reason the connection ended, or nil while it is alive or
// after a clean Close.
func (c *Client) Err() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.connected && !c.closed
}

// Close closes the WebSocket connection. Safe to call more than once.
func (c *Client) Close() error {
	c.stateMu.Lock()
	if c.closed {
		c.stateMu.Unlock()
		return nil
	}
	c.closed = true
	wasConnected := c.connected
	c.stateMu.Unlock()

	close(c.done)

	if !wasConnected {
		close(c.messages)
		return nil
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// readPump reads frames until the connection fails or the client is closed.
func (c *Client) readPump() {
	defer close(c.messages)

	conn := c.conn
	_ = conn.SetReadDeadline(time.Now().Add(c.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Closed locally, not a failure.
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Error().Err(err).Msg("WebSocket read error")
				}
				c.setErr(fmt.Errorf("%w: %v", ErrConnectionLost, err))
			}
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(c.pongWait))

		select {
		case c.messages <- message:
		case <-c.done:
			return
		}
	}
}

// pingPump sends periodic ping messages
func (c *Client) pingPump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.connMu.Unlock()

			if err != nil {
				c.logger.Warn().Err(err).Msg("WebSocket ping failed")
				return
			}
		}
	}
}
