// Package websocket provides the WebSocket client used by market data connectors.
package websocket

import "errors"

var (
	// ErrAlreadyConnected indicates that Connect was called twice.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrClosed indicates that the client has been closed.
	ErrClosed = errors.New("client closed")
	// ErrConnectionLost indicates that the connection was lost.
	ErrConnectionLost = errors.New("connection lost")
)
