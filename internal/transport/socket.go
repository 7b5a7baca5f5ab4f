// Package transport owns the connection to the receiving service: it opens
// the socket, reconnects with backoff, reports a debounced status and sends
// wire messages.
package transport

import "errors"

var (
	// ErrSocketClosed is returned by Send after the socket was closed
	ErrSocketClosed = errors.New("socket closed")

	// ErrQueueFull is returned by Send when the outbound queue is full
	ErrQueueFull = errors.New("send queue full")
)

// Socket is one connection attempt and, once open, the connection itself
type Socket interface {
	// Send queues one encoded message for transmission
	Send(data []byte) error

	// Close tears the socket down. Events may still be delivered afterwards.
	Close() error
}

// SocketEvents receives the lifecycle of a Socket. Implementations of
// SocketFactory must deliver events on the event loop.
type SocketEvents interface {
	OnOpen()
	OnClose()
	OnError(err error)
}

// SocketFactory opens sockets. Open must not block; it reports progress
// through ev.
type SocketFactory interface {
	Open(url string, ev SocketEvents) (Socket, error)
}
