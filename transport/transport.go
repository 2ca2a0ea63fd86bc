// Package transport defines the abstract byte-oriented transport the
// protocol engine is driven over (spec §4.6) and the concrete
// implementations the endpoint loop can use: plain TCP, TLS, WebSocket
// (nhooyr.io/websocket, subprotocol "mqtt"), and a host bridge for
// embedders that supply their own I/O.
//
// Spec §4.6 describes the abstraction as a pair of channels — upward
// events and downward commands. This package keeps the upward side a
// channel (Events), since the endpoint loop genuinely selects over it
// alongside its other input channels, but expresses the downward
// commands as direct method calls rather than a second channel: spec §9
// explicitly allows an implementation to adjust the channel plumbing
// "without changing the external contract," and method calls are the
// teacher's own idiom for "tell the transport to do something now"
// (ContextDialer.DialContext in options.go).
package transport

import (
	"context"
	"time"

	"github.com/arrowmq/endpoint/timerset"
)

// EventKind tags the variant of an Event flowing up from the transport.
type EventKind int

const (
	// Connected reports that the underlying byte stream is open.
	Connected EventKind = iota
	// Bytes carries newly-arrived bytes from the peer.
	Bytes
	// Error reports a transport-level failure (dial failure, read/write
	// error). It does not by itself mean the transport is closed; a
	// Closed event, if any, follows separately.
	Error
	// Closed reports that the transport has terminated, gracefully or
	// otherwise, and will emit no further events until reconnected.
	Closed
	// TimerExpired reports that a timer armed via ArmTimer fired.
	TimerExpired
)

// Event is one upward notification from a Transport.
type Event struct {
	Kind  EventKind
	Data  []byte
	Err   error
	Timer timerset.Kind
}

// Transport is the abstract byte-oriented connection the engine is
// driven over. Implementations must deliver Bytes events in the order
// bytes arrived on the wire (spec §5's ordering guarantee) and must
// stop emitting events once Closed has been sent.
type Transport interface {
	// Connect dials url and reports Connected or Error on the Events
	// channel; it does not block for the full connection lifetime.
	Connect(ctx context.Context, url string) error

	// Send writes b to the wire. Implementations may buffer internally
	// but must preserve caller ordering.
	Send(b []byte) error

	// Close tears down the connection. It must eventually produce a
	// Closed event, even if Close itself returns an error.
	Close() error

	// Events returns the channel of upward notifications. It is valid
	// for the lifetime of the Transport value and is never closed by
	// the implementation (spec's channels are unbounded and the
	// endpoint loop is expected to keep draining it).
	Events() <-chan Event

	// ArmTimer (re)arms the named timer kind, cancelling any prior
	// arming, per spec §4.3.
	ArmTimer(kind timerset.Kind, d time.Duration)

	// CancelTimer cancels any arming of kind; a no-op if not armed.
	CancelTimer(kind timerset.Kind)
}
