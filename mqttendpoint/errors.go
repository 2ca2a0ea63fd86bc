package mqttendpoint

import (
	"errors"
	"fmt"

	"github.com/arrowmq/endpoint/engine"
)

// API-level error kinds (spec §7), mirroring the teacher's sentinel +
// wrapper pattern (errors.go) one layer up from the engine's own
// EngineError: these are what the endpoint's public methods return,
// distinct from the engine-internal sentinels in package engine.
var (
	// ErrTransportError reports a failure originating below the
	// protocol: a dial failure, an I/O error, or an unexpected close.
	ErrTransportError = errors.New("mqttendpoint: transport error")

	// ErrProtocolError reports an engine-detected protocol violation
	// (premature packet, unknown packet id, alias out of range, AUTH
	// under v3.1.1, malformed framing).
	ErrProtocolError = errors.New("mqttendpoint: protocol error")

	// ErrConnectionClosed is returned for send/recv issued while the
	// endpoint is in the Closed state.
	ErrConnectionClosed = errors.New("mqttendpoint: connection closed")

	// ErrInvalidPacket reports a packet that fails structural validation
	// before being offered to the wire.
	ErrInvalidPacket = errors.New("mqttendpoint: invalid packet")

	// ErrResourceExhausted reports that the id pool or an alias map had
	// no room for the requested allocation.
	ErrResourceExhausted = errors.New("mqttendpoint: resource exhausted")

	// errAlreadyConnecting is returned by Connect when the endpoint is
	// already Connecting or Connected.
	errAlreadyConnecting = errors.New("mqttendpoint: connect already in progress or connected")
)

// EndpointError wraps one of the sentinels above with a detail message,
// the same shape as the teacher's MqttError (errors.go) and the
// engine's EngineError one layer down.
type EndpointError struct {
	Kind   error
	Detail string
}

func (e *EndpointError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Detail)
}

func (e *EndpointError) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *EndpointError {
	return &EndpointError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// wrapEngineError translates an engine.EngineError (or any error) into
// the endpoint's own error taxonomy, preserving the detail text.
func wrapEngineError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, engine.ErrMalformed), errors.Is(err, engine.ErrProtocol), errors.Is(err, engine.ErrPingTimeout):
		return &EndpointError{Kind: ErrProtocolError, Detail: err.Error()}
	case errors.Is(err, engine.ErrResourceExhausted):
		return &EndpointError{Kind: ErrResourceExhausted, Detail: err.Error()}
	case errors.Is(err, engine.ErrInvalidPacket):
		return &EndpointError{Kind: ErrInvalidPacket, Detail: err.Error()}
	default:
		return &EndpointError{Kind: ErrProtocolError, Detail: err.Error()}
	}
}
