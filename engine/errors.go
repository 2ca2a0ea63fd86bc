package engine

import (
	"errors"
	"fmt"
)

// Sentinel error kinds an EngineError can wrap, matching the taxonomy
// spec §4.4.4/§7 requires the engine to distinguish. Mirrors the
// teacher's *MqttError (errors.go), whose Is method lets callers test
// against a reason code; here callers test against these sentinels with
// errors.Is.
var (
	// ErrMalformed reports a codec-level decode failure: bytes that can
	// never become a valid packet no matter how much more data arrives.
	ErrMalformed = errors.New("engine: malformed packet")

	// ErrProtocol reports a protocol violation detected by the engine
	// itself (unexpected packet, unknown packet id, alias out of range,
	// AUTH under v3.1.1, ...).
	ErrProtocol = errors.New("engine: protocol violation")

	// ErrPingTimeout reports that no PINGRESP arrived within the
	// configured response window.
	ErrPingTimeout = errors.New("engine: PINGRESP timeout")

	// ErrResourceExhausted reports that the packet-id pool or an
	// outbound alias map had no room for the requested allocation. It
	// fails the triggering API call directly; the connection remains
	// open (spec §4.4.4).
	ErrResourceExhausted = errors.New("engine: resource exhausted")

	// ErrInvalidPacket reports a packet that fails structural validation
	// before it is even offered to the wire (spec §7).
	ErrInvalidPacket = errors.New("engine: invalid packet")
)

// EngineError wraps one of the sentinels above with a human-readable
// detail, the way the teacher's MqttError wraps a ReasonCode with a
// message (errors.go).
type EngineError struct {
	Kind   error
	Detail string
}

func (e *EngineError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Detail)
}

func (e *EngineError) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
