// Package engine implements the transport-agnostic MQTT protocol state
// machine: the pure (state, input) -> (state', events) core described in
// spec §4.4. It owns no I/O, no clock, and no goroutines; the endpoint
// loop (package mqttendpoint) drives it with decoded bytes and API calls and
// carries out the events it returns.
//
// The design generalizes the teacher's logic.go dispatch
// (handleIncoming/handlePublish/handlePubrec/...), which mutated *Client
// fields and pushed directly to channels, into a struct whose methods
// return a slice of Event values instead of performing I/O themselves —
// the re-architecture spec §9 calls for so the engine can be driven by
// any transport, not just the teacher's TCP dialer.
package engine

// State is the connection's protocol-level lifecycle, independent of
// whether the underlying transport is connected (spec §3).
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closed
	// Reconnecting is reserved for higher-level reconnect policy and is
	// never entered by this engine (spec §3, §9 Open Questions).
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	case Reconnecting:
		return "Reconnecting"
	default:
		return "Unknown"
	}
}
