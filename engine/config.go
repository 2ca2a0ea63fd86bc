package engine

import (
	"time"

	"github.com/arrowmq/endpoint/packet"
)

// Config holds the construction-time options spec §6's Configuration
// table enumerates, generalized from the teacher's clientOptions
// (options.go) into the subset the transport-agnostic engine core
// needs; connection-establishment and shutdown timeouts live in the
// endpoint loop instead (spec §9 Open Questions), not here.
type Config struct {
	Version packet.Version

	// PingreqSendInterval overrides the PINGREQ cadence. Zero means
	// "derive from the negotiated keep-alive as keep_alive * 0.5"
	// once CONNACK is seen (spec §4.4.5).
	PingreqSendInterval time.Duration

	// PingrespRecvTimeout bounds how long the engine waits for PINGRESP
	// after sending PINGREQ. Zero disables the timer entirely.
	PingrespRecvTimeout time.Duration

	// AutoPubResponse makes the engine emit PUBACK/PUBREC/PUBREL/PUBCOMP
	// automatically as each QoS flow advances (spec §4.4.2).
	AutoPubResponse bool

	// AutoPingResponse makes the engine emit PINGRESP automatically for
	// an inbound PINGREQ.
	AutoPingResponse bool

	// AutoMapTopicAliasSend enables automatic outbound topic-alias
	// allocation for v5.0 PUBLISH (spec §4.4.2).
	AutoMapTopicAliasSend bool

	// AutoReplaceTopicAliasSend allows evicting the oldest outbound
	// alias entry when the map is full and a new topic needs one.
	AutoReplaceTopicAliasSend bool

	// MaxIncomingPacket bounds the Remaining Length accepted from the
	// peer before the engine reports ErrMalformed; zero means unbounded.
	MaxIncomingPacket int
}
