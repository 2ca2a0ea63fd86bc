package engine

import (
	"time"

	"github.com/arrowmq/endpoint/idpool"
	"github.com/arrowmq/endpoint/packet"
	"github.com/arrowmq/endpoint/timerset"
)

// Connection is the pure protocol state machine spec §4.4 describes: it
// consumes one input at a time (a Handle* call below) and returns the
// events the caller — the endpoint loop — must carry out. It performs
// no I/O and starts no goroutines of its own.
//
// Connection shares its packet-id Allocator with the endpoint loop
// rather than owning a private copy, so that direct API calls
// (AcquirePacketId, RegisterPacketId) and engine-driven releases (on
// PUBACK/PUBCOMP/SUBACK/UNSUBACK) observe the same pool, matching spec
// §4.2's "consulted by the engine ... in addition to direct API use."
type Connection struct {
	cfg   Config
	ids   *idpool.Allocator
	alias *topicAliasState

	seenOutboundConnect bool
	seenInboundConnack  bool

	negotiatedKeepAlive time.Duration

	qos2SendAwaitingPubrec  map[uint16]bool
	qos2SendAwaitingPubcomp map[uint16]bool
	qos2RecvAwaitingPubrel  map[uint16]bool
}

// New constructs a Connection sharing ids with the caller.
func New(cfg Config, ids *idpool.Allocator) *Connection {
	c := &Connection{cfg: cfg, ids: ids, alias: newTopicAliasState()}
	c.resetFlowState()
	return c
}

func (c *Connection) resetFlowState() {
	c.qos2SendAwaitingPubrec = make(map[uint16]bool)
	c.qos2SendAwaitingPubcomp = make(map[uint16]bool)
	c.qos2RecvAwaitingPubrel = make(map[uint16]bool)
}

// Reset restores the Connection to its just-constructed state, for
// reset_for_reconnection (spec §4.5). The shared Allocator is reset by
// the caller, not here, since the caller owns it.
func (c *Connection) Reset() {
	c.seenOutboundConnect = false
	c.seenInboundConnack = false
	c.negotiatedKeepAlive = 0
	c.alias.reset()
	c.resetFlowState()
}

// IsProtocolConnected reports whether CONNACK has been received with a
// success reason code, i.e. whether application packets may flow.
func (c *Connection) IsProtocolConnected() bool { return c.seenInboundConnack }

func (c *Connection) pingInterval() time.Duration {
	if c.cfg.PingreqSendInterval > 0 {
		return c.cfg.PingreqSendInterval
	}
	return time.Duration(float64(c.negotiatedKeepAlive) * 0.5)
}

// packetID extracts the identifier of packet kinds that carry one,
// returning (0, false) for kinds that don't (PINGREQ, DISCONNECT, ...).
func packetID(p packet.Packet) (uint16, bool) {
	switch v := p.(type) {
	case *packet.PublishPacket:
		if v.QoS == 0 {
			return 0, false
		}
		return v.PacketID, true
	case *packet.PubackPacket:
		return v.PacketID, true
	case *packet.PubrecPacket:
		return v.PacketID, true
	case *packet.PubrelPacket:
		return v.PacketID, true
	case *packet.PubcompPacket:
		return v.PacketID, true
	case *packet.SubscribePacket:
		return v.PacketID, true
	case *packet.SubackPacket:
		return v.PacketID, true
	case *packet.UnsubscribePacket:
		return v.PacketID, true
	case *packet.UnsubackPacket:
		return v.PacketID, true
	default:
		return 0, false
	}
}

// HandleSend validates p against protocol state (spec §4.4.3), applies
// v5.0 outbound topic-alias rewriting, and encodes it. On success it
// returns the SendBytes/ArmTimer events to carry out; on failure it
// returns a non-nil error and no events, leaving the connection open,
// per spec §4.4.4's "fail the API call with a typed error" rule for
// everything except packets found structurally invalid, which likewise
// don't close the connection.
func (c *Connection) HandleSend(p packet.Packet) ([]Event, error) {
	if _, isAuth := p.(*packet.AuthPacket); isAuth && c.cfg.Version != packet.V5_0 {
		return nil, newError(ErrInvalidPacket, "AUTH is not defined in MQTT 3.1.1")
	}

	if _, isConnect := p.(*packet.ConnectPacket); isConnect {
		if c.seenOutboundConnect {
			return nil, newError(ErrProtocol, "CONNECT already sent on this connection")
		}
	} else if !c.seenOutboundConnect {
		return nil, newError(ErrProtocol, "first outbound packet must be CONNECT")
	}

	if id, needsID := requiresAllocatedID(p); needsID {
		if id == 0 || !c.ids.InUse(id) {
			return nil, newError(ErrResourceExhausted, "packet identifier %d is not registered with the allocator", id)
		}
	}

	if pub, ok := p.(*packet.PublishPacket); ok && pub.QoS == 2 && c.qos2SendAwaitingPubrec[pub.PacketID] {
		return nil, newError(ErrProtocol, "packet id %d already has a QoS2 PUBLISH awaiting PUBREC", pub.PacketID)
	}
	if pub, ok := p.(*packet.PublishPacket); ok && c.cfg.Version == packet.V5_0 && c.cfg.AutoMapTopicAliasSend {
		c.rewriteOutgoingAlias(pub)
	}

	var events []Event
	switch v := p.(type) {
	case *packet.ConnectPacket:
		c.seenOutboundConnect = true
		c.negotiatedKeepAlive = time.Duration(v.KeepAlive) * time.Second
		if v.Version == packet.V5_0 && v.Properties != nil && v.Properties.TopicAliasMaximum != nil {
			c.alias.ourMax = *v.Properties.TopicAliasMaximum
		}
	case *packet.PublishPacket:
		if v.QoS == 2 {
			c.qos2SendAwaitingPubrec[v.PacketID] = true
		}
	}

	events = append(events, evSendBytes(p.Encode(nil)))
	if d := c.pingInterval(); d > 0 {
		events = append(events, evArm(timerset.PingreqSend, d))
	}
	return events, nil
}

// requiresAllocatedID reports whether p is one of the kinds spec
// §4.4.3 requires to carry a packet id that is currently registered
// with the shared Allocator (QoS>0 PUBLISH, SUBSCRIBE, UNSUBSCRIBE).
// Acks sent in response to an inbound packet use the peer's id and are
// exempt, since that id belongs to the peer's allocation, not ours.
func requiresAllocatedID(p packet.Packet) (uint16, bool) {
	switch v := p.(type) {
	case *packet.PublishPacket:
		if v.QoS > 0 {
			return v.PacketID, true
		}
	case *packet.SubscribePacket:
		return v.PacketID, true
	case *packet.UnsubscribePacket:
		return v.PacketID, true
	}
	return 0, false
}

func (c *Connection) rewriteOutgoingAlias(pub *packet.PublishPacket) {
	if pub.Topic == "" {
		return
	}
	alias, omitTopic, ok := c.alias.assignOutgoing(pub.Topic, c.cfg.AutoReplaceTopicAliasSend)
	if !ok {
		return
	}
	if pub.Properties == nil {
		pub.Properties = &packet.Properties{}
	}
	v := alias
	pub.Properties.TopicAlias = &v
	if omitTopic {
		pub.Topic = ""
	}
}

// HandleRecvBytes drains as many whole packets as cur's underlying
// buffer contains, dispatching each to its per-kind handler (spec
// §4.4.2). It stops on ErrNeedMore, leaving cur positioned at the start
// of the incomplete packet, and stops after emitting RequestClose on a
// malformed or out-of-protocol packet, since no further bytes should be
// parsed once close has been requested.
func (c *Connection) HandleRecvBytes(cur *packet.Cursor) []Event {
	var events []Event
	for {
		p, err := packet.Decode(cur, c.cfg.Version, c.cfg.MaxIncomingPacket)
		if err != nil {
			if err == packet.ErrNeedMore {
				return events
			}
			events = append(events, evError(newError(ErrMalformed, "%s", err)), evClose())
			return events
		}
		if !c.seenInboundConnack {
			if _, ok := p.(*packet.ConnackPacket); !ok {
				events = append(events, evError(newError(ErrProtocol, "received %s before CONNACK", packet.TypeName(p.Type()))), evClose())
				return events
			}
		}
		more, closed := c.dispatch(p)
		events = append(events, more...)
		if closed {
			return events
		}
	}
}

// dispatch applies the per-kind receive handling of spec §4.4.2,
// returning the events it produces and whether the connection must
// close.
func (c *Connection) dispatch(p packet.Packet) ([]Event, bool) {
	switch v := p.(type) {
	case *packet.ConnackPacket:
		return c.handleConnack(v), false

	case *packet.PublishPacket:
		return c.handlePublish(v)

	case *packet.PubackPacket:
		if !c.ids.InUse(v.PacketID) || c.qos2SendAwaitingPubrec[v.PacketID] || c.qos2SendAwaitingPubcomp[v.PacketID] {
			return []Event{
				evError(newError(ErrProtocol, "PUBACK for unknown or QoS2 packet id %d", v.PacketID)),
				evClose(),
			}, true
		}
		c.ids.Release(v.PacketID)
		return []Event{evDeliver(v)}, false

	case *packet.PubrecPacket:
		return c.handlePubrec(v), false

	case *packet.PubrelPacket:
		return c.handlePubrel(v), false

	case *packet.PubcompPacket:
		if !c.qos2SendAwaitingPubcomp[v.PacketID] {
			return []Event{
				evError(newError(ErrProtocol, "PUBCOMP for unknown or already-acknowledged packet id %d", v.PacketID)),
				evClose(),
			}, true
		}
		delete(c.qos2SendAwaitingPubcomp, v.PacketID)
		c.ids.Release(v.PacketID)
		return []Event{evDeliver(v)}, false

	case *packet.SubackPacket:
		c.ids.Release(v.PacketID)
		return []Event{evDeliver(v)}, false

	case *packet.UnsubackPacket:
		c.ids.Release(v.PacketID)
		return []Event{evDeliver(v)}, false

	case *packet.PingreqPacket:
		if c.cfg.AutoPingResponse {
			return []Event{evSendBytes((&packet.PingrespPacket{}).Encode(nil))}, false
		}
		return []Event{evDeliver(v)}, false

	case *packet.PingrespPacket:
		return []Event{evCancel(timerset.PingrespRecv), evDeliver(v)}, false

	case *packet.DisconnectPacket:
		return []Event{evDeliver(v), evClose()}, true

	case *packet.AuthPacket:
		return []Event{evDeliver(v)}, false

	default:
		return []Event{
			evError(newError(ErrProtocol, "unexpected packet kind %T", p)),
			evClose(),
		}, true
	}
}

func (c *Connection) handleConnack(v *packet.ConnackPacket) []Event {
	success := v.ReasonCode == packet.ConnAccepted
	if !success {
		return []Event{evDeliver(v)}
	}
	c.seenInboundConnack = true
	if v.Properties != nil {
		if v.Properties.ServerKeepAlive != nil {
			c.negotiatedKeepAlive = time.Duration(*v.Properties.ServerKeepAlive) * time.Second
		}
		if v.Properties.TopicAliasMaximum != nil {
			c.alias.peerMax = *v.Properties.TopicAliasMaximum
		}
	}
	return []Event{evDeliver(v), evArm(timerset.PingreqSend, c.pingInterval())}
}

func (c *Connection) handlePublish(v *packet.PublishPacket) ([]Event, bool) {
	if c.cfg.Version == packet.V5_0 {
		if events, closed := c.resolveTopicAlias(v); closed {
			return events, true
		}
	}
	switch v.QoS {
	case packet.QoS0:
		return []Event{evDeliver(v)}, false
	case packet.QoS1:
		events := []Event{evDeliver(v)}
		if c.cfg.AutoPubResponse {
			ack := &packet.PubackPacket{}
			ack.Version = c.cfg.Version
			ack.PacketID = v.PacketID
			events = append(events, evSendBytes(ack.Encode(nil)))
		}
		return events, false
	default: // QoS2
		events := []Event{evDeliver(v)}
		if c.cfg.AutoPubResponse {
			rec := &packet.PubrecPacket{}
			rec.Version = c.cfg.Version
			rec.PacketID = v.PacketID
			c.qos2RecvAwaitingPubrel[v.PacketID] = true
			events = append(events, evSendBytes(rec.Encode(nil)))
		}
		return events, false
	}
}

// resolveTopicAlias applies spec §4.4.2's v5.0 topic-alias restoration
// rule, rewriting v.Topic in place when it was recovered from an alias.
func (c *Connection) resolveTopicAlias(v *packet.PublishPacket) ([]Event, bool) {
	var alias uint16
	if v.Properties != nil && v.Properties.TopicAlias != nil {
		alias = *v.Properties.TopicAlias
	} else {
		return nil, false
	}
	if alias == 0 || alias > c.alias.ourMax {
		return []Event{
			evError(newError(ErrProtocol, "topic alias %d out of range (max %d)", alias, c.alias.ourMax)),
			evClose(),
		}, true
	}
	if v.Topic != "" {
		c.alias.recordIncoming(alias, v.Topic)
		return nil, false
	}
	topic, ok := c.alias.resolveIncoming(alias)
	if !ok {
		return []Event{
			evError(newError(ErrProtocol, "unknown topic alias %d", alias)),
			evClose(),
		}, true
	}
	v.Topic = topic
	v.TopicNameExtracted = true
	return nil, false
}

func (c *Connection) handlePubrec(v *packet.PubrecPacket) []Event {
	if !c.qos2SendAwaitingPubrec[v.PacketID] {
		return []Event{
			evError(newError(ErrProtocol, "PUBREC for unknown or already-acknowledged packet id %d", v.PacketID)),
			evClose(),
		}
	}
	delete(c.qos2SendAwaitingPubrec, v.PacketID)
	if c.cfg.AutoPubResponse {
		c.qos2SendAwaitingPubcomp[v.PacketID] = true
		rel := &packet.PubrelPacket{}
		rel.Version = c.cfg.Version
		rel.PacketID = v.PacketID
		return []Event{evSendBytes(rel.Encode(nil))}
	}
	return []Event{evDeliver(v)}
}

func (c *Connection) handlePubrel(v *packet.PubrelPacket) []Event {
	if c.cfg.AutoPubResponse {
		delete(c.qos2RecvAwaitingPubrel, v.PacketID)
		comp := &packet.PubcompPacket{}
		comp.Version = c.cfg.Version
		comp.PacketID = v.PacketID
		return []Event{evSendBytes(comp.Encode(nil))}
	}
	return []Event{evDeliver(v)}
}

// HandleTimerFired processes an expired timer (spec §4.4.5).
func (c *Connection) HandleTimerFired(kind timerset.Kind) []Event {
	switch kind {
	case timerset.PingreqSend:
		events := []Event{evSendBytes((&packet.PingreqPacket{}).Encode(nil))}
		if d := c.pingInterval(); d > 0 {
			events = append(events, evArm(timerset.PingreqSend, d))
		}
		if c.cfg.PingrespRecvTimeout > 0 {
			events = append(events, evArm(timerset.PingrespRecv, c.cfg.PingrespRecvTimeout))
		}
		return events
	case timerset.PingrespRecv:
		return []Event{
			evError(newError(ErrPingTimeout, "no PINGRESP within %s", c.cfg.PingrespRecvTimeout)),
			evClose(),
		}
	default:
		return nil
	}
}

// HandleReleasePacketId clears any internal QoS2 tracking associated
// with id when the application releases it directly, so a later reuse
// of the same id doesn't trip a stale "already awaiting" check (spec
// §4.2, §4.5).
func (c *Connection) HandleReleasePacketId(id uint16) []Event {
	delete(c.qos2SendAwaitingPubrec, id)
	delete(c.qos2SendAwaitingPubcomp, id)
	c.ids.Release(id)
	return nil
}

// HandleNotifyClosed is the engine's NotifyClosed input (spec §4.5). It
// changes no state (connection-scoped state is kept until Reset) and
// emits no events; flushing pending receives is done by the endpoint
// loop, and clearing timers by the transport when it closes.
func (c *Connection) HandleNotifyClosed() []Event {
	return nil
}
