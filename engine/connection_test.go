package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/arrowmq/endpoint/idpool"
	"github.com/arrowmq/endpoint/packet"
	"github.com/arrowmq/endpoint/timerset"
)

func newTestConn(version packet.Version, auto bool) (*Connection, *idpool.Allocator) {
	ids := idpool.New()
	cfg := Config{Version: version, AutoPubResponse: auto, AutoPingResponse: auto}
	return New(cfg, ids), ids
}

func connectAndAccept(t *testing.T, c *Connection, ids *idpool.Allocator, version packet.Version) {
	t.Helper()
	connect := &packet.ConnectPacket{Version: version, ClientID: "c1", CleanSession: true, KeepAlive: 60}
	if _, err := c.HandleSend(connect); err != nil {
		t.Fatalf("send CONNECT: %v", err)
	}
	connack := (&packet.ConnackPacket{Version: version, ReasonCode: packet.ConnAccepted}).Encode(nil)
	cur := packet.NewCursor(connack)
	events := c.HandleRecvBytes(cur)
	if !hasDeliver(events) {
		t.Fatalf("expected DeliverPacket for CONNACK, got %+v", events)
	}
	if !c.IsProtocolConnected() {
		t.Fatal("IsProtocolConnected() = false after successful CONNACK")
	}
}

func hasDeliver(events []Event) bool {
	for _, e := range events {
		if e.Kind == DeliverPacket {
			return true
		}
	}
	return false
}

func hasKind(events []Event, k EventKind) bool {
	for _, e := range events {
		if e.Kind == k {
			return true
		}
	}
	return false
}

func TestHandshakeV311(t *testing.T) {
	c, ids := newTestConn(packet.V3_1_1, false)
	connectAndAccept(t, c, ids, packet.V3_1_1)
}

func TestNonConnackBeforeConnackIsProtocolError(t *testing.T) {
	c, _ := newTestConn(packet.V3_1_1, false)
	connect := &packet.ConnectPacket{Version: packet.V3_1_1, ClientID: "c1", KeepAlive: 60}
	if _, err := c.HandleSend(connect); err != nil {
		t.Fatal(err)
	}
	ping := (&packet.PingrespPacket{}).Encode(nil)
	events := c.HandleRecvBytes(packet.NewCursor(ping))
	if !hasKind(events, NotifyError) || !hasKind(events, RequestClose) {
		t.Fatalf("expected NotifyError+RequestClose, got %+v", events)
	}
}

func TestQoS1RoundTrip(t *testing.T) {
	c, ids := newTestConn(packet.V3_1_1, false)
	connectAndAccept(t, c, ids, packet.V3_1_1)

	id, ok := ids.Acquire()
	if !ok || id != 1 {
		t.Fatalf("Acquire() = %d, %v; want 1, true", id, ok)
	}
	pub := &packet.PublishPacket{Version: packet.V3_1_1, Topic: "t", QoS: 1, PacketID: id, Payload: []byte("hi")}
	events, err := c.HandleSend(pub)
	if err != nil {
		t.Fatalf("send PUBLISH: %v", err)
	}
	if !hasKind(events, SendBytes) {
		t.Fatalf("expected SendBytes, got %+v", events)
	}

	pubackPkt := &packet.PubackPacket{}
	pubackPkt.Version, pubackPkt.PacketID = packet.V3_1_1, id
	puback := pubackPkt.Encode(nil)
	recvEvents := c.HandleRecvBytes(packet.NewCursor(puback))
	if !hasDeliver(recvEvents) {
		t.Fatalf("expected DeliverPacket for PUBACK, got %+v", recvEvents)
	}
	if ids.InUse(id) {
		t.Fatal("packet id still in use after PUBACK")
	}
	id2, ok := ids.Acquire()
	if !ok || id2 != 1 {
		t.Fatalf("Acquire() after release = %d, %v; want 1, true", id2, ok)
	}
}

func TestQoS2SenderWithAutoResponse(t *testing.T) {
	c, ids := newTestConn(packet.V3_1_1, true)
	connectAndAccept(t, c, ids, packet.V3_1_1)

	id, _ := ids.Acquire()
	pub := &packet.PublishPacket{Version: packet.V3_1_1, Topic: "t", QoS: 2, PacketID: id}
	if _, err := c.HandleSend(pub); err != nil {
		t.Fatal(err)
	}

	pubrecPkt := &packet.PubrecPacket{}
	pubrecPkt.Version, pubrecPkt.PacketID = packet.V3_1_1, id
	events := c.HandleRecvBytes(packet.NewCursor(pubrecPkt.Encode(nil)))
	if !hasKind(events, SendBytes) {
		t.Fatalf("expected auto PUBREL SendBytes, got %+v", events)
	}

	pubcompPkt := &packet.PubcompPacket{}
	pubcompPkt.Version, pubcompPkt.PacketID = packet.V3_1_1, id
	events = c.HandleRecvBytes(packet.NewCursor(pubcompPkt.Encode(nil)))
	if !hasDeliver(events) {
		t.Fatalf("expected DeliverPacket for PUBCOMP, got %+v", events)
	}
	if ids.InUse(id) {
		t.Fatal("packet id still in use after PUBCOMP")
	}
}

func TestTopicAliasRestore(t *testing.T) {
	c, ids := newTestConn(packet.V5_0, false)
	connectAndAccept(t, c, ids, packet.V5_0)
	c.alias.ourMax = 10

	alias := uint16(3)
	p1 := &packet.PublishPacket{Version: packet.V5_0, Topic: "sensor/a", Properties: &packet.Properties{TopicAlias: &alias}}
	events := c.HandleRecvBytes(packet.NewCursor(p1.Encode(nil)))
	if !hasDeliver(events) {
		t.Fatalf("expected deliver, got %+v", events)
	}

	p2 := &packet.PublishPacket{Version: packet.V5_0, Topic: "", Properties: &packet.Properties{TopicAlias: &alias}}
	events = c.HandleRecvBytes(packet.NewCursor(p2.Encode(nil)))
	var delivered *packet.PublishPacket
	for _, e := range events {
		if e.Kind == DeliverPacket {
			delivered = e.Packet.(*packet.PublishPacket)
		}
	}
	if delivered == nil {
		t.Fatalf("expected delivered PUBLISH, got %+v", events)
	}
	if delivered.Topic != "sensor/a" || !delivered.TopicNameExtracted {
		t.Fatalf("got topic=%q extracted=%v, want sensor/a, true", delivered.Topic, delivered.TopicNameExtracted)
	}
}

func TestTopicAliasUnknownClosesConnection(t *testing.T) {
	c, ids := newTestConn(packet.V5_0, false)
	connectAndAccept(t, c, ids, packet.V5_0)
	c.alias.ourMax = 10

	alias := uint16(9)
	p := &packet.PublishPacket{Version: packet.V5_0, Topic: "", Properties: &packet.Properties{TopicAlias: &alias}}
	events := c.HandleRecvBytes(packet.NewCursor(p.Encode(nil)))
	if !hasKind(events, RequestClose) {
		t.Fatalf("expected RequestClose for unknown alias, got %+v", events)
	}
	for _, e := range events {
		if e.Kind == NotifyError && !errors.Is(e.Err, ErrProtocol) {
			t.Fatalf("expected ErrProtocol, got %v", e.Err)
		}
	}
}

func TestTopicAliasZeroIsProtocolError(t *testing.T) {
	c, ids := newTestConn(packet.V5_0, false)
	connectAndAccept(t, c, ids, packet.V5_0)
	c.alias.ourMax = 10

	zero := uint16(0)
	p := &packet.PublishPacket{Version: packet.V5_0, Topic: "", Properties: &packet.Properties{TopicAlias: &zero}}
	events := c.HandleRecvBytes(packet.NewCursor(p.Encode(nil)))
	if !hasKind(events, RequestClose) {
		t.Fatalf("expected RequestClose, got %+v", events)
	}
}

func TestPingTimeoutClosesConnection(t *testing.T) {
	c, ids := newTestConn(packet.V3_1_1, false)
	c.cfg.PingrespRecvTimeout = time.Second
	connectAndAccept(t, c, ids, packet.V3_1_1)

	events := c.HandleTimerFired(timerset.PingreqSend)
	if !hasKind(events, SendBytes) || !hasKind(events, ArmTimer) {
		t.Fatalf("expected PINGREQ SendBytes and ArmTimer(PingrespRecv), got %+v", events)
	}

	events = c.HandleTimerFired(timerset.PingrespRecv)
	if !hasKind(events, NotifyError) || !hasKind(events, RequestClose) {
		t.Fatalf("expected NotifyError+RequestClose on ping timeout, got %+v", events)
	}
	var gotTimeout bool
	for _, e := range events {
		if e.Kind == NotifyError && errors.Is(e.Err, ErrPingTimeout) {
			gotTimeout = true
		}
	}
	if !gotTimeout {
		t.Fatal("expected ErrPingTimeout")
	}
}

func TestSendBeforeConnectRejected(t *testing.T) {
	c, ids := newTestConn(packet.V3_1_1, false)
	id, _ := ids.Acquire()
	pub := &packet.PublishPacket{Version: packet.V3_1_1, Topic: "t", QoS: 1, PacketID: id}
	if _, err := c.HandleSend(pub); err == nil {
		t.Fatal("expected error sending before CONNECT")
	}
}

func TestSendWithUnregisteredIDRejected(t *testing.T) {
	c, ids := newTestConn(packet.V3_1_1, false)
	connectAndAccept(t, c, ids, packet.V3_1_1)
	pub := &packet.PublishPacket{Version: packet.V3_1_1, Topic: "t", QoS: 1, PacketID: 99}
	_, err := c.HandleSend(pub)
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("got %v, want ErrResourceExhausted", err)
	}
}

func TestPubackForUnknownIDIsProtocolError(t *testing.T) {
	c, ids := newTestConn(packet.V3_1_1, false)
	connectAndAccept(t, c, ids, packet.V3_1_1)

	pubackPkt := &packet.PubackPacket{}
	pubackPkt.Version, pubackPkt.PacketID = packet.V3_1_1, 42
	events := c.HandleRecvBytes(packet.NewCursor(pubackPkt.Encode(nil)))
	if !hasKind(events, NotifyError) || !hasKind(events, RequestClose) {
		t.Fatalf("expected NotifyError+RequestClose for PUBACK on unknown id, got %+v", events)
	}
}

func TestPubcompForUnknownIDIsProtocolError(t *testing.T) {
	c, ids := newTestConn(packet.V3_1_1, false)
	connectAndAccept(t, c, ids, packet.V3_1_1)

	id, _ := ids.Acquire()
	pub := &packet.PublishPacket{Version: packet.V3_1_1, Topic: "t", QoS: 2, PacketID: id}
	if _, err := c.HandleSend(pub); err != nil {
		t.Fatal(err)
	}

	// No PUBREC was ever received, so id never entered
	// qos2SendAwaitingPubcomp; a PUBCOMP for it is a protocol violation.
	pubcompPkt := &packet.PubcompPacket{}
	pubcompPkt.Version, pubcompPkt.PacketID = packet.V3_1_1, id
	events := c.HandleRecvBytes(packet.NewCursor(pubcompPkt.Encode(nil)))
	if !hasKind(events, NotifyError) || !hasKind(events, RequestClose) {
		t.Fatalf("expected NotifyError+RequestClose for PUBCOMP on unacknowledged id, got %+v", events)
	}
}
