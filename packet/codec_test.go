package packet

import (
	"reflect"
	"testing"
)

// roundTripCases lists one representative packet per kind/version
// combination this codec supports. Each is exercised by
// TestRoundTrip (spec.md §8 property #1: decode(encode(p)) == p).
func roundTripCases() []Packet {
	connectV311 := &ConnectPacket{
		Version:      V3_1_1,
		ProtocolName: "MQTT",
		CleanSession: true,
		WillFlag:     true,
		WillQoS:      1,
		WillRetain:   true,
		UsernameSet:  true,
		PasswordSet:  true,
		KeepAlive:    60,
		ClientID:     "client-1",
		WillTopic:    "lwt/client-1",
		WillPayload:  []byte("offline"),
		Username:     "alice",
		Password:     "s3cret",
	}

	connectV5 := &ConnectPacket{
		Version:      V5_0,
		ProtocolName: "MQTT",
		CleanSession: true,
		KeepAlive:    30,
		ClientID:     "client-2",
		Properties: &Properties{
			SessionExpiryInterval: u32ptr(3600),
			ReceiveMaximum:        u16ptr(10),
			TopicAliasMaximum:     u16ptr(16),
			User:                  []UserProperty{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}},
		},
	}

	connackV311 := &ConnackPacket{Version: V3_1_1, SessionPresent: true, ReasonCode: ConnAccepted}
	connackV5 := &ConnackPacket{
		Version:    V5_0,
		ReasonCode: ConnAccepted,
		Properties: &Properties{
			ServerKeepAlive:   u16ptr(120),
			TopicAliasMaximum: u16ptr(8),
			ReceiveMaximum:    u16ptr(65535),
		},
	}

	publishQoS0 := &PublishPacket{Version: V3_1_1, Topic: "sensor/a", Payload: []byte("1")}
	publishQoS1 := &PublishPacket{Version: V3_1_1, Topic: "sensor/b", QoS: 1, PacketID: 7, Payload: []byte("hi")}
	alias := uint16(3)
	publishV5 := &PublishPacket{
		Version: V5_0, Topic: "sensor/c", QoS: 2, PacketID: 9, Retain: true,
		Payload:    []byte("warm"),
		Properties: &Properties{TopicAlias: &alias, User: []UserProperty{{Key: "k", Value: "v"}}},
	}

	pubackV5 := &PubackPacket{}
	pubackV5.Version, pubackV5.PacketID, pubackV5.ReasonCode = V5_0, 9, 0x10
	pubackV5.Properties = &Properties{ReasonString: strptr("no subscribers")}

	pubrecV311 := &PubrecPacket{}
	pubrecV311.Version, pubrecV311.PacketID = V3_1_1, 9

	pubrelV5 := &PubrelPacket{}
	pubrelV5.Version, pubrelV5.PacketID, pubrelV5.ReasonCode = V5_0, 9, 0x92

	pubcompV311 := &PubcompPacket{}
	pubcompV311.Version, pubcompV311.PacketID = V3_1_1, 9

	subscribeV5 := &SubscribePacket{
		Version: V5_0, PacketID: 5,
		Subscriptions: []Subscription{
			{Filter: "a/+", QoS: 1, NoLocal: true, RetainHandling: RetainHandlingSendIfNew},
			{Filter: "b/#", QoS: 2, RetainAsPublished: true},
		},
		Properties: &Properties{SubscriptionID: []int{1}},
	}
	subackV5 := &SubackPacket{Version: V5_0, PacketID: 5, ReasonCodes: []uint8{SubackQoS1, SubackQoS2}}

	unsubscribeV311 := &UnsubscribePacket{Version: V3_1_1, PacketID: 6, Filters: []string{"a/+", "b/#"}}
	unsubackV5 := &UnsubackPacket{Version: V5_0, PacketID: 6, ReasonCodes: []uint8{0x00, 0x11}}

	disconnectV5 := &DisconnectPacket{Version: V5_0, ReasonCode: DisconnectWithWillMessage}
	authV5 := &AuthPacket{ReasonCode: AuthReasonContinue, Properties: &Properties{AuthenticationMethod: strptr("SCRAM-SHA-256")}}

	return []Packet{
		connectV311, connectV5,
		connackV311, connackV5,
		publishQoS0, publishQoS1, publishV5,
		pubackV5, pubrecV311, pubrelV5, pubcompV311,
		subscribeV5, subackV5,
		unsubscribeV311, unsubackV5,
		&PingreqPacket{}, &PingrespPacket{},
		disconnectV5, authV5,
	}
}

func versionOf(p Packet) Version {
	switch v := p.(type) {
	case *ConnectPacket:
		return v.Version
	case *ConnackPacket:
		return v.Version
	case *PublishPacket:
		return v.Version
	case *PubackPacket:
		return v.Version
	case *PubrecPacket:
		return v.Version
	case *PubrelPacket:
		return v.Version
	case *PubcompPacket:
		return v.Version
	case *SubscribePacket:
		return v.Version
	case *SubackPacket:
		return v.Version
	case *UnsubscribePacket:
		return v.Version
	case *UnsubackPacket:
		return v.Version
	case *DisconnectPacket:
		return v.Version
	case *AuthPacket:
		return V5_0
	default:
		return V3_1_1
	}
}

// TestRoundTrip exercises spec.md §8 property #1.
func TestRoundTrip(t *testing.T) {
	for _, p := range roundTripCases() {
		p := p
		t.Run(TypeName(p.Type()), func(t *testing.T) {
			enc := p.Encode(nil)
			cur := NewCursor(enc)
			decoded, err := Decode(cur, versionOf(p), 0)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(decoded, p) {
				t.Fatalf("round trip mismatch:\n got  %#v\n want %#v", decoded, p)
			}
			if cur.Remaining() != 0 {
				t.Fatalf("decode left %d trailing bytes", cur.Remaining())
			}
		})
	}
}

// TestNeedMoreAtEveryPrefix exercises spec.md §8 property #2: every
// strict prefix of an encoded packet yields ErrNeedMore with the cursor
// left untouched, and the full encoding decodes to the original value.
func TestNeedMoreAtEveryPrefix(t *testing.T) {
	for _, p := range roundTripCases() {
		p := p
		t.Run(TypeName(p.Type()), func(t *testing.T) {
			enc := p.Encode(nil)
			for k := 0; k < len(enc); k++ {
				cur := NewCursor(enc[:k])
				_, err := Decode(cur, versionOf(p), 0)
				if err != ErrNeedMore {
					t.Fatalf("prefix length %d: got err %v, want ErrNeedMore", k, err)
				}
				if cur.Pos() != 0 {
					t.Fatalf("prefix length %d: cursor advanced to %d on ErrNeedMore", k, cur.Pos())
				}
			}
			cur := NewCursor(enc)
			decoded, err := Decode(cur, versionOf(p), 0)
			if err != nil {
				t.Fatalf("full buffer: unexpected error %v", err)
			}
			if !reflect.DeepEqual(decoded, p) {
				t.Fatalf("full buffer decode mismatch:\n got  %#v\n want %#v", decoded, p)
			}
		})
	}
}

// partitionByVersion splits cases by the wire version they must be
// decoded with: a single Connection speaks one version for its whole
// lifetime (spec.md §3's "Protocol version ... fixed at endpoint
// construction"), so only packets sharing a version may be decoded from
// one concatenated byte stream with one version parameter.
func partitionByVersion(cases []Packet) (v311, v5 []Packet) {
	for _, p := range cases {
		if versionOf(p) == V5_0 {
			v5 = append(v5, p)
		} else {
			v311 = append(v311, p)
		}
	}
	return v311, v5
}

func decodeConcatenated(t *testing.T, cases []Packet, version Version) {
	t.Helper()
	var buf []byte
	for _, p := range cases {
		buf = p.Encode(buf)
	}
	cur := NewCursor(buf)
	var got []Packet
	for cur.Remaining() > 0 {
		p, err := Decode(cur, version, 0)
		if err != nil {
			t.Fatalf("decode packet %d: %v", len(got), err)
		}
		got = append(got, p)
	}
	if len(got) != len(cases) {
		t.Fatalf("decoded %d packets, want %d", len(got), len(cases))
	}
	for i := range cases {
		if !reflect.DeepEqual(got[i], cases[i]) {
			t.Fatalf("packet %d mismatch:\n got  %#v\n want %#v", i, got[i], cases[i])
		}
	}
}

// TestMultiPacketConcatenation exercises spec.md §8 property #3:
// decoding concatenated encodings yields the packets in order.
func TestMultiPacketConcatenation(t *testing.T) {
	v311, v5 := partitionByVersion(roundTripCases())
	t.Run("v3.1.1", func(t *testing.T) { decodeConcatenated(t, v311, V3_1_1) })
	t.Run("v5.0", func(t *testing.T) { decodeConcatenated(t, v5, V5_0) })
}

// TestVarIntFifthContinuationByteRejected exercises spec.md §8 property
// #4: a Variable Byte Integer with more than four encoded bytes is
// rejected, never interpreted as NeedMore.
func TestVarIntFifthContinuationByteRejected(t *testing.T) {
	// CONNECT type/flags byte followed by five remaining-length bytes,
	// the first four all carrying the continuation bit.
	buf := []byte{0x10, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F}
	cur := NewCursor(buf)
	_, err := DecodeFixedHeader(cur)
	if err == nil || err == ErrNeedMore {
		t.Fatalf("got %v, want a non-NeedMore error", err)
	}
	if cur.Pos() != 0 {
		t.Fatalf("cursor advanced to %d on a rejected VBI", cur.Pos())
	}
}

// TestVarIntWithinFourBytesAccepted is the accepting counterpart of
// TestVarIntFifthContinuationByteRejected: the largest legal Remaining
// Length (four encoded bytes) decodes cleanly.
func TestVarIntWithinFourBytesAccepted(t *testing.T) {
	cur := NewCursor([]byte{0xFF, 0xFF, 0xFF, 0x7F})
	v, err := cur.varInt()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != MaxRemainingLength {
		t.Fatalf("varInt() = %d, want %d", v, MaxRemainingLength)
	}
}

// TestStringRejectsEmbeddedNull and TestStringRejectsInvalidUTF8 cover
// spec.md §4.1's "Reject embedded null and non-shortest UTF-8" string
// field requirement.
func TestStringRejectsEmbeddedNull(t *testing.T) {
	buf := []byte{0x00, 0x03, 'a', 0x00, 'b'}
	cur := NewCursor(buf)
	if _, err := cur.str(); err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestStringRejectsInvalidUTF8(t *testing.T) {
	// 0xC0 0x80 is the overlong (non-shortest) encoding of NUL, invalid
	// under strict UTF-8 validation.
	buf := []byte{0x00, 0x02, 0xC0, 0x80}
	cur := NewCursor(buf)
	if _, err := cur.str(); err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestBinaryAllowsArbitraryBytes(t *testing.T) {
	// Binary fields (payload, authentication data, ...) are not UTF-8
	// strings and must not be null/UTF-8 validated.
	buf := []byte{0x00, 0x02, 0x00, 0xFF}
	cur := NewCursor(buf)
	got, err := cur.binary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x00, 0xFF}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("binary() = %v, want %v", got, want)
	}
}

// TestUnknownReasonCodesRejected exercises the per-packet reason code
// enumerations spec.md §4.1 requires ("an unknown value on decode is
// InvalidPacket").
func TestUnknownReasonCodesRejected(t *testing.T) {
	cases := []struct {
		name string
		pkt  Packet
	}{
		{"CONNACK", func() Packet {
			p := &ConnackPacket{Version: V5_0, ReasonCode: 0xFF}
			return p
		}()},
		{"PUBACK", func() Packet {
			p := &PubackPacket{}
			p.Version, p.ReasonCode = V5_0, 0xFF
			return p
		}()},
		{"PUBREL", func() Packet {
			p := &PubrelPacket{}
			p.Version, p.ReasonCode = V5_0, 0xFF
			return p
		}()},
		{"SUBACK", &SubackPacket{Version: V5_0, PacketID: 1, ReasonCodes: []uint8{0xFF}}},
		{"UNSUBACK", &UnsubackPacket{Version: V5_0, PacketID: 1, ReasonCodes: []uint8{0xFF}}},
		{"DISCONNECT", &DisconnectPacket{Version: V5_0, ReasonCode: 0xFF}},
		{"AUTH", &AuthPacket{ReasonCode: 0xFF}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := tc.pkt.Encode(nil)
			cur := NewCursor(enc)
			_, err := Decode(cur, V5_0, 0)
			if err == nil {
				t.Fatalf("expected error decoding unknown reason code, got nil")
			}
		})
	}
}

// TestConnackV311UnknownReturnCodeRejected covers the v3.1.1 CONNACK
// return code enumeration, distinct from the v5.0 reason code set.
func TestConnackV311UnknownReturnCodeRejected(t *testing.T) {
	p := &ConnackPacket{Version: V3_1_1, ReasonCode: 6}
	enc := p.Encode(nil)
	cur := NewCursor(enc)
	if _, err := Decode(cur, V3_1_1, 0); err == nil {
		t.Fatal("expected error decoding unknown v3.1.1 CONNACK return code, got nil")
	}
}
