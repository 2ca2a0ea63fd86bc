package packet

import "fmt"

// RetainHandling values for v5.0 subscription options (section 3.8.3.1).
const (
	RetainHandlingSend         uint8 = 0
	RetainHandlingSendIfNew    uint8 = 1
	RetainHandlingDoNotSend    uint8 = 2
)

// Subscription is one topic filter plus its subscription options within
// a SUBSCRIBE packet.
type Subscription struct {
	Filter            string
	QoS               uint8
	NoLocal           bool // v5.0
	RetainAsPublished bool // v5.0
	RetainHandling    uint8 // v5.0
}

// SubscribePacket is the MQTT SUBSCRIBE control packet (section 3.8).
type SubscribePacket struct {
	Version       Version
	PacketID      uint16
	Subscriptions []Subscription
	Properties    *Properties
}

func (p *SubscribePacket) Type() uint8 { return typeSubscribe }

func (p *SubscribePacket) Encode(dst []byte) []byte {
	var body []byte
	body = append(body, byte(p.PacketID>>8), byte(p.PacketID))
	if p.Version == V5_0 {
		body = appendProperties(body, p.Properties)
	}
	for _, s := range p.Subscriptions {
		body = appendString(body, s.Filter)
		opts := s.QoS & 0x03
		if p.Version == V5_0 {
			if s.NoLocal {
				opts |= 1 << 2
			}
			if s.RetainAsPublished {
				opts |= 1 << 3
			}
			opts |= (s.RetainHandling & 0x03) << 4
		}
		body = append(body, opts)
	}
	fh := FixedHeader{Type: typeSubscribe, Flags: 0x02, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func decodeSubscribeBody(c *Cursor, version Version) (*SubscribePacket, error) {
	p := &SubscribePacket{Version: version}
	id, err := c.uint16()
	if err != nil {
		return nil, err
	}
	p.PacketID = id
	if version == V5_0 {
		props, err := decodeProperties(c)
		if err != nil {
			return nil, err
		}
		p.Properties = props
	}
	for c.Remaining() > 0 {
		filter, err := c.str()
		if err != nil {
			return nil, err
		}
		opts, err := c.byte()
		if err != nil {
			return nil, err
		}
		s := Subscription{Filter: filter, QoS: opts & 0x03}
		if version == V5_0 {
			s.NoLocal = opts&(1<<2) != 0
			s.RetainAsPublished = opts&(1<<3) != 0
			s.RetainHandling = (opts >> 4) & 0x03
		}
		p.Subscriptions = append(p.Subscriptions, s)
	}
	if len(p.Subscriptions) == 0 {
		return nil, fmt.Errorf("%w: SUBSCRIBE with no topic filters", ErrMalformed)
	}
	return p, nil
}
