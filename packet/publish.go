package packet

import "fmt"

// PublishPacket is the MQTT PUBLISH control packet (section 3.3). Topic
// is empty when the publisher relied on a topic alias to identify the
// subject; the engine resolves it against the alias map before handing
// the packet to the application, per the topic-alias bookkeeping rules.
type PublishPacket struct {
	Version  Version
	Dup      bool
	QoS      uint8
	Retain   bool
	Topic    string
	PacketID uint16 // zero for QoS0
	Payload  []byte

	Properties *Properties

	// TopicNameExtracted is set by the engine, never by the codec, when
	// Topic was recovered from an incoming topic alias (spec §3, §4.4.2)
	// rather than carried on the wire.
	TopicNameExtracted bool
}

func (p *PublishPacket) Type() uint8 { return typePublish }

func (p *PublishPacket) Encode(dst []byte) []byte {
	var flags uint8
	if p.Dup {
		flags |= 0x08
	}
	flags |= (p.QoS & 0x03) << 1
	if p.Retain {
		flags |= 0x01
	}

	var body []byte
	body = appendString(body, p.Topic)
	if p.QoS > 0 {
		body = append(body, byte(p.PacketID>>8), byte(p.PacketID))
	}
	if p.Version == V5_0 {
		body = appendProperties(body, p.Properties)
	}
	body = append(body, p.Payload...)

	fh := FixedHeader{Type: typePublish, Flags: flags, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func decodePublishBody(fh FixedHeader, c *Cursor, version Version) (*PublishPacket, error) {
	qos := (fh.Flags >> 1) & 0x03
	if qos == 3 {
		return nil, fmt.Errorf("%w: PUBLISH QoS value 3 is invalid", ErrMalformed)
	}
	p := &PublishPacket{
		Version: version,
		Dup:     fh.Flags&0x08 != 0,
		QoS:     qos,
		Retain:  fh.Flags&0x01 != 0,
	}
	topic, err := c.str()
	if err != nil {
		return nil, err
	}
	p.Topic = topic

	if qos > 0 {
		id, err := c.uint16()
		if err != nil {
			return nil, err
		}
		if id == 0 {
			return nil, fmt.Errorf("%w: PUBLISH packet identifier must be non-zero for QoS>0", ErrMalformed)
		}
		p.PacketID = id
	}

	if version == V5_0 {
		props, err := decodeProperties(c)
		if err != nil {
			return nil, err
		}
		p.Properties = props
	}

	payload, err := c.take(c.Remaining())
	if err != nil {
		return nil, err
	}
	p.Payload = append([]byte(nil), payload...)

	return p, nil
}
