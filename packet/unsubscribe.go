package packet

import "fmt"

// UnsubscribePacket is the MQTT UNSUBSCRIBE control packet (section 3.10).
type UnsubscribePacket struct {
	Version    Version
	PacketID   uint16
	Filters    []string
	Properties *Properties
}

func (p *UnsubscribePacket) Type() uint8 { return typeUnsubscribe }

func (p *UnsubscribePacket) Encode(dst []byte) []byte {
	var body []byte
	body = append(body, byte(p.PacketID>>8), byte(p.PacketID))
	if p.Version == V5_0 {
		body = appendProperties(body, p.Properties)
	}
	for _, f := range p.Filters {
		body = appendString(body, f)
	}
	fh := FixedHeader{Type: typeUnsubscribe, Flags: 0x02, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func decodeUnsubscribeBody(c *Cursor, version Version) (*UnsubscribePacket, error) {
	p := &UnsubscribePacket{Version: version}
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
		f, err := c.str()
		if err != nil {
			return nil, err
		}
		p.Filters = append(p.Filters, f)
	}
	if len(p.Filters) == 0 {
		return nil, fmt.Errorf("%w: UNSUBSCRIBE with no topic filters", ErrMalformed)
	}
	return p, nil
}
