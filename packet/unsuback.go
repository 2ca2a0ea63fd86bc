package packet

// UnsubackPacket is the MQTT UNSUBACK control packet (section 3.11).
type UnsubackPacket struct {
	Version     Version
	PacketID    uint16
	ReasonCodes []uint8 // v5.0 only
	Properties  *Properties
}

func (p *UnsubackPacket) Type() uint8 { return typeUnsuback }

func (p *UnsubackPacket) Encode(dst []byte) []byte {
	var body []byte
	body = append(body, byte(p.PacketID>>8), byte(p.PacketID))
	if p.Version == V5_0 {
		body = appendProperties(body, p.Properties)
		body = append(body, p.ReasonCodes...)
	}
	fh := FixedHeader{Type: typeUnsuback, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func decodeUnsubackBody(c *Cursor, version Version) (*UnsubackPacket, error) {
	p := &UnsubackPacket{Version: version}
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
		rest, err := c.take(c.Remaining())
		if err != nil {
			return nil, err
		}
		for _, rc := range rest {
			if err := validateReasonCode("UNSUBACK", unsubackReasonCodes, rc); err != nil {
				return nil, err
			}
		}
		p.ReasonCodes = append([]uint8(nil), rest...)
	}
	return p, nil
}
