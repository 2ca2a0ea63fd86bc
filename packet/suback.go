package packet

// SubackPacket is the MQTT SUBACK control packet (section 3.9).
type SubackPacket struct {
	Version     Version
	PacketID    uint16
	ReasonCodes []uint8
	Properties  *Properties
}

func (p *SubackPacket) Type() uint8 { return typeSuback }

func (p *SubackPacket) Encode(dst []byte) []byte {
	var body []byte
	body = append(body, byte(p.PacketID>>8), byte(p.PacketID))
	if p.Version == V5_0 {
		body = appendProperties(body, p.Properties)
	}
	body = append(body, p.ReasonCodes...)
	fh := FixedHeader{Type: typeSuback, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func decodeSubackBody(c *Cursor, version Version) (*SubackPacket, error) {
	p := &SubackPacket{Version: version}
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
	rest, err := c.take(c.Remaining())
	if err != nil {
		return nil, err
	}
	codes := subackV3ReturnCodes
	if version == V5_0 {
		codes = subackV5ReasonCodes
	}
	for _, rc := range rest {
		if err := validateReasonCode("SUBACK", codes, rc); err != nil {
			return nil, err
		}
	}
	p.ReasonCodes = append([]uint8(nil), rest...)
	return p, nil
}
