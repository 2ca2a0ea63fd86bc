package packet

// ConnackPacket is the MQTT CONNACK control packet (section 3.2).
type ConnackPacket struct {
	Version        Version
	SessionPresent bool
	ReasonCode     uint8 // v3.1.1 "return code" and v5.0 "reason code" share this field
	Properties     *Properties
}

func (p *ConnackPacket) Type() uint8 { return typeConnack }

func (p *ConnackPacket) Encode(dst []byte) []byte {
	var flags uint8
	if p.SessionPresent {
		flags = 0x01
	}
	var body []byte
	body = append(body, flags, p.ReasonCode)
	if p.Version == V5_0 {
		body = appendProperties(body, p.Properties)
	}
	fh := FixedHeader{Type: typeConnack, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func decodeConnackBody(c *Cursor, version Version) (*ConnackPacket, error) {
	p := &ConnackPacket{Version: version}
	flags, err := c.byte()
	if err != nil {
		return nil, err
	}
	p.SessionPresent = flags&0x01 != 0
	rc, err := c.byte()
	if err != nil {
		return nil, err
	}
	if version == V5_0 {
		if err := validateReasonCode("CONNACK", connackV5ReasonCodes, rc); err != nil {
			return nil, err
		}
	} else if err := validateReasonCode("CONNACK", connackV3ReturnCodes, rc); err != nil {
		return nil, err
	}
	p.ReasonCode = rc
	if version == V5_0 {
		props, err := decodeProperties(c)
		if err != nil {
			return nil, err
		}
		p.Properties = props
	}
	return p, nil
}
