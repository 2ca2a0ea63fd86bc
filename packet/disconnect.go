package packet

// DISCONNECT reason codes (v5.0 only; v3.1.1 DISCONNECT carries none).
const (
	DisconnectNormal                 uint8 = 0x00
	DisconnectWithWillMessage        uint8 = 0x04
	DisconnectUnspecifiedError       uint8 = 0x80
	DisconnectProtocolError          uint8 = 0x82
	DisconnectTopicAliasInvalid      uint8 = 0x94
	DisconnectReceiveMaximumExceeded uint8 = 0x93
	DisconnectKeepAliveTimeout       uint8 = 0x8D
)

// DisconnectPacket is the MQTT DISCONNECT control packet (section 3.14).
// On v3.1.1 it carries no variable header or payload at all; on v5.0 the
// reason code and properties may both be omitted when the reason is
// Normal disconnection and no properties are set.
type DisconnectPacket struct {
	Version    Version
	ReasonCode uint8
	Properties *Properties
}

func (p *DisconnectPacket) Type() uint8 { return typeDisconnect }

func (p *DisconnectPacket) Encode(dst []byte) []byte {
	var body []byte
	if p.Version == V5_0 && (p.ReasonCode != 0 || !p.Properties.IsEmpty()) {
		body = append(body, p.ReasonCode)
		body = appendProperties(body, p.Properties)
	}
	fh := FixedHeader{Type: typeDisconnect, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func decodeDisconnectBody(c *Cursor, version Version) (*DisconnectPacket, error) {
	p := &DisconnectPacket{Version: version}
	if version == V5_0 && c.Remaining() > 0 {
		rc, err := c.byte()
		if err != nil {
			return nil, err
		}
		if err := validateReasonCode("DISCONNECT", disconnectReasonCodes, rc); err != nil {
			return nil, err
		}
		p.ReasonCode = rc
		if c.Remaining() > 0 {
			props, err := decodeProperties(c)
			if err != nil {
				return nil, err
			}
			p.Properties = props
		}
	}
	return p, nil
}
