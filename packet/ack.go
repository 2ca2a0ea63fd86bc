package packet

// ackBody is the shared shape of PUBACK/PUBREC/PUBREL/PUBCOMP: a packet
// identifier, and, on MQTT v5.0, an optional reason code and properties.
// The MQTT spec lets the reason code and properties be omitted entirely
// when the reason code is Success (0) and there are no properties.
type ackBody struct {
	Version    Version
	PacketID   uint16
	ReasonCode uint8
	Properties *Properties
}

func (a ackBody) encode(dst []byte, packetType uint8, flags uint8) []byte {
	var body []byte
	body = append(body, byte(a.PacketID>>8), byte(a.PacketID))
	if a.Version == V5_0 && (a.ReasonCode != 0 || !a.Properties.IsEmpty()) {
		body = append(body, a.ReasonCode)
		body = appendProperties(body, a.Properties)
	}
	fh := FixedHeader{Type: packetType, Flags: flags, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func decodeAckBody(c *Cursor, version Version, packetType uint8) (ackBody, error) {
	a := ackBody{Version: version}
	id, err := c.uint16()
	if err != nil {
		return a, err
	}
	a.PacketID = id
	if version == V5_0 && c.Remaining() > 0 {
		rc, err := c.byte()
		if err != nil {
			return a, err
		}
		if err := validateReasonCode(TypeName(packetType), ackReasonCodeSet(packetType), rc); err != nil {
			return a, err
		}
		a.ReasonCode = rc
		if c.Remaining() > 0 {
			props, err := decodeProperties(c)
			if err != nil {
				return a, err
			}
			a.Properties = props
		}
	}
	return a, nil
}

// ackReasonCodeSet returns the reason code enumeration packetType's
// ackBody must decode against: PUBACK/PUBREC share one set, PUBREL/PUBCOMP
// share a smaller one (spec.md §4.1's "Fixed per-packet enumerations").
func ackReasonCodeSet(packetType uint8) map[uint8]bool {
	switch packetType {
	case typePuback, typePubrec:
		return pubackPubrecReasonCodes
	default: // typePubrel, typePubcomp
		return pubrelPubcompReasonCodes
	}
}

// PubackPacket is the MQTT PUBACK control packet (section 3.4).
type PubackPacket struct{ ackBody }

func (p *PubackPacket) Type() uint8             { return typePuback }
func (p *PubackPacket) Encode(dst []byte) []byte { return p.ackBody.encode(dst, typePuback, 0) }

// PubrecPacket is the MQTT PUBREC control packet (section 3.5).
type PubrecPacket struct{ ackBody }

func (p *PubrecPacket) Type() uint8             { return typePubrec }
func (p *PubrecPacket) Encode(dst []byte) []byte { return p.ackBody.encode(dst, typePubrec, 0) }

// PubrelPacket is the MQTT PUBREL control packet (section 3.6). Its
// fixed header flags are always 0x02.
type PubrelPacket struct{ ackBody }

func (p *PubrelPacket) Type() uint8             { return typePubrel }
func (p *PubrelPacket) Encode(dst []byte) []byte { return p.ackBody.encode(dst, typePubrel, 0x02) }

// PubcompPacket is the MQTT PUBCOMP control packet (section 3.7).
type PubcompPacket struct{ ackBody }

func (p *PubcompPacket) Type() uint8             { return typePubcomp }
func (p *PubcompPacket) Encode(dst []byte) []byte { return p.ackBody.encode(dst, typePubcomp, 0) }
