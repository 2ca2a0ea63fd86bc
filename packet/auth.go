package packet

import "fmt"

// AuthPacket is the MQTT v5.0 AUTH control packet (section 3.15). It
// does not exist in MQTT 3.1.1; the engine rejects it outright under
// that version (spec §4.4.3).
type AuthPacket struct {
	ReasonCode uint8
	Properties *Properties
}

func (p *AuthPacket) Type() uint8 { return typeAuth }

func (p *AuthPacket) Encode(dst []byte) []byte {
	var body []byte
	if p.ReasonCode != 0 || !p.Properties.IsEmpty() {
		body = append(body, p.ReasonCode)
		body = appendProperties(body, p.Properties)
	}
	fh := FixedHeader{Type: typeAuth, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func decodeAuthBody(c *Cursor, version Version) (*AuthPacket, error) {
	if version != V5_0 {
		return nil, fmt.Errorf("%w: AUTH packet is not defined in MQTT 3.1.1", ErrMalformed)
	}
	p := &AuthPacket{}
	if c.Remaining() > 0 {
		rc, err := c.byte()
		if err != nil {
			return nil, err
		}
		if err := validateReasonCode("AUTH", authReasonCodes, rc); err != nil {
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
