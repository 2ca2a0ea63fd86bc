package packet

import "fmt"

// ConnectPacket is the MQTT CONNECT control packet (section 3.1).
type ConnectPacket struct {
	Version      Version
	ProtocolName string

	CleanSession bool
	WillFlag     bool
	WillQoS      uint8
	WillRetain   bool
	UsernameSet  bool
	PasswordSet  bool

	KeepAlive uint16
	ClientID  string

	WillTopic      string
	WillPayload    []byte
	WillProperties *Properties

	Username string
	Password string

	Properties *Properties
}

func (p *ConnectPacket) Type() uint8 { return typeConnect }

func (p *ConnectPacket) Encode(dst []byte) []byte {
	var flags uint8
	if p.CleanSession {
		flags |= 0x02
	}
	if p.WillFlag {
		flags |= 0x04
		flags |= (p.WillQoS & 0x03) << 3
		if p.WillRetain {
			flags |= 0x20
		}
	}
	if p.PasswordSet {
		flags |= 0x40
	}
	if p.UsernameSet {
		flags |= 0x80
	}

	var body []byte
	body = appendString(body, protocolNameFor(p.Version, p.ProtocolName))
	body = append(body, uint8(p.Version), flags, byte(p.KeepAlive>>8), byte(p.KeepAlive))
	if p.Version == V5_0 {
		body = appendProperties(body, p.Properties)
	}
	body = appendString(body, p.ClientID)
	if p.WillFlag {
		if p.Version == V5_0 {
			body = appendProperties(body, p.WillProperties)
		}
		body = appendString(body, p.WillTopic)
		body = appendBinary(body, p.WillPayload)
	}
	if p.UsernameSet {
		body = appendString(body, p.Username)
	}
	if p.PasswordSet {
		body = appendString(body, p.Password)
	}

	fh := FixedHeader{Type: typeConnect, RemainingLength: len(body)}
	dst = fh.appendBytes(dst)
	return append(dst, body...)
}

func protocolNameFor(v Version, override string) string {
	if override != "" {
		return override
	}
	return "MQTT"
}

func decodeConnectBody(c *Cursor) (*ConnectPacket, error) {
	p := &ConnectPacket{}
	name, err := c.str()
	if err != nil {
		return nil, err
	}
	p.ProtocolName = name

	levelByte, err := c.byte()
	if err != nil {
		return nil, err
	}
	p.Version = Version(levelByte)

	flags, err := c.byte()
	if err != nil {
		return nil, err
	}
	if flags&0x01 != 0 {
		return nil, fmt.Errorf("%w: CONNECT reserved flag bit set", ErrMalformed)
	}
	p.CleanSession = flags&0x02 != 0
	p.WillFlag = flags&0x04 != 0
	p.WillQoS = (flags >> 3) & 0x03
	p.WillRetain = flags&0x20 != 0
	p.PasswordSet = flags&0x40 != 0
	p.UsernameSet = flags&0x80 != 0

	ka, err := c.uint16()
	if err != nil {
		return nil, err
	}
	p.KeepAlive = ka

	if p.Version == V5_0 {
		props, err := decodeProperties(c)
		if err != nil {
			return nil, err
		}
		p.Properties = props
	}

	clientID, err := c.str()
	if err != nil {
		return nil, err
	}
	p.ClientID = clientID

	if p.WillFlag {
		if p.Version == V5_0 {
			wp, err := decodeProperties(c)
			if err != nil {
				return nil, err
			}
			p.WillProperties = wp
		}
		topic, err := c.str()
		if err != nil {
			return nil, err
		}
		p.WillTopic = topic
		payload, err := c.binary()
		if err != nil {
			return nil, err
		}
		p.WillPayload = payload
	}

	if p.UsernameSet {
		u, err := c.str()
		if err != nil {
			return nil, err
		}
		p.Username = u
	}
	if p.PasswordSet {
		pw, err := c.str()
		if err != nil {
			return nil, err
		}
		p.Password = pw
	}

	return p, nil
}
