package packet

import "fmt"

// Packet is implemented by every MQTT control packet type this codec
// understands. Encode appends the packet's wire representation
// (including its own fixed header) to dst and returns the extended
// slice.
type Packet interface {
	Type() uint8
	Encode(dst []byte) []byte
}

// Decode attempts to read one complete control packet from the front of
// c. It returns ErrNeedMore, without advancing c, when the fixed header
// or its declared body are not yet fully present — the caller should
// retry once more bytes have been appended to the buffer backing c.
// maxIncomingPacket, if non-zero, bounds RemainingLength before any body
// bytes are required, so an oversized packet is rejected without
// waiting for the rest of it to arrive.
func Decode(c *Cursor, version Version, maxIncomingPacket int) (Packet, error) {
	start := c.pos
	fh, err := DecodeFixedHeader(c)
	if err != nil {
		return nil, err
	}
	if maxIncomingPacket > 0 && fh.RemainingLength > maxIncomingPacket {
		return nil, fmt.Errorf("%w: remaining length %d exceeds limit %d", ErrMalformed, fh.RemainingLength, maxIncomingPacket)
	}
	body, err := c.take(fh.RemainingLength)
	if err != nil {
		c.pos = start
		return nil, err
	}
	bc := NewCursor(body)
	pkt, err := decodeBody(fh, bc, version)
	if err != nil {
		if err == ErrNeedMore {
			return nil, fmt.Errorf("%w: truncated %s body", ErrMalformed, TypeName(fh.Type))
		}
		return nil, err
	}
	if bc.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes in %s body", ErrMalformed, bc.Remaining(), TypeName(fh.Type))
	}
	return pkt, nil
}

func decodeBody(fh FixedHeader, c *Cursor, version Version) (Packet, error) {
	switch fh.Type {
	case typeConnect:
		return decodeConnectBody(c)
	case typeConnack:
		return decodeConnackBody(c, version)
	case typePublish:
		return decodePublishBody(fh, c, version)
	case typePuback:
		a, err := decodeAckBody(c, version, typePuback)
		if err != nil {
			return nil, err
		}
		return &PubackPacket{ackBody: a}, nil
	case typePubrec:
		a, err := decodeAckBody(c, version, typePubrec)
		if err != nil {
			return nil, err
		}
		return &PubrecPacket{ackBody: a}, nil
	case typePubrel:
		a, err := decodeAckBody(c, version, typePubrel)
		if err != nil {
			return nil, err
		}
		return &PubrelPacket{ackBody: a}, nil
	case typePubcomp:
		a, err := decodeAckBody(c, version, typePubcomp)
		if err != nil {
			return nil, err
		}
		return &PubcompPacket{ackBody: a}, nil
	case typeSubscribe:
		return decodeSubscribeBody(c, version)
	case typeSuback:
		return decodeSubackBody(c, version)
	case typeUnsubscribe:
		return decodeUnsubscribeBody(c, version)
	case typeUnsuback:
		return decodeUnsubackBody(c, version)
	case typePingreq:
		return &PingreqPacket{}, nil
	case typePingresp:
		return &PingrespPacket{}, nil
	case typeDisconnect:
		return decodeDisconnectBody(c, version)
	case typeAuth:
		return decodeAuthBody(c, version)
	default:
		return nil, fmt.Errorf("%w: unknown control packet type %d", ErrMalformed, fh.Type)
	}
}
