package packet

import "fmt"

// Per-packet-kind reason code enumerations (MQTT v5.0 sections 3.2.2.2,
// 3.4.2.1, 3.5.2.1, 3.6.2.1, 3.7.2.1, 3.9.3, 3.11.3, 3.14.2.1, 3.15.2.1).
// decode rejects any value outside the set its packet kind defines, per
// spec.md §4.1's "Reason codes ... an unknown value on decode is
// InvalidPacket."

var connackV5ReasonCodes = map[uint8]bool{
	0x00: true, 0x80: true, 0x81: true, 0x82: true, 0x83: true, 0x84: true,
	0x85: true, 0x86: true, 0x87: true, 0x88: true, 0x89: true, 0x8A: true,
	0x8C: true, 0x90: true, 0x95: true, 0x97: true, 0x99: true, 0x9A: true,
	0x9B: true, 0x9C: true, 0x9D: true, 0x9F: true,
}

var connackV3ReturnCodes = map[uint8]bool{
	ConnAccepted: true, ConnRefusedUnacceptableProtocol: true,
	ConnRefusedIdentifierRejected: true, ConnRefusedServerUnavailable: true,
	ConnRefusedBadUsernameOrPassword: true, ConnRefusedNotAuthorized: true,
}

// pubackPubrecReasonCodes is shared by PUBACK and PUBREC: both report the
// outcome of delivering a PUBLISH.
var pubackPubrecReasonCodes = map[uint8]bool{
	0x00: true, 0x10: true, 0x80: true, 0x83: true, 0x87: true,
	0x90: true, 0x91: true, 0x97: true, 0x99: true,
}

// pubrelPubcompReasonCodes is shared by PUBREL and PUBCOMP: both carry
// only Success or a packet-identifier lookup failure.
var pubrelPubcompReasonCodes = map[uint8]bool{
	0x00: true, 0x92: true,
}

var subackV5ReasonCodes = map[uint8]bool{
	SubackQoS0: true, SubackQoS1: true, SubackQoS2: true,
	0x80: true, 0x83: true, 0x87: true, 0x8F: true, 0x90: true,
	0x91: true, 0x97: true, 0x9E: true, 0xA1: true, 0xA2: true,
}

var subackV3ReturnCodes = map[uint8]bool{
	SubackQoS0: true, SubackQoS1: true, SubackQoS2: true, SubackFailure: true,
}

var unsubackReasonCodes = map[uint8]bool{
	0x00: true, 0x11: true, 0x80: true, 0x83: true, 0x87: true,
	0x8F: true, 0x91: true,
}

var disconnectReasonCodes = map[uint8]bool{
	DisconnectNormal: true, DisconnectWithWillMessage: true,
	0x80: true, 0x81: true, DisconnectProtocolError: true, 0x83: true,
	0x87: true, 0x89: true, 0x8A: true, 0x8B: true, DisconnectKeepAliveTimeout: true,
	0x8E: true, 0x90: true, 0x91: true, 0x92: true, DisconnectReceiveMaximumExceeded: true,
	DisconnectTopicAliasInvalid: true, 0x95: true, 0x96: true, 0x97: true,
	0x98: true, 0x99: true, 0x9A: true, 0x9B: true, 0x9C: true, 0x9D: true,
	0x9E: true, 0x9F: true, 0xA0: true, 0xA1: true, 0xA2: true,
}

var authReasonCodes = map[uint8]bool{
	AuthReasonSuccess: true, AuthReasonContinue: true, AuthReasonReauthenticate: true,
}

func validateReasonCode(kind string, set map[uint8]bool, rc uint8) error {
	if !set[rc] {
		return fmt.Errorf("%w: unknown %s reason code 0x%02X", ErrMalformed, kind, rc)
	}
	return nil
}
