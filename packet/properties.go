package packet

import "fmt"

// Property identifiers (MQTT v5.0 section 2.2.2.2).
const (
	PropPayloadFormatIndicator          uint8 = 0x01
	PropMessageExpiryInterval           uint8 = 0x02
	PropContentType                     uint8 = 0x03
	PropResponseTopic                   uint8 = 0x08
	PropCorrelationData                 uint8 = 0x09
	PropSubscriptionIdentifier          uint8 = 0x0B
	PropSessionExpiryInterval           uint8 = 0x11
	PropAssignedClientIdentifier        uint8 = 0x12
	PropServerKeepAlive                 uint8 = 0x13
	PropAuthenticationMethod            uint8 = 0x15
	PropAuthenticationData              uint8 = 0x16
	PropRequestProblemInformation       uint8 = 0x17
	PropWillDelayInterval                uint8 = 0x18
	PropRequestResponseInformation      uint8 = 0x19
	PropResponseInformation             uint8 = 0x1A
	PropServerReference                 uint8 = 0x1C
	PropReasonString                    uint8 = 0x1F
	PropReceiveMaximum                  uint8 = 0x21
	PropTopicAliasMaximum               uint8 = 0x22
	PropTopicAlias                      uint8 = 0x23
	PropMaximumQoS                      uint8 = 0x24
	PropRetainAvailable                 uint8 = 0x25
	PropUserProperty                    uint8 = 0x26
	PropMaximumPacketSize               uint8 = 0x27
	PropWildcardSubscriptionAvailable   uint8 = 0x28
	PropSubscriptionIdentifierAvailable uint8 = 0x29
	PropSharedSubscriptionAvailable     uint8 = 0x2A
)

// UserProperty is one key/value pair of the repeatable User Property.
// Order is preserved on both encode and decode.
type UserProperty struct {
	Key   string
	Value string
}

// Properties holds the decoded MQTT v5.0 Properties of a single packet.
// Fields are pointers where the MQTT spec allows the property to be
// absent; a nil pointer means "not present," not zero. SubscriptionID
// and User are the two property kinds the spec permits to repeat, so
// duplicates of everything else are a decode error.
type Properties struct {
	PayloadFormatIndicator     *uint8
	MessageExpiryInterval      *uint32
	ContentType                *string
	ResponseTopic              *string
	CorrelationData            []byte
	SubscriptionID             []int
	SessionExpiryInterval      *uint32
	AssignedClientIdentifier   *string
	ServerKeepAlive            *uint16
	AuthenticationMethod       *string
	AuthenticationData         []byte
	RequestProblemInformation  *uint8
	WillDelayInterval          *uint32
	RequestResponseInformation *uint8
	ResponseInformation        *string
	ServerReference            *string
	ReasonString               *string
	ReceiveMaximum              *uint16
	TopicAliasMaximum          *uint16
	TopicAlias                 *uint16
	MaximumQoS                 *uint8
	RetainAvailable            *uint8
	User                       []UserProperty
	MaximumPacketSize          *uint32
	WildcardSubscriptionAvail  *uint8
	SubscriptionIDAvailable    *uint8
	SharedSubscriptionAvail    *uint8
}

// IsEmpty reports whether no property was ever set, matching the
// teacher's convention of treating a properties-less packet as
// equivalent to an empty, non-nil Properties.
func (p *Properties) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.PayloadFormatIndicator == nil && p.MessageExpiryInterval == nil &&
		p.ContentType == nil && p.ResponseTopic == nil && len(p.CorrelationData) == 0 &&
		len(p.SubscriptionID) == 0 && p.SessionExpiryInterval == nil &&
		p.AssignedClientIdentifier == nil && p.ServerKeepAlive == nil &&
		p.AuthenticationMethod == nil && len(p.AuthenticationData) == 0 &&
		p.RequestProblemInformation == nil && p.WillDelayInterval == nil &&
		p.RequestResponseInformation == nil && p.ResponseInformation == nil &&
		p.ServerReference == nil && p.ReasonString == nil && p.ReceiveMaximum == nil &&
		p.TopicAliasMaximum == nil && p.TopicAlias == nil && p.MaximumQoS == nil &&
		p.RetainAvailable == nil && len(p.User) == 0 && p.MaximumPacketSize == nil &&
		p.WildcardSubscriptionAvail == nil && p.SubscriptionIDAvailable == nil &&
		p.SharedSubscriptionAvail == nil
}

func u8ptr(v uint8) *uint8   { return &v }
func u16ptr(v uint16) *uint16 { return &v }
func u32ptr(v uint32) *uint32 { return &v }
func strptr(v string) *string { return &v }

// appendProperties encodes p (nil treated as empty) as a length-prefixed
// property list: a Variable Byte Integer byte count followed by the
// ID/value pairs themselves, in the field order below.
func appendProperties(dst []byte, p *Properties) []byte {
	var body []byte
	if p != nil {
		if p.PayloadFormatIndicator != nil {
			body = append(body, PropPayloadFormatIndicator, *p.PayloadFormatIndicator)
		}
		if p.MessageExpiryInterval != nil {
			body = appendU32Prop(body, PropMessageExpiryInterval, *p.MessageExpiryInterval)
		}
		if p.ContentType != nil {
			body = appendStrProp(body, PropContentType, *p.ContentType)
		}
		if p.ResponseTopic != nil {
			body = appendStrProp(body, PropResponseTopic, *p.ResponseTopic)
		}
		if p.CorrelationData != nil {
			body = appendBinProp(body, PropCorrelationData, p.CorrelationData)
		}
		for _, id := range p.SubscriptionID {
			body = append(body, PropSubscriptionIdentifier)
			body = appendVarInt(body, id)
		}
		if p.SessionExpiryInterval != nil {
			body = appendU32Prop(body, PropSessionExpiryInterval, *p.SessionExpiryInterval)
		}
		if p.AssignedClientIdentifier != nil {
			body = appendStrProp(body, PropAssignedClientIdentifier, *p.AssignedClientIdentifier)
		}
		if p.ServerKeepAlive != nil {
			body = appendU16Prop(body, PropServerKeepAlive, *p.ServerKeepAlive)
		}
		if p.AuthenticationMethod != nil {
			body = appendStrProp(body, PropAuthenticationMethod, *p.AuthenticationMethod)
		}
		if p.AuthenticationData != nil {
			body = appendBinProp(body, PropAuthenticationData, p.AuthenticationData)
		}
		if p.RequestProblemInformation != nil {
			body = append(body, PropRequestProblemInformation, *p.RequestProblemInformation)
		}
		if p.WillDelayInterval != nil {
			body = appendU32Prop(body, PropWillDelayInterval, *p.WillDelayInterval)
		}
		if p.RequestResponseInformation != nil {
			body = append(body, PropRequestResponseInformation, *p.RequestResponseInformation)
		}
		if p.ResponseInformation != nil {
			body = appendStrProp(body, PropResponseInformation, *p.ResponseInformation)
		}
		if p.ServerReference != nil {
			body = appendStrProp(body, PropServerReference, *p.ServerReference)
		}
		if p.ReasonString != nil {
			body = appendStrProp(body, PropReasonString, *p.ReasonString)
		}
		if p.ReceiveMaximum != nil {
			body = appendU16Prop(body, PropReceiveMaximum, *p.ReceiveMaximum)
		}
		if p.TopicAliasMaximum != nil {
			body = appendU16Prop(body, PropTopicAliasMaximum, *p.TopicAliasMaximum)
		}
		if p.TopicAlias != nil {
			body = appendU16Prop(body, PropTopicAlias, *p.TopicAlias)
		}
		if p.MaximumQoS != nil {
			body = append(body, PropMaximumQoS, *p.MaximumQoS)
		}
		if p.RetainAvailable != nil {
			body = append(body, PropRetainAvailable, *p.RetainAvailable)
		}
		for _, up := range p.User {
			body = append(body, PropUserProperty)
			body = appendString(body, up.Key)
			body = appendString(body, up.Value)
		}
		if p.MaximumPacketSize != nil {
			body = appendU32Prop(body, PropMaximumPacketSize, *p.MaximumPacketSize)
		}
		if p.WildcardSubscriptionAvail != nil {
			body = append(body, PropWildcardSubscriptionAvailable, *p.WildcardSubscriptionAvail)
		}
		if p.SubscriptionIDAvailable != nil {
			body = append(body, PropSubscriptionIdentifierAvailable, *p.SubscriptionIDAvailable)
		}
		if p.SharedSubscriptionAvail != nil {
			body = append(body, PropSharedSubscriptionAvailable, *p.SharedSubscriptionAvail)
		}
	}
	dst = appendVarInt(dst, len(body))
	return append(dst, body...)
}

func appendU16Prop(dst []byte, id uint8, v uint16) []byte {
	return append(append(dst, id), byte(v>>8), byte(v))
}

func appendU32Prop(dst []byte, id uint8, v uint32) []byte {
	return append(append(dst, id), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendStrProp(dst []byte, id uint8, s string) []byte {
	return appendString(append(dst, id), s)
}

func appendBinProp(dst []byte, id uint8, b []byte) []byte {
	return appendBinary(append(dst, id), b)
}

func appendString(dst []byte, s string) []byte {
	dst = append(dst, byte(len(s)>>8), byte(len(s)))
	return append(dst, s...)
}

func appendBinary(dst []byte, b []byte) []byte {
	dst = append(dst, byte(len(b)>>8), byte(len(b)))
	return append(dst, b...)
}

// decodeProperties reads a length-prefixed property list from c. It
// rejects any property ID other than SubscriptionIdentifier/User that
// appears more than once, per the MQTT v5.0 protocol error requirement.
func decodeProperties(c *Cursor) (*Properties, error) {
	start := c.pos
	length, err := c.varInt()
	if err != nil {
		c.pos = start
		return nil, err
	}
	end := c.pos + length
	if c.Remaining() < length {
		c.pos = start
		return nil, ErrNeedMore
	}
	if length == 0 {
		return nil, nil
	}
	p := &Properties{}
	seen := map[uint8]bool{}
	for c.pos < end {
		id, err := c.byte()
		if err != nil {
			c.pos = start
			return nil, err
		}
		if id != PropUserProperty && id != PropSubscriptionIdentifier {
			if seen[id] {
				return nil, fmt.Errorf("%w: duplicate property 0x%02x", ErrMalformed, id)
			}
			seen[id] = true
		}
		if err := decodeOneProperty(c, p, id); err != nil {
			if err == ErrNeedMore {
				c.pos = start
				return nil, ErrNeedMore
			}
			return nil, err
		}
	}
	if c.pos != end {
		return nil, fmt.Errorf("%w: property length mismatch", ErrMalformed)
	}
	return p, nil
}

func decodeOneProperty(c *Cursor, p *Properties, id uint8) error {
	switch id {
	case PropPayloadFormatIndicator:
		v, err := c.byte()
		if err != nil {
			return err
		}
		p.PayloadFormatIndicator = u8ptr(v)
	case PropMessageExpiryInterval:
		v, err := c.uint32()
		if err != nil {
			return err
		}
		p.MessageExpiryInterval = u32ptr(v)
	case PropContentType:
		v, err := c.str()
		if err != nil {
			return err
		}
		p.ContentType = strptr(v)
	case PropResponseTopic:
		v, err := c.str()
		if err != nil {
			return err
		}
		p.ResponseTopic = strptr(v)
	case PropCorrelationData:
		v, err := c.binary()
		if err != nil {
			return err
		}
		p.CorrelationData = v
	case PropSubscriptionIdentifier:
		v, err := c.varInt()
		if err != nil {
			return err
		}
		p.SubscriptionID = append(p.SubscriptionID, v)
	case PropSessionExpiryInterval:
		v, err := c.uint32()
		if err != nil {
			return err
		}
		p.SessionExpiryInterval = u32ptr(v)
	case PropAssignedClientIdentifier:
		v, err := c.str()
		if err != nil {
			return err
		}
		p.AssignedClientIdentifier = strptr(v)
	case PropServerKeepAlive:
		v, err := c.uint16()
		if err != nil {
			return err
		}
		p.ServerKeepAlive = u16ptr(v)
	case PropAuthenticationMethod:
		v, err := c.str()
		if err != nil {
			return err
		}
		p.AuthenticationMethod = strptr(v)
	case PropAuthenticationData:
		v, err := c.binary()
		if err != nil {
			return err
		}
		p.AuthenticationData = v
	case PropRequestProblemInformation:
		v, err := c.byte()
		if err != nil {
			return err
		}
		p.RequestProblemInformation = u8ptr(v)
	case PropWillDelayInterval:
		v, err := c.uint32()
		if err != nil {
			return err
		}
		p.WillDelayInterval = u32ptr(v)
	case PropRequestResponseInformation:
		v, err := c.byte()
		if err != nil {
			return err
		}
		p.RequestResponseInformation = u8ptr(v)
	case PropResponseInformation:
		v, err := c.str()
		if err != nil {
			return err
		}
		p.ResponseInformation = strptr(v)
	case PropServerReference:
		v, err := c.str()
		if err != nil {
			return err
		}
		p.ServerReference = strptr(v)
	case PropReasonString:
		v, err := c.str()
		if err != nil {
			return err
		}
		p.ReasonString = strptr(v)
	case PropReceiveMaximum:
		v, err := c.uint16()
		if err != nil {
			return err
		}
		p.ReceiveMaximum = u16ptr(v)
	case PropTopicAliasMaximum:
		v, err := c.uint16()
		if err != nil {
			return err
		}
		p.TopicAliasMaximum = u16ptr(v)
	case PropTopicAlias:
		v, err := c.uint16()
		if err != nil {
			return err
		}
		p.TopicAlias = u16ptr(v)
	case PropMaximumQoS:
		v, err := c.byte()
		if err != nil {
			return err
		}
		p.MaximumQoS = u8ptr(v)
	case PropRetainAvailable:
		v, err := c.byte()
		if err != nil {
			return err
		}
		p.RetainAvailable = u8ptr(v)
	case PropUserProperty:
		k, err := c.str()
		if err != nil {
			return err
		}
		v, err := c.str()
		if err != nil {
			return err
		}
		p.User = append(p.User, UserProperty{Key: k, Value: v})
	case PropMaximumPacketSize:
		v, err := c.uint32()
		if err != nil {
			return err
		}
		p.MaximumPacketSize = u32ptr(v)
	case PropWildcardSubscriptionAvailable:
		v, err := c.byte()
		if err != nil {
			return err
		}
		p.WildcardSubscriptionAvail = u8ptr(v)
	case PropSubscriptionIdentifierAvailable:
		v, err := c.byte()
		if err != nil {
			return err
		}
		p.SubscriptionIDAvailable = u8ptr(v)
	case PropSharedSubscriptionAvailable:
		v, err := c.byte()
		if err != nil {
			return err
		}
		p.SharedSubscriptionAvail = u8ptr(v)
	default:
		return fmt.Errorf("%w: unknown property 0x%02x", ErrMalformed, id)
	}
	return nil
}
