package engine

// topicAliasState tracks the v5.0 incoming and outgoing topic-alias
// maps (spec §3, §4.4.2), generalizing the teacher's per-Client
// receivedAliases/topicAliases fields (client.go, topic_alias.go) into
// engine-owned state so the same bookkeeping works for any transport.
type topicAliasState struct {
	incoming map[uint16]string // alias -> topic, populated from inbound PUBLISH

	outgoing      map[string]uint16 // topic -> alias, populated when AutoMapTopicAliasSend is on
	outgoingOrder []string          // insertion order, oldest first, for eviction
	nextOutgoing  uint16
	peerMax       uint16 // peer's advertised TopicAliasMaximum (bounds outgoing allocation)
	ourMax        uint16 // our advertised TopicAliasMaximum (bounds incoming validation; 0 admits no alias)
}

func newTopicAliasState() *topicAliasState {
	return &topicAliasState{
		incoming: make(map[uint16]string),
		outgoing: make(map[string]uint16),
	}
}

func (t *topicAliasState) reset() {
	t.incoming = make(map[uint16]string)
	t.outgoing = make(map[string]uint16)
	t.outgoingOrder = nil
	t.nextOutgoing = 0
}

// recordIncoming remembers (alias -> topic) from a PUBLISH that carried
// both a non-empty topic and an alias.
func (t *topicAliasState) recordIncoming(alias uint16, topic string) {
	t.incoming[alias] = topic
}

// resolveIncoming looks up topic for an empty-topic PUBLISH's alias.
func (t *topicAliasState) resolveIncoming(alias uint16) (string, bool) {
	topic, ok := t.incoming[alias]
	return topic, ok
}

// assignOutgoing returns the alias to use for an outbound PUBLISH to
// topic, and whether the topic field may be omitted (true when an
// existing mapping was reused). ok is false when no mapping exists and
// none could be allocated (map full and eviction disallowed).
func (t *topicAliasState) assignOutgoing(topic string, allowEvict bool) (alias uint16, omitTopic bool, ok bool) {
	if alias, exists := t.outgoing[topic]; exists {
		return alias, true, true
	}
	if t.peerMax == 0 {
		return 0, false, false
	}
	if uint16(len(t.outgoing)) >= t.peerMax {
		if !allowEvict || len(t.outgoingOrder) == 0 {
			return 0, false, false
		}
		oldest := t.outgoingOrder[0]
		t.outgoingOrder = t.outgoingOrder[1:]
		alias = t.outgoing[oldest]
		delete(t.outgoing, oldest)
	} else {
		t.nextOutgoing++
		alias = t.nextOutgoing
	}
	t.outgoing[topic] = alias
	t.outgoingOrder = append(t.outgoingOrder, topic)
	return alias, false, true
}
