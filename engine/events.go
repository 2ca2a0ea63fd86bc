package engine

import (
	"time"

	"github.com/arrowmq/endpoint/packet"
	"github.com/arrowmq/endpoint/timerset"
)

// EventKind tags the variant of an Event, avoiding the proliferation of
// near-identical per-kind types spec §9 warns against for the packet
// union; the same approach is applied here to the engine's outputs.
type EventKind int

const (
	// SendBytes carries wire bytes the endpoint loop must hand to the
	// transport's Send command.
	SendBytes EventKind = iota
	// DeliverPacket carries a decoded packet for the pending-receive
	// dispatch (spec §4.5).
	DeliverPacket
	// ArmTimer asks the endpoint loop to issue a TimerReset command for
	// the named timer kind.
	ArmTimer
	// CancelTimer asks the endpoint loop to issue a TimerCancel command.
	CancelTimer
	// RequestClose tells the endpoint loop the connection must close
	// (fatal codec or protocol error, or an inbound DISCONNECT).
	RequestClose
	// NotifyError reports an error the application should observe,
	// alongside (when the event also closes the connection) a
	// RequestClose event emitted in the same batch.
	NotifyError
)

// Event is one output of a Connection's input-handling methods. A
// single input can produce several events, e.g. a PUBLISH QoS1 yields
// both DeliverPacket and SendBytes (auto PUBACK).
type Event struct {
	Kind     EventKind
	Bytes    []byte
	Packet   packet.Packet
	Timer    timerset.Kind
	Duration time.Duration
	Err      error
}

func evSendBytes(b []byte) Event   { return Event{Kind: SendBytes, Bytes: b} }
func evDeliver(p packet.Packet) Event { return Event{Kind: DeliverPacket, Packet: p} }
func evArm(k timerset.Kind, d time.Duration) Event {
	return Event{Kind: ArmTimer, Timer: k, Duration: d}
}
func evCancel(k timerset.Kind) Event { return Event{Kind: CancelTimer, Timer: k} }
func evClose() Event                 { return Event{Kind: RequestClose} }
func evError(err error) Event        { return Event{Kind: NotifyError, Err: err} }
