// Package mqttendpoint implements the MQTT client-side endpoint loop
// (C5): the single cooperative task that owns a protocol engine, a
// packet-identifier allocator, and a read buffer, and drives them over
// an abstract transport.Transport, which also holds the timers the
// engine arms. It is the generalization of the teacher's Client
// (client.go) from "one TCP-attached connection with a
// logicLoop/readLoop/writeLoop split" into "one engine driven over any
// Transport by a single select loop" (see DESIGN.md, C5).
package mqttendpoint

import (
	"context"

	"github.com/arrowmq/endpoint/engine"
	"github.com/arrowmq/endpoint/idpool"
	"github.com/arrowmq/endpoint/packet"
	"github.com/arrowmq/endpoint/transport"
)

// Endpoint is a single MQTT client-side connection context: one engine,
// one allocator, one transport. It is safe for concurrent use from any
// number of goroutines; every field below the request-channel line is
// touched only by the run loop goroutine started in New, the same
// ownership discipline the teacher gives sessionLock-guarded Client
// fields, generalized here into "no lock, one owning goroutine" per
// spec §5.
type Endpoint struct {
	cfg       config
	transport transport.Transport
	reqCh     chan any

	// --- run-loop-owned state; touched only inside run() ---

	state engine.State
	ids   *idpool.Allocator
	conn  *engine.Connection
	cur   *packet.Cursor
	buf   readBuffer

	pendingRecv []pendingRecvSlot
	undelivered packet.Packet

	pendingConnect *connectReq
	connectEpoch   uint64

	pendingClose *closeReq
	closeEpoch   uint64
}

// pendingRecvSlot is one entry of the pending-receive FIFO (spec §3). A
// slot is dead once its ctx is cancelled; the run loop detects this
// lazily, the way spec §5's Cancellation paragraph specifies.
type pendingRecvSlot struct {
	ctx   context.Context
	reply chan recvResult
}

type recvResult struct {
	pkt packet.Packet
	err error
}

type acquireResult struct {
	id uint16
	ok bool
}

// New constructs an Endpoint bound to tr and starts its run loop. The
// Endpoint begins in engine.Disconnected; call Connect to dial tr.
func New(tr transport.Transport, opts ...Option) *Endpoint {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ids := idpool.New()
	e := &Endpoint{
		cfg:       cfg,
		transport: tr,
		reqCh:     make(chan any),
		state:     engine.Disconnected,
		ids:       ids,
		conn:      engine.New(cfg.engine, ids),
		cur:       packet.NewCursor(nil),
	}
	go e.run()
	return e
}

// Connect dials url over the endpoint's transport. It returns once the
// transport reports Connected, once it reports an Error, or once ctx is
// cancelled — in which case the dial is left to proceed in the
// background per spec §5's Cancellation note.
func (e *Endpoint) Connect(ctx context.Context, url string) error {
	reply := make(chan error, 1)
	req := &connectReq{ctx: ctx, url: url, reply: reply}
	select {
	case e.reqCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send validates p against protocol state and, on success, writes its
// encoding to the transport.
func (e *Endpoint) Send(p packet.Packet) error {
	reply := make(chan error, 1)
	e.reqCh <- &sendReq{pkt: p, reply: reply}
	return <-reply
}

// Recv returns the next decoded packet, the prior undelivered packet if
// one is waiting, or ConnectionClosed once the endpoint is Closed. If
// ctx is cancelled before a packet arrives, Recv returns ctx.Err() and
// its reply slot is abandoned in place; the run loop recovers any
// packet later delivered to the abandoned slot (spec §4.5/§5).
func (e *Endpoint) Recv(ctx context.Context) (packet.Packet, error) {
	reply := make(chan recvResult, 1)
	req := &recvReq{ctx: ctx, reply: reply}
	select {
	case e.reqCh <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.pkt, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the current transport connection and transitions
// the endpoint to Closed. The endpoint remains reusable: a subsequent
// Connect runs reset_for_reconnection and proceeds as a fresh instance.
func (e *Endpoint) Close() error {
	reply := make(chan error, 1)
	e.reqCh <- &closeReq{reply: reply}
	return <-reply
}

// State reports the endpoint's transport-level lifecycle state.
func (e *Endpoint) State() engine.State {
	reply := make(chan engine.State, 1)
	e.reqCh <- &stateReq{reply: reply}
	return <-reply
}

// IsConnected reports whether State() == engine.Connected.
func (e *Endpoint) IsConnected() bool {
	return e.State() == engine.Connected
}

// AcquirePacketId returns the lowest packet identifier not currently in
// use, or (0, false) if all 65535 are allocated.
func (e *Endpoint) AcquirePacketId() (uint16, bool) {
	reply := make(chan acquireResult, 1)
	e.reqCh <- &acquireReq{reply: reply}
	res := <-reply
	return res.id, res.ok
}

// RegisterPacketId marks id as in use, for a caller that picked its own
// identifier. It reports false if id was already in use or is 0.
func (e *Endpoint) RegisterPacketId(id uint16) bool {
	reply := make(chan bool, 1)
	e.reqCh <- &registerReq{id: id, reply: reply}
	return <-reply
}

// ReleasePacketId marks id as free and lets the engine clear any
// internal bookkeeping tied to it (spec §4.5).
func (e *Endpoint) ReleasePacketId(id uint16) {
	reply := make(chan struct{}, 1)
	e.reqCh <- &releaseReq{id: id, reply: reply}
	<-reply
}
