package mqttendpoint

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arrowmq/endpoint/engine"
	"github.com/arrowmq/endpoint/packet"
	"github.com/arrowmq/endpoint/transport"
)

// Request messages accepted on Endpoint.reqCh, one struct per API
// operation of spec §4.5's "API requests" channel. This generalizes the
// teacher's per-operation request structs (publishRequest,
// subscribeRequest in requests.go, each carrying a *token) into a
// reply-channel shape suited to a single-select loop rather than a
// sessionLock-guarded method call.
type (
	connectReq struct {
		ctx   context.Context
		url   string
		reply chan error
	}
	sendReq struct {
		pkt   packet.Packet
		reply chan error
	}
	recvReq struct {
		ctx   context.Context
		reply chan recvResult
	}
	closeReq struct {
		reply chan error
	}
	acquireReq struct {
		reply chan acquireResult
	}
	registerReq struct {
		id    uint16
		reply chan bool
	}
	releaseReq struct {
		id    uint16
		reply chan struct{}
	}
	stateReq struct {
		reply chan engine.State
	}

	// connectTimeoutReq and closeTimeoutReq are synthetic requests a
	// time.AfterFunc pushes back onto reqCh to implement the
	// connection_establish_timeout_ms / shutdown_timeout_ms watchdogs
	// spec §9 reserves. Routing them through reqCh keeps every mutation
	// of run-loop state on the single owning goroutine instead of
	// racing a timer goroutine against it.
	connectTimeoutReq struct{ epoch uint64 }
	closeTimeoutReq   struct{ epoch uint64 }
)

// run is the endpoint loop: the single cooperative task of spec §4.5
// that multiplexes API requests, transport events, and — indirectly,
// via applyEvents — decoded packets. Grounded on the teacher's
// logicLoop (logic.go), collapsed from three goroutines plus a mutex
// into one select with no shared lock, per §9's re-architecture note on
// "reply slots shared between producer task and transport task."
func (e *Endpoint) run() {
	events := e.transport.Events()
	for {
		select {
		case req := <-e.reqCh:
			e.handleRequest(req)
		case ev := <-events:
			e.handleTransportEvent(ev)
		}
	}
}

func (e *Endpoint) handleRequest(req any) {
	switch r := req.(type) {
	case *connectReq:
		e.handleConnect(r)
	case *sendReq:
		e.handleSend(r)
	case *recvReq:
		e.handleRecv(r)
	case *closeReq:
		e.handleClose(r)
	case *acquireReq:
		id, ok := e.ids.Acquire()
		r.reply <- acquireResult{id: id, ok: ok}
	case *registerReq:
		r.reply <- e.ids.Register(r.id)
	case *releaseReq:
		e.applyEvents(e.conn.HandleReleasePacketId(r.id))
		r.reply <- struct{}{}
	case *stateReq:
		r.reply <- e.state
	case *connectTimeoutReq:
		e.handleConnectTimeout(r.epoch)
	case *closeTimeoutReq:
		e.handleCloseTimeout(r.epoch)
	}
}

// handleConnect implements spec §4.5's Connect API request.
func (e *Endpoint) handleConnect(r *connectReq) {
	if e.state == engine.Connecting || e.state == engine.Connected {
		r.reply <- newError(errAlreadyConnecting, "endpoint is %s", e.state)
		return
	}
	if e.state == engine.Closed {
		e.resetForReconnection()
	}
	e.state = engine.Connecting
	e.pendingConnect = r
	e.connectEpoch++
	epoch := e.connectEpoch

	// The dial runs to completion regardless of r.ctx: spec §5's
	// Cancellation note says a Connect caller that gives up while the
	// transport is establishing "leaves the transport to proceed," so
	// the dial is supervised on an independent context, not r.ctx.
	// errgroup.Group collects the dial's error the way the pack's
	// larger repos supervise a single bounded background task instead
	// of a bare `go func(){...}()` that drops its error on the floor.
	var g errgroup.Group
	g.Go(func() error {
		return e.transport.Connect(context.Background(), r.url)
	})
	go func() {
		if err := g.Wait(); err != nil {
			e.cfg.Logger.Debug("transport connect returned error", "err", err)
		}
	}()

	if e.cfg.ConnectTimeout > 0 {
		time.AfterFunc(e.cfg.ConnectTimeout, func() {
			e.reqCh <- &connectTimeoutReq{epoch: epoch}
		})
	}
}

func (e *Endpoint) handleConnectTimeout(epoch uint64) {
	if epoch != e.connectEpoch || e.pendingConnect == nil {
		return
	}
	r := e.pendingConnect
	e.pendingConnect = nil
	e.state = engine.Disconnected
	r.reply <- newError(ErrTransportError, "connect timed out before transport reported Connected")
}

// handleSend implements spec §4.5's Send API request, auto-populating
// v5.0 enhanced-authentication CONNECT properties from cfg.Authenticator
// when the caller left them unset (spec §4.4.1, §6).
func (e *Endpoint) handleSend(r *sendReq) {
	if e.state == engine.Closed {
		r.reply <- newError(ErrConnectionClosed, "endpoint is closed")
		return
	}
	if cp, ok := r.pkt.(*packet.ConnectPacket); ok && e.cfg.Authenticator != nil && cp.Version == packet.V5_0 {
		if cp.Properties == nil {
			cp.Properties = &packet.Properties{}
		}
		if cp.Properties.AuthenticationMethod == nil {
			method := e.cfg.Authenticator.Method()
			cp.Properties.AuthenticationMethod = &method
			if data, err := e.cfg.Authenticator.InitialData(); err == nil && len(data) > 0 {
				cp.Properties.AuthenticationData = data
			} else if err != nil {
				r.reply <- newError(ErrInvalidPacket, "authenticator initial data: %s", err)
				return
			}
		}
	}

	events, err := e.conn.HandleSend(r.pkt)
	if err != nil {
		r.reply <- wrapEngineError(err)
		return
	}
	e.applyEvents(events)
	r.reply <- nil
}

// handleRecv implements spec §4.5's Recv API request.
func (e *Endpoint) handleRecv(r *recvReq) {
	if e.undelivered != nil {
		r.reply <- recvResult{pkt: e.undelivered}
		e.undelivered = nil
		return
	}
	if e.state == engine.Closed {
		r.reply <- recvResult{err: newError(ErrConnectionClosed, "endpoint is closed")}
		return
	}
	e.pendingRecv = append(e.pendingRecv, pendingRecvSlot{ctx: r.ctx, reply: r.reply})
}

// handleClose implements spec §4.5's Close API request. The base
// behavior replies Ok immediately once TransportClose is dispatched; if
// cfg.CloseTimeout is set, the reply is instead stashed until the
// transport confirms Closed or the watchdog fires, exercising §9's
// shutdown_timeout_ms Open Question.
func (e *Endpoint) handleClose(r *closeReq) {
	if err := e.transport.Close(); err != nil {
		e.cfg.Logger.Debug("transport close returned error", "err", err)
	}
	e.state = engine.Closed

	if e.cfg.CloseTimeout <= 0 {
		r.reply <- nil
		return
	}
	e.pendingClose = r
	e.closeEpoch++
	epoch := e.closeEpoch
	time.AfterFunc(e.cfg.CloseTimeout, func() {
		e.reqCh <- &closeTimeoutReq{epoch: epoch}
	})
}

func (e *Endpoint) handleCloseTimeout(epoch uint64) {
	if epoch != e.closeEpoch || e.pendingClose == nil {
		return
	}
	r := e.pendingClose
	e.pendingClose = nil
	r.reply <- nil
}

// handleTransportEvent implements spec §4.5's "Transport events" input.
func (e *Endpoint) handleTransportEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.Connected:
		e.state = engine.Connected
		if e.pendingConnect != nil {
			r := e.pendingConnect
			e.pendingConnect = nil
			r.reply <- nil
		}

	case transport.Bytes:
		e.handleBytes(ev.Data)

	case transport.Error:
		e.state = engine.Disconnected
		if e.pendingConnect != nil {
			r := e.pendingConnect
			e.pendingConnect = nil
			r.reply <- newError(ErrTransportError, "%s", ev.Err)
		}

	case transport.Closed:
		e.handleClosed()

	case transport.TimerExpired:
		if e.state == engine.Closed {
			return
		}
		e.applyEvents(e.conn.HandleTimerFired(ev.Timer))
	}
}

// handleBytes appends ev's data to the read buffer, feeds it to the
// engine, and advances the consumed offset by however much the cursor
// moved, per spec §3's compaction protocol and §4.5's Bytes handling.
func (e *Endpoint) handleBytes(data []byte) {
	e.buf.append(data)
	e.cur.Reset(e.buf.buf[e.buf.consumed:])
	events := e.conn.HandleRecvBytes(e.cur)
	e.buf.consumed += e.cur.Pos()
	e.applyEvents(events)
}

// handleClosed implements spec §4.5's Closed transport event.
func (e *Endpoint) handleClosed() {
	e.state = engine.Closed
	e.applyEvents(e.conn.HandleNotifyClosed())

	if e.pendingConnect != nil {
		r := e.pendingConnect
		e.pendingConnect = nil
		r.reply <- newError(ErrTransportError, "transport closed before Connected")
	}
	if e.pendingClose != nil {
		r := e.pendingClose
		e.pendingClose = nil
		r.reply <- nil
	}

	closedErr := newError(ErrConnectionClosed, "endpoint is closed")
	for _, slot := range e.pendingRecv {
		if slot.ctx == nil || slot.ctx.Err() == nil {
			slot.reply <- recvResult{err: closedErr}
		}
	}
	e.pendingRecv = nil
	e.undelivered = nil
}

// applyEvents carries out the side effects of one batch of engine
// events, translating each into a transport command, a pending-receive
// dispatch, or a RequestClose/NotifyError response, per spec §4.5's
// "translating engine events into transport commands and API replies."
func (e *Endpoint) applyEvents(events []engine.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case engine.SendBytes:
			if err := e.transport.Send(ev.Bytes); err != nil {
				e.cfg.Logger.Warn("transport send failed", "err", err)
			}
		case engine.DeliverPacket:
			e.dispatchPacket(ev.Packet)
		case engine.ArmTimer:
			e.transport.ArmTimer(ev.Timer, ev.Duration)
		case engine.CancelTimer:
			e.transport.CancelTimer(ev.Timer)
		case engine.RequestClose:
			if err := e.transport.Close(); err != nil {
				e.cfg.Logger.Debug("transport close returned error", "err", err)
			}
		case engine.NotifyError:
			e.cfg.Logger.Warn("engine error", "err", ev.Err)
		}
	}
}

// dispatchPacket runs spec §4.5's pending-receive dispatch for one
// decoded packet, after intercepting v5.0 AUTH challenges when an
// Authenticator is configured (spec §4.4.1, §6): those drive the
// exchange directly instead of reaching the application's Recv.
func (e *Endpoint) dispatchPacket(p packet.Packet) {
	if ap, ok := p.(*packet.AuthPacket); ok && e.cfg.Authenticator != nil {
		e.handleAuthChallenge(ap)
		return
	}
	if cp, ok := p.(*packet.ConnackPacket); ok && cp.ReasonCode == packet.ConnAccepted && e.cfg.Authenticator != nil {
		if err := e.cfg.Authenticator.Complete(); err != nil {
			e.cfg.Logger.Warn("authenticator completion failed", "err", err)
		}
	}

	for len(e.pendingRecv) > 0 {
		slot := e.pendingRecv[0]
		e.pendingRecv = e.pendingRecv[1:]
		if slot.ctx != nil && slot.ctx.Err() != nil {
			continue // dead slot; recover the packet for the next one
		}
		slot.reply <- recvResult{pkt: p}
		return
	}
	e.undelivered = p
}

// handleAuthChallenge drives one round of the v5.0 enhanced
// authentication exchange, sending the Authenticator's response as a
// new AUTH packet directly through the engine rather than routing it
// back through reqCh, since the endpoint loop itself is the caller here
// (spec §4.4.1's exchange is opaque to the application).
func (e *Endpoint) handleAuthChallenge(ap *packet.AuthPacket) {
	var challengeData []byte
	var reasonCode uint8
	if ap.Properties != nil {
		challengeData = ap.Properties.AuthenticationData
	}
	reasonCode = ap.ReasonCode

	resp, err := e.cfg.Authenticator.HandleChallenge(challengeData, reasonCode)
	if err != nil {
		e.cfg.Logger.Warn("authenticator challenge failed", "err", err)
		if closeErr := e.transport.Close(); closeErr != nil {
			e.cfg.Logger.Debug("transport close returned error", "err", closeErr)
		}
		return
	}

	method := e.cfg.Authenticator.Method()
	out := &packet.AuthPacket{
		ReasonCode: packet.AuthReasonContinue,
		Properties: &packet.Properties{AuthenticationMethod: &method, AuthenticationData: resp},
	}
	events, err := e.conn.HandleSend(out)
	if err != nil {
		e.cfg.Logger.Warn("failed to send AUTH response", "err", err)
		return
	}
	e.applyEvents(events)
}

// resetForReconnection restores the endpoint to a fresh-equivalent
// state (spec §4.5, testable property 17): the engine, allocator, read
// buffer, and pending-receive FIFO are all cleared, the way the
// teacher's internalResetState (logic.go) clears session state before a
// reconnect, generalized here to cover every piece of state this engine
// carries instead of just QoS2 bookkeeping. Timers are not touched here:
// the registry lives in the transport, which clears it when it closes.
func (e *Endpoint) resetForReconnection() {
	e.conn.Reset()
	e.ids.Reset()
	e.buf.reset()
	e.cur.Reset(nil)
	for _, slot := range e.pendingRecv {
		if slot.ctx == nil || slot.ctx.Err() == nil {
			slot.reply <- recvResult{err: newError(ErrConnectionClosed, "endpoint reconnecting")}
		}
	}
	e.pendingRecv = nil
	e.undelivered = nil
}
