package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/arrowmq/endpoint/timerset"
)

// connTransport adapts any net.Conn into a Transport: a read goroutine
// pushes Bytes/Error/Closed events, Send/Close write and tear down the
// connection directly, and a timerset.Registry backs ArmTimer/
// CancelTimer, emitting TimerExpired onto the same event channel. TCP,
// TLS, and WebSocket transports all bottom out here once dialed, the
// way the teacher's Client treats a TCP conn and a websocket.NetConn
// identically past dialServer (client.go).
type connTransport struct {
	mu      sync.Mutex
	conn    net.Conn
	events  chan Event
	timers  *timerset.Registry
	closing bool

	closeOnce sync.Once
}

func newConnTransport() *connTransport {
	return &connTransport{
		events: make(chan Event, 64),
		timers: timerset.New(),
	}
}

// attach begins the read loop over conn and emits Connected. Callers
// (TCP/TLS/WebSocket dialers) call this once conn is established.
func (t *connTransport) attach(conn net.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	t.events <- Event{Kind: Connected}
	go t.readLoop(conn)
}

func (t *connTransport) readLoop(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			t.events <- Event{Kind: Bytes, Data: data}
		}
		if err != nil {
			t.mu.Lock()
			ownClose := t.closing
			t.mu.Unlock()
			if err != io.EOF && !ownClose {
				t.events <- Event{Kind: Error, Err: err}
			}
			t.emitClosed()
			return
		}
	}
}

func (t *connTransport) emitClosed() {
	t.closeOnce.Do(func() {
		t.timers.ClearAll()
		t.events <- Event{Kind: Closed}
	})
}

func (t *connTransport) Send(b []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return net.ErrClosed
	}
	_, err := conn.Write(b)
	return err
}

func (t *connTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.closing = true
	t.mu.Unlock()
	var err error
	if conn != nil {
		err = conn.Close()
	}
	t.emitClosed()
	return err
}

func (t *connTransport) Events() <-chan Event { return t.events }

func (t *connTransport) ArmTimer(kind timerset.Kind, d time.Duration) {
	t.timers.Reopen()
	t.timers.Arm(kind, d, func() {
		t.events <- Event{Kind: TimerExpired, Timer: kind}
	})
}

func (t *connTransport) CancelTimer(kind timerset.Kind) {
	t.timers.Cancel(kind)
}

// dialContext is shared by TCP/TLS dialing so connect failures surface
// as an Error event rather than a blocking Connect call, matching spec
// §4.6's "Connect(url) ... reports Connected or Error."
func (t *connTransport) dialContext(ctx context.Context, dial func(context.Context) (net.Conn, error)) error {
	conn, err := dial(ctx)
	if err != nil {
		t.events <- Event{Kind: Error, Err: err}
		return err
	}
	t.attach(conn)
	return nil
}
