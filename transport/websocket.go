package transport

import (
	"context"
	"net"

	"nhooyr.io/websocket"
)

// WebSocket is a Transport backed by nhooyr.io/websocket, carrying the
// "mqtt" subprotocol in binary frames as spec §6 requires. Grounded on
// the teacher's examples/websocket/main.go, which dials with exactly
// this subprotocol and wraps the result with websocket.NetConn so the
// rest of the client sees an ordinary net.Conn — this package keeps
// that same wrap-into-net.Conn trick so WebSocket shares connTransport's
// read loop with TCP and TLS.
type WebSocket struct {
	*connTransport
}

// NewWebSocket returns a WebSocket transport.
func NewWebSocket() *WebSocket {
	return &WebSocket{connTransport: newConnTransport()}
}

func (t *WebSocket) Connect(ctx context.Context, url string) error {
	return t.dialContext(ctx, func(ctx context.Context) (net.Conn, error) {
		c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
			Subprotocols: []string{"mqtt"},
		})
		if err != nil {
			return nil, err
		}
		return websocket.NetConn(ctx, c, websocket.MessageBinary), nil
	})
}
